// Package cli implements the cassette command-line interface.
//
// Every command reads an optional TOML configuration (--config) and opens
// the component store it names; --store overrides the backend. Programs
// are Lisp (.lisp, or anything not ending in .json) or JSON.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/chazu/cassette/pkg/config"
	"github.com/chazu/cassette/pkg/engine"
	"github.com/chazu/cassette/pkg/kernel"
	"github.com/chazu/cassette/pkg/kernel/sdfx"
	"github.com/chazu/cassette/pkg/pipeline"
	"github.com/chazu/cassette/pkg/store"
	"github.com/chazu/cassette/pkg/store/mongostore"
	"github.com/chazu/cassette/pkg/store/redisstore"
)

const appName = "cassette"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// Version is set by main from build flags.
var Version = "dev"

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	backend    string
}

// New creates a CLI logging to w.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
			Prefix:          appName,
		}),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Cassette generates interlocking timber cassettes for polygonal envelopes",
		Long:         `Cassette turns a set of adjacent planar panels into layered beams, plates and dowels with sawtooth joints between neighboring panels, ready for CNC cutting.`,
		Version:      Version,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "TOML configuration file")
	root.PersistentFlags().StringVar(&c.backend, "store", "", "store backend: memory, file, redis, mongo (overrides config)")

	root.AddCommand(c.generateCommand())
	root.AddCommand(c.previewCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.serveCommand())
	return root
}

// loadConfig reads --config and applies --store.
func (c *CLI) loadConfig() (config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if c.backend != "" {
		cfg.Store.Backend = c.backend
		if err := cfg.Validate(); err != nil {
			return config.Config{}, err
		}
	}
	return cfg, nil
}

// openStore opens the configured backend.
func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return store.NewMemory(), nil
	case config.BackendFile:
		st, err := store.NewFile(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return st, nil
	case config.BackendRedis:
		st, err := redisstore.New(ctx, redisstore.Config{Addr: cfg.RedisAddr})
		if err != nil {
			return nil, err
		}
		return st, nil
	case config.BackendMongo:
		st, err := mongostore.New(ctx, mongostore.Config{URI: cfg.MongoURI, Database: cfg.MongoDatabase})
		if err != nil {
			return nil, err
		}
		return st, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}

func newKernel(cfg config.Config) kernel.Kernel {
	return sdfx.New(sdfx.WithMeshCells(cfg.Kernel.MeshCells))
}

// env is what a command needs to run the pipeline.
type env struct {
	cfg    config.Config
	store  store.Store
	kernel kernel.Kernel
}

func (c *CLI) openEnv(ctx context.Context) (*env, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("store opened", "backend", cfg.Store.Backend)
	return &env{cfg: cfg, store: st, kernel: newKernel(cfg)}, nil
}

func (e *env) Close() error { return e.store.Close() }

// runProgram evaluates a program file and runs the pipeline on it.
func (c *CLI) runProgram(ctx context.Context, e *env, path string) (*pipeline.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	prog, err := engine.NewEngine(e.cfg.Geometry).Parse(path, data)
	if err != nil {
		return nil, err
	}
	topo, err := prog.Topology()
	if err != nil {
		return nil, err
	}
	c.Logger.Info("program loaded", "file", path, "panels", len(prog.Panels))

	runner := pipeline.NewRunner(e.store, e.kernel, prog.Settings,
		pipeline.WithLogger(c.Logger),
		pipeline.WithConcurrency(e.cfg.Pipeline.Concurrency))
	return runner.Run(ctx, topo)
}
