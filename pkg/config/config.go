// Package config loads cassette settings from TOML.
//
// A configuration file only needs the keys it wants to change; everything
// else keeps the value from Default:
//
//	[geometry]
//	beam_thickness = 0.024
//
//	[store]
//	backend = "redis"
//	redis_addr = "localhost:6379"
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/chazu/cassette/pkg/errors"
)

// GeometrySettings are the material and tooling dimensions every
// generation pass is parameterized by. All lengths are in model units.
type GeometrySettings struct {
	BeamMaxWidth   float64 `toml:"beam_max_width" json:"beam_max_width"`
	BeamThickness  float64 `toml:"beam_thickness" json:"beam_thickness"`
	PlateThickness float64 `toml:"plate_thickness" json:"plate_thickness"`
	DowelRadius    float64 `toml:"dowel_radius" json:"dowel_radius"`
	SawtoothDepth  float64 `toml:"sawtooth_depth" json:"sawtooth_depth"`
	SawtoothWidth  float64 `toml:"sawtooth_width" json:"sawtooth_width"`
	SawtoothSafety float64 `toml:"sawtooth_safety" json:"sawtooth_safety"`
	ToolheadRadius float64 `toml:"toolhead_radius" json:"toolhead_radius"`
}

// DefaultGeometry returns the stock timber dimensions.
func DefaultGeometry() GeometrySettings {
	return GeometrySettings{
		BeamMaxWidth:   0.06,
		BeamThickness:  0.02,
		PlateThickness: 0.025,
		DowelRadius:    0.005,
		SawtoothDepth:  0.015,
		SawtoothWidth:  0.04,
		SawtoothSafety: 0.1,
		ToolheadRadius: 0.004,
	}
}

// Validate checks that every dimension is usable.
func (g GeometrySettings) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"beam_max_width", g.BeamMaxWidth},
		{"beam_thickness", g.BeamThickness},
		{"plate_thickness", g.PlateThickness},
		{"dowel_radius", g.DowelRadius},
		{"sawtooth_depth", g.SawtoothDepth},
		{"sawtooth_width", g.SawtoothWidth},
		{"toolhead_radius", g.ToolheadRadius},
	}
	for _, f := range fields {
		if !(f.value > 0) {
			return errors.New(errors.ErrCodeInvalidInput, "geometry.%s must be positive, got %g", f.name, f.value)
		}
	}
	if g.SawtoothSafety < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "geometry.sawtooth_safety must not be negative, got %g", g.SawtoothSafety)
	}
	if g.ToolheadRadius*2 >= g.SawtoothWidth/2 {
		return errors.New(errors.ErrCodeInvalidInput,
			"geometry.toolhead_radius %g does not fit a tooth of width %g", g.ToolheadRadius, g.SawtoothWidth)
	}
	return nil
}

// Store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

// StoreConfig selects and addresses the component store.
type StoreConfig struct {
	Backend       string `toml:"backend"`
	Dir           string `toml:"dir"`
	RedisAddr     string `toml:"redis_addr"`
	MongoURI      string `toml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// KernelConfig configures the solid kernel.
type KernelConfig struct {
	// MeshCells is the marching-cubes resolution along the longest axis.
	MeshCells int `toml:"mesh_cells"`
}

// PipelineConfig configures the generation pass.
type PipelineConfig struct {
	Concurrency int `toml:"concurrency"`
}

// Config is the full cassette configuration.
type Config struct {
	Geometry GeometrySettings `toml:"geometry"`
	Store    StoreConfig      `toml:"store"`
	Server   ServerConfig     `toml:"server"`
	Kernel   KernelConfig     `toml:"kernel"`
	Pipeline PipelineConfig   `toml:"pipeline"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Geometry: DefaultGeometry(),
		Store: StoreConfig{
			Backend:       BackendMemory,
			Dir:           ".cassette",
			RedisAddr:     "localhost:6379",
			MongoURI:      "mongodb://localhost:27017",
			MongoDatabase: "cassette",
		},
		Server:   ServerConfig{Addr: ":8080"},
		Kernel:   KernelConfig{MeshCells: 200},
		Pipeline: PipelineConfig{Concurrency: 4},
	}
}

// Validate checks the whole configuration.
func (c Config) Validate() error {
	if err := c.Geometry.Validate(); err != nil {
		return err
	}
	switch c.Store.Backend {
	case BackendMemory, BackendFile, BackendRedis, BackendMongo:
	default:
		return errors.New(errors.ErrCodeInvalidInput, "store.backend %q is not one of memory, file, redis, mongo", c.Store.Backend)
	}
	if c.Kernel.MeshCells < 8 {
		return errors.New(errors.ErrCodeInvalidInput, "kernel.mesh_cells must be at least 8, got %d", c.Kernel.MeshCells)
	}
	if c.Pipeline.Concurrency < 1 {
		return errors.New(errors.ErrCodeInvalidInput, "pipeline.concurrency must be at least 1, got %d", c.Pipeline.Concurrency)
	}
	return nil
}

// Parse decodes TOML data on top of the defaults. Unknown keys are
// rejected so that typos do not silently fall back to defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return Config{}, errors.New(errors.ErrCodeInvalidInput, "unknown config keys: %s", strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads a TOML file. An empty path returns the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return Parse(data)
}
