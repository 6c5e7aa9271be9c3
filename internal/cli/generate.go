package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/chazu/cassette/pkg/component"
	"github.com/chazu/cassette/pkg/tessellate"
)

type generateOpts struct {
	out   string
	local bool
	kinds []string
}

func (c *CLI) generateCommand() *cobra.Command {
	var opts generateOpts
	cmd := &cobra.Command{
		Use:   "generate <program>",
		Short: "Generate and store every component of a program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGenerate(cmd.Context(), cmd, args[0], opts)
		},
	}
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "write one mesh JSON file per component into this directory")
	cmd.Flags().BoolVar(&opts.local, "local", false, "place meshes in their component frame")
	cmd.Flags().StringSliceVar(&opts.kinds, "kind", nil, "mesh only these kinds (beam, plate, dowel)")
	return cmd
}

func (c *CLI) runGenerate(ctx context.Context, cmd *cobra.Command, path string, opts generateOpts) error {
	tOpts := tessellate.Options{Local: opts.local}
	for _, k := range opts.kinds {
		kind, err := component.ParseKind(k)
		if err != nil {
			return err
		}
		tOpts.Kinds = append(tOpts.Kinds, kind)
	}

	e, err := c.openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	res, err := c.runProgram(ctx, e, path)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	printResult(w, res)

	if opts.out == "" {
		return nil
	}
	meshes, err := tessellate.Run(ctx, e.store, e.kernel, res.RunID, tOpts)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(opts.out, 0755); err != nil {
		return err
	}
	for _, m := range meshes {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("encode mesh %s: %w", m.ComponentID, err)
		}
		file := filepath.Join(opts.out, url.PathEscape(m.ComponentID)+".json")
		if err := os.WriteFile(file, data, 0644); err != nil {
			return err
		}
		printFile(w, file)
	}
	c.Logger.Info("meshes written", "count", len(meshes), "dir", opts.out)
	return nil
}
