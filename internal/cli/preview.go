package cli

import (
	"bytes"
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/chazu/cassette/pkg/preview"
)

type previewOpts struct {
	panel  string
	out    string
	size   int
	levels []int
}

func (c *CLI) previewCommand() *cobra.Command {
	opts := previewOpts{size: 1024}
	cmd := &cobra.Command{
		Use:   "preview <program>",
		Short: "Generate a program and draw one panel's beams to PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPreview(cmd.Context(), cmd, args[0], opts)
		},
	}
	cmd.Flags().StringVarP(&opts.panel, "panel", "p", "", "panel to draw (required)")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "output PNG file (default <panel>.png)")
	cmd.Flags().IntVar(&opts.size, "size", opts.size, "image width and height in pixels")
	cmd.Flags().IntSliceVar(&opts.levels, "level", nil, "draw only these beam levels")
	_ = cmd.MarkFlagRequired("panel")
	return cmd
}

func (c *CLI) runPreview(ctx context.Context, cmd *cobra.Command, path string, opts previewOpts) error {
	e, err := c.openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	if _, err := c.runProgram(ctx, e, path); err != nil {
		return err
	}
	p, beams, err := preview.Load(ctx, e.store, opts.panel)
	if err != nil {
		return err
	}

	o := preview.DefaultOptions()
	o.Width, o.Height = opts.size, opts.size
	o.Margin = float64(opts.size) / 32
	o.Levels = opts.levels

	var buf bytes.Buffer
	if err := preview.WritePNG(&buf, p, beams, o); err != nil {
		return err
	}
	out := opts.out
	if out == "" {
		out = opts.panel + ".png"
	}
	if err := os.WriteFile(out, buf.Bytes(), 0644); err != nil {
		return err
	}
	printFile(cmd.OutOrStdout(), out)
	return nil
}
