package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chazu/cassette/pkg/graph"
)

func (c *CLI) graphCommand() *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "graph <program>",
		Short: "Generate a program and export its component dependency graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "dot" && format != "svg" {
				return fmt.Errorf("invalid format: %s (must be 'dot' or 'svg')", format)
			}
			return c.runGraph(cmd.Context(), cmd, args[0], format, out)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "dot", "output format: dot, svg")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}

func (c *CLI) runGraph(ctx context.Context, cmd *cobra.Command, path, format, out string) error {
	e, err := c.openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	res, err := c.runProgram(ctx, e, path)
	if err != nil {
		return err
	}
	if res.Graph == nil {
		return fmt.Errorf("run %s produced no graph", res.RunID)
	}
	v := graph.ValidateAll(res.Graph)
	for _, w := range v.Warnings {
		c.Logger.Warn("graph", "node", w.NodeID, "warning", w.Message)
	}
	c.Logger.Info("graph", "summary", graph.Summary(res.Graph))

	data := []byte(graph.ToDOT(res.Graph))
	if format == "svg" {
		if data, err = graph.RenderSVG(ctx, string(data)); err != nil {
			return err
		}
	}
	if out == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(out, data, 0644); err != nil {
		return err
	}
	printFile(cmd.OutOrStdout(), out)
	return nil
}
