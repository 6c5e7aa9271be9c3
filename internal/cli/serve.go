package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/chazu/cassette/pkg/httpapi"
)

func (c *CLI) serveCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string) error {
	e, err := c.openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	if addr == "" {
		addr = e.cfg.Server.Addr
	}
	srv := httpapi.New(e.store, e.kernel, e.cfg.Geometry, c.Logger)
	srv.Concurrency = e.cfg.Pipeline.Concurrency
	return srv.ListenAndServe(ctx, addr)
}
