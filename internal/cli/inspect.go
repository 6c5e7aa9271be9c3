package cli

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/chazu/cassette/pkg/component"
	"github.com/chazu/cassette/pkg/store"
)

func (c *CLI) inspectCommand() *cobra.Command {
	var f struct{ kind, panel, run string }
	cmd := &cobra.Command{
		Use:   "inspect [id]",
		Short: "Print a stored component, or list stored components",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := store.Filter{Panel: f.panel, RunID: f.run}
			if f.kind != "" {
				k, err := component.ParseKind(f.kind)
				if err != nil {
					return err
				}
				filter.Kind = k
			}
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			return c.runInspect(cmd.Context(), cmd, id, filter)
		},
	}
	cmd.Flags().StringVar(&f.kind, "kind", "", "list only this kind")
	cmd.Flags().StringVar(&f.panel, "panel", "", "list only this panel's components")
	cmd.Flags().StringVar(&f.run, "run", "", "list only this run's components")
	return cmd
}

func (c *CLI) runInspect(ctx context.Context, cmd *cobra.Command, id string, f store.Filter) error {
	e, err := c.openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	w := cmd.OutOrStdout()
	if id == "" {
		recs, err := e.store.List(ctx, f)
		if err != nil {
			return err
		}
		printRecords(w, recs)
		return nil
	}

	rec, err := e.store.Get(ctx, id)
	if err != nil {
		return err
	}
	comp, err := component.Decode(rec)
	if err != nil {
		return err
	}
	out := struct {
		component.Record
		Data component.Component `json:"data"`
	}{Record: rec, Data: comp}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
