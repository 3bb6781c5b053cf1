package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/ifamed/markup-boilerplate/internal/eventstore"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit   int  `short:"n" help:"Number of runs to show" default:"20"`
	Summary bool `short:"s" help:"Show one line per asset class instead of individual runs"`
	JSON    bool `name:"json" help:"Print JSON instead of a table"`
}

func (h *HistoryCmd) Run(ctx context.Context, g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	store, err := eventstore.NewSQLiteStore(cfg.Abs(cfg.State.Path))
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if h.Summary {
		sums, err := store.Summaries(ctx)
		if err != nil {
			return err
		}
		if h.JSON {
			return writeJSON(g, sums)
		}
		w := tabwriter.NewWriter(g.Out, 0, 4, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "CLASS\tRUNS\tFAILURES\tLAST\tLAST RUN")
		for _, s := range sums {
			_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n", s.Class, s.Runs, s.Failures, s.LastStatus, s.LastRunID)
		}
		return w.Flush()
	}

	events, err := store.Recent(ctx, h.Limit)
	if err != nil {
		return err
	}
	if h.JSON {
		return writeJSON(g, events)
	}
	w := tabwriter.NewWriter(g.Out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "STARTED\tTASK\tCLASS\tMODE\tSTATUS\tFILES\tDURATION\tERROR")
	for _, ev := range events {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			ev.Started.Local().Format(time.DateTime), ev.Task, ev.Class, ev.Mode, ev.Status, ev.Files,
			ev.Duration.Round(time.Millisecond), ev.Error)
	}
	return w.Flush()
}

func writeJSON(g *Global, v any) error {
	enc := json.NewEncoder(g.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func sortedKeys(m map[string]string) []string {
	return slices.Sorted(maps.Keys(m))
}
