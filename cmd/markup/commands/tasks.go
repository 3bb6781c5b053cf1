package commands

import (
	"fmt"
	"strings"

	"github.com/ifamed/markup-boilerplate/internal/orchestrator"
)

// TasksCmd implements the 'tasks' command.
type TasksCmd struct {
	Format string `short:"f" help:"Output format: text or dot" default:"text" enum:"text,dot"`
}

func (t *TasksCmd) Run(g *Global) error {
	graph := orchestrator.DefaultGraph()
	if err := graph.Validate(); err != nil {
		return err
	}
	if t.Format == "dot" {
		return graph.DOT(g.Out)
	}
	for _, name := range graph.Names() {
		task, _ := graph.Lookup(name)
		switch task.Kind {
		case orchestrator.KindLeaf:
			_, _ = fmt.Fprintf(g.Out, "%-16s\n", name)
		case orchestrator.KindSequential:
			_, _ = fmt.Fprintf(g.Out, "%-16s seq(%s)\n", name, strings.Join(task.Members, ", "))
		case orchestrator.KindParallel:
			_, _ = fmt.Fprintf(g.Out, "%-16s par(%s)\n", name, strings.Join(task.Members, ", "))
		}
	}
	aliases := graph.Aliases()
	for _, alias := range sortedKeys(aliases) {
		_, _ = fmt.Fprintf(g.Out, "%-16s -> %s\n", alias, aliases[alias])
	}
	return nil
}
