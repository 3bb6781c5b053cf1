package orchestrator

import (
	stderrors "errors"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/dominikbraun/graph"
	"github.com/dominikbraun/graph/draw"

	"github.com/ifamed/markup-boilerplate/internal/foundation/errors"
)

// Kind is the composition kind of a task.
type Kind string

const (
	KindLeaf       Kind = "leaf"
	KindSequential Kind = "sequential"
	KindParallel   Kind = "parallel"
)

// Task is one node of the graph. Members are ordered for sequential groups.
type Task struct {
	Name    string
	Kind    Kind
	Members []string
}

// TaskGraph maps task names to tasks. It is built once and read-only afterwards.
type TaskGraph struct {
	tasks   map[string]Task
	aliases map[string]string
}

// NewTaskGraph returns an empty graph.
func NewTaskGraph() *TaskGraph {
	return &TaskGraph{tasks: make(map[string]Task), aliases: make(map[string]string)}
}

// Leaf declares leaf tasks.
func (g *TaskGraph) Leaf(names ...string) *TaskGraph {
	for _, n := range names {
		g.tasks[n] = Task{Name: n, Kind: KindLeaf}
	}
	return g
}

// Sequential declares a group whose members run in the given order.
func (g *TaskGraph) Sequential(name string, members ...string) *TaskGraph {
	g.tasks[name] = Task{Name: name, Kind: KindSequential, Members: slices.Clone(members)}
	return g
}

// Parallel declares a group whose members run concurrently.
func (g *TaskGraph) Parallel(name string, members ...string) *TaskGraph {
	g.tasks[name] = Task{Name: name, Kind: KindParallel, Members: slices.Clone(members)}
	return g
}

// Alias makes alias resolve to target.
func (g *TaskGraph) Alias(alias, target string) *TaskGraph {
	g.aliases[alias] = target
	return g
}

// Lookup resolves name, following an alias, to its task.
func (g *TaskGraph) Lookup(name string) (Task, bool) {
	if target, ok := g.aliases[name]; ok {
		name = target
	}
	t, ok := g.tasks[name]
	return t, ok
}

// Names returns the declared task names in sorted order, aliases excluded.
func (g *TaskGraph) Names() []string {
	names := make([]string, 0, len(g.tasks))
	for n := range g.tasks {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Aliases returns a copy of the alias table.
func (g *TaskGraph) Aliases() map[string]string {
	out := make(map[string]string, len(g.aliases))
	for k, v := range g.aliases {
		out[k] = v
	}
	return out
}

// Leaves returns the sorted names of all leaf tasks.
func (g *TaskGraph) Leaves() []string {
	var out []string
	for _, n := range g.Names() {
		if g.tasks[n].Kind == KindLeaf {
			out = append(out, n)
		}
	}
	return out
}

// Validate checks that every member and alias names a declared task, that
// groups are not empty, and that no group contains itself.
func (g *TaskGraph) Validate() error {
	dg := graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())
	for _, n := range g.Names() {
		if err := dg.AddVertex(n); err != nil {
			return errors.WrapError(err, errors.CategoryInternal, "add task vertex").Build()
		}
	}
	for alias, target := range g.aliases {
		if _, ok := g.tasks[alias]; ok {
			return errors.ConfigError("alias shadows a task").WithContext("alias", alias).Build()
		}
		if _, ok := g.tasks[target]; !ok {
			return errors.ConfigError("alias refers to an unknown task").
				WithContext("alias", alias).WithContext("task", target).Build()
		}
	}
	for _, n := range g.Names() {
		t := g.tasks[n]
		if t.Kind == KindLeaf {
			continue
		}
		if len(t.Members) == 0 {
			return errors.ConfigError("task group has no members").WithContext("task", n).Build()
		}
		for _, m := range t.Members {
			member, ok := g.Lookup(m)
			if !ok {
				return errors.ConfigError("task group refers to an unknown task").
					WithContext("task", n).WithContext("member", m).Build()
			}
			err := dg.AddEdge(n, member.Name)
			switch {
			case err == nil, stderrors.Is(err, graph.ErrEdgeAlreadyExists):
			case stderrors.Is(err, graph.ErrEdgeCreatesCycle):
				return errors.ConfigError("task graph contains a cycle").
					WithContext("task", n).WithContext("member", m).Build()
			default:
				return errors.WrapError(err, errors.CategoryInternal, "add task edge").Build()
			}
		}
	}
	return nil
}

// DOT writes the graph in Graphviz format. Sequential edges are labelled with
// their position; parallel edges are dashed.
func (g *TaskGraph) DOT(w io.Writer) error {
	dg := graph.New(graph.StringHash, graph.Directed())
	for _, n := range g.Names() {
		shape := "box"
		if g.tasks[n].Kind != KindLeaf {
			shape = "ellipse"
		}
		if err := dg.AddVertex(n, graph.VertexAttribute("shape", shape)); err != nil {
			return err
		}
	}
	for _, n := range g.Names() {
		t := g.tasks[n]
		for i, m := range t.Members {
			member, ok := g.Lookup(m)
			if !ok {
				return fmt.Errorf("task %q refers to unknown member %q", n, m)
			}
			attr := graph.EdgeAttribute("label", strconv.Itoa(i+1))
			if t.Kind == KindParallel {
				attr = graph.EdgeAttribute("style", "dashed")
			}
			if err := dg.AddEdge(n, member.Name, attr); err != nil && !stderrors.Is(err, graph.ErrEdgeAlreadyExists) {
				return err
			}
		}
	}
	return draw.DOT(dg, w, draw.GraphAttribute("rankdir", "LR"))
}
