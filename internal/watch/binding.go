// Package watch re-runs tasks when their source files change.
//
// Filesystem events from fsnotify (and optionally a polling scanner) flow over
// one channel into a Dispatcher. Each Binding owns a small state machine:
// idle, pending while the debounce window is open, and dispatching while its
// task runs. Events that arrive during a dispatch are folded into a single
// follow-up run.
package watch

import (
	"strings"

	"github.com/ifamed/markup-boilerplate/internal/paths"
)

// Op is a set of filesystem event kinds.
type Op uint8

const (
	OpAdded Op = 1 << iota
	OpChanged
	OpRemoved

	OpAll = OpAdded | OpChanged | OpRemoved
)

func (o Op) String() string {
	var parts []string
	if o&OpAdded != 0 {
		parts = append(parts, "added")
	}
	if o&OpChanged != 0 {
		parts = append(parts, "changed")
	}
	if o&OpRemoved != 0 {
		parts = append(parts, "removed")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Event is one change to an absolute path.
type Event struct {
	Path string
	Op   Op
}

// Binding ties a watch glob to the task that rebuilds it.
type Binding struct {
	Name    string
	Pattern paths.Glob
	Events  Op
	Task    string
	// PrecededByClean makes the rebuild drop outputs the previous run wrote and
	// this one no longer produces. It overrides the class default for runs the
	// binding dispatches.
	PrecededByClean bool
}

// Matches reports whether ev should trigger the binding.
func (b Binding) Matches(ev Event) bool {
	return b.Events&ev.Op != 0 && b.Pattern.Match(ev.Path)
}

// Bindings derives one binding per asset class.
func Bindings(specs []paths.AssetClassSpec) []Binding {
	out := make([]Binding, 0, len(specs))
	for _, s := range specs {
		out = append(out, Binding{
			Name:            string(s.ID),
			Pattern:         s.Watch,
			Events:          OpAll,
			Task:            s.Task,
			PrecededByClean: s.CleanBeforeRebuild,
		})
	}
	return out
}
