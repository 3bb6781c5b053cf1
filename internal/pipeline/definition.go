package pipeline

import (
	"github.com/ifamed/markup-boilerplate/internal/config"
	"github.com/ifamed/markup-boilerplate/internal/paths"
)

// ReloadScope tells the dev server how much of the page to refresh.
type ReloadScope string

const (
	ReloadNone ReloadScope = "none"
	ReloadFull ReloadScope = "full"
	ReloadCSS  ReloadScope = "css"
)

// Reloader receives the reload signal after a successful write.
type Reloader interface {
	Reload(scope ReloadScope, files []string)
}

// Definition is the ordered step list of one asset class.
type Definition struct {
	Class  paths.ClassID
	Steps  []StepDef
	Reload ReloadScope
}

// StepNames lists the step names in order.
func (d Definition) StepNames() []string {
	names := make([]string, len(d.Steps))
	for i, s := range d.Steps {
		names[i] = s.Name
	}
	return names
}

// Builder is a fluent builder for ordered step definitions.
type Builder struct {
	def Definition
}

// New creates an empty builder for class. Reload defaults to a full page refresh.
func New(class paths.ClassID) *Builder {
	return &Builder{def: Definition{Class: class, Reload: ReloadFull, Steps: make([]StepDef, 0, 8)}}
}

// Add appends a step that always applies.
func (b *Builder) Add(name string, fn StepFunc) *Builder {
	b.def.Steps = append(b.def.Steps, StepDef{Name: name, Fn: fn})
	return b
}

// AddIn appends a step that applies only in mode.
func (b *Builder) AddIn(mode config.Mode, name string, fn StepFunc) *Builder {
	b.def.Steps = append(b.def.Steps, StepDef{Name: name, Modes: []config.Mode{mode}, Fn: fn})
	return b
}

// AddWhen appends a step guarded by a predicate evaluated once per run.
func (b *Builder) AddWhen(when func(run *Run) bool, name string, fn StepFunc) *Builder {
	b.def.Steps = append(b.def.Steps, StepDef{Name: name, When: when, Fn: fn})
	return b
}

// ReloadWith sets the reload scope signalled after a successful write.
func (b *Builder) ReloadWith(scope ReloadScope) *Builder {
	b.def.Reload = scope
	return b
}

// Build returns a copy of the definition.
func (b *Builder) Build() Definition {
	out := b.def
	out.Steps = make([]StepDef, len(b.def.Steps))
	copy(out.Steps, b.def.Steps)
	return out
}
