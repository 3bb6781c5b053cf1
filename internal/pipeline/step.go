package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/ifamed/markup-boilerplate/internal/config"
	"github.com/ifamed/markup-boilerplate/internal/paths"
)

// Variant narrows a run of a class, e.g. images:basic versus images:tinypng.
type Variant string

const (
	VariantDefault Variant = ""
	VariantBasic   Variant = "basic"
	VariantTinyPNG Variant = "tinypng"
)

// Run is the per-run context handed to every step.
type Run struct {
	ID      string
	Task    string
	Class   paths.ClassID
	Mode    config.Mode
	Variant Variant
	Spec    paths.AssetClassSpec
}

// StepFunc transforms the asset stream. It may modify assets in place, drop them,
// or append generated ones.
type StepFunc func(ctx context.Context, run *Run, assets []*Asset) ([]*Asset, error)

// StepDef pairs a step name with its function and applicability.
type StepDef struct {
	Name string
	// Modes restricts the step to the listed modes; empty means always.
	Modes []config.Mode
	// When further restricts the step; nil means always.
	When func(run *Run) bool
	Fn   StepFunc
}

// Applies reports whether the step runs for run.
func (s StepDef) Applies(run *Run) bool {
	if len(s.Modes) > 0 && !slices.Contains(s.Modes, run.Mode) {
		return false
	}
	return s.When == nil || s.When(run)
}

// FileError attributes a step failure to one source file.
type FileError struct {
	File string
	Err  error
}

func (e *FileError) Error() string { return fmt.Sprintf("%s: %v", e.File, e.Err) }

func (e *FileError) Unwrap() error { return e.Err }

// FailedFile extracts the file a step error is attributed to, if any.
func FailedFile(err error) string {
	var fe *FileError
	if stderrors.As(err, &fe) {
		return fe.File
	}
	return ""
}

// Each adapts a per-asset function into a StepFunc, processing assets in order and
// attributing the first failure to its file.
func Each(fn func(ctx context.Context, run *Run, a *Asset) error) StepFunc {
	return func(ctx context.Context, run *Run, assets []*Asset) ([]*Asset, error) {
		for _, a := range assets {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := fn(ctx, run, a); err != nil {
				return nil, &FileError{File: a.Label(), Err: err}
			}
		}
		return assets, nil
	}
}

// EachParallel is Each with up to limit assets processed concurrently.
// Asset order is preserved; the first failure cancels the rest.
func EachParallel(limit int, fn func(ctx context.Context, run *Run, a *Asset) error) StepFunc {
	return func(ctx context.Context, run *Run, assets []*Asset) ([]*Asset, error) {
		g, gctx := errgroup.WithContext(ctx)
		if limit > 0 {
			g.SetLimit(limit)
		}
		for _, a := range assets {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				if err := fn(gctx, run, a); err != nil {
					return &FileError{File: a.Label(), Err: err}
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return assets, nil
	}
}

// Filter keeps the assets for which keep returns true.
func Filter(keep func(a *Asset) bool) StepFunc {
	return func(_ context.Context, _ *Run, assets []*Asset) ([]*Asset, error) {
		out := assets[:0]
		for _, a := range assets {
			if keep(a) {
				out = append(out, a)
			}
		}
		return out, nil
	}
}
