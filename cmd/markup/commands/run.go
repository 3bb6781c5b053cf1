package commands

import (
	"context"
	stderrors "errors"

	"github.com/ifamed/markup-boilerplate/internal/app"
)

// RunCmd implements the default command: invoke tasks by name.
type RunCmd struct {
	Tasks []string `arg:"" optional:"" help:"Tasks to run in order (default: default)"`
}

func (r *RunCmd) Run(ctx context.Context, root *CLI) error {
	a, err := app.Open(app.Options{
		ConfigPath: root.Config,
		Mode:       root.Env,
		Open:       root.Open,
		Tasks:      r.Tasks,
	})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	err = a.Run(ctx, r.Tasks...)
	if stderrors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	return err
}
