package orchestrator

import (
	"context"
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ifamed/markup-boilerplate/internal/foundation/errors"
	"github.com/ifamed/markup-boilerplate/internal/logfields"
	"github.com/ifamed/markup-boilerplate/internal/observability"
)

// Clean removes the contents of the destination root and nothing else. A
// missing destination root is not an error.
func (o *Orchestrator) Clean(ctx context.Context) error {
	root := filepath.Clean(o.destRoot)
	if o.destRoot == "" || root == filepath.Dir(root) {
		return errors.InternalError("refusing to clean an unset or filesystem root destination").
			WithContext("dest", o.destRoot).Build()
	}
	entries, err := os.ReadDir(root)
	if stderrors.Is(err, fs.ErrNotExist) {
		o.forget()
		return nil
	}
	if err != nil {
		return errors.WriteError("read destination root").WithCause(err).WithContext("dest", root).Build()
	}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		p := filepath.Join(root, e.Name())
		if err := os.RemoveAll(p); err != nil {
			return errors.WriteError("remove destination entry").WithCause(err).WithContext("file", p).Build()
		}
	}
	o.forget()
	observability.DebugContext(ctx, "Destination cleaned", logfields.Path(root), logfields.Files(len(entries)))
	return nil
}

func (o *Orchestrator) forget() {
	if o.runner != nil {
		o.runner.Forget()
	}
}
