package commands

import (
	"context"
	"fmt"

	"github.com/ifamed/markup-boilerplate/internal/app"
	"github.com/ifamed/markup-boilerplate/internal/config"
	"github.com/ifamed/markup-boilerplate/internal/deploy"
	"github.com/ifamed/markup-boilerplate/internal/orchestrator"
	"github.com/ifamed/markup-boilerplate/internal/retry"
)

// DeployCmd implements the 'deploy' command.
type DeployCmd struct {
	Build       bool   `help:"Run the production task before uploading"`
	Prune       bool   `help:"Remove objects under the prefix that no longer exist locally"`
	DryRun      bool   `name:"dry-run" help:"Report what would change without uploading"`
	Prefix      string `help:"Override deploy.prefix"`
	Concurrency int    `help:"Parallel uploads" default:"4"`
}

func (d *DeployCmd) Run(ctx context.Context, g *Global, root *CLI) error {
	var cfg *config.Config
	if d.Build {
		a, err := app.Open(app.Options{ConfigPath: root.Config, Mode: string(config.ModeProduction)})
		if err != nil {
			return err
		}
		err = a.Run(ctx, orchestrator.TaskProduction)
		cfg = a.Config
		_ = a.Close()
		if err != nil {
			return err
		}
	} else {
		var err error
		if cfg, err = root.loadConfig(); err != nil {
			return err
		}
	}

	bucket, err := deploy.NewS3Bucket(cfg.Deploy)
	if err != nil {
		return err
	}
	prefix := cfg.Deploy.Prefix
	if d.Prefix != "" {
		prefix = d.Prefix
	}
	res, err := deploy.Deploy(ctx, bucket, cfg.DestRoot(), deploy.Options{
		Prefix:      prefix,
		Prune:       d.Prune,
		DryRun:      d.DryRun,
		Concurrency: d.Concurrency,
		Retry:       retry.FromConfig(cfg.Retry),
	})
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(g.Out, "%d uploaded, %d removed (%d bytes) to %s\n",
		len(res.Uploaded), len(res.Removed), res.Bytes, bucket.Name())
	return nil
}
