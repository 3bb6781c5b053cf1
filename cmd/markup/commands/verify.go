package commands

import (
	"context"
	"fmt"

	"github.com/ifamed/markup-boilerplate/internal/linkverify"
)

// VerifyCmd implements the 'verify' command. It checks the existing
// destination tree; run `markup production` to build and verify in one go.
type VerifyCmd struct{}

func (v *VerifyCmd) Run(ctx context.Context, g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	report, err := linkverify.New(cfg.DestRoot()).Verify(ctx)
	if err != nil {
		return err
	}
	for _, b := range report.Broken {
		_, _ = fmt.Fprintf(g.Out, "%s: %s %s=%q\n", b.Page, b.Link.Tag, b.Link.Attribute, b.Link.URL)
	}
	_, _ = fmt.Fprintf(g.Out, "%d pages, %d references, %d broken\n", report.Pages, report.Checked, len(report.Broken))
	return report.Err()
}
