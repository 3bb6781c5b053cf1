package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/ifamed/markup-boilerplate/cmd/markup/commands"
	"github.com/ifamed/markup-boilerplate/internal/foundation/errors"
	"github.com/ifamed/markup-boilerplate/internal/version"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cli := &commands.CLI{}
	global := &commands.Global{Out: os.Stdout}
	parser := kong.Parse(cli,
		kong.Name("markup"),
		kong.Description("Build, watch and serve a static markup project."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
		kong.Bind(global),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	err := parser.Run(cli)
	cancel()
	if err != nil {
		os.Exit(errors.NewCLIErrorAdapter(cli.Verbose, nil).Report(err))
	}
}
