package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/five82/belfry/internal/cli"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	var root cli.Root
	parser := kong.Parse(&root,
		kong.Name("belfry"),
		kong.Description("Terminal client for a networked bell-tower controller."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": version},
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	c := cli.NewContext(ctx, root.Options(), os.Stdout)
	err := parser.Run(c)
	if closeErr := c.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		if !cli.Reported(err) {
			fmt.Fprintf(os.Stderr, "belfry: %s\n", cli.Message(err))
		}
		if root.Debug {
			fmt.Fprintf(os.Stderr, "belfry: %v\n", err)
		}
		return cli.ExitCode(err)
	}
	return cli.ExitOK
}
