// Command snooptrade serves the SnoopTrade web front end and offers a
// headless view of a company's insider trades.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
	"github.com/joho/godotenv"

	"snooptrade/observability"
)

func main() {
	if err := godotenv.Load(); err != nil {
		observability.Debug("no .env file found, using environment variables")
	}

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(&serveCmd{}, "")
	commander.Register(&tradesCmd{}, "")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
