package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"github.com/aidino/aicode-reviewer/cmd/codereviewer/commands"
	"github.com/aidino/aicode-reviewer/internal/foundation/errors"
)

// Set at build time with: -ldflags "-X main.version=1.0.0"
var version = "dev"

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Description("codereviewer: multi-agent code review orchestration service."),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)

	globals := &commands.Global{Logger: slog.Default()}
	errorAdapter := errors.NewCLIErrorAdapter(cli.Verbose, slog.Default())

	if err := parser.Run(globals, cli); err != nil {
		errorAdapter.HandleError(err)
	}
}
