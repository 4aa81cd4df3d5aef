package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/subcommands"

	"github.com/MrWong99/bit10voice/internal/app"
	"github.com/MrWong99/bit10voice/internal/config"
)

type askCmd struct {
	configFlags
	asJSON  bool
	verbose bool
}

func (*askCmd) Name() string     { return "ask" }
func (*askCmd) Synopsis() string { return "ask the voice assistant a question in text" }
func (*askCmd) Usage() string {
	return `bit10voice ask [-json] [-v] <question>

  Answers the question the way the voice assistant would, e.g.
  bit10voice ask "what is the bitcoin price"
`
}

func (c *askCmd) SetFlags(f *flag.FlagSet) {
	c.configFlags.register(f)
	f.BoolVar(&c.asJSON, "json", false, "print the full answer as JSON")
	f.BoolVar(&c.verbose, "v", false, "also print the intent and any corrected words")
}

func (c *askCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	question := strings.TrimSpace(strings.Join(f.Args(), " "))
	if question == "" {
		fmt.Fprintln(os.Stderr, "bit10voice: ask needs a question")
		return subcommands.ExitUsageError
	}

	application, cleanup, err := c.quietApp(ctx)
	if err != nil {
		return fail(err)
	}
	defer cleanup()

	answer := application.Interpreter().Answer(ctx, question)
	if c.asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(answer); err != nil {
			return fail(err)
		}
		return subcommands.ExitSuccess
	}

	if c.verbose {
		fmt.Printf("heard:  %s\nintent: %s\n", answer.Heard, answer.Intent)
		for _, corr := range answer.Corrections {
			fmt.Printf("fixed:  %q -> %q\n", corr.Original, corr.Corrected)
		}
	}
	fmt.Println(answer.Text)
	return subcommands.ExitSuccess
}

// quietApp builds an App that only logs warnings, for one-shot commands.
func (c *configFlags) quietApp(ctx context.Context) (*app.App, func(), error) {
	cfg, _, err := c.load()
	if err != nil {
		return nil, nil, err
	}
	level := config.LogWarn
	if cfg.Server.LogLevel == config.LogDebug || cfg.Server.LogLevel == config.LogError {
		level = cfg.Server.LogLevel
	}
	logger, _ := newLogger(level)
	slog.SetDefault(logger)

	reg := config.NewRegistry()
	app.RegisterBuiltinProviders(reg)
	providers, err := app.BuildProviders(cfg, reg, nil)
	if err != nil {
		return nil, nil, err
	}
	application, err := app.New(ctx, cfg, providers, app.WithVersion(version))
	if err != nil {
		return nil, nil, err
	}
	return application, func() { _ = application.Shutdown(context.Background()) }, nil
}
