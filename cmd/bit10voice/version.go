package main

import (
	"context"
	"flag"
	"fmt"
	"runtime"

	"github.com/google/subcommands"

	"github.com/MrWong99/bit10voice/internal/config"
)

type versionCmd struct{}

func (*versionCmd) Name() string           { return "version" }
func (*versionCmd) Synopsis() string       { return "print the version" }
func (*versionCmd) Usage() string          { return "bit10voice version\n" }
func (*versionCmd) SetFlags(*flag.FlagSet) {}
func (*versionCmd) Execute(context.Context, *flag.FlagSet, ...any) subcommands.ExitStatus {
	fmt.Printf("bit10voice %s (%s)\n", version, runtime.Version())
	return subcommands.ExitSuccess
}

type envCmd struct{}

func (*envCmd) Name() string           { return "env" }
func (*envCmd) Synopsis() string       { return "list the environment variables read at startup" }
func (*envCmd) Usage() string          { return "bit10voice env\n" }
func (*envCmd) SetFlags(*flag.FlagSet) {}
func (*envCmd) Execute(context.Context, *flag.FlagSet, ...any) subcommands.ExitStatus {
	fmt.Print(config.EnvUsage())
	return subcommands.ExitSuccess
}
