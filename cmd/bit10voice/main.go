// Command bit10voice serves the BIT10 crypto dashboard backend and its voice
// assistant, and offers terminal access to the same data.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path"

	"github.com/google/subcommands"

	"github.com/MrWong99/bit10voice/internal/app"
	"github.com/MrWong99/bit10voice/internal/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	commander.Register(&serveCmd{}, "")
	commander.Register(&askCmd{}, "")
	commander.Register(&marketCmd{}, "")
	commander.Register(&envCmd{}, "help")
	commander.Register(&versionCmd{}, "help")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// configFlags are the flags shared by every command that needs a config.
type configFlags struct {
	configPath string
	envFile    string
}

func (c *configFlags) register(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "config", "", "path to the YAML configuration file (defaults are used when empty)")
	f.StringVar(&c.envFile, "env", ".env", "path to a .env file with credentials; missing files are ignored")
}

// load reads the .env file and the config file and overlays the
// environment onto the config.
func (c *configFlags) load() (*config.Config, config.Env, error) {
	env, err := config.LoadEnv(c.envFile)
	if err != nil {
		return nil, config.Env{}, err
	}

	var cfg *config.Config
	if c.configPath == "" {
		cfg = config.Default()
	} else {
		cfg, err = config.Load(c.configPath)
		if errors.Is(err, os.ErrNotExist) {
			return nil, env, fmt.Errorf("config file %q not found; copy configs/example.yaml to get started", c.configPath)
		}
		if err != nil {
			return nil, env, err
		}
	}
	env.Apply(cfg)
	if err := config.Validate(cfg); err != nil {
		return nil, env, err
	}
	return cfg, env, nil
}

// newLogger returns a text logger whose level can be changed through the
// returned LevelVar.
func newLogger(level config.LogLevel) (*slog.Logger, *slog.LevelVar) {
	lvl := new(slog.LevelVar)
	lvl.Set(app.SlogLevel(level))
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), lvl
}

func fail(err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "bit10voice: %v\n", err)
	return subcommands.ExitFailure
}
