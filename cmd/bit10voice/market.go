package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"

	"github.com/MrWong99/bit10voice/internal/bit10"
	"github.com/MrWong99/bit10voice/internal/dashboard"
)

type marketCmd struct {
	configFlags
	watch int
	style string
	width int
	raw   bool
}

func (*marketCmd) Name() string     { return "market" }
func (*marketCmd) Synopsis() string { return "display the market dashboard in the terminal" }
func (*marketCmd) Usage() string {
	return `bit10voice market [-w n] [-style <name>] [-width n] [-raw]

  Fetches the top assets and prints the market overview, the asset list
  and the BIT10 index funds.
`
}

func (c *marketCmd) SetFlags(f *flag.FlagSet) {
	c.configFlags.register(f)
	f.IntVar(&c.watch, "w", 0, "refresh every n seconds")
	f.StringVar(&c.style, "style", "", "glamour style (dark, light, notty, ...); detected from the terminal when empty")
	f.IntVar(&c.width, "width", dashboard.DefaultWidth, "word-wrap width")
	f.BoolVar(&c.raw, "raw", false, "print the Markdown source instead of styled output")
}

func (c *marketCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	application, cleanup, err := c.quietApp(ctx)
	if err != nil {
		return fail(err)
	}
	defer cleanup()

	st := application.Store()
	for {
		if err := st.Refresh(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			if c.watch == 0 {
				return subcommands.ExitFailure
			}
		} else if err := c.render(dashboard.Markdown(st.Snapshot(), bit10.Indices())); err != nil {
			return fail(err)
		}

		if c.watch <= 0 {
			return subcommands.ExitSuccess
		}
		select {
		case <-ctx.Done():
			return subcommands.ExitSuccess
		case <-time.After(time.Duration(c.watch) * time.Second):
		}
	}
}

func (c *marketCmd) render(markdown string) error {
	if c.watch > 0 {
		fmt.Println("\033[2J")
	}
	if c.raw {
		fmt.Println(markdown)
		return nil
	}
	opts := []dashboard.Option{dashboard.WithWidth(c.width)}
	if c.style != "" {
		opts = append(opts, dashboard.WithStyle(c.style))
	}
	out, err := dashboard.Render(markdown, opts...)
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}
