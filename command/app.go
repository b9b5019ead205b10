package command

import (
	"context"
	"github.com/urfave/cli/v3"
	"go-travel-rates/config"
	"io"
	"sort"
)

// holder carries the Env from the root Before hook to the subcommand actions
type holder struct {
	env *Env
}

// InitApp constructs the travelrates command tree writing to stdout and stderr and reading stdin
func InitApp(stdout io.Writer, stdin io.Reader, stderr io.Writer) *cli.Command {
	h := &holder{}

	app := &cli.Command{
		Name:   "travelrates",
		Usage:  "currency conversion with cached exchange rates",
		Writer: stdout,
		Reader: stdin,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "config file, instead of $" + config.EnvConfig + " and the standard locations",
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "SQLite database holding rates, overrides and pinned currencies",
			},
			&cli.StringFlag{
				Name:  "provider-url",
				Usage: "rate provider base url",
			},
			&cli.BoolFlag{
				Name:  "offline",
				Usage: "never contact the rate provider",
			},
			&cli.BoolFlag{
				Name:  "ephemeral",
				Usage: "keep state in memory only",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn, error or none",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return ctx, err
			}
			env, err := NewEnv(ctx, cfg, cmd.Bool("ephemeral"), stdout, stdin, stderr)
			if err != nil {
				return ctx, err
			}
			h.env = env
			return ctx, nil
		},
		After: func(ctx context.Context, cmd *cli.Command) error {
			if h.env == nil {
				return nil
			}
			return h.env.Close()
		},
	}

	app.Commands = append(app.Commands,
		RatesCommandBuilder(h),
		RefreshCommandBuilder(h),
		ConvertCommandBuilder(h),
		PinCommandBuilder(h),
		UnpinCommandBuilder(h),
		OverrideCommandBuilder(h),
		SessionCommandBuilder(h),
	)

	// Make sure flags are sorted for the --help text.
	for _, cmd := range app.Commands {
		sort.Slice(cmd.Flags, func(i, j int) bool {
			return cmd.Flags[i].Names()[0] < cmd.Flags[j].Names()[0]
		})
	}

	return app
}
