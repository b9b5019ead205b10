package command

import (
	"context"
	"fmt"
	"github.com/urfave/cli/v3"
	travel "go-travel-rates"
	"sort"
	"strconv"
	"strings"
)

// OverrideCommandBuilder constructs the "override" command with its set, reset and list subcommands
func OverrideCommandBuilder(h *holder) *cli.Command {
	return &cli.Command{
		Name:  "override",
		Usage: "manage custom exchange rates",
		Commands: []*cli.Command{
			{
				Name:      "set",
				Usage:     "use RATE for CODE instead of the fetched rate",
				ArgsUsage: "CODE RATE",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.Args().Len() < 1 {
						return fmt.Errorf("override set: missing currency code")
					}
					code := normalizeCode(cmd.Args().Get(0))
					stored, err := h.env.Overrides.Set(ctx, code, parseRate(cmd.Args().Get(1)))
					if err != nil {
						return err
					}
					fmt.Fprintf(h.env.Out, "%v now uses %v\n", code, formatRate(stored))
					return nil
				},
			},
			{
				Name:      "reset",
				Usage:     "go back to the fetched rate for CODE",
				ArgsUsage: "CODE...",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.Args().Len() == 0 {
						return fmt.Errorf("override reset: missing currency code")
					}
					for _, arg := range cmd.Args().Slice() {
						code := normalizeCode(arg)
						if err := h.env.Overrides.Reset(ctx, code); err != nil {
							return err
						}
						fmt.Fprintf(h.env.Out, "%v now uses %v\n", code, formatRate(h.env.Resolver.EffectiveRate(code)))
					}
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "show every custom rate",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					spitOverrides(h.env, h.env.Overrides.All())
					return nil
				},
			},
		},
	}
}

func spitOverrides(env *Env, overrides travel.Rates) {
	if len(overrides) == 0 {
		fmt.Fprintln(env.Out, "No custom rates.")
		return
	}
	codes := make([]string, 0, len(overrides))
	for code := range overrides {
		codes = append(codes, string(code))
	}
	sort.Strings(codes)

	rows := make([][]string, 0, len(codes))
	for _, code := range codes {
		rows = append(rows, []string{code, formatRate(overrides[travel.Currency(code)])})
	}
	spitTable(env.Out, []string{"Currency", "Override"}, rows)
}

// parseRate reads a user supplied rate. Anything unparsable becomes 0, which Overrides.Set replaces by 1.
func parseRate(text string) travel.Rate {
	f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0
	}
	return travel.Rate(f)
}
