package command

import (
	"context"
	"errors"
	"fmt"
	"github.com/urfave/cli/v3"
	travel "go-travel-rates"
	"go-travel-rates/ratestore"
	"sort"
)

// RatesCommandBuilder constructs the "rates" command listing fetched, overridden and effective rates
func RatesCommandBuilder(h *holder) *cli.Command {
	return &cli.Command{
		Name:      "rates",
		Usage:     "show cached exchange rates",
		ArgsUsage: "[CODE...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "all",
				Aliases: []string{"a"},
				Usage:   "show every currency in the rate table",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			env := h.env
			env.AutoRefresh(ctx)

			status := env.Rates.Status(env.Now())
			spitStatus(env.Out, status, env.Now())

			var codes []travel.Currency
			switch {
			case cmd.Args().Len() > 0:
				for _, arg := range cmd.Args().Slice() {
					codes = append(codes, normalizeCode(arg))
				}
			case cmd.Bool("all") && status.Table != nil:
				for code := range status.Table.Rates {
					codes = append(codes, code)
				}
				sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
			default:
				codes = env.Persist.Pinned(ctx)
			}

			rows := make([][]string, 0, len(codes))
			for _, code := range codes {
				fetched := "-"
				if status.Table != nil {
					if rate, ok := status.Table.Rates[code]; ok {
						fetched = formatRate(rate)
					}
				}
				override := "-"
				if rate, ok := env.Overrides.Get(code); ok {
					override = formatRate(rate)
				}
				rows = append(rows, []string{string(code), fetched, override, formatRate(env.Resolver.EffectiveRate(code))})
			}
			spitTable(env.Out, []string{"Currency", "Fetched", "Override", "Effective"}, rows)
			return nil
		},
	}
}

// RefreshCommandBuilder constructs the "refresh" command forcing one fetch
func RefreshCommandBuilder(h *holder) *cli.Command {
	return &cli.Command{
		Name:  "refresh",
		Usage: "fetch the latest rates now",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			env := h.env
			env.CheckConnectivity(ctx)

			err := env.Rates.ManualRefresh(ctx)
			switch {
			case errors.Is(err, ratestore.ErrOffline):
				fmt.Fprintln(env.Out, "Refresh is disabled while offline.")
			case err != nil:
				fmt.Fprintln(env.Out, "Refresh failed, keeping cached rates.")
			default:
				fmt.Fprintln(env.Out, "Rates refreshed.")
			}
			spitStatus(env.Out, env.Rates.Status(env.Now()), env.Now())
			return nil
		},
	}
}
