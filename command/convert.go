package command

import (
	"context"
	"fmt"
	"github.com/urfave/cli/v3"
	"go-travel-rates/exchange"
)

// ConvertCommandBuilder constructs the "convert" command.
// Without --to it edits one row of the pinned currencies and prints them all.
func ConvertCommandBuilder(h *holder) *cli.Command {
	return &cli.Command{
		Name:      "convert",
		Usage:     "convert an amount across the pinned currencies",
		ArgsUsage: "CODE AMOUNT",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "to",
				Usage: "convert into this one currency instead of the pinned ones",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() < 1 {
				return fmt.Errorf("convert: missing currency code")
			}
			env := h.env
			env.AutoRefresh(ctx)

			code := normalizeCode(cmd.Args().Get(0))
			text := cmd.Args().Get(1)

			if cmd.IsSet("to") {
				to := normalizeCode(cmd.String("to"))
				amount := exchange.ParseAmount(text)
				ex, err := env.Converter.Convert(ctx, amount, code, to)
				if err != nil {
					return fmt.Errorf("convert: %w", err)
				}
				fmt.Fprintf(env.Out, "%v %v = %v %v (rate %v)\n",
					exchange.FormatAmount(amount), code,
					exchange.FormatAmount(ex.Amount), to,
					formatRate(ex.Rate),
				)
				return nil
			}

			engine := env.Engine(ctx)
			engine.EditText(code, text)
			spitAmounts(env.Out, engine.Rows())
			return nil
		},
	}
}
