package command

import (
	"context"
	"fmt"
	"github.com/urfave/cli/v3"
	travel "go-travel-rates"
	"strings"
)

// PinCommandBuilder constructs the "pin" command
func PinCommandBuilder(h *holder) *cli.Command {
	return &cli.Command{
		Name:      "pin",
		Usage:     "add currencies to the conversion rows",
		ArgsUsage: "CODE...",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() == 0 {
				return fmt.Errorf("pin: missing currency code")
			}
			engine := h.env.Engine(ctx)
			for _, arg := range cmd.Args().Slice() {
				if err := engine.Pin(ctx, normalizeCode(arg)); err != nil {
					return err
				}
			}
			spitPinned(h.env, engine.Pinned())
			return nil
		},
	}
}

// UnpinCommandBuilder constructs the "unpin" command
func UnpinCommandBuilder(h *holder) *cli.Command {
	return &cli.Command{
		Name:      "unpin",
		Usage:     "remove currencies from the conversion rows",
		ArgsUsage: "CODE...",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() == 0 {
				return fmt.Errorf("unpin: missing currency code")
			}
			engine := h.env.Engine(ctx)
			for _, arg := range cmd.Args().Slice() {
				if err := engine.Unpin(ctx, normalizeCode(arg)); err != nil {
					return err
				}
			}
			spitPinned(h.env, engine.Pinned())
			return nil
		},
	}
}

func spitPinned(env *Env, pinned []travel.Currency) {
	codes := make([]string, 0, len(pinned))
	for _, code := range pinned {
		codes = append(codes, string(code))
	}
	fmt.Fprintf(env.Out, "Pinned: %v\n", strings.Join(codes, " "))
}
