package main

import (
	"context"
	"fmt"
	"go-travel-rates/command"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := command.InitApp(os.Stdout, os.Stdin, os.Stderr)
	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "travelrates: %v\n", err)
		return 1
	}
	return 0
}
