package command

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"
	travel "go-travel-rates"
	"go-travel-rates/exchange"
	"go-travel-rates/ratestore"
	"go-travel-rates/ticker"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

const sessionHelp = `Commands:
  CODE AMOUNT        set the amount of one currency and convert the others
  pin CODE...        add currencies
  unpin CODE...      remove currencies
  override CODE RATE use a custom rate for CODE
  reset CODE...      drop custom rates
  refresh            fetch the latest rates in the background
  show               print the conversion rows
  status             print the rate table state
  help               print this text
  quit               leave`

// SessionCommandBuilder constructs the interactive "session" command
func SessionCommandBuilder(h *holder) *cli.Command {
	return &cli.Command{
		Name:  "session",
		Usage: "convert interactively, reading commands from stdin",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "serve prometheus metrics on this address while the session runs",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			addr := h.env.Config.Metrics.Addr
			if cmd.IsSet("metrics-addr") {
				addr = cmd.String("metrics-addr")
			}
			s := &session{
				env:    h.env,
				engine: h.env.Engine(ctx),
				logger: log.With(h.env.Logger, "component", "session"),
			}
			return s.run(ctx, addr)
		},
	}
}

// session owns the engine. Only the run loop touches it.
type session struct {
	env    *Env
	engine *exchange.Engine
	logger log.Logger

	// lastTick in unix millis, written by the ticker
	lastTick atomic.Int64

	// refreshed delivers the results of background refreshes to the loop
	refreshed chan error
}

func (s *session) run(ctx context.Context, metricsAddr string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tk := ticker.New(time.Duration(s.env.Config.Refresh.Tick), log.With(s.env.Logger, "component", "ticker"))
	clock := tk.Subscribe(func(now time.Time) {
		s.lastTick.Store(now.UnixMilli())
	})
	defer tk.Unsubscribe(clock)

	stopSchedule := s.env.Rates.Schedule(ctx, tk)
	defer stopSchedule()

	if err := tk.Start(); err != nil {
		return err
	}
	defer tk.Stop()

	if s.env.probe != nil {
		go s.env.probe.Run(ctx)
	}

	if metricsAddr != "" {
		server := &http.Server{
			Addr:    metricsAddr,
			Handler: promhttp.HandlerFor(s.env.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				level.Error(s.logger).Log("msg", "metrics server failed", "addr", metricsAddr, "err", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
	}

	updates := make(chan *travel.RateTable, 1)
	s.env.Rates.OnUpdate(func(table *travel.RateTable) {
		select {
		case updates <- table:
		default:
		}
	})
	s.refreshed = make(chan error, 1)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(s.env.In)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	spitStatus(s.env.Out, s.env.Rates.Status(s.env.Now()), s.env.Now())
	spitAmounts(s.env.Out, s.engine.Rows())

	for {
		select {
		case <-ctx.Done():
			return nil
		case table := <-updates:
			fmt.Fprintf(s.env.Out, "Rates updated: %v currencies. Edit a row to apply them.\n", len(table.Rates))
		case err := <-s.refreshed:
			switch {
			case errors.Is(err, ratestore.ErrOffline):
				fmt.Fprintln(s.env.Out, "Refresh is disabled while offline.")
			case err != nil:
				fmt.Fprintln(s.env.Out, "Refresh failed, keeping cached rates.")
			}
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := s.handle(ctx, line); quit {
				return nil
			}
		}
	}
}

// handle executes one input line, reporting whether the session should end
func (s *session) handle(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	args := fields[1:]
	out := s.env.Out

	switch strings.ToLower(fields[0]) {
	case "quit", "exit":
		return true
	case "help", "?":
		fmt.Fprintln(out, sessionHelp)
	case "show":
		spitAmounts(out, s.engine.Rows())
	case "status":
		spitStatus(out, s.env.Rates.Status(s.env.Now()), s.env.Now())
		if tick := s.lastTick.Load(); tick != 0 {
			fmt.Fprintf(out, "Clock: %v\n", time.UnixMilli(tick).Format("15:04:05"))
		}
	case "pin":
		for _, arg := range args {
			s.report(s.engine.Pin(ctx, normalizeCode(arg)))
		}
		spitAmounts(out, s.engine.Rows())
	case "unpin":
		for _, arg := range args {
			s.report(s.engine.Unpin(ctx, normalizeCode(arg)))
		}
		spitAmounts(out, s.engine.Rows())
	case "override":
		if len(args) < 1 {
			fmt.Fprintln(out, "usage: override CODE RATE")
			return false
		}
		code := normalizeCode(args[0])
		rateText := ""
		if len(args) > 1 {
			rateText = args[1]
		}
		stored, err := s.env.Overrides.Set(ctx, code, parseRate(rateText))
		s.report(err)
		fmt.Fprintf(out, "%v now uses %v\n", code, formatRate(stored))
	case "reset":
		for _, arg := range args {
			code := normalizeCode(arg)
			s.report(s.env.Overrides.Reset(ctx, code))
			fmt.Fprintf(out, "%v now uses %v\n", code, formatRate(s.env.Resolver.EffectiveRate(code)))
		}
	case "refresh":
		if s.env.Rates.IsOffline() {
			fmt.Fprintln(out, "Refresh is disabled while offline.")
			return false
		}
		fmt.Fprintln(out, "Refreshing in the background.")
		result := s.env.Rates.RefreshAsync(ctx)
		go func() {
			err := <-result
			select {
			case s.refreshed <- err:
			case <-ctx.Done():
			}
		}()
	default:
		text := ""
		if len(args) > 0 {
			text = args[0]
		}
		s.engine.EditText(normalizeCode(fields[0]), text)
		spitAmounts(out, s.engine.Rows())
	}
	return false
}

func (s *session) report(err error) {
	if err != nil {
		fmt.Fprintf(s.env.Out, "error: %v\n", err)
	}
}
