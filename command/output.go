package command

import (
	"fmt"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/lipgloss/v2/table"
	"github.com/dustin/go-humanize"
	travel "go-travel-rates"
	"go-travel-rates/exchange"
	"go-travel-rates/ratestore"
	"io"
	"strconv"
	"strings"
	"time"
)

// spitTable renders headers and rows the same borderless way everywhere
func spitTable(w io.Writer, headers []string, rows [][]string) {
	t := table.New().
		BorderBottom(false).
		BorderTop(false).
		BorderLeft(false).
		BorderRight(false).
		Border(lipgloss.HiddenBorder()).
		Headers(headers...).
		BorderHeader(false).
		Rows(rows...)

	fmt.Fprintln(w, t)
}

// spitAmounts renders the engine rows
func spitAmounts(w io.Writer, rows []exchange.Row) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No pinned currencies.")
		return
	}
	cells := make([][]string, 0, len(rows))
	for _, row := range rows {
		cells = append(cells, []string{string(row.Currency), exchange.FormatAmount(row.Amount)})
	}
	spitTable(w, []string{"Currency", "Amount"}, cells)
}

// spitStatus renders one line describing the rate table
func spitStatus(w io.Writer, status ratestore.Status, now time.Time) {
	fmt.Fprintln(w, describeStatus(status, now))
}

func describeStatus(status ratestore.Status, now time.Time) string {
	var b strings.Builder
	if status.Table == nil {
		b.WriteString("No rates cached")
	} else {
		fmt.Fprintf(&b, "Rates for %v currencies from %v (%v)",
			len(status.Table.Rates),
			status.Table.Time().UTC().Format(time.RFC3339),
			humanize.RelTime(status.Table.Time(), now, "ago", "from now"),
		)
	}

	var flags []string
	if status.Stale {
		flags = append(flags, "stale")
	}
	if status.Offline {
		flags = append(flags, "offline")
	}
	if status.Fetching {
		flags = append(flags, "refreshing")
	}
	if status.LastError != nil {
		flags = append(flags, "last refresh failed: "+status.LastError.Error())
	}
	if len(flags) > 0 {
		fmt.Fprintf(&b, " [%v]", strings.Join(flags, ", "))
	}
	return b.String()
}

func formatRate(rate travel.Rate) string {
	return strconv.FormatFloat(float64(rate), 'f', -1, 64)
}

// normalizeCode upper-cases a currency typed by the user
func normalizeCode(s string) travel.Currency {
	return travel.Currency(strings.ToUpper(strings.TrimSpace(s)))
}
