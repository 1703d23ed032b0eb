package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rgourley/styleluxe/internal/cli"
)

func runStats(args []string) int {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "stats does not accept positional arguments")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	ctx, cancel, pool, err := connectReadPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	dayStart := defaultUTCDay()
	_, dayEnd := utcDayBounds(dayStart)

	stats, err := pool.QueryEngineStats(ctx, dayStart, dayEnd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to query engine stats: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(stats); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	statusRows := make([][]string, 0, len(stats.Statuses)+1)
	for _, row := range stats.Statuses {
		statusRows = append(statusRows, []string{
			row.Status,
			fmt.Sprintf("%d", row.Products),
			fmt.Sprintf("%d", row.Listed),
		})
	}
	statusRows = append(statusRows, []string{
		"TOTAL",
		fmt.Sprintf("%d", stats.Totals.Products),
		fmt.Sprintf("%d", stats.Totals.Listed),
	})

	if err := writeTable([]string{"status", "products", "listed"}, statusRows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render status table: %v\n", err)
		return 1
	}

	fmt.Println()
	throughputRows := [][]string{
		{"signals_total", fmt.Sprintf("%d", stats.Totals.Signals)},
		{"signals_ingested_today", fmt.Sprintf("%d", stats.Throughput.SignalsIngestedToday)},
		{"products_flagged_today", fmt.Sprintf("%d", stats.Throughput.ProductsFlaggedToday)},
		{"scans_completed_today", fmt.Sprintf("%d", stats.Throughput.ScansCompletedToday)},
		{"pending_content", fmt.Sprintf("%d", stats.Throughput.PendingContent)},
	}
	if err := writeTable([]string{"metric", "value"}, throughputRows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render throughput table: %v\n", err)
		return 1
	}

	return 0
}
