package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "health":
		return runHealth(args[1:])
	case "ingest":
		return runIngest(args[1:])
	case "scan":
		return runScan(args[1:])
	case "decay":
		return runDecay(args[1:])
	case "recalculate":
		return runRecalculate(args[1:])
	case "backfill":
		return runBackfill(args[1:])
	case "refresh":
		return runRefresh(args[1:])
	case "merge":
		return runMerge(args[1:])
	case "stats":
		return runStats(args[1:])
	case "serve":
		return runServe(args[1:])
	case "daemon":
		return runDaemon(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "styleluxe CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  styleluxe <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  health       Verify database connectivity")
	fmt.Fprintln(os.Stderr, "  ingest       Apply one signal reading from JSON")
	fmt.Fprintln(os.Stderr, "  scan         Run all source adapters over a readings directory")
	fmt.Fprintln(os.Stderr, "  decay        Recompute all scores and record daily samples")
	fmt.Fprintln(os.Stderr, "  recalculate  Recompute all scores without sampling")
	fmt.Fprintln(os.Stderr, "  backfill     Fill missing first-detection timestamps and recompute")
	fmt.Fprintln(os.Stderr, "  refresh      Refresh rating and review count from a metadata snapshot")
	fmt.Fprintln(os.Stderr, "  merge        Merge a duplicate product into a target product")
	fmt.Fprintln(os.Stderr, "  stats        Show engine counts and daily throughput")
	fmt.Fprintln(os.Stderr, "  serve        Start the Echo API server")
	fmt.Fprintln(os.Stderr, "  daemon       Manage systemd units for serve and scheduled runs")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"styleluxe <command> -h\" for command-specific flags.")
}
