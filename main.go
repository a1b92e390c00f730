package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"royalties/cmd"
	"royalties/database"
)

const usage = `usage: royalties <command> [flags]

commands:
  run        -start YYYY-MM-DD -end YYYY-MM-DD [-regions r1,r2]  execute royalty runs
  reconcile  -start YYYY-MM-DD -end YYYY-MM-DD [-region r]       verify sponsorship payouts
  sweep                                                          flag stale running runs as failed
  migrate    up|down [steps]|status                              manage schema migrations`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	if os.Args[1] == "migrate" {
		if err := handleMigrationCommand(); err != nil {
			log.Fatal("Migration error: ", err)
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Received shutdown signal, shutting down gracefully...")
		cancel()
	}()

	if err := dispatch(ctx, os.Args[1], os.Args[2:]); err != nil {
		log.Fatal("Command error: ", err)
	}
}

func dispatch(ctx context.Context, command string, args []string) error {
	switch command {
	case "run":
		fs := flag.NewFlagSet("run", flag.ExitOnError)
		start := fs.String("start", "", "period start date (YYYY-MM-DD, inclusive)")
		end := fs.String("end", "", "period end date (YYYY-MM-DD, inclusive)")
		regionList := fs.String("regions", "", "comma-separated regions (default: global)")
		fs.Parse(args)
		if *start == "" || *end == "" {
			return fmt.Errorf("run requires -start and -end")
		}
		return cmd.RunRoyalties(ctx, *start, *end, splitRegions(*regionList))

	case "reconcile":
		fs := flag.NewFlagSet("reconcile", flag.ExitOnError)
		start := fs.String("start", "", "period start date (YYYY-MM-DD, inclusive)")
		end := fs.String("end", "", "period end date (YYYY-MM-DD, inclusive)")
		region := fs.String("region", "global", "region to reconcile")
		fs.Parse(args)
		if *start == "" || *end == "" {
			return fmt.Errorf("reconcile requires -start and -end")
		}
		return cmd.Reconcile(ctx, *start, *end, *region)

	case "sweep":
		return cmd.SweepStaleRuns(ctx)

	default:
		fmt.Fprintln(os.Stderr, usage)
		return fmt.Errorf("unknown command: %s", command)
	}
}

func splitRegions(list string) []string {
	if list == "" {
		return nil
	}
	var regions []string
	for _, r := range strings.Split(list, ",") {
		r = strings.TrimSpace(r)
		if r != "" {
			regions = append(regions, r)
		}
	}
	return regions
}

func handleMigrationCommand() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: royalties migrate [up|down|status] [args...]")
	}

	command := os.Args[2]
	switch command {
	case "up":
		return database.MigrateUp()
	case "down":
		steps := "1"
		if len(os.Args) > 3 {
			steps = os.Args[3]
		}
		return database.MigrateDown(steps)
	case "status":
		return database.MigrateStatus()
	default:
		return fmt.Errorf("unknown migration command: %s", command)
	}
}
