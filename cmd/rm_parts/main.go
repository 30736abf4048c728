package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/epccs/parts-epccs/internal/config"
	"github.com/epccs/parts-epccs/internal/database"
	"github.com/epccs/parts-epccs/internal/inventree"
	"github.com/epccs/parts-epccs/internal/sync"
)

func main() {
	var (
		cleanup = flag.String("cleanup", "confirm", "dependency cleanup: deny, confirm or auto")
		dryRun  = flag.Bool("dry-run", false, "report what would be deleted without touching the catalog")
	)
	flag.Parse()
	patterns := flag.Args()

	if len(patterns) == 0 {
		fmt.Fprintln(os.Stderr, "usage: rm_parts [flags] pattern [pattern...]")
		fmt.Fprintln(os.Stderr, "refusing to delete the whole catalog without an explicit pattern")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	policy, err := parseCleanupPolicy(*cleanup)
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	fmt.Printf("🗑️  Removing parts matching %v from %s\n", patterns, cfg.InvenTree.URL)

	client := inventree.NewClient(cfg.InvenTree, cfg.Sync)
	remover := sync.NewRemover(client)

	report, runErr := remover.Run(ctx, sync.RemoveOptions{
		Patterns: patterns,
		Cleanup:  policy,
		Confirm:  terminalConfirm,
		DryRun:   *dryRun,
	})
	if !*dryRun {
		database.RecordReport(cfg.History, "rm_parts", report, runErr)
	}

	if runErr != nil {
		log.Fatalf("❌ Removal aborted: %v", runErr)
	}
	if report.Failed > 0 {
		os.Exit(1)
	}
}

func parseCleanupPolicy(s string) (sync.CleanupPolicy, error) {
	switch s {
	case "deny":
		return sync.CleanupDeny, nil
	case "confirm":
		return sync.CleanupConfirm, nil
	case "auto":
		return sync.CleanupAutoApprove, nil
	}
	return "", fmt.Errorf("invalid -cleanup value %q (want deny, confirm or auto)", s)
}

func terminalConfirm(prompt string) bool {
	fmt.Printf("⚠️  %s [y/N]: ", prompt)
	var answer string
	fmt.Scanln(&answer)
	return answer == "y" || answer == "Y" || answer == "yes"
}
