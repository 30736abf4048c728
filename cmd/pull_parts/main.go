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
	root := flag.String("root", "", "corpus root directory to write into (default PARTS_ROOT)")
	flag.Parse()
	patterns := flag.Args()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if *root == "" {
		*root = cfg.Sync.CorpusRoot
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	fmt.Printf("🔄 Pulling parts from %s into %s\n", cfg.InvenTree.URL, *root)

	client := inventree.NewClient(cfg.InvenTree, cfg.Sync)
	puller := sync.NewPuller(client)

	report, runErr := puller.Run(ctx, sync.PullOptions{
		Root:     *root,
		Patterns: patterns,
	})
	database.RecordReport(cfg.History, "pull_parts", report, runErr)

	if runErr != nil {
		log.Fatalf("❌ Pull aborted: %v", runErr)
	}
	if report.Failed > 0 {
		os.Exit(1)
	}
}
