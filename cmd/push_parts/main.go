package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/epccs/parts-epccs/internal/catalog"
	"github.com/epccs/parts-epccs/internal/config"
	"github.com/epccs/parts-epccs/internal/database"
	"github.com/epccs/parts-epccs/internal/inventree"
	"github.com/epccs/parts-epccs/internal/sync"
)

func main() {
	var (
		root       = flag.String("root", "", "corpus root directory (default PARTS_ROOT)")
		workers    = flag.Int("workers", 0, "parallel items per level (default SYNC_WORKERS)")
		force      = flag.Bool("force", false, "delete and recreate parts that already exist")
		forceIPN   = flag.Bool("force-ipn", false, "generate an IPN from the part name when missing")
		forcePrice = flag.Bool("force-price", false, "delete remote price breaks before pushing")
		cleanup    = flag.String("cleanup", "deny", "dependency cleanup under -force: deny, confirm or auto")
	)
	flag.Parse()
	patterns := flag.Args()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if *root == "" {
		*root = cfg.Sync.CorpusRoot
	}
	if *workers <= 0 {
		*workers = cfg.Sync.Workers
	}

	policy, err := parseCleanupPolicy(*cleanup)
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	fmt.Printf("🔄 Pushing parts from %s to %s\n", *root, cfg.InvenTree.URL)

	corpus, err := catalog.Load(*root, patterns)
	if err != nil {
		log.Fatalf("❌ Load corpus: %v", err)
	}
	log.Printf("📦 Loaded %d item(s) from %s", corpus.Len(), *root)

	client := inventree.NewClient(cfg.InvenTree, cfg.Sync)
	resolver, err := sync.BuildResolver(ctx, client)
	if err != nil {
		log.Fatalf("❌ Build remote part index: %v", err)
	}
	log.Printf("🌐 Indexed %d remote part(s)", resolver.Len())

	orch := sync.NewOrchestrator(client, resolver, corpus, sync.Options{
		Force:      *force,
		ForceIPN:   *forceIPN,
		ForcePrice: *forcePrice,
		Cleanup:    policy,
		Confirm:    terminalConfirm,
		Workers:    *workers,
	})

	report, runErr := orch.Run(ctx)
	database.RecordReport(cfg.History, "push_parts", report, runErr)

	if runErr != nil {
		log.Fatalf("❌ Push aborted: %v", runErr)
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
