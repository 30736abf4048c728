package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/epccs/parts-epccs/internal/config"
	"github.com/epccs/parts-epccs/internal/database"
)

func main() {
	var (
		tool  = flag.String("tool", "", "filter by tool name (push_parts, pull_parts, rm_parts)")
		limit = flag.Int("limit", 20, "number of runs to show")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.Connect(cfg.History)
	if err != nil {
		log.Fatalf("❌ Open history ledger: %v", err)
	}
	defer db.Close()

	history, err := database.NewHistory(db)
	if err != nil {
		log.Fatal(err)
	}

	runs, err := history.RecentRuns(*tool, *limit)
	if err != nil {
		log.Fatal(err)
	}

	if len(runs) == 0 {
		fmt.Println("No recorded runs.")
		return
	}

	fmt.Printf("📝 Last %d run(s):\n\n", len(runs))
	for _, run := range runs {
		fmt.Printf("%s  %-10s  %-7s  %6dms  created=%d updated=%d skipped=%d failed=%d\n",
			run.StartedAt.Format("2006-01-02 15:04:05"),
			run.Tool, run.Status, run.Duration,
			run.Created, run.Updated, run.Skipped, run.Failed)
		if run.ErrorDetail != "" {
			fmt.Printf("    ❌ %s\n", run.ErrorDetail)
		}
	}
}
