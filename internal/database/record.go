package database

import (
	"log"

	"github.com/epccs/parts-epccs/internal/config"
	"github.com/epccs/parts-epccs/internal/sync"
)

// RecordReport writes one run report to the history ledger when the ledger
// is enabled. Ledger failures are logged, never fatal: the sync outcome
// already happened and must be reported to the caller regardless.
func RecordReport(cfg config.HistoryConfig, tool string, report *sync.Report, runErr error) {
	if !cfg.Enabled {
		return
	}
	db, err := Connect(cfg)
	if err != nil {
		log.Printf("⚠️  History ledger unavailable: %v", err)
		return
	}
	defer db.Close()

	history, err := NewHistory(db)
	if err != nil {
		log.Printf("⚠️  History ledger unavailable: %v", err)
		return
	}

	errDetail := ""
	if runErr != nil {
		errDetail = runErr.Error()
	}
	status := report.Status()
	if runErr != nil {
		status = "error"
	}
	if err := history.RecordRun(tool, report.RunID, status, report.StartedAt, report.Duration,
		report.Created, report.Updated, report.Skipped, report.Failed, errDetail, report); err != nil {
		log.Printf("⚠️  Could not record run %s: %v", report.RunID, err)
	}
}
