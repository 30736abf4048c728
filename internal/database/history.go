package database

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"gorm.io/datatypes"

	"github.com/epccs/parts-epccs/internal/models"
)

// History is the run ledger. Every tool invocation that touches the remote
// catalog gets one row with its counters and the full per-item report.
type History struct {
	db *DB
}

// NewHistory opens the ledger and migrates its schema
func NewHistory(db *DB) (*History, error) {
	if err := db.AutoMigrate(&models.SyncRun{}); err != nil {
		return nil, fmt.Errorf("migrate sync_runs: %w", err)
	}
	return &History{db: db}, nil
}

// RecordRun persists the outcome of one run. Report details are stored as
// jsonb so the ledger stays queryable without schema churn.
func (h *History) RecordRun(tool, runID, status string, startedAt time.Time, duration time.Duration, created, updated, skipped, failed int, errDetail string, report interface{}) error {
	completed := startedAt.Add(duration)
	run := models.SyncRun{
		RunID:       runID,
		Tool:        tool,
		Status:      status,
		StartedAt:   startedAt,
		CompletedAt: &completed,
		Duration:    int(duration.Milliseconds()),
		Created:     created,
		Updated:     updated,
		Skipped:     skipped,
		Failed:      failed,
		ErrorDetail: errDetail,
	}
	if report != nil {
		data, err := json.Marshal(report)
		if err != nil {
			return fmt.Errorf("marshal run report: %w", err)
		}
		run.Report = datatypes.JSON(data)
	}
	if err := h.db.Create(&run).Error; err != nil {
		return fmt.Errorf("record sync run: %w", err)
	}
	log.Printf("📝 Run %s recorded in history ledger", runID)
	return nil
}

// RecentRuns returns the latest runs, newest first, optionally filtered by tool
func (h *History) RecentRuns(tool string, limit int) ([]models.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}
	q := h.db.Order("started_at DESC").Limit(limit)
	if tool != "" {
		q = q.Where("tool = ?", tool)
	}
	var runs []models.SyncRun
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("list sync runs: %w", err)
	}
	return runs, nil
}
