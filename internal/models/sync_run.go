package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SyncRun records each synchronization run in the optional history ledger
type SyncRun struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	RunID       string         `gorm:"column:run_id;not null;index" json:"runId"`
	Tool        string         `gorm:"column:tool;not null;index" json:"tool"` // "push_parts", "pull_parts", "rm_parts"
	Status      string         `gorm:"column:status;not null;index" json:"status"` // "success", "error", "partial"
	StartedAt   time.Time      `gorm:"column:started_at;not null" json:"startedAt"`
	CompletedAt *time.Time     `gorm:"column:completed_at" json:"completedAt"`
	Duration    int            `gorm:"column:duration;default:0" json:"duration"` // milliseconds
	Created     int            `gorm:"column:created;default:0" json:"created"`
	Updated     int            `gorm:"column:updated;default:0" json:"updated"`
	Skipped     int            `gorm:"column:skipped;default:0" json:"skipped"`
	Failed      int            `gorm:"column:failed;default:0" json:"failed"`
	ErrorDetail string         `gorm:"column:error_detail;type:text" json:"errorDetail"`
	Report      datatypes.JSON `gorm:"column:report;type:jsonb" json:"report"` // full per-item run report
	CreatedAt   time.Time      `gorm:"column:created_at" json:"-"`
	UpdatedAt   time.Time      `gorm:"column:updated_at" json:"-"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name
func (SyncRun) TableName() string {
	return "sync_runs"
}
