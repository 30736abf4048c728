package sync

import (
	"fmt"
	"sort"
	gosync "sync"
	"time"
)

// ItemState tracks one item through the push state machine
type ItemState string

const (
	StatePending          ItemState = "pending"
	StateCategoryResolved ItemState = "category_resolved"
	StateIdentityResolved ItemState = "identity_resolved"
	StateCreated          ItemState = "created"
	StateUpdated          ItemState = "updated"
	StateSuppliersSynced  ItemState = "suppliers_synced"
	StateBOMSynced        ItemState = "bom_synced"
	StateDone             ItemState = "done"
	StateDeleted          ItemState = "deleted"
	StateFailed           ItemState = "failed"
)

// ItemReport is the terminal record for one item in a run
type ItemReport struct {
	Key   string    `json:"key"`
	Level int       `json:"level"`
	State ItemState `json:"state"`
	PK    int       `json:"pk,omitempty"`
	Error string    `json:"error,omitempty"`
}

// Report collects the outcome of one orchestrator run. Failures are
// attributed to the smallest affected unit and collected rather than
// aborting the traversal.
type Report struct {
	mu gosync.Mutex

	RunID     string        `json:"runId"`
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`

	Created             int `json:"created"`
	Updated             int `json:"updated"`
	Skipped             int `json:"skipped"`
	Deleted             int `json:"deleted,omitempty"`
	Failed              int `json:"failed"`
	DuplicatesDiscarded int `json:"duplicatesDiscarded"`

	Warnings []string     `json:"warnings,omitempty"`
	Items    []ItemReport `json:"items"`
}

func (r *Report) addItem(item ItemReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Items = append(r.Items, item)
}

func (r *Report) countFailed() { r.mu.Lock(); r.Failed++; r.mu.Unlock() }

func (r *Report) addWarning(w string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Warnings = append(r.Warnings, w)
}

func (r *Report) countCreated() { r.mu.Lock(); r.Created++; r.mu.Unlock() }
func (r *Report) countUpdated() { r.mu.Lock(); r.Updated++; r.mu.Unlock() }
func (r *Report) countSkipped() { r.mu.Lock(); r.Skipped++; r.mu.Unlock() }
func (r *Report) countDeleted() { r.mu.Lock(); r.Deleted++; r.mu.Unlock() }
func (r *Report) countDiscards(n int) {
	r.mu.Lock()
	r.DuplicatesDiscarded += n
	r.mu.Unlock()
}

// sortItems puts the per-item records in deterministic order
func (r *Report) sortItems() {
	sort.Slice(r.Items, func(i, j int) bool {
		if r.Items[i].Level != r.Items[j].Level {
			return r.Items[i].Level < r.Items[j].Level
		}
		return r.Items[i].Key < r.Items[j].Key
	})
}

// Status summarizes the run for the history ledger
func (r *Report) Status() string {
	switch {
	case r.Failed == 0:
		return "success"
	case r.Created+r.Updated+r.Skipped+r.Deleted > 0:
		return "partial"
	default:
		return "error"
	}
}

// Summary renders a one-line human summary
func (r *Report) Summary() string {
	return fmt.Sprintf("created=%d updated=%d skipped=%d deleted=%d failed=%d duplicates_discarded=%d warnings=%d",
		r.Created, r.Updated, r.Skipped, r.Deleted, r.Failed, r.DuplicatesDiscarded, len(r.Warnings))
}
