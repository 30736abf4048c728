package sync

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/epccs/parts-epccs/internal/catalog"
	"github.com/epccs/parts-epccs/internal/inventree"
	"github.com/epccs/parts-epccs/internal/models"
)

// RemoveOptions tunes one removal run
type RemoveOptions struct {
	Patterns []string      // item stem globs selecting parts to delete
	Cleanup  CleanupPolicy // gates deletion of dependent objects
	Confirm  ConfirmFunc   // consulted under CleanupConfirm
	DryRun   bool          // report what would be deleted, touch nothing
}

// Remover deletes matching parts from the remote catalog. Deletion runs
// in descending level order so an assembly's BOM lines are gone before
// its sub-parts come up for deletion.
type Remover struct {
	client *inventree.Client
}

// NewRemover creates a remover over one remote catalog
func NewRemover(client *inventree.Client) *Remover {
	return &Remover{client: client}
}

// Run deletes every part matching the patterns
func (r *Remover) Run(ctx context.Context, opts RemoveOptions) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	defer func() {
		report.Duration = time.Since(report.StartedAt)
		report.sortItems()
	}()

	parts, err := r.client.ListParts(ctx)
	if err != nil {
		return report, fmt.Errorf("list parts: %w", err)
	}

	keyByPK := make(map[int]models.PartKey, len(parts))
	keys := make([]models.PartKey, 0, len(parts))
	for _, part := range parts {
		key := models.PartKey{
			Name:     catalog.SanitizePartName(part.Name),
			Revision: catalog.SanitizeRevision(part.Revision),
		}
		keyByPK[part.PK] = key
		keys = append(keys, key)
	}

	deps := make(map[models.PartKey][]models.PartKey)
	for _, part := range parts {
		key := keyByPK[part.PK]
		if part.VariantOf != nil {
			if base, ok := keyByPK[*part.VariantOf]; ok {
				deps[key] = append(deps[key], base)
			}
		}
		if !part.Assembly && !part.IsTemplate {
			continue
		}
		lines, err := r.client.ListBOMLines(ctx, part.PK)
		if err != nil {
			return report, fmt.Errorf("list BOM of part %d: %w", part.PK, err)
		}
		for _, line := range lines {
			if sub, ok := keyByPK[line.SubPart]; ok {
				deps[key] = append(deps[key], sub)
			}
		}
	}

	graph := NewGraph(keys, deps)
	levels, levelErrs := graph.ComputeLevels()
	for _, err := range levelErrs {
		report.addWarning(err.Error())
	}

	type target struct {
		part  models.Part
		key   models.PartKey
		level int
	}
	var targets []target
	for _, part := range parts {
		key := keyByPK[part.PK]
		if !catalog.MatchesAny(opts.Patterns, key.String()) {
			continue
		}
		// A part without a level (cycle member) still gets deleted; level 0
		// sorts it last, after everything that could reference it.
		targets = append(targets, target{part: part, key: key, level: levels[key]})
	}
	sort.Slice(targets, func(i, j int) bool {
		if targets[i].level != targets[j].level {
			return targets[i].level > targets[j].level
		}
		return targets[i].key.String() < targets[j].key.String()
	})

	for _, t := range targets {
		if opts.DryRun {
			log.Printf("🔍 Would delete %s (part %d, level %d)", t.key, t.part.PK, t.level)
			report.addItem(ItemReport{Key: t.key.String(), Level: t.level, State: StatePending, PK: t.part.PK})
			report.countSkipped()
			continue
		}
		if err := DeletePartWithDependencies(ctx, r.client, t.part.PK, opts.Cleanup, opts.Confirm); err != nil {
			report.addItem(ItemReport{Key: t.key.String(), Level: t.level, State: StateFailed,
				PK: t.part.PK, Error: err.Error()})
			report.countFailed()
			log.Printf("❌ %s: %v", t.key, err)
			continue
		}
		report.addItem(ItemReport{Key: t.key.String(), Level: t.level, State: StateDeleted, PK: t.part.PK})
		report.countDeleted()
		log.Printf("🗑️ %s: deleted part %d", t.key, t.part.PK)
	}

	log.Printf("✅ Removal run %s completed: %s", report.RunID, report.Summary())
	return report, nil
}
