package sync

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/epccs/parts-epccs/internal/catalog"
	"github.com/epccs/parts-epccs/internal/inventree"
	"github.com/epccs/parts-epccs/internal/models"
)

// PullOptions tunes one pull run
type PullOptions struct {
	Root     string   // local corpus root to write into
	Patterns []string // item stem globs, empty = everything
}

// Puller exports the remote catalog into the local file tree: one JSON
// file per part under its level and category directories, sibling BOM
// files, and category.json markers. Price breaks are aggregated on the
// way out so pre-existing remote duplicates never reach disk.
type Puller struct {
	client *inventree.Client
}

// NewPuller creates a puller over one remote catalog
func NewPuller(client *inventree.Client) *Puller {
	return &Puller{client: client}
}

// Run exports every matching part. Parts whose level cannot be assigned
// (remote BOM cycles) are placed at level 1 with a warning so the export
// never drops data over a damaged remote BOM.
func (p *Puller) Run(ctx context.Context, opts PullOptions) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	defer func() {
		report.Duration = time.Since(report.StartedAt)
		report.sortItems()
	}()

	parts, err := p.client.ListParts(ctx)
	if err != nil {
		return report, fmt.Errorf("list parts: %w", err)
	}
	categories, err := p.client.ListCategories(ctx, "", nil)
	if err != nil {
		return report, fmt.Errorf("list categories: %w", err)
	}
	companies, err := p.client.ListCompanies(ctx, "", "")
	if err != nil {
		return report, fmt.Errorf("list companies: %w", err)
	}

	categoryByPK := make(map[int]models.PartCategory, len(categories))
	for _, c := range categories {
		categoryByPK[c.PK] = c
	}
	companyByPK := make(map[int]models.Company, len(companies))
	for _, c := range companies {
		companyByPK[c.PK] = c
	}
	partByPK := make(map[int]models.Part, len(parts))
	for _, part := range parts {
		partByPK[part.PK] = part
	}

	// Identity and dependency edges come from the remote records; levels
	// are computed the same way the push side does it.
	keyOf := func(part models.Part) models.PartKey {
		return models.PartKey{
			Name:     catalog.SanitizePartName(part.Name),
			Revision: catalog.SanitizeRevision(part.Revision),
		}
	}

	keys := make([]models.PartKey, 0, len(parts))
	keyByPK := make(map[int]models.PartKey, len(parts))
	for _, part := range parts {
		key := keyOf(part)
		keys = append(keys, key)
		keyByPK[part.PK] = key
	}

	deps := make(map[models.PartKey][]models.PartKey)
	bomByPK := make(map[int][]models.BOMLine)
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
		lines, err := p.client.ListBOMLines(ctx, part.PK)
		if err != nil {
			return report, fmt.Errorf("list BOM of part %d: %w", part.PK, err)
		}
		bomByPK[part.PK] = lines
		for _, line := range lines {
			if sub, ok := keyByPK[line.SubPart]; ok {
				deps[key] = append(deps[key], sub)
			} else {
				report.addWarning(fmt.Sprintf("%s: BOM references unknown part %d", key, line.SubPart))
			}
		}
	}

	graph := NewGraph(keys, deps)
	levels, levelErrs := graph.ComputeLevels()
	for _, err := range levelErrs {
		log.Printf("❌ %v", err)
		report.addWarning(err.Error())
	}

	writtenDirs := make(map[string]bool)
	for _, part := range parts {
		key := keyByPK[part.PK]
		if !catalog.MatchesAny(opts.Patterns, key.String()) {
			continue
		}
		level, ok := levels[key]
		if !ok {
			// An export must not lose data over a damaged remote BOM;
			// cycle members land at level 1 with a warning.
			level = 1
			report.addWarning(fmt.Sprintf("%s: no level (remote dependency cycle), placed at level 1", key))
		}

		record, err := p.buildRecord(ctx, part, partByPK, companyByPK)
		if err != nil {
			report.addItem(ItemReport{Key: key.String(), Level: level, State: StateFailed,
				PK: part.PK, Error: err.Error()})
			report.countFailed()
			log.Printf("❌ %s: %v", key, err)
			continue
		}

		var bom []models.BOMLineRecord
		for _, line := range bomByPK[part.PK] {
			sub, ok := partByPK[line.SubPart]
			if !ok {
				continue
			}
			bom = append(bom, models.BOMLineRecord{
				Quantity:  line.Quantity,
				Note:      line.Note,
				Validated: line.Validated,
				Active:    line.Active,
				SubPart: models.SubPartRef{
					Name:        catalog.SanitizePartName(sub.Name),
					IPN:         sub.IPN,
					Revision:    catalog.SanitizeRevision(sub.Revision),
					Description: sub.Description,
				},
			})
		}

		catPath := categoryPath(part.Category, categoryByPK)
		path, err := catalog.WriteItem(opts.Root, level, catPath, key, record, bom)
		if err != nil {
			report.addItem(ItemReport{Key: key.String(), Level: level, State: StateFailed,
				PK: part.PK, Error: err.Error()})
			report.countFailed()
			continue
		}
		dir := catalog.ItemDir(opts.Root, level, catPath)
		if !writtenDirs[dir] {
			if err := catalog.WriteCategoryIndex(opts.Root, level, catPath); err != nil {
				return report, err
			}
			writtenDirs[dir] = true
		}

		report.addItem(ItemReport{Key: key.String(), Level: level, State: StateDone, PK: part.PK})
		report.countCreated()
		log.Printf("📦 %s -> %s", key, path)
	}

	log.Printf("✅ Pull run %s completed: %s", report.RunID, report.Summary())
	return report, nil
}

// buildRecord converts one remote part into its on-disk form, with the
// variant reference re-encoded by identity and supplier relationships
// (including aggregated price breaks) attached.
func (p *Puller) buildRecord(ctx context.Context, part models.Part, partByPK map[int]models.Part, companyByPK map[int]models.Company) (models.ItemRecord, error) {
	record := models.ItemRecord{
		Name:         catalog.SanitizePartName(part.Name),
		Revision:     catalog.SanitizeRevision(part.Revision),
		IPN:          part.IPN,
		Description:  part.Description,
		Keywords:     part.Keywords,
		Units:        part.Units,
		MinimumStock: part.MinimumStock,
		Assembly:     part.Assembly,
		Component:    part.Component,
		Trackable:    part.Trackable,
		Purchaseable: part.Purchaseable,
		Salable:      part.Salable,
		Virtual:      part.Virtual,
		IsTemplate:   part.IsTemplate,
		ValidatedBOM: part.ValidatedBOM,
	}

	if part.VariantOf != nil {
		base, ok := partByPK[*part.VariantOf]
		if !ok {
			return record, fmt.Errorf("variant base part %d not in remote catalog", *part.VariantOf)
		}
		key := models.PartKey{
			Name:     catalog.SanitizePartName(base.Name),
			Revision: catalog.SanitizeRevision(base.Revision),
		}
		record.VariantOf = key.String()
	}

	if !part.Purchaseable {
		return record, nil
	}

	supplierParts, err := p.client.ListSupplierParts(ctx, part.PK, 0, "")
	if err != nil {
		return record, fmt.Errorf("list supplier parts: %w", err)
	}
	var manufacturerParts []models.ManufacturerPart
	if len(supplierParts) > 0 {
		manufacturerParts, err = p.client.ListManufacturerParts(ctx, part.PK, 0)
		if err != nil {
			return record, fmt.Errorf("list manufacturer parts: %w", err)
		}
	}
	mpByPK := make(map[int]models.ManufacturerPart, len(manufacturerParts))
	for _, mp := range manufacturerParts {
		mpByPK[mp.PK] = mp
	}

	for _, sp := range supplierParts {
		supplier, ok := companyByPK[sp.Supplier]
		if !ok {
			return record, fmt.Errorf("supplier company %d not in remote catalog", sp.Supplier)
		}
		sr := models.SupplierRecord{
			SupplierName: supplier.Name,
			SKU:          sp.SKU,
			Description:  sp.Description,
			Link:         sp.Link,
			Note:         sp.Note,
			Packaging:    sp.Packaging,
		}
		if sp.ManufacturerPart != nil {
			if mp, ok := mpByPK[*sp.ManufacturerPart]; ok {
				if manufacturer, ok := companyByPK[mp.Manufacturer]; ok {
					sr.ManufacturerName = manufacturer.Name
				}
				sr.MPN = mp.MPN
				sr.MPDescription = mp.Description
				sr.MPLink = mp.Link
			}
		}

		breaks, err := p.client.ListPriceBreaks(ctx, sp.PK)
		if err != nil {
			return record, fmt.Errorf("list price breaks of supplier part %d: %w", sp.PK, err)
		}
		aggregated, _ := AggregatePriceBreaks(breaks)
		for _, pb := range aggregated {
			sr.PriceBreaks = append(sr.PriceBreaks, models.PriceBreakRecord{
				Quantity: pb.Quantity,
				Price:    pb.Price,
				Currency: pb.Currency,
			})
		}
		record.Suppliers = append(record.Suppliers, sr)
	}
	return record, nil
}

// categoryPath resolves a category pk to its sanitized segment chain,
// root first. A broken parent chain truncates at the break.
func categoryPath(pk int, categoryByPK map[int]models.PartCategory) []string {
	var reversed []string
	for pk > 0 {
		c, ok := categoryByPK[pk]
		if !ok {
			break
		}
		reversed = append(reversed, catalog.SanitizeCategoryName(c.Name))
		if c.Parent == nil {
			break
		}
		pk = *c.Parent
	}
	segments := make([]string, 0, len(reversed))
	for i := len(reversed) - 1; i >= 0; i-- {
		segments = append(segments, reversed[i])
	}
	return segments
}
