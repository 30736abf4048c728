package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	gosync "sync"
	"time"

	"github.com/google/uuid"

	"github.com/epccs/parts-epccs/internal/catalog"
	"github.com/epccs/parts-epccs/internal/inventree"
	"github.com/epccs/parts-epccs/internal/models"
)

// Options tunes one orchestrator run
type Options struct {
	Force      bool          // delete an existing part before recreating it
	ForceIPN   bool          // generate IPN from the name when missing
	ForcePrice bool          // delete existing price breaks before pushing
	Cleanup    CleanupPolicy // gates dependency cleanup under Force
	Confirm    ConfirmFunc   // consulted under CleanupConfirm
	Workers    int           // parallel items per level, 1 = sequential
}

type itemStatus struct {
	state ItemState
	pk    int
	err   error
}

// Orchestrator pushes the local corpus to the remote catalog level by
// level: every dependency reaches a terminal state before its dependents
// are attempted.
type Orchestrator struct {
	client   *inventree.Client
	resolver *Resolver
	corpus   *catalog.Corpus
	opts     Options

	mu     gosync.Mutex
	status map[models.PartKey]*itemStatus

	catMu      gosync.Mutex
	categories map[string]int

	companyMu gosync.Mutex
	companies map[string]models.Company

	report *Report
}

// NewOrchestrator creates an orchestrator for one run
func NewOrchestrator(client *inventree.Client, resolver *Resolver, corpus *catalog.Corpus, opts Options) *Orchestrator {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Cleanup == "" {
		opts.Cleanup = CleanupDeny
	}
	return &Orchestrator{
		client:     client,
		resolver:   resolver,
		corpus:     corpus,
		opts:       opts,
		status:     make(map[models.PartKey]*itemStatus),
		categories: make(map[string]int),
		companies:  make(map[string]models.Company),
	}
}

// Run walks the corpus in ascending level order. Identity conflicts and
// cycle errors surface before any remote mutation; a cancelled context
// stops dispatching new items but lets in-flight ones finish.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	o.report = report
	defer func() {
		report.Duration = time.Since(report.StartedAt)
		report.sortItems()
	}()

	if conflicts := o.corpus.DetectIdentityConflicts(); len(conflicts) > 0 {
		for _, err := range conflicts {
			log.Printf("❌ %v", err)
		}
		return report, errors.Join(conflicts...)
	}

	graph := BuildGraph(o.corpus)
	for _, w := range graph.Warnings() {
		log.Printf("⚠️ %s", w)
		report.addWarning(w)
	}

	levels, levelErrs := graph.ComputeLevels()
	for _, err := range levelErrs {
		log.Printf("❌ %v", err)
		report.addWarning(err.Error())
	}

	byLevel := make(map[int][]models.PartKey)
	maxLevel := 0
	for _, key := range graph.Keys() {
		level, ok := levels[key]
		if !ok {
			// Level assignment failed (cycle member or downstream of one)
			o.setStatus(key, StateFailed, 0, fmt.Errorf("level assignment failed"))
			report.addItem(ItemReport{Key: key.String(), State: StateFailed, Error: "level assignment failed"})
			report.countFailed()
			continue
		}
		byLevel[level] = append(byLevel[level], key)
		if level > maxLevel {
			maxLevel = level
		}
	}

	for level := 1; level <= maxLevel; level++ {
		items := byLevel[level]
		if len(items) == 0 {
			continue
		}
		if ctx.Err() != nil {
			log.Printf("🛑 Run cancelled before level %d, stopping dispatch", level)
			break
		}
		log.Printf("🔄 Level %d: %d item(s)", level, len(items))

		sem := make(chan struct{}, o.opts.Workers)
		var wg gosync.WaitGroup
		for _, key := range items {
			if ctx.Err() != nil {
				break
			}
			if failedDep, ok := o.failedDependency(graph, key); ok {
				msg := fmt.Sprintf("skipped: dependency %s failed", failedDep)
				o.setStatus(key, StateFailed, 0, errors.New(msg))
				report.addItem(ItemReport{Key: key.String(), Level: level, State: StateFailed, Error: msg})
				report.countSkipped()
				log.Printf("⚠️ %s %s", key, msg)
				continue
			}

			item, _ := o.corpus.Get(key)
			wg.Add(1)
			sem <- struct{}{}
			go func(item *catalog.Item, level int) {
				defer wg.Done()
				defer func() { <-sem }()
				o.syncItem(ctx, item, level)
			}(item, level)
		}
		// Strict barrier: level N+1 must not start before level N settles
		wg.Wait()
	}

	log.Printf("✅ Sync run %s completed: %s", report.RunID, report.Summary())
	return report, nil
}

func (o *Orchestrator) setStatus(key models.PartKey, state ItemState, pk int, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.status[key] = &itemStatus{state: state, pk: pk, err: err}
}

func (o *Orchestrator) failedDependency(graph *Graph, key models.PartKey) (models.PartKey, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, dep := range graph.DependenciesOf(key) {
		if st, ok := o.status[dep]; ok && st.state == StateFailed {
			return dep, true
		}
	}
	return models.PartKey{}, false
}

// syncItem drives one item through the state machine:
// pending -> category_resolved -> identity_resolved -> created|updated ->
// suppliers_synced -> bom_synced -> done, with failed absorbing.
func (o *Orchestrator) syncItem(ctx context.Context, item *catalog.Item, level int) {
	key := item.Key
	rec := item.Record

	fail := func(err error) {
		o.setStatus(key, StateFailed, 0, err)
		o.report.addItem(ItemReport{Key: key.String(), Level: level, State: StateFailed, Error: err.Error()})
		o.report.countFailed()
		log.Printf("❌ %s: %v", key, err)
	}

	// 1. Category path, lookup-or-create from the root
	categoryPK, err := o.resolveCategoryPath(ctx, item.CategoryPath)
	if err != nil {
		fail(fmt.Errorf("resolve category: %w", err))
		return
	}

	// 2. References must resolve before anything is written
	var variantPK *int
	if rec.VariantOf != "" {
		target, ok := o.resolver.ResolveVariantTarget(rec.VariantOf)
		if !ok {
			fail(fmt.Errorf("unresolved variant_of %q", rec.VariantOf))
			return
		}
		variantPK = &target.PK
	}

	subPKs := make([]int, len(item.BOM))
	for i, line := range item.BOM {
		matches := o.resolver.ResolveSubPart(line.SubPart)
		if len(matches) == 0 {
			fail(fmt.Errorf("unresolved BOM sub-part %q (IPN %q, revision %q)",
				line.SubPart.Name, line.SubPart.IPN, line.SubPart.Revision))
			return
		}
		subPKs[i] = matches[0].PK
	}

	// 3. Identity
	ipn := strings.TrimSpace(rec.IPN)
	if o.opts.ForceIPN && ipn == "" {
		ipn = key.Name
		if len(ipn) > 50 {
			ipn = ipn[:50]
		}
	}
	payload := partPayload(rec, key, ipn, categoryPK, variantPK)

	existing := o.resolver.Resolve(key.Name, key.Revision, ipn)
	if len(existing) > 0 && o.opts.Force {
		for _, p := range existing {
			if err := DeletePartWithDependencies(ctx, o.client, p.PK, o.opts.Cleanup, o.opts.Confirm); err != nil {
				fail(fmt.Errorf("force delete: %w", err))
				return
			}
			o.resolver.Remove(p.PK)
			log.Printf("🗑️ %s: deleted existing part %d", key, p.PK)
		}
		existing = nil
	}

	var pk int
	var state ItemState
	if len(existing) > 0 {
		pk = existing[0].PK
		updated, err := o.client.UpdatePart(ctx, pk, payload)
		if err != nil {
			fail(fmt.Errorf("update part %d: %w", pk, err))
			return
		}
		o.resolver.Add(updated)
		state = StateUpdated
		o.report.countUpdated()
		log.Printf("📦 %s: updated part %d (level %d)", key, pk, level)
	} else {
		created, err := o.client.CreatePart(ctx, payload)
		if err != nil {
			fail(fmt.Errorf("create part: %w", err))
			return
		}
		pk = created.PK
		o.resolver.Add(created)
		state = StateCreated
		o.report.countCreated()
		log.Printf("📦 %s: created part %d (level %d)", key, pk, level)
	}

	// 4. Supplier relationships
	if rec.Purchaseable {
		for _, supplier := range rec.Suppliers {
			if err := o.syncSupplier(ctx, pk, supplier); err != nil {
				fail(fmt.Errorf("supplier %q: %w", supplier.SupplierName, err))
				return
			}
		}
	}

	// 5. BOM lines + transitive validation gate
	if len(item.BOM) > 0 {
		if err := o.syncBOM(ctx, key, pk, item.BOM, subPKs); err != nil {
			fail(fmt.Errorf("sync BOM: %w", err))
			return
		}
	}

	o.setStatus(key, StateDone, pk, nil)
	o.report.addItem(ItemReport{Key: key.String(), Level: level, State: state, PK: pk})
}

// resolveCategoryPath walks the category segments from the root, looking
// each one up and creating it when absent. Lookups and creates are
// serialized so parallel workers cannot race duplicate categories.
// Returns 0 when the item carries no category path.
func (o *Orchestrator) resolveCategoryPath(ctx context.Context, segments []string) (int, error) {
	if len(segments) == 0 {
		return 0, nil
	}

	o.catMu.Lock()
	defer o.catMu.Unlock()

	var parent *int
	path := ""
	for _, name := range segments {
		path += "/" + name
		if pk, ok := o.categories[path]; ok {
			pkCopy := pk
			parent = &pkCopy
			continue
		}

		existing, err := o.client.ListCategories(ctx, name, parent)
		if err != nil {
			return 0, err
		}
		var found *models.PartCategory
		for i := range existing {
			c := existing[i]
			if c.Name != name {
				continue
			}
			if (parent == nil) != (c.Parent == nil) {
				continue
			}
			if parent != nil && c.Parent != nil && *parent != *c.Parent {
				continue
			}
			found = &c
			break
		}

		var pk int
		if found != nil {
			pk = found.PK
		} else {
			created, err := o.client.CreateCategory(ctx, name, parent)
			if err != nil {
				return 0, fmt.Errorf("create category %q: %w", name, err)
			}
			pk = created.PK
		}
		o.categories[path] = pk
		pkCopy := pk
		parent = &pkCopy
	}
	return *parent, nil
}

// resolveOrCreateCompany finds a company by exact sanitized name and role,
// creating it when missing. Serialized for the same reason as categories.
func (o *Orchestrator) resolveOrCreateCompany(ctx context.Context, name string, role inventree.CompanyRole) (models.Company, error) {
	cacheKey := string(role) + "/" + name

	o.companyMu.Lock()
	defer o.companyMu.Unlock()

	if c, ok := o.companies[cacheKey]; ok {
		return c, nil
	}

	// The server search is fuzzy; only an exact name match counts
	companies, err := o.client.ListCompanies(ctx, name, role)
	if err != nil {
		return models.Company{}, err
	}
	for _, c := range companies {
		if c.Name == name {
			o.companies[cacheKey] = c
			return c, nil
		}
	}

	payload := map[string]interface{}{"name": name}
	payload[string(role)] = true
	created, err := o.client.CreateCompany(ctx, payload)
	if err != nil {
		return models.Company{}, fmt.Errorf("create company %q: %w", name, err)
	}
	o.companies[cacheKey] = created
	return created, nil
}

// syncSupplier converges one supplier relationship: company records,
// manufacturer part, supplier part, then the aggregated price breaks.
func (o *Orchestrator) syncSupplier(ctx context.Context, partPK int, s models.SupplierRecord) error {
	supplierName := catalog.SanitizeCompanyName(s.SupplierName)
	supplier, err := o.resolveOrCreateCompany(ctx, supplierName, inventree.RoleSupplier)
	if err != nil {
		return err
	}

	var manufacturerPartPK *int
	if s.ManufacturerName != "" {
		manufacturerName := catalog.SanitizeCompanyName(s.ManufacturerName)
		manufacturer, err := o.resolveOrCreateCompany(ctx, manufacturerName, inventree.RoleManufacturer)
		if err != nil {
			return err
		}

		existing, err := o.client.ListManufacturerParts(ctx, partPK, manufacturer.PK)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			manufacturerPartPK = &existing[0].PK
		} else {
			created, err := o.client.CreateManufacturerPart(ctx, map[string]interface{}{
				"part":         partPK,
				"manufacturer": manufacturer.PK,
				"MPN":          s.MPN,
				"description":  s.MPDescription,
				"link":         s.MPLink,
			})
			if err != nil {
				return fmt.Errorf("create manufacturer part: %w", err)
			}
			manufacturerPartPK = &created.PK
		}
	}

	existing, err := o.client.ListSupplierParts(ctx, partPK, supplier.PK, s.SKU)
	if err != nil {
		return err
	}
	var supplierPartPK int
	if len(existing) > 0 {
		supplierPartPK = existing[0].PK
		if manufacturerPartPK != nil &&
			(existing[0].ManufacturerPart == nil || *existing[0].ManufacturerPart != *manufacturerPartPK) {
			_, err := o.client.UpdateSupplierPart(ctx, supplierPartPK, map[string]interface{}{
				"manufacturer_part": *manufacturerPartPK,
			})
			if err != nil {
				return fmt.Errorf("link manufacturer part: %w", err)
			}
		}
	} else {
		payload := map[string]interface{}{
			"part":        partPK,
			"supplier":    supplier.PK,
			"SKU":         s.SKU,
			"description": s.Description,
			"link":        s.Link,
			"note":        s.Note,
			"packaging":   s.Packaging,
		}
		if manufacturerPartPK != nil {
			payload["manufacturer_part"] = *manufacturerPartPK
		}
		created, err := o.client.CreateSupplierPart(ctx, payload)
		if err != nil {
			return fmt.Errorf("create supplier part: %w", err)
		}
		supplierPartPK = created.PK
	}

	return o.syncPriceBreaks(ctx, supplierPartPK, s.PriceBreaks)
}

// syncPriceBreaks converges the remote price-break rows for one supplier
// part: pre-existing duplicates are collapsed first, then missing
// quantities are created, changed prices patched, identical rows left
// untouched.
func (o *Orchestrator) syncPriceBreaks(ctx context.Context, supplierPartPK int, local []models.PriceBreakRecord) error {
	raw, err := o.client.ListPriceBreaks(ctx, supplierPartPK)
	if err != nil {
		return err
	}

	if o.opts.ForcePrice {
		for _, pb := range raw {
			if err := o.client.DeletePriceBreak(ctx, pb.PK); err != nil && !errors.Is(err, inventree.ErrNotFound) {
				return fmt.Errorf("delete price break %d: %w", pb.PK, err)
			}
		}
		raw = nil
	}

	aggregated, discards := AggregatePriceBreaks(raw)
	for _, d := range discards {
		o.report.countDiscards(d.Discarded)
		msg := fmt.Sprintf("supplier part %d: discarded %d duplicate price break(s) for quantity %g",
			d.SupplierPart, d.Discarded, d.Quantity)
		o.report.addWarning(msg)
		log.Printf("⚠️ %s", msg)
	}

	// The losing duplicate rows are removed remotely; the create path below
	// would trip the server's unique-quantity constraint otherwise.
	if len(discards) > 0 {
		winners := make(map[int]bool, len(aggregated))
		for _, pb := range aggregated {
			winners[pb.PK] = true
		}
		for _, pb := range raw {
			if winners[pb.PK] {
				continue
			}
			if err := o.client.DeletePriceBreak(ctx, pb.PK); err != nil && !errors.Is(err, inventree.ErrNotFound) {
				return fmt.Errorf("delete duplicate price break %d: %w", pb.PK, err)
			}
		}
	}

	byQuantity := make(map[float64]models.PriceBreak, len(aggregated))
	for _, pb := range aggregated {
		byQuantity[pb.Quantity] = pb
	}

	for _, pb := range local {
		existing, ok := byQuantity[pb.Quantity]
		if !ok {
			_, err := o.client.CreatePriceBreak(ctx, map[string]interface{}{
				"supplier_part":  supplierPartPK,
				"quantity":       pb.Quantity,
				"price":          pb.Price,
				"price_currency": pb.Currency,
			})
			if err != nil {
				return fmt.Errorf("create price break qty %g: %w", pb.Quantity, err)
			}
			continue
		}
		if existing.Price != pb.Price || existing.Currency != pb.Currency {
			_, err := o.client.UpdatePriceBreak(ctx, existing.PK, map[string]interface{}{
				"price":          pb.Price,
				"price_currency": pb.Currency,
			})
			if err != nil {
				return fmt.Errorf("update price break qty %g: %w", pb.Quantity, err)
			}
		}
	}
	return nil
}

// syncBOM converges the BOM lines of one parent and recomputes the
// validation flag. validated_bom goes true only when every line resolved,
// every line is validated and every referenced sub-item itself carries
// validated_bom; the gate is transitive, not just local.
func (o *Orchestrator) syncBOM(ctx context.Context, key models.PartKey, parentPK int, lines []models.BOMLineRecord, subPKs []int) error {
	existing, err := o.client.ListBOMLines(ctx, parentPK)
	if err != nil {
		return err
	}
	bySubPart := make(map[int]models.BOMLine, len(existing))
	for _, line := range existing {
		bySubPart[line.SubPart] = line
	}

	allValidated := true
	for i, line := range lines {
		subPK := subPKs[i]
		if !line.Validated {
			allValidated = false
		}
		if sub, ok := o.resolver.GetByPK(subPK); !ok || !sub.ValidatedBOM {
			allValidated = false
		}

		if ex, ok := bySubPart[subPK]; ok {
			if ex.Quantity == line.Quantity && ex.Note == line.Note &&
				ex.Validated == line.Validated && ex.Active == line.Active {
				continue // converged already
			}
			_, err := o.client.UpdateBOMLine(ctx, ex.PK, map[string]interface{}{
				"part":      parentPK,
				"sub_part":  subPK,
				"quantity":  line.Quantity,
				"note":      line.Note,
				"validated": line.Validated,
				"active":    line.Active,
			})
			if err != nil {
				return fmt.Errorf("update BOM line for sub-part %d: %w", subPK, err)
			}
		} else {
			created, err := o.client.CreateBOMLine(ctx, map[string]interface{}{
				"part":      parentPK,
				"sub_part":  subPK,
				"quantity":  line.Quantity,
				"note":      line.Note,
				"validated": line.Validated,
				"active":    line.Active,
			})
			if err != nil {
				return fmt.Errorf("create BOM line for sub-part %d: %w", subPK, err)
			}
			bySubPart[subPK] = created
		}
	}

	current, _ := o.resolver.GetByPK(parentPK)
	if current.ValidatedBOM != allValidated {
		updated, err := o.client.UpdatePart(ctx, parentPK, map[string]interface{}{
			"validated_bom": allValidated,
		})
		if err != nil {
			return fmt.Errorf("set validated_bom=%t: %w", allValidated, err)
		}
		o.resolver.Add(updated)
		if allValidated {
			log.Printf("✅ %s: all BOM lines validated, validated_bom set", key)
		}
	}
	return nil
}

// partPayload builds the create/update body for a part
func partPayload(rec models.ItemRecord, key models.PartKey, ipn string, categoryPK int, variantPK *int) map[string]interface{} {
	payload := map[string]interface{}{
		"name":          key.Name,
		"revision":      key.Revision,
		"IPN":           ipn,
		"description":   rec.Description,
		"keywords":      rec.Keywords,
		"units":         rec.Units,
		"minimum_stock": rec.MinimumStock,
		"assembly":      rec.Assembly,
		"component":     rec.Component,
		"trackable":     rec.Trackable,
		"purchaseable":  rec.Purchaseable,
		"salable":       rec.Salable,
		"virtual":       rec.Virtual,
		"is_template":   rec.IsTemplate,
		"validated_bom": rec.ValidatedBOM,
		"active":        true,
	}
	if categoryPK > 0 {
		payload["category"] = categoryPK
	}
	if variantPK != nil {
		payload["variant_of"] = *variantPK
	}
	return payload
}
