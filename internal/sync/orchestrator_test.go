package sync

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/epccs/parts-epccs/internal/catalog"
	"github.com/epccs/parts-epccs/internal/config"
	"github.com/epccs/parts-epccs/internal/inventree"
	"github.com/epccs/parts-epccs/internal/mockinventree"
	"github.com/epccs/parts-epccs/internal/models"
)

func newPushEnv(t *testing.T) (*mockinventree.Server, *inventree.Client) {
	t.Helper()
	mock := mockinventree.NewServer("test-token")
	srv := httptest.NewServer(mock)
	t.Cleanup(srv.Close)
	client := inventree.NewClient(
		config.InvenTreeConfig{URL: srv.URL, Token: "test-token", Timeout: 5 * time.Second},
		config.SyncConfig{RetryAttempts: 1, RetryBackoff: time.Millisecond},
	)
	return mock, client
}

func runPush(t *testing.T, client *inventree.Client, corpus *catalog.Corpus, opts Options) *Report {
	t.Helper()
	resolver, err := BuildResolver(context.Background(), client)
	if err != nil {
		t.Fatal(err)
	}
	report, err := NewOrchestrator(client, resolver, corpus, opts).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return report
}

func legTableCorpus(t *testing.T) *catalog.Corpus {
	return buildCorpus(t,
		&catalog.Item{
			Key:          key("Leg"),
			Record:       models.ItemRecord{Name: "Leg", Component: true, ValidatedBOM: true},
			CategoryPath: []string{"Furniture", "Parts"},
		},
		&catalog.Item{
			Key:          key("Table"),
			Record:       models.ItemRecord{Name: "Table", Assembly: true},
			CategoryPath: []string{"Furniture"},
			BOM: []models.BOMLineRecord{
				{Quantity: 4, Validated: true, Active: true, SubPart: models.SubPartRef{Name: "Leg"}},
			},
		},
	)
}

func TestPushLegTable(t *testing.T) {
	mock, client := newPushEnv(t)
	report := runPush(t, client, legTableCorpus(t), Options{Workers: 4})

	if report.Created != 2 || report.Failed != 0 {
		t.Fatalf("report = %s", report.Summary())
	}

	parts := mock.Parts()
	if len(parts) != 2 {
		t.Fatalf("expected 2 remote parts, got %d", len(parts))
	}
	byName := make(map[string]models.Part)
	for _, p := range parts {
		byName[p.Name] = p
	}
	leg, table := byName["Leg"], byName["Table"]

	// Level barrier: the leaf must exist before the assembly is created.
	if leg.PK >= table.PK {
		t.Errorf("Leg (pk %d) should be created before Table (pk %d)", leg.PK, table.PK)
	}

	lines := mock.BOMLinesFor(table.PK)
	if len(lines) != 1 || lines[0].SubPart != leg.PK || lines[0].Quantity != 4 {
		t.Errorf("Table BOM = %+v, want one line of 4x Leg (pk %d)", lines, leg.PK)
	}

	// All lines validated and the sub-item carries validated_bom, so the
	// assembly's flag is set.
	if !table.ValidatedBOM {
		t.Error("Table should have validated_bom after syncing a fully validated BOM")
	}

	// Category tree: Furniture at root, Parts under it.
	var furniture, partsCat models.PartCategory
	for _, c := range mock.Categories() {
		switch c.Name {
		case "Furniture":
			furniture = c
		case "Parts":
			partsCat = c
		}
	}
	if furniture.PK == 0 || furniture.Parent != nil {
		t.Errorf("Furniture category = %+v, want a root category", furniture)
	}
	if partsCat.Parent == nil || *partsCat.Parent != furniture.PK {
		t.Errorf("Parts category = %+v, want parent Furniture (pk %d)", partsCat, furniture.PK)
	}
	if leg.Category != partsCat.PK || table.Category != furniture.PK {
		t.Errorf("part categories: Leg=%d Table=%d, want %d and %d",
			leg.Category, table.Category, partsCat.PK, furniture.PK)
	}
}

func TestPushIdempotentRerun(t *testing.T) {
	mock, client := newPushEnv(t)
	corpus := legTableCorpus(t)

	first := runPush(t, client, corpus, Options{Workers: 2})
	if first.Created != 2 {
		t.Fatalf("first run: %s", first.Summary())
	}
	partPosts := mock.Calls("POST /api/part/")
	bomPosts := mock.Calls("POST /api/bom/")
	categoryPosts := mock.Calls("POST /api/part/category/")

	second := runPush(t, client, corpus, Options{Workers: 2})
	if second.Created != 0 || second.Updated != 2 || second.Failed != 0 {
		t.Fatalf("second run must update in place: %s", second.Summary())
	}

	if got := mock.Calls("POST /api/part/"); got != partPosts {
		t.Errorf("re-run created parts: %d POSTs, was %d", got, partPosts)
	}
	if got := mock.Calls("POST /api/bom/"); got != bomPosts {
		t.Errorf("re-run created BOM lines: %d POSTs, was %d", got, bomPosts)
	}
	if got := mock.Calls("POST /api/part/category/"); got != categoryPosts {
		t.Errorf("re-run created categories: %d POSTs, was %d", got, categoryPosts)
	}
	if len(mock.Parts()) != 2 {
		t.Errorf("re-run changed the part count: %d", len(mock.Parts()))
	}
}

func TestPushIdentityConflictAbortsBeforeNetwork(t *testing.T) {
	mock, client := newPushEnv(t)
	corpus := buildCorpus(t,
		&catalog.Item{Key: key("Red_Widget"), Record: models.ItemRecord{Name: "Red_Widget"}},
		&catalog.Item{Key: key("Red_Widget", "A"), Record: models.ItemRecord{Name: "Red_Widget", Revision: "A"}},
	)

	// Resolver built without touching the server: the conflict check must
	// fire before the orchestrator issues any request at all.
	orch := NewOrchestrator(client, NewResolver(), corpus, Options{})
	_, err := orch.Run(context.Background())
	if err == nil {
		t.Fatal("expected identity conflict error")
	}
	if !strings.Contains(err.Error(), "Red_Widget") {
		t.Errorf("conflict error should name the part: %v", err)
	}
	if got := mock.Calls("POST /api/part/"); got != 0 {
		t.Errorf("conflict run must not create parts, saw %d POSTs", got)
	}
	if got := mock.Calls("GET /api/part/"); got != 0 {
		t.Errorf("conflict run must not touch the server, saw %d GETs", got)
	}
}

func TestPushDanglingSubPartFailsItemOnly(t *testing.T) {
	mock, client := newPushEnv(t)
	corpus := buildCorpus(t,
		&catalog.Item{Key: key("Leg"), Record: models.ItemRecord{Name: "Leg", Component: true}},
		&catalog.Item{
			Key:    key("Table"),
			Record: models.ItemRecord{Name: "Table", Assembly: true},
			BOM: []models.BOMLineRecord{
				{Quantity: 4, SubPart: models.SubPartRef{Name: "Ghost_Leg"}},
			},
		},
	)

	report := runPush(t, client, corpus, Options{Workers: 2})
	if report.Created != 1 || report.Failed != 1 {
		t.Fatalf("expected sibling to survive the dangling reference: %s", report.Summary())
	}
	if len(mock.Parts()) != 1 || mock.Parts()[0].Name != "Leg" {
		t.Errorf("remote parts = %+v, want only Leg", mock.Parts())
	}

	var failed *ItemReport
	for i := range report.Items {
		if report.Items[i].State == StateFailed {
			failed = &report.Items[i]
		}
	}
	if failed == nil || failed.Key != "Table" || !strings.Contains(failed.Error, "Ghost_Leg") {
		t.Errorf("failure should name Table and the missing reference: %+v", failed)
	}
}

func TestPushCycleFailsMembersOnly(t *testing.T) {
	mock, client := newPushEnv(t)
	corpus := buildCorpus(t,
		&catalog.Item{Key: key("A"), Record: models.ItemRecord{Name: "A", VariantOf: "B"}},
		&catalog.Item{Key: key("B"), Record: models.ItemRecord{Name: "B", VariantOf: "A"}},
		&catalog.Item{Key: key("D"), Record: models.ItemRecord{Name: "D", Component: true}},
	)

	report := runPush(t, client, corpus, Options{})
	if report.Created != 1 || report.Failed != 2 {
		t.Fatalf("cycle members must fail, D must sync: %s", report.Summary())
	}
	if len(mock.Parts()) != 1 || mock.Parts()[0].Name != "D" {
		t.Errorf("remote parts = %+v, want only D", mock.Parts())
	}
	joined := strings.Join(report.Warnings, "\n")
	if !strings.Contains(joined, "dependency cycle") {
		t.Errorf("report should carry the cycle diagnostic: %v", report.Warnings)
	}
}

func TestPushSupplierAndPriceBreaks(t *testing.T) {
	mock, client := newPushEnv(t)

	// Pre-existing remote state with duplicate price-break rows for one
	// quantity, exactly what a damaged catalog looks like.
	leg := mock.SeedPart(models.Part{Name: "Leg", Purchaseable: true, Active: true})
	acme := mock.SeedCompany(models.Company{Name: "ACME", IsSupplier: true})
	sp := mock.SeedSupplierPart(models.SupplierPart{Part: leg.PK, Supplier: acme.PK, SKU: "L-100"})
	mock.SeedPriceBreak(models.PriceBreak{SupplierPart: sp.PK, Quantity: 100, Price: 0.08,
		Updated: "2024-01-01T00:00:00.000000Z"})
	mock.SeedPriceBreak(models.PriceBreak{SupplierPart: sp.PK, Quantity: 100, Price: 0.09,
		Updated: "2024-06-01T00:00:00.000000Z"})

	corpus := buildCorpus(t, &catalog.Item{
		Key: key("Leg"),
		Record: models.ItemRecord{
			Name:         "Leg",
			Purchaseable: true,
			Suppliers: []models.SupplierRecord{{
				SupplierName:     "ACME",
				SKU:              "L-100",
				ManufacturerName: "Legs Inc",
				MPN:              "LI-42",
				PriceBreaks: []models.PriceBreakRecord{
					{Quantity: 1, Price: 0.12, Currency: "USD"},
					{Quantity: 100, Price: 0.10, Currency: "USD"},
				},
			}},
		},
	})

	report := runPush(t, client, corpus, Options{})
	if report.Updated != 1 || report.Failed != 0 {
		t.Fatalf("report = %s", report.Summary())
	}
	if report.DuplicatesDiscarded != 1 {
		t.Errorf("duplicates discarded = %d, want 1", report.DuplicatesDiscarded)
	}

	breaks := mock.PriceBreaksFor(sp.PK)
	if len(breaks) != 2 {
		t.Fatalf("expected 2 price breaks after convergence, got %+v", breaks)
	}
	if breaks[0].Quantity != 1 || breaks[0].Price != 0.12 {
		t.Errorf("quantity 1 = %+v", breaks[0])
	}
	// The surviving quantity-100 row was patched to the local price.
	if breaks[1].Quantity != 100 || breaks[1].Price != 0.10 {
		t.Errorf("quantity 100 = %+v, want price 0.10", breaks[1])
	}

	// The manufacturer side was created and linked.
	spAfter := mock.SupplierPartsFor(leg.PK)
	if len(spAfter) != 1 {
		t.Fatalf("supplier parts = %+v", spAfter)
	}
	if spAfter[0].ManufacturerPart == nil {
		t.Error("supplier part should link its manufacturer part")
	}
}

func TestPushForceRecreates(t *testing.T) {
	mock, client := newPushEnv(t)
	existing := mock.SeedPart(models.Part{Name: "Leg", Description: "old", Active: true})

	corpus := buildCorpus(t, &catalog.Item{
		Key:    key("Leg"),
		Record: models.ItemRecord{Name: "Leg", Description: "new", Component: true},
	})

	report := runPush(t, client, corpus, Options{Force: true, Cleanup: CleanupAutoApprove})
	if report.Created != 1 || report.Failed != 0 {
		t.Fatalf("report = %s", report.Summary())
	}

	parts := mock.Parts()
	if len(parts) != 1 {
		t.Fatalf("expected 1 part after force recreate, got %d", len(parts))
	}
	if parts[0].PK == existing.PK {
		t.Error("force must delete and recreate, not update in place")
	}
	if parts[0].Description != "new" {
		t.Errorf("description = %q", parts[0].Description)
	}
}

func TestPushForceIPN(t *testing.T) {
	mock, client := newPushEnv(t)
	longName := strings.Repeat("x", 60)
	corpus := buildCorpus(t,
		&catalog.Item{Key: key("Leg"), Record: models.ItemRecord{Name: "Leg"}},
		&catalog.Item{Key: key(longName), Record: models.ItemRecord{Name: longName}},
	)

	report := runPush(t, client, corpus, Options{ForceIPN: true})
	if report.Created != 2 {
		t.Fatalf("report = %s", report.Summary())
	}
	for _, p := range mock.Parts() {
		if p.IPN == "" {
			t.Errorf("part %q has no IPN under ForceIPN", p.Name)
		}
		if len(p.IPN) > 50 {
			t.Errorf("generated IPN exceeds 50 chars: %q", p.IPN)
		}
	}
}

func TestPushManyWorkersOneLevel(t *testing.T) {
	mock, client := newPushEnv(t)
	corpus := catalog.NewCorpus()
	for i := 0; i < 20; i++ {
		item := &catalog.Item{
			Key:    key(fmt.Sprintf("Part_%02d", i)),
			Record: models.ItemRecord{Name: fmt.Sprintf("Part_%02d", i), Component: true},
		}
		if err := corpus.Add(item); err != nil {
			t.Fatal(err)
		}
	}

	report := runPush(t, client, corpus, Options{Workers: 8})
	if report.Created != 20 || report.Failed != 0 {
		t.Fatalf("report = %s", report.Summary())
	}
	if len(mock.Parts()) != 20 {
		t.Errorf("remote part count = %d", len(mock.Parts()))
	}
}

func TestPushThroughPagination(t *testing.T) {
	mock, client := newPushEnv(t)
	mock.SetPageSize(2)
	for i := 0; i < 5; i++ {
		mock.SeedPart(models.Part{Name: fmt.Sprintf("Existing_%d", i), Active: true})
	}

	resolver, err := BuildResolver(context.Background(), client)
	if err != nil {
		t.Fatal(err)
	}
	if resolver.Len() != 5 {
		t.Errorf("resolver indexed %d parts across pages, want 5", resolver.Len())
	}
}
