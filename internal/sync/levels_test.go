package sync

import (
	"strings"
	"testing"

	"github.com/epccs/parts-epccs/internal/models"
)

func key(name string, revision ...string) models.PartKey {
	k := models.PartKey{Name: name}
	if len(revision) > 0 {
		k.Revision = revision[0]
	}
	return k
}

func TestComputeLevelsChain(t *testing.T) {
	// Leg has no dependencies; Table needs Leg; Room needs Table.
	leg, table, room := key("Leg"), key("Table"), key("Room")
	g := NewGraph(
		[]models.PartKey{leg, table, room},
		map[models.PartKey][]models.PartKey{
			table: {leg},
			room:  {table},
		},
	)

	levels, errs := g.ComputeLevels()
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	want := map[models.PartKey]int{leg: 1, table: 2, room: 3}
	for k, wantLevel := range want {
		if levels[k] != wantLevel {
			t.Errorf("level(%s) = %d, want %d", k, levels[k], wantLevel)
		}
	}
}

func TestComputeLevelsDiamond(t *testing.T) {
	// top depends on mid (level 2) and base (level 1): deepest path wins.
	base, mid, top := key("base"), key("mid"), key("top")
	g := NewGraph(
		[]models.PartKey{base, mid, top},
		map[models.PartKey][]models.PartKey{
			mid: {base},
			top: {mid, base},
		},
	)

	levels, errs := g.ComputeLevels()
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if levels[top] != 3 {
		t.Errorf("level(top) = %d, want 3 (one more than its deepest dependency)", levels[top])
	}
}

func TestComputeLevelsCycle(t *testing.T) {
	// A -> B -> C -> A is a cycle; D stands alone and must still get level 1.
	a, b, c, d := key("A"), key("B"), key("C"), key("D")
	g := NewGraph(
		[]models.PartKey{a, b, c, d},
		map[models.PartKey][]models.PartKey{
			a: {b},
			b: {c},
			c: {a},
		},
	)

	levels, errs := g.ComputeLevels()
	if levels[d] != 1 {
		t.Errorf("level(D) = %d, want 1; the cycle must not poison unrelated items", levels[d])
	}
	for _, k := range []models.PartKey{a, b, c} {
		if _, ok := levels[k]; ok {
			t.Errorf("%s is on a cycle and must not receive a level", k)
		}
	}
	if len(errs) == 0 {
		t.Fatal("expected a cycle error")
	}
	found := false
	for _, err := range errs {
		if strings.Contains(err.Error(), "dependency cycle") &&
			strings.Contains(err.Error(), "A") &&
			strings.Contains(err.Error(), "B") &&
			strings.Contains(err.Error(), "C") {
			found = true
		}
	}
	if !found {
		t.Errorf("cycle error should name all participants: %v", errs)
	}
}

func TestComputeLevelsDependentOfCycle(t *testing.T) {
	// E is not on the cycle but depends on it, so it fails too.
	a, b, e := key("A"), key("B"), key("E")
	g := NewGraph(
		[]models.PartKey{a, b, e},
		map[models.PartKey][]models.PartKey{
			a: {b},
			b: {a},
			e: {a},
		},
	)

	levels, errs := g.ComputeLevels()
	if _, ok := levels[e]; ok {
		t.Error("E depends on a cycle member and must not receive a level")
	}
	foundDownstream := false
	for _, err := range errs {
		if strings.Contains(err.Error(), "E") && strings.Contains(err.Error(), "depends on a failed item") {
			foundDownstream = true
		}
	}
	if !foundDownstream {
		t.Errorf("expected a downstream failure naming E: %v", errs)
	}
}

func TestComputeLevelsDeterministic(t *testing.T) {
	keys := []models.PartKey{key("x"), key("y"), key("z")}
	deps := map[models.PartKey][]models.PartKey{
		key("y"): {key("x")},
		key("z"): {key("y")},
	}

	first, _ := NewGraph(keys, deps).ComputeLevels()
	for i := 0; i < 10; i++ {
		again, _ := NewGraph(keys, deps).ComputeLevels()
		for k, v := range first {
			if again[k] != v {
				t.Fatalf("levels changed between runs: %s was %d, now %d", k, v, again[k])
			}
		}
	}
}
