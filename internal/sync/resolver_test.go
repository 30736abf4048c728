package sync

import (
	"testing"

	"github.com/epccs/parts-epccs/internal/models"
)

func newTestResolver(parts ...models.Part) *Resolver {
	r := NewResolver()
	for _, p := range parts {
		r.Add(p)
	}
	return r
}

func TestResolveExactRevision(t *testing.T) {
	r := newTestResolver(
		models.Part{PK: 1, Name: "Widget", Revision: ""},
		models.Part{PK: 2, Name: "Widget", Revision: "A"},
		models.Part{PK: 3, Name: "Widget", Revision: "B"},
	)

	// An empty revision matches only the unrevisioned record.
	matches := r.Resolve("Widget", "", "")
	if len(matches) != 1 || matches[0].PK != 1 {
		t.Errorf("Resolve(Widget, \"\") = %+v, want only pk 1", matches)
	}

	matches = r.Resolve("Widget", "A", "")
	if len(matches) != 1 || matches[0].PK != 2 {
		t.Errorf("Resolve(Widget, A) = %+v, want only pk 2", matches)
	}

	// A revision with no exact match resolves to nothing, never to a
	// "close" revision.
	if matches := r.Resolve("Widget", "C", ""); len(matches) != 0 {
		t.Errorf("Resolve(Widget, C) = %+v, want none", matches)
	}
}

func TestResolveIPNNarrowing(t *testing.T) {
	r := newTestResolver(
		models.Part{PK: 1, Name: "Widget", Revision: "A", IPN: "W-001"},
		models.Part{PK: 2, Name: "Widget", Revision: "A", IPN: "W-002"},
	)

	// Ambiguous without IPN: both come back.
	if matches := r.Resolve("Widget", "A", ""); len(matches) != 2 {
		t.Errorf("expected 2 matches without IPN, got %+v", matches)
	}

	// IPN narrows the ambiguity.
	matches := r.Resolve("Widget", "A", "W-002")
	if len(matches) != 1 || matches[0].PK != 2 {
		t.Errorf("Resolve with IPN = %+v, want only pk 2", matches)
	}

	// An IPN matching nothing leaves the revision matches intact rather
	// than narrowing to an empty set.
	if matches := r.Resolve("Widget", "A", "W-999"); len(matches) != 2 {
		t.Errorf("unmatched IPN must not discard matches: %+v", matches)
	}
}

func TestResolveSubPartUnspecifiedFields(t *testing.T) {
	r := newTestResolver(
		models.Part{PK: 1, Name: "Leg", Revision: "A", IPN: "L-1"},
		models.Part{PK: 2, Name: "Leg", Revision: "B", IPN: "L-2"},
	)

	// Empty revision in a sub-part reference means "any", not "must be empty".
	if matches := r.ResolveSubPart(models.SubPartRef{Name: "Leg"}); len(matches) != 2 {
		t.Errorf("unspecified reference should match both: %+v", matches)
	}

	matches := r.ResolveSubPart(models.SubPartRef{Name: "Leg", Revision: "B"})
	if len(matches) != 1 || matches[0].PK != 2 {
		t.Errorf("revision-qualified reference = %+v, want pk 2", matches)
	}

	matches = r.ResolveSubPart(models.SubPartRef{Name: "Leg", IPN: "L-1"})
	if len(matches) != 1 || matches[0].PK != 1 {
		t.Errorf("IPN-qualified reference = %+v, want pk 1", matches)
	}
}

func TestResolverAddReplaceRemove(t *testing.T) {
	r := newTestResolver(models.Part{PK: 1, Name: "Leg", ValidatedBOM: false})

	// Add with the same pk replaces the record.
	r.Add(models.Part{PK: 1, Name: "Leg", ValidatedBOM: true})
	if r.Len() != 1 {
		t.Fatalf("replace grew the index: len=%d", r.Len())
	}
	p, ok := r.GetByPK(1)
	if !ok || !p.ValidatedBOM {
		t.Errorf("replacement not visible: %+v", p)
	}

	r.Remove(1)
	if _, ok := r.GetByPK(1); ok {
		t.Error("removed record still resolvable by pk")
	}
	if matches := r.Resolve("Leg", "", ""); len(matches) != 0 {
		t.Errorf("removed record still resolvable by name: %+v", matches)
	}
}

func TestParseVariantRef(t *testing.T) {
	tests := []struct {
		in       string
		name     string
		revision string
	}{
		{"Widget", "Widget", ""},
		{"Widget.A", "Widget", "A"},
		{"Cap_0,1uF.B2", "Cap_0,1uF", "B2"},
	}
	for _, tt := range tests {
		name, revision := ParseVariantRef(tt.in)
		if name != tt.name || revision != tt.revision {
			t.Errorf("ParseVariantRef(%q) = (%q, %q), want (%q, %q)",
				tt.in, name, revision, tt.name, tt.revision)
		}
	}
}
