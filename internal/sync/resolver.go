package sync

import (
	"context"
	"fmt"
	"sort"
	"strings"
	gosync "sync"

	"github.com/epccs/parts-epccs/internal/inventree"
	"github.com/epccs/parts-epccs/internal/models"
)

// Resolver maps part identities to remote records. The index is built once
// per run from the full remote part list; after that, resolution never
// touches the network. Parts created during the run are inserted
// immediately so same-level siblings never race against a stale view.
type Resolver struct {
	mu     gosync.RWMutex
	byName map[string][]models.Part
	byPK   map[int]models.Part
}

// NewResolver creates an empty resolver index
func NewResolver() *Resolver {
	return &Resolver{
		byName: make(map[string][]models.Part),
		byPK:   make(map[int]models.Part),
	}
}

// BuildResolver lists the entire remote part collection into a new index
func BuildResolver(ctx context.Context, client *inventree.Client) (*Resolver, error) {
	parts, err := client.ListParts(ctx)
	if err != nil {
		return nil, fmt.Errorf("build part index: %w", err)
	}
	r := NewResolver()
	for _, p := range parts {
		r.Add(p)
	}
	return r, nil
}

// Add inserts or replaces a remote record in the index
func (r *Resolver) Add(p models.Part) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addLocked(p)
}

func (r *Resolver) addLocked(p models.Part) {
	bucket := r.byName[p.Name]
	replaced := false
	for i, existing := range bucket {
		if existing.PK == p.PK {
			bucket[i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		bucket = append(bucket, p)
	}
	sort.Slice(bucket, func(i, j int) bool { return bucket[i].PK < bucket[j].PK })
	r.byName[p.Name] = bucket
	r.byPK[p.PK] = p
}

// Remove drops a record, e.g. after a force delete
func (r *Resolver) Remove(pk int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byPK[pk]
	if !ok {
		return
	}
	delete(r.byPK, pk)
	bucket := r.byName[p.Name]
	for i, existing := range bucket {
		if existing.PK == pk {
			r.byName[p.Name] = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
}

// GetByPK looks up a record by its remote id
func (r *Resolver) GetByPK(pk int) (models.Part, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byPK[pk]
	return p, ok
}

// Len returns the number of indexed records
func (r *Resolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byPK)
}

// Resolve returns the remote records matching (name, revision, ipn).
// Revision matching is exact: an empty revision matches only records with
// an empty revision. When more than one record survives the revision
// filter and an IPN is given, the IPN narrows the result.
func (r *Resolver) Resolve(name, revision, ipn string) []models.Part {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []models.Part
	for _, p := range r.byName[name] {
		if p.Revision == revision {
			matches = append(matches, p)
		}
	}
	if len(matches) > 1 && ipn != "" {
		var narrowed []models.Part
		for _, p := range matches {
			if p.IPN == ipn {
				narrowed = append(narrowed, p)
			}
		}
		if len(narrowed) > 0 {
			matches = narrowed
		}
	}
	return matches
}

// ResolveSubPart resolves a BOM sub-part reference. Unlike Resolve, an
// empty revision or IPN in the reference means "unspecified" rather than
// "must be empty", matching how BOM files reference their sub-parts.
func (r *Resolver) ResolveSubPart(ref models.SubPartRef) []models.Part {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []models.Part
	for _, p := range r.byName[ref.Name] {
		if ref.Revision != "" && p.Revision != ref.Revision {
			continue
		}
		if ref.IPN != "" && p.IPN != ref.IPN {
			continue
		}
		matches = append(matches, p)
	}
	return matches
}

// ParseVariantRef splits a "BaseName[.revision]" encoding on its last dot
func ParseVariantRef(s string) (name, revision string) {
	if idx := strings.LastIndex(s, "."); idx >= 0 {
		return s[:idx], s[idx+1:]
	}
	return s, ""
}

// ResolveVariantTarget resolves a "BaseName[.revision]" reference to one
// remote record. Revision matching is exact, including the empty case.
func (r *Resolver) ResolveVariantTarget(variant string) (models.Part, bool) {
	if variant == "" {
		return models.Part{}, false
	}
	name, revision := ParseVariantRef(variant)
	matches := r.Resolve(name, revision, "")
	if len(matches) == 0 {
		return models.Part{}, false
	}
	return matches[0], true
}
