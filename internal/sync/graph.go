package sync

import (
	"fmt"
	"sort"

	"github.com/epccs/parts-epccs/internal/catalog"
	"github.com/epccs/parts-epccs/internal/models"
)

// Graph is the dependency graph over the local corpus. Edges run from a
// dependent item to the items it needs pushed first: its variant base and
// its BOM sub-parts.
type Graph struct {
	deps     map[models.PartKey][]models.PartKey
	keys     []models.PartKey
	warnings []string
}

// NewGraph builds a graph from precomputed edges, used on the pull side
// where dependencies come from remote BOM and variant records instead of
// local files. Keys and edge lists are sorted for deterministic traversal.
func NewGraph(keys []models.PartKey, deps map[models.PartKey][]models.PartKey) *Graph {
	g := &Graph{deps: deps, keys: append([]models.PartKey(nil), keys...)}
	sortKeys(g.keys)
	for _, edges := range g.deps {
		sortKeys(edges)
	}
	return g
}

// BuildGraph scans the corpus and extracts dependency edges. References
// whose target is absent from the corpus are recorded as warnings and the
// edge is omitted; the dependent still gets the best level its remaining
// edges allow.
func BuildGraph(corpus *catalog.Corpus) *Graph {
	g := &Graph{
		deps: make(map[models.PartKey][]models.PartKey),
		keys: corpus.Keys(),
	}

	for _, key := range g.keys {
		item, _ := corpus.Get(key)
		seen := make(map[models.PartKey]bool)

		if item.Record.VariantOf != "" {
			name, revision := ParseVariantRef(item.Record.VariantOf)
			target := models.PartKey{Name: name, Revision: revision}
			if _, ok := corpus.Get(target); ok {
				if !seen[target] {
					g.deps[key] = append(g.deps[key], target)
					seen[target] = true
				}
			} else {
				g.warnings = append(g.warnings, fmt.Sprintf(
					"%s: variant_of %q not in local corpus", key, item.Record.VariantOf))
			}
		}

		if item.Record.Assembly || item.Record.IsTemplate {
			for _, line := range item.BOM {
				target, ok := resolveLocalSubPart(corpus, line.SubPart)
				if !ok {
					g.warnings = append(g.warnings, fmt.Sprintf(
						"%s: BOM sub-part %q not in local corpus", key, line.SubPart.Name))
					continue
				}
				if !seen[target] {
					g.deps[key] = append(g.deps[key], target)
					seen[target] = true
				}
			}
		}

		sortKeys(g.deps[key])
	}
	return g
}

// resolveLocalSubPart finds a BOM sub-part reference within the corpus.
// Revision and IPN narrow the match only when the reference specifies them.
func resolveLocalSubPart(corpus *catalog.Corpus, ref models.SubPartRef) (models.PartKey, bool) {
	candidates := corpus.FindByName(ref.Name)
	for _, item := range candidates {
		if ref.Revision != "" && item.Key.Revision != ref.Revision {
			continue
		}
		if ref.IPN != "" && item.Record.IPN != ref.IPN {
			continue
		}
		return item.Key, true
	}
	return models.PartKey{}, false
}

// DependenciesOf returns the dependency keys of an item, sorted
func (g *Graph) DependenciesOf(key models.PartKey) []models.PartKey {
	return g.deps[key]
}

// Keys returns every item key in deterministic order
func (g *Graph) Keys() []models.PartKey {
	return g.keys
}

// Warnings returns the dangling-reference diagnostics collected at build time
func (g *Graph) Warnings() []string {
	return g.warnings
}

func sortKeys(keys []models.PartKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Name != keys[j].Name {
			return keys[i].Name < keys[j].Name
		}
		return keys[i].Revision < keys[j].Revision
	})
}
