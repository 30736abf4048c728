package catalog

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/epccs/parts-epccs/internal/models"
)

// Item is one local corpus entry: the part record, its category path and
// the optional BOM that was found next to it.
type Item struct {
	Key          models.PartKey
	Record       models.ItemRecord
	BOM          []models.BOMLineRecord
	CategoryPath []string
	SourceFile   string
}

// Corpus holds every item loaded from the local file tree, keyed by
// (name, revision). The engine works on this mapping only; the directory
// layout is a loading concern.
type Corpus struct {
	items map[models.PartKey]*Item
}

// NewCorpus creates an empty corpus
func NewCorpus() *Corpus {
	return &Corpus{items: make(map[models.PartKey]*Item)}
}

// Add inserts an item, rejecting duplicate keys
func (c *Corpus) Add(item *Item) error {
	if _, ok := c.items[item.Key]; ok {
		return fmt.Errorf("duplicate item %q in corpus", item.Key)
	}
	c.items[item.Key] = item
	return nil
}

// Get looks up an item by key
func (c *Corpus) Get(key models.PartKey) (*Item, bool) {
	item, ok := c.items[key]
	return item, ok
}

// Len returns the number of items
func (c *Corpus) Len() int { return len(c.items) }

// Keys returns all item keys in deterministic order
func (c *Corpus) Keys() []models.PartKey {
	keys := make([]models.PartKey, 0, len(c.items))
	for k := range c.items {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Name != keys[j].Name {
			return keys[i].Name < keys[j].Name
		}
		return keys[i].Revision < keys[j].Revision
	})
	return keys
}

// FindByName returns every item sharing a base name, any revision
func (c *Corpus) FindByName(name string) []*Item {
	var out []*Item
	for _, k := range c.Keys() {
		if k.Name == name {
			out = append(out, c.items[k])
		}
	}
	return out
}

// DetectIdentityConflicts finds base names that carry both a revisioned and
// an unrevisioned entry. Such a group cannot resolve to one authoritative
// remote record, so the whole run must reject it before any writes.
func (c *Corpus) DetectIdentityConflicts() []error {
	byName := make(map[string][]models.PartKey)
	for k := range c.items {
		byName[k.Name] = append(byName[k.Name], k)
	}

	names := make([]string, 0, len(byName))
	for n := range byName {
		names = append(names, n)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		keys := byName[name]
		hasEmpty := false
		var revs []string
		for _, k := range keys {
			if k.Revision == "" {
				hasEmpty = true
			} else {
				revs = append(revs, k.Revision)
			}
		}
		if hasEmpty && len(revs) > 0 {
			sort.Strings(revs)
			errs = append(errs, fmt.Errorf(
				"identity conflict for %q: unrevisioned file coexists with revision(s) %s",
				name, strings.Join(revs, ", ")))
		}
	}
	return errs
}

// ParseItemFilename splits "Name[.revision].json" into name and revision.
// The split is on the last dot of the stem, matching the file naming the
// pull side produces.
func ParseItemFilename(filename string) (name, revision string, ok bool) {
	base := filepath.Base(filename)
	if !strings.HasSuffix(base, ".json") {
		return "", "", false
	}
	stem := strings.TrimSuffix(base, ".json")
	if idx := strings.LastIndex(stem, "."); idx >= 0 {
		return stem[:idx], stem[idx+1:], true
	}
	return stem, "", true
}

// isLevelDir reports whether a path segment is a numeric level directory,
// which is not part of the category hierarchy.
func isLevelDir(segment string) bool {
	if segment == "" {
		return false
	}
	for _, r := range segment {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// categoryPathFor derives the category segments for an item file, relative
// to the corpus root, skipping numeric level directories.
func categoryPathFor(root, file string) ([]string, error) {
	rel, err := filepath.Rel(root, filepath.Dir(file))
	if err != nil {
		return nil, err
	}
	if rel == "." {
		return nil, nil
	}
	var segments []string
	for _, seg := range strings.Split(rel, string(filepath.Separator)) {
		if seg == "" || seg == "." || isLevelDir(seg) {
			continue
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

// MatchesAny reports whether the item stem matches one of the glob patterns.
// No patterns, "*" or "**/*" match everything.
func MatchesAny(patterns []string, stem string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, pat := range patterns {
		if pat == "*" || pat == "**/*" {
			return true
		}
		// Patterns may carry directory components; match on the last one.
		pat = path.Base(filepath.ToSlash(pat))
		if ok, err := path.Match(pat, stem); err == nil && ok {
			return true
		}
	}
	return false
}

// Load reads the corpus from a file tree rooted at root. Item files are
// Name[.revision].json; a sibling Name[.revision].bom.json supplies BOM
// lines. category.json index files are skipped.
func Load(root string, patterns []string) (*Corpus, error) {
	corpus := NewCorpus()

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ".json") {
			return nil
		}
		base := filepath.Base(p)
		if strings.HasSuffix(base, ".bom.json") || base == "category.json" {
			return nil
		}

		name, revision, ok := ParseItemFilename(p)
		if !ok {
			return nil
		}
		if !MatchesAny(patterns, strings.TrimSuffix(base, ".json")) {
			return nil
		}

		record, err := readItemRecord(p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		// Filename wins over the embedded revision field
		if revision == "" {
			revision = SanitizeRevision(record.Revision)
		}
		record.Name = name
		record.Revision = revision

		catPath, err := categoryPathFor(root, p)
		if err != nil {
			return err
		}

		item := &Item{
			Key:          models.PartKey{Name: name, Revision: revision},
			Record:       record,
			CategoryPath: catPath,
			SourceFile:   p,
		}

		bomPath := strings.TrimSuffix(p, ".json") + ".bom.json"
		if _, err := os.Stat(bomPath); err == nil {
			bom, err := readBOM(bomPath)
			if err != nil {
				return fmt.Errorf("read %s: %w", bomPath, err)
			}
			item.BOM = bom
		}

		return corpus.Add(item)
	})
	if err != nil {
		return nil, err
	}
	return corpus, nil
}

// readItemRecord decodes one item file. Some exported files wrap the record
// in a single-element array; take the first element in that case.
func readItemRecord(path string) (models.ItemRecord, error) {
	var record models.ItemRecord
	data, err := os.ReadFile(path)
	if err != nil {
		return record, err
	}
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var records []models.ItemRecord
		if err := json.Unmarshal(data, &records); err != nil {
			return record, err
		}
		if len(records) == 0 {
			return record, fmt.Errorf("empty record array")
		}
		return records[0], nil
	}
	if err := json.Unmarshal(data, &record); err != nil {
		return record, err
	}
	return record, nil
}

func readBOM(path string) ([]models.BOMLineRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var lines []models.BOMLineRecord
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, err
	}
	return lines, nil
}
