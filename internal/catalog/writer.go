package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/epccs/parts-epccs/internal/models"
)

// ItemDir returns the directory an item belongs in: a numeric level
// directory under the root, then the sanitized category segments.
func ItemDir(root string, level int, categoryPath []string) string {
	segments := append([]string{root, strconv.Itoa(level)}, categoryPath...)
	return filepath.Join(segments...)
}

// WriteItem writes one item file (and its sibling BOM file when lines are
// present) under the level/category directory, creating directories as
// needed. Returns the item file path.
func WriteItem(root string, level int, categoryPath []string, key models.PartKey, record models.ItemRecord, bom []models.BOMLineRecord) (string, error) {
	dir := ItemDir(root, level, categoryPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}

	stem := SanitizePartName(key.Name)
	if key.Revision != "" {
		stem += "." + SanitizeRevision(key.Revision)
	}
	itemPath := filepath.Join(dir, stem+".json")
	if err := writeJSONFile(itemPath, record); err != nil {
		return "", err
	}

	bomPath := filepath.Join(dir, stem+".bom.json")
	if len(bom) > 0 {
		if err := writeJSONFile(bomPath, bom); err != nil {
			return "", err
		}
	} else {
		// A stale BOM file must not survive a pull of a part that lost its BOM
		if err := os.Remove(bomPath); err != nil && !os.IsNotExist(err) {
			return "", fmt.Errorf("remove stale %s: %w", bomPath, err)
		}
	}
	return itemPath, nil
}

// categoryIndex is the content of a category.json marker file
type categoryIndex struct {
	Name       string `json:"name"`
	PathString string `json:"pathstring"`
}

// WriteCategoryIndex drops a category.json marker into a category directory
// so an emptied category still round-trips through pull and push.
func WriteCategoryIndex(root string, level int, categoryPath []string) error {
	if len(categoryPath) == 0 {
		return nil
	}
	dir := ItemDir(root, level, categoryPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	idx := categoryIndex{
		Name:       categoryPath[len(categoryPath)-1],
		PathString: filepath.ToSlash(filepath.Join(categoryPath...)),
	}
	return writeJSONFile(filepath.Join(dir, "category.json"), idx)
}

func writeJSONFile(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
