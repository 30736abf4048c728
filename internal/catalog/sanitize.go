package catalog

import (
	"regexp"
	"strings"
)

var unsafeChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// SanitizeCategoryName makes a category name safe for use as a path segment
func SanitizeCategoryName(name string) string {
	s := strings.ReplaceAll(name, " ", "_")
	s = strings.ReplaceAll(s, ".", "")
	return unsafeChars.ReplaceAllString(strings.TrimSpace(s), "_")
}

// SanitizePartName makes a part name safe for use as a file name. Dots are
// mapped to commas so the revision separator stays unambiguous.
func SanitizePartName(name string) string {
	s := strings.ReplaceAll(name, " ", "_")
	s = strings.ReplaceAll(s, ".", ",")
	return unsafeChars.ReplaceAllString(strings.TrimSpace(s), "_")
}

// SanitizeRevision normalizes a revision string
func SanitizeRevision(rev string) string {
	rev = strings.TrimSpace(rev)
	if rev == "" {
		return ""
	}
	return unsafeChars.ReplaceAllString(rev, "_")
}

// SanitizeCompanyName normalizes a supplier/manufacturer name for lookup
func SanitizeCompanyName(name string) string {
	s := strings.ReplaceAll(name, " ", "_")
	s = strings.ReplaceAll(s, ".", "")
	return unsafeChars.ReplaceAllString(strings.TrimSpace(s), "_")
}
