package models

// PartCategory mirrors the InvenTree 'part/category' resource. Categories
// form a strict tree; identity is the sanitized path from the root.
type PartCategory struct {
	PK         int    `json:"pk,omitempty"`
	Name       string `json:"name"`
	Parent     *int   `json:"parent"`
	PathString string `json:"pathstring,omitempty"`
}
