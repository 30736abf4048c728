package models

// BOMLine mirrors the InvenTree 'bom' resource
type BOMLine struct {
	PK        int     `json:"pk,omitempty"`
	Part      int     `json:"part"`
	SubPart   int     `json:"sub_part"`
	Quantity  float64 `json:"quantity"`
	Note      string  `json:"note"`
	Validated bool    `json:"validated"`
	Active    bool    `json:"active"`
}

// BOMLineRecord is one local BOM entry. The sub-part is referenced by
// name/IPN/revision and resolved to a remote pk at sync time.
type BOMLineRecord struct {
	Quantity  float64    `json:"quantity"`
	Note      string     `json:"note"`
	Validated bool       `json:"validated"`
	Active    bool       `json:"active"`
	SubPart   SubPartRef `json:"sub_part"`
}

// SubPartRef references a BOM sub-part by identity rather than pk
type SubPartRef struct {
	Name        string `json:"name"`
	IPN         string `json:"IPN,omitempty"`
	Revision    string `json:"revision,omitempty"`
	Description string `json:"description,omitempty"`
}
