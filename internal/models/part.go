package models

// Part mirrors the InvenTree 'part' resource
type Part struct {
	PK           int     `json:"pk,omitempty"`
	Name         string  `json:"name"`
	Revision     string  `json:"revision"`
	IPN          string  `json:"IPN"`
	Description  string  `json:"description"`
	Keywords     string  `json:"keywords"`
	Units        string  `json:"units"`
	MinimumStock float64 `json:"minimum_stock"`

	Assembly     bool `json:"assembly"`
	Component    bool `json:"component"`
	Trackable    bool `json:"trackable"`
	Purchaseable bool `json:"purchaseable"`
	Salable      bool `json:"salable"`
	Virtual      bool `json:"virtual"`
	IsTemplate   bool `json:"is_template"`
	Active       bool `json:"active"`

	Category     int    `json:"category,omitempty"`
	VariantOf    *int   `json:"variant_of,omitempty"`
	ValidatedBOM bool   `json:"validated_bom"`
	Updated      string `json:"updated,omitempty"`
}

// PartKey identifies a part within one sync run. Revision is part of the
// identity: an empty revision is distinct from any non-empty one.
type PartKey struct {
	Name     string
	Revision string
}

func (k PartKey) String() string {
	if k.Revision == "" {
		return k.Name
	}
	return k.Name + "." + k.Revision
}

// ItemRecord is one local corpus entry as stored on disk. Unlike the
// remote Part, variant_of is encoded by identity ("BaseName[.revision]")
// and resolved to a remote pk at sync time.
type ItemRecord struct {
	Name         string  `json:"name"`
	Revision     string  `json:"revision"`
	IPN          string  `json:"IPN"`
	Description  string  `json:"description"`
	Keywords     string  `json:"keywords"`
	Units        string  `json:"units"`
	MinimumStock float64 `json:"minimum_stock"`

	Assembly     bool `json:"assembly"`
	Component    bool `json:"component"`
	Trackable    bool `json:"trackable"`
	Purchaseable bool `json:"purchaseable"`
	Salable      bool `json:"salable"`
	Virtual      bool `json:"virtual"`
	IsTemplate   bool `json:"is_template"`

	VariantOf    string `json:"variant_of,omitempty"`
	ValidatedBOM bool   `json:"validated_bom"`

	Suppliers []SupplierRecord `json:"suppliers,omitempty"`
}

// SupplierRecord is the local representation of one supplier relationship
type SupplierRecord struct {
	SupplierName     string `json:"supplier_name"`
	SKU              string `json:"SKU"`
	Description      string `json:"description,omitempty"`
	Link             string `json:"link,omitempty"`
	Note             string `json:"note,omitempty"`
	Packaging        string `json:"packaging,omitempty"`
	ManufacturerName string `json:"manufacturer_name,omitempty"`
	MPN              string `json:"MPN,omitempty"`
	MPDescription    string `json:"mp_description,omitempty"`
	MPLink           string `json:"mp_link,omitempty"`

	PriceBreaks []PriceBreakRecord `json:"price_breaks,omitempty"`
}

// PriceBreakRecord is one quantity-tiered price row as stored locally
type PriceBreakRecord struct {
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
	Currency string  `json:"price_currency"`
}
