package models

// Company mirrors the InvenTree 'company' resource
type Company struct {
	PK             int    `json:"pk,omitempty"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	IsSupplier     bool   `json:"is_supplier"`
	IsManufacturer bool   `json:"is_manufacturer"`
	IsCustomer     bool   `json:"is_customer"`
}

// SupplierPart mirrors the InvenTree 'company/part' resource
type SupplierPart struct {
	PK               int    `json:"pk,omitempty"`
	Part             int    `json:"part"`
	Supplier         int    `json:"supplier"`
	ManufacturerPart *int   `json:"manufacturer_part,omitempty"`
	SKU              string `json:"SKU"`
	Description      string `json:"description,omitempty"`
	Link             string `json:"link,omitempty"`
	Note             string `json:"note,omitempty"`
	Packaging        string `json:"packaging,omitempty"`
}

// ManufacturerPart mirrors the InvenTree 'company/part/manufacturer' resource
type ManufacturerPart struct {
	PK           int    `json:"pk,omitempty"`
	Part         int    `json:"part"`
	Manufacturer int    `json:"manufacturer"`
	MPN          string `json:"MPN"`
	Description  string `json:"description,omitempty"`
	Link         string `json:"link,omitempty"`
}

// PriceBreak mirrors the InvenTree 'company/price-break' resource.
// The API rejects two rows with the same quantity under one supplier part
// on write, but pre-existing duplicates do show up on read.
type PriceBreak struct {
	PK           int     `json:"pk,omitempty"`
	SupplierPart int     `json:"supplier_part"`
	Quantity     float64 `json:"quantity"`
	Price        float64 `json:"price"`
	Currency     string  `json:"price_currency"`
	Updated      string  `json:"updated,omitempty"`
}
