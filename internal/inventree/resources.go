package inventree

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/epccs/parts-epccs/internal/models"
)

// ListParts fetches the complete remote part collection
func (c *Client) ListParts(ctx context.Context) ([]models.Part, error) {
	return listAs[models.Part](ctx, c, PathParts, nil)
}

// GetPart fetches one part by pk
func (c *Client) GetPart(ctx context.Context, pk int) (models.Part, error) {
	var part models.Part
	data, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("%s%d/", c.absURL(PathParts, nil), pk), nil)
	if err != nil {
		return part, err
	}
	if err := json.Unmarshal(data, &part); err != nil {
		return part, fmt.Errorf("decode part %d: %w", pk, err)
	}
	return part, nil
}

// CreatePart creates a part and returns it with the server-assigned pk
func (c *Client) CreatePart(ctx context.Context, payload map[string]interface{}) (models.Part, error) {
	return create[models.Part](ctx, c, PathParts, payload)
}

// UpdatePart applies a partial update to a part
func (c *Client) UpdatePart(ctx context.Context, pk int, payload map[string]interface{}) (models.Part, error) {
	return patch[models.Part](ctx, c, PathParts, pk, payload)
}

// DeletePart removes a part
func (c *Client) DeletePart(ctx context.Context, pk int) error {
	return c.deleteResource(ctx, PathParts, pk)
}

// ListCategories fetches categories, optionally filtered by name and parent.
// The name search is fuzzy on some servers; callers needing an exact match
// must filter the results themselves.
func (c *Client) ListCategories(ctx context.Context, name string, parent *int) ([]models.PartCategory, error) {
	params := url.Values{}
	if name != "" {
		params.Set("name", name)
	}
	if parent != nil {
		params.Set("parent", strconv.Itoa(*parent))
	}
	return listAs[models.PartCategory](ctx, c, PathCategories, params)
}

// CreateCategory creates a category under the given parent (nil = root)
func (c *Client) CreateCategory(ctx context.Context, name string, parent *int) (models.PartCategory, error) {
	return create[models.PartCategory](ctx, c, PathCategories, map[string]interface{}{
		"name":   name,
		"parent": parent,
	})
}

// ListBOMLines fetches the BOM lines belonging to one parent part
func (c *Client) ListBOMLines(ctx context.Context, partPK int) ([]models.BOMLine, error) {
	params := url.Values{}
	params.Set("part", strconv.Itoa(partPK))
	return listAs[models.BOMLine](ctx, c, PathBOM, params)
}

// ListBOMUsages fetches the BOM lines that reference a part as sub-part
func (c *Client) ListBOMUsages(ctx context.Context, subPartPK int) ([]models.BOMLine, error) {
	params := url.Values{}
	params.Set("sub_part", strconv.Itoa(subPartPK))
	return listAs[models.BOMLine](ctx, c, PathBOM, params)
}

// CreateBOMLine creates a BOM line
func (c *Client) CreateBOMLine(ctx context.Context, payload map[string]interface{}) (models.BOMLine, error) {
	return create[models.BOMLine](ctx, c, PathBOM, payload)
}

// UpdateBOMLine applies a partial update to a BOM line
func (c *Client) UpdateBOMLine(ctx context.Context, pk int, payload map[string]interface{}) (models.BOMLine, error) {
	return patch[models.BOMLine](ctx, c, PathBOM, pk, payload)
}

// DeleteBOMLine removes a BOM line
func (c *Client) DeleteBOMLine(ctx context.Context, pk int) error {
	return c.deleteResource(ctx, PathBOM, pk)
}

// CompanyRole narrows company lookups to suppliers or manufacturers
type CompanyRole string

const (
	RoleSupplier     CompanyRole = "is_supplier"
	RoleManufacturer CompanyRole = "is_manufacturer"
)

// ListCompanies fetches companies filtered by name and role
func (c *Client) ListCompanies(ctx context.Context, name string, role CompanyRole) ([]models.Company, error) {
	params := url.Values{}
	if name != "" {
		params.Set("name", name)
	}
	if role != "" {
		params.Set(string(role), "true")
	}
	return listAs[models.Company](ctx, c, PathCompanies, params)
}

// CreateCompany creates a company record
func (c *Client) CreateCompany(ctx context.Context, payload map[string]interface{}) (models.Company, error) {
	return create[models.Company](ctx, c, PathCompanies, payload)
}

// ListSupplierParts fetches supplier parts for one part/supplier pair.
// An empty sku matches any SKU.
func (c *Client) ListSupplierParts(ctx context.Context, partPK, supplierPK int, sku string) ([]models.SupplierPart, error) {
	params := url.Values{}
	if partPK > 0 {
		params.Set("part", strconv.Itoa(partPK))
	}
	if supplierPK > 0 {
		params.Set("supplier", strconv.Itoa(supplierPK))
	}
	if sku != "" {
		params.Set("SKU", sku)
	}
	return listAs[models.SupplierPart](ctx, c, PathSupplierParts, params)
}

// CreateSupplierPart creates a supplier part row
func (c *Client) CreateSupplierPart(ctx context.Context, payload map[string]interface{}) (models.SupplierPart, error) {
	return create[models.SupplierPart](ctx, c, PathSupplierParts, payload)
}

// UpdateSupplierPart applies a partial update to a supplier part row
func (c *Client) UpdateSupplierPart(ctx context.Context, pk int, payload map[string]interface{}) (models.SupplierPart, error) {
	return patch[models.SupplierPart](ctx, c, PathSupplierParts, pk, payload)
}

// DeleteSupplierPart removes a supplier part row
func (c *Client) DeleteSupplierPart(ctx context.Context, pk int) error {
	return c.deleteResource(ctx, PathSupplierParts, pk)
}

// ListManufacturerParts fetches manufacturer parts for a part/manufacturer pair
func (c *Client) ListManufacturerParts(ctx context.Context, partPK, manufacturerPK int) ([]models.ManufacturerPart, error) {
	params := url.Values{}
	if partPK > 0 {
		params.Set("part", strconv.Itoa(partPK))
	}
	if manufacturerPK > 0 {
		params.Set("manufacturer", strconv.Itoa(manufacturerPK))
	}
	return listAs[models.ManufacturerPart](ctx, c, PathManufacturerParts, params)
}

// CreateManufacturerPart creates a manufacturer part row
func (c *Client) CreateManufacturerPart(ctx context.Context, payload map[string]interface{}) (models.ManufacturerPart, error) {
	return create[models.ManufacturerPart](ctx, c, PathManufacturerParts, payload)
}

// ListPriceBreaks fetches all price break rows for one supplier part
func (c *Client) ListPriceBreaks(ctx context.Context, supplierPartPK int) ([]models.PriceBreak, error) {
	params := url.Values{}
	params.Set("supplier_part", strconv.Itoa(supplierPartPK))
	return listAs[models.PriceBreak](ctx, c, PathPriceBreaks, params)
}

// CreatePriceBreak creates a price break row
func (c *Client) CreatePriceBreak(ctx context.Context, payload map[string]interface{}) (models.PriceBreak, error) {
	return create[models.PriceBreak](ctx, c, PathPriceBreaks, payload)
}

// UpdatePriceBreak applies a partial update to a price break row
func (c *Client) UpdatePriceBreak(ctx context.Context, pk int, payload map[string]interface{}) (models.PriceBreak, error) {
	return patch[models.PriceBreak](ctx, c, PathPriceBreaks, pk, payload)
}

// DeletePriceBreak removes a price break row
func (c *Client) DeletePriceBreak(ctx context.Context, pk int) error {
	return c.deleteResource(ctx, PathPriceBreaks, pk)
}
