package mockinventree

import (
	"sort"

	"github.com/epccs/parts-epccs/internal/models"
)

// Seed helpers bypass the HTTP surface to set up catalog state directly.
// They assign PKs the same way the handlers do.

// SeedPart inserts a part and returns it with its assigned pk
func (s *Server) SeedPart(p models.Part) models.Part {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.PK = s.allocPK()
	if p.Updated == "" {
		p.Updated = now()
	}
	s.parts[p.PK] = p
	return p
}

// SeedCategory inserts a category and returns it with its assigned pk
func (s *Server) SeedCategory(c models.PartCategory) models.PartCategory {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.PK = s.allocPK()
	s.categories[c.PK] = c
	return c
}

// SeedCompany inserts a company and returns it with its assigned pk
func (s *Server) SeedCompany(c models.Company) models.Company {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.PK = s.allocPK()
	s.companies[c.PK] = c
	return c
}

// SeedSupplierPart inserts a supplier part and returns it with its assigned pk
func (s *Server) SeedSupplierPart(sp models.SupplierPart) models.SupplierPart {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp.PK = s.allocPK()
	s.supplierParts[sp.PK] = sp
	return sp
}

// SeedPriceBreak inserts a price break row, duplicates allowed, so tests can
// model the pre-existing duplicate rows the aggregation pass collapses.
func (s *Server) SeedPriceBreak(pb models.PriceBreak) models.PriceBreak {
	s.mu.Lock()
	defer s.mu.Unlock()
	pb.PK = s.allocPK()
	if pb.Updated == "" {
		pb.Updated = now()
	}
	s.priceBreaks[pb.PK] = pb
	return pb
}

// SeedBOMLine inserts a BOM line and returns it with its assigned pk
func (s *Server) SeedBOMLine(line models.BOMLine) models.BOMLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	line.PK = s.allocPK()
	s.bomLines[line.PK] = line
	return line
}

// Parts returns a pk-ordered snapshot of the part collection
func (s *Server) Parts() []models.Part {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Part, 0, len(s.parts))
	for _, pk := range sortedPKs(s.parts) {
		out = append(out, s.parts[pk])
	}
	return out
}

// Categories returns a pk-ordered snapshot of the category collection
func (s *Server) Categories() []models.PartCategory {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.PartCategory, 0, len(s.categories))
	for _, pk := range sortedPKs(s.categories) {
		out = append(out, s.categories[pk])
	}
	return out
}

// BOMLinesFor returns the BOM lines of one parent part, ordered by pk
func (s *Server) BOMLinesFor(partPK int) []models.BOMLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.BOMLine
	for _, pk := range sortedPKs(s.bomLines) {
		if s.bomLines[pk].Part == partPK {
			out = append(out, s.bomLines[pk])
		}
	}
	return out
}

// SupplierPartsFor returns the supplier parts of one part, ordered by pk
func (s *Server) SupplierPartsFor(partPK int) []models.SupplierPart {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SupplierPart
	for _, pk := range sortedPKs(s.supplierParts) {
		if s.supplierParts[pk].Part == partPK {
			out = append(out, s.supplierParts[pk])
		}
	}
	return out
}

// PriceBreaksFor returns the price breaks of one supplier part, ordered by
// ascending quantity for stable assertions
func (s *Server) PriceBreaksFor(supplierPartPK int) []models.PriceBreak {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.PriceBreak
	for _, pk := range sortedPKs(s.priceBreaks) {
		if s.priceBreaks[pk].SupplierPart == supplierPartPK {
			out = append(out, s.priceBreaks[pk])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Quantity < out[j].Quantity })
	return out
}
