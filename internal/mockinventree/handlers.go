package mockinventree

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/epccs/parts-epccs/internal/models"
)

// --- parts ---

func (s *Server) listParts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	var items []interface{}
	name := r.URL.Query().Get("name")
	for _, pk := range sortedPKs(s.parts) {
		p := s.parts[pk]
		if name != "" && !strings.Contains(p.Name, name) {
			continue
		}
		items = append(items, p)
	}
	s.mu.Unlock()
	s.writeList(w, r, items)
}

func (s *Server) createPart(w http.ResponseWriter, r *http.Request) {
	var p models.Part
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid part payload: %v", err)
		return
	}
	if p.Name == "" {
		writeError(w, http.StatusBadRequest, "name: this field is required")
		return
	}
	s.mu.Lock()
	p.PK = s.allocPK()
	p.Updated = now()
	s.parts[p.PK] = p
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) getPart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	p, ok := s.parts[pathPK(r)]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) patchPart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.parts[pathPK(r)]
	if !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid part payload: %v", err)
		return
	}
	p.Updated = now()
	s.parts[p.PK] = p
	writeJSON(w, http.StatusOK, p)
}

// deletePart refuses while BOM lines or supplier parts still reference the
// part, matching the real server's protection of referenced records.
func (s *Server) deletePart(w http.ResponseWriter, r *http.Request) {
	pk := pathPK(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.parts[pk]; !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}
	for _, line := range s.bomLines {
		if line.Part == pk || line.SubPart == pk {
			writeError(w, http.StatusBadRequest, "part %d is referenced by BOM line %d", pk, line.PK)
			return
		}
	}
	for _, sp := range s.supplierParts {
		if sp.Part == pk {
			writeError(w, http.StatusBadRequest, "part %d is referenced by supplier part %d", pk, sp.PK)
			return
		}
	}
	delete(s.parts, pk)
	w.WriteHeader(http.StatusNoContent)
}

// --- categories ---

// listCategories mimics the server's fuzzy name search: callers that need
// an exact match have to filter the results themselves.
func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	var items []interface{}
	name := r.URL.Query().Get("name")
	parent, hasParent := intFilter(r, "parent")
	for _, pk := range sortedPKs(s.categories) {
		c := s.categories[pk]
		if name != "" && !strings.Contains(c.Name, name) {
			continue
		}
		if hasParent && (c.Parent == nil || *c.Parent != parent) {
			continue
		}
		items = append(items, c)
	}
	s.mu.Unlock()
	s.writeList(w, r, items)
}

func (s *Server) createCategory(w http.ResponseWriter, r *http.Request) {
	var c models.PartCategory
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeError(w, http.StatusBadRequest, "invalid category payload: %v", err)
		return
	}
	if c.Name == "" {
		writeError(w, http.StatusBadRequest, "name: this field is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.Parent != nil {
		parent, ok := s.categories[*c.Parent]
		if !ok {
			writeError(w, http.StatusBadRequest, "parent category %d does not exist", *c.Parent)
			return
		}
		c.PathString = parent.PathString + "/" + c.Name
	} else {
		c.PathString = c.Name
	}
	c.PK = s.allocPK()
	s.categories[c.PK] = c
	writeJSON(w, http.StatusCreated, c)
}

// --- BOM lines ---

func (s *Server) listBOMLines(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	var items []interface{}
	part, hasPart := intFilter(r, "part")
	subPart, hasSubPart := intFilter(r, "sub_part")
	for _, pk := range sortedPKs(s.bomLines) {
		line := s.bomLines[pk]
		if hasPart && line.Part != part {
			continue
		}
		if hasSubPart && line.SubPart != subPart {
			continue
		}
		items = append(items, line)
	}
	s.mu.Unlock()
	s.writeList(w, r, items)
}

func (s *Server) createBOMLine(w http.ResponseWriter, r *http.Request) {
	var line models.BOMLine
	if err := json.NewDecoder(r.Body).Decode(&line); err != nil {
		writeError(w, http.StatusBadRequest, "invalid BOM line payload: %v", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.parts[line.Part]; !ok {
		writeError(w, http.StatusBadRequest, "part %d does not exist", line.Part)
		return
	}
	if _, ok := s.parts[line.SubPart]; !ok {
		writeError(w, http.StatusBadRequest, "sub_part %d does not exist", line.SubPart)
		return
	}
	line.PK = s.allocPK()
	s.bomLines[line.PK] = line
	writeJSON(w, http.StatusCreated, line)
}

func (s *Server) patchBOMLine(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	line, ok := s.bomLines[pathPK(r)]
	if !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}
	if err := json.NewDecoder(r.Body).Decode(&line); err != nil {
		writeError(w, http.StatusBadRequest, "invalid BOM line payload: %v", err)
		return
	}
	s.bomLines[line.PK] = line
	writeJSON(w, http.StatusOK, line)
}

func (s *Server) deleteBOMLine(w http.ResponseWriter, r *http.Request) {
	pk := pathPK(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bomLines[pk]; !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}
	delete(s.bomLines, pk)
	w.WriteHeader(http.StatusNoContent)
}

// --- companies ---

func (s *Server) listCompanies(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	var items []interface{}
	name := r.URL.Query().Get("name")
	wantSupplier := r.URL.Query().Get("is_supplier") == "true"
	wantManufacturer := r.URL.Query().Get("is_manufacturer") == "true"
	for _, pk := range sortedPKs(s.companies) {
		c := s.companies[pk]
		if name != "" && !strings.Contains(c.Name, name) {
			continue
		}
		if wantSupplier && !c.IsSupplier {
			continue
		}
		if wantManufacturer && !c.IsManufacturer {
			continue
		}
		items = append(items, c)
	}
	s.mu.Unlock()
	s.writeList(w, r, items)
}

func (s *Server) createCompany(w http.ResponseWriter, r *http.Request) {
	var c models.Company
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeError(w, http.StatusBadRequest, "invalid company payload: %v", err)
		return
	}
	if c.Name == "" {
		writeError(w, http.StatusBadRequest, "name: this field is required")
		return
	}
	s.mu.Lock()
	c.PK = s.allocPK()
	s.companies[c.PK] = c
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, c)
}

// --- supplier parts ---

func (s *Server) listSupplierParts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	var items []interface{}
	part, hasPart := intFilter(r, "part")
	supplier, hasSupplier := intFilter(r, "supplier")
	sku := r.URL.Query().Get("SKU")
	for _, pk := range sortedPKs(s.supplierParts) {
		sp := s.supplierParts[pk]
		if hasPart && sp.Part != part {
			continue
		}
		if hasSupplier && sp.Supplier != supplier {
			continue
		}
		if sku != "" && sp.SKU != sku {
			continue
		}
		items = append(items, sp)
	}
	s.mu.Unlock()
	s.writeList(w, r, items)
}

func (s *Server) createSupplierPart(w http.ResponseWriter, r *http.Request) {
	var sp models.SupplierPart
	if err := json.NewDecoder(r.Body).Decode(&sp); err != nil {
		writeError(w, http.StatusBadRequest, "invalid supplier part payload: %v", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.parts[sp.Part]; !ok {
		writeError(w, http.StatusBadRequest, "part %d does not exist", sp.Part)
		return
	}
	if _, ok := s.companies[sp.Supplier]; !ok {
		writeError(w, http.StatusBadRequest, "supplier %d does not exist", sp.Supplier)
		return
	}
	sp.PK = s.allocPK()
	s.supplierParts[sp.PK] = sp
	writeJSON(w, http.StatusCreated, sp)
}

func (s *Server) patchSupplierPart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.supplierParts[pathPK(r)]
	if !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}
	if err := json.NewDecoder(r.Body).Decode(&sp); err != nil {
		writeError(w, http.StatusBadRequest, "invalid supplier part payload: %v", err)
		return
	}
	s.supplierParts[sp.PK] = sp
	writeJSON(w, http.StatusOK, sp)
}

func (s *Server) deleteSupplierPart(w http.ResponseWriter, r *http.Request) {
	pk := pathPK(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.supplierParts[pk]; !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}
	for bpk, pb := range s.priceBreaks {
		if pb.SupplierPart == pk {
			delete(s.priceBreaks, bpk)
		}
	}
	delete(s.supplierParts, pk)
	w.WriteHeader(http.StatusNoContent)
}

// --- manufacturer parts ---

func (s *Server) listManufacturerParts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	var items []interface{}
	part, hasPart := intFilter(r, "part")
	manufacturer, hasManufacturer := intFilter(r, "manufacturer")
	for _, pk := range sortedPKs(s.manufacturerParts) {
		mp := s.manufacturerParts[pk]
		if hasPart && mp.Part != part {
			continue
		}
		if hasManufacturer && mp.Manufacturer != manufacturer {
			continue
		}
		items = append(items, mp)
	}
	s.mu.Unlock()
	s.writeList(w, r, items)
}

func (s *Server) createManufacturerPart(w http.ResponseWriter, r *http.Request) {
	var mp models.ManufacturerPart
	if err := json.NewDecoder(r.Body).Decode(&mp); err != nil {
		writeError(w, http.StatusBadRequest, "invalid manufacturer part payload: %v", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.parts[mp.Part]; !ok {
		writeError(w, http.StatusBadRequest, "part %d does not exist", mp.Part)
		return
	}
	if _, ok := s.companies[mp.Manufacturer]; !ok {
		writeError(w, http.StatusBadRequest, "manufacturer %d does not exist", mp.Manufacturer)
		return
	}
	mp.PK = s.allocPK()
	s.manufacturerParts[mp.PK] = mp
	writeJSON(w, http.StatusCreated, mp)
}

// --- price breaks ---

func (s *Server) listPriceBreaks(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	var items []interface{}
	supplierPart, hasSP := intFilter(r, "supplier_part")
	for _, pk := range sortedPKs(s.priceBreaks) {
		pb := s.priceBreaks[pk]
		if hasSP && pb.SupplierPart != supplierPart {
			continue
		}
		items = append(items, pb)
	}
	s.mu.Unlock()
	s.writeList(w, r, items)
}

// createPriceBreak rejects a second row with the same quantity under one
// supplier part, like the real server's unique-together constraint.
func (s *Server) createPriceBreak(w http.ResponseWriter, r *http.Request) {
	var pb models.PriceBreak
	if err := json.NewDecoder(r.Body).Decode(&pb); err != nil {
		writeError(w, http.StatusBadRequest, "invalid price break payload: %v", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.supplierParts[pb.SupplierPart]; !ok {
		writeError(w, http.StatusBadRequest, "supplier part %d does not exist", pb.SupplierPart)
		return
	}
	for _, existing := range s.priceBreaks {
		if existing.SupplierPart == pb.SupplierPart && existing.Quantity == pb.Quantity {
			writeJSON(w, http.StatusBadRequest, map[string][]string{
				"quantity": {"Price break with this quantity already exists for this supplier part."},
			})
			return
		}
	}
	pb.PK = s.allocPK()
	pb.Updated = now()
	s.priceBreaks[pb.PK] = pb
	writeJSON(w, http.StatusCreated, pb)
}

func (s *Server) patchPriceBreak(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pb, ok := s.priceBreaks[pathPK(r)]
	if !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}
	if err := json.NewDecoder(r.Body).Decode(&pb); err != nil {
		writeError(w, http.StatusBadRequest, "invalid price break payload: %v", err)
		return
	}
	pb.Updated = now()
	s.priceBreaks[pb.PK] = pb
	writeJSON(w, http.StatusOK, pb)
}

func (s *Server) deletePriceBreak(w http.ResponseWriter, r *http.Request) {
	pk := pathPK(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.priceBreaks[pk]; !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}
	delete(s.priceBreaks, pk)
	w.WriteHeader(http.StatusNoContent)
}
