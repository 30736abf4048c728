// Package mockinventree is an in-memory InvenTree-compatible API server.
// It backs the mock_inventree binary for local development and the
// integration tests, speaking the same paged REST dialect the real server
// does: token auth, {count, results, next} envelopes with limit/offset
// pagination, and per-resource query filters.
package mockinventree

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strconv"
	gosync "sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/epccs/parts-epccs/internal/models"
)

const defaultPageSize = 100

// Server holds the in-memory catalog state behind an http.Handler
type Server struct {
	mu     gosync.Mutex
	nextPK int

	parts             map[int]models.Part
	categories        map[int]models.PartCategory
	bomLines          map[int]models.BOMLine
	companies         map[int]models.Company
	supplierParts     map[int]models.SupplierPart
	manufacturerParts map[int]models.ManufacturerPart
	priceBreaks       map[int]models.PriceBreak

	token    string
	pageSize int
	calls    map[string]int

	router *mux.Router
}

// NewServer creates an empty catalog accepting the given token
func NewServer(token string) *Server {
	s := &Server{
		nextPK:            1,
		parts:             make(map[int]models.Part),
		categories:        make(map[int]models.PartCategory),
		bomLines:          make(map[int]models.BOMLine),
		companies:         make(map[int]models.Company),
		supplierParts:     make(map[int]models.SupplierPart),
		manufacturerParts: make(map[int]models.ManufacturerPart),
		priceBreaks:       make(map[int]models.PriceBreak),
		token:             token,
		pageSize:          defaultPageSize,
		calls:             make(map[string]int),
	}
	s.router = s.buildRouter()
	return s
}

// SetPageSize overrides the page size, small values force pagination in tests
func (s *Server) SetPageSize(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > 0 {
		s.pageSize = n
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Calls returns how often a "METHOD path" endpoint was hit, e.g.
// "POST /api/part/". Tests use this to prove a re-run stayed read-only.
func (s *Server) Calls(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[key]
}

func (s *Server) buildRouter() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.authMiddleware, s.countMiddleware)

	r.HandleFunc("/api/part/category/", s.listCategories).Methods(http.MethodGet)
	r.HandleFunc("/api/part/category/", s.createCategory).Methods(http.MethodPost)

	r.HandleFunc("/api/part/", s.listParts).Methods(http.MethodGet)
	r.HandleFunc("/api/part/", s.createPart).Methods(http.MethodPost)
	r.HandleFunc("/api/part/{pk:[0-9]+}/", s.getPart).Methods(http.MethodGet)
	r.HandleFunc("/api/part/{pk:[0-9]+}/", s.patchPart).Methods(http.MethodPatch)
	r.HandleFunc("/api/part/{pk:[0-9]+}/", s.deletePart).Methods(http.MethodDelete)

	r.HandleFunc("/api/bom/", s.listBOMLines).Methods(http.MethodGet)
	r.HandleFunc("/api/bom/", s.createBOMLine).Methods(http.MethodPost)
	r.HandleFunc("/api/bom/{pk:[0-9]+}/", s.patchBOMLine).Methods(http.MethodPatch)
	r.HandleFunc("/api/bom/{pk:[0-9]+}/", s.deleteBOMLine).Methods(http.MethodDelete)

	r.HandleFunc("/api/company/price-break/", s.listPriceBreaks).Methods(http.MethodGet)
	r.HandleFunc("/api/company/price-break/", s.createPriceBreak).Methods(http.MethodPost)
	r.HandleFunc("/api/company/price-break/{pk:[0-9]+}/", s.patchPriceBreak).Methods(http.MethodPatch)
	r.HandleFunc("/api/company/price-break/{pk:[0-9]+}/", s.deletePriceBreak).Methods(http.MethodDelete)

	r.HandleFunc("/api/company/part/manufacturer/", s.listManufacturerParts).Methods(http.MethodGet)
	r.HandleFunc("/api/company/part/manufacturer/", s.createManufacturerPart).Methods(http.MethodPost)

	r.HandleFunc("/api/company/part/", s.listSupplierParts).Methods(http.MethodGet)
	r.HandleFunc("/api/company/part/", s.createSupplierPart).Methods(http.MethodPost)
	r.HandleFunc("/api/company/part/{pk:[0-9]+}/", s.patchSupplierPart).Methods(http.MethodPatch)
	r.HandleFunc("/api/company/part/{pk:[0-9]+}/", s.deleteSupplierPart).Methods(http.MethodDelete)

	r.HandleFunc("/api/company/", s.listCompanies).Methods(http.MethodGet)
	r.HandleFunc("/api/company/", s.createCompany).Methods(http.MethodPost)

	return r
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" && r.Header.Get("Authorization") != "Token "+s.token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"detail": "Invalid token.",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) countMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := mux.CurrentRoute(r)
		key := r.Method + " " + r.URL.Path
		if route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				key = r.Method + " " + tmpl
			}
		}
		s.mu.Lock()
		s.calls[key]++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) allocPK() int {
	pk := s.nextPK
	s.nextPK++
	return pk
}

func now() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000000Z")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("⚠️ mockinventree: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, format string, args ...interface{}) {
	writeJSON(w, status, map[string]string{"detail": fmt.Sprintf(format, args...)})
}

// writeList renders one page of the {count, results, next} envelope,
// honoring limit/offset and emitting an absolute next URL.
func (s *Server) writeList(w http.ResponseWriter, r *http.Request, items []interface{}) {
	s.mu.Lock()
	limit := s.pageSize
	s.mu.Unlock()
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	offset := 0
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	end := offset + limit
	if offset > len(items) {
		offset = len(items)
	}
	if end > len(items) {
		end = len(items)
	}
	page := items[offset:end]

	var next *string
	if end < len(items) {
		q := r.URL.Query()
		q.Set("limit", strconv.Itoa(limit))
		q.Set("offset", strconv.Itoa(end))
		u := "http://" + r.Host + r.URL.Path + "?" + q.Encode()
		next = &u
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(items),
		"results": page,
		"next":    next,
	})
}

func pathPK(r *http.Request) int {
	pk, _ := strconv.Atoi(mux.Vars(r)["pk"])
	return pk
}

// intFilter parses an integer query param; ok is false when absent or bad
func intFilter(r *http.Request, name string) (int, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func sortedPKs[T any](m map[int]T) []int {
	pks := make([]int, 0, len(m))
	for pk := range m {
		pks = append(pks, pk)
	}
	sort.Ints(pks)
	return pks
}
