package sync

import (
	"sort"

	"github.com/epccs/parts-epccs/internal/models"
)

// DuplicateDiscard records how many duplicate price-break rows were dropped
// for one quantity under one supplier part.
type DuplicateDiscard struct {
	SupplierPart int
	Quantity     float64
	Discarded    int
}

// AggregatePriceBreaks collapses duplicate rows sharing a quantity into the
// single row with the greatest update marker. The remote API permits the
// duplicates on read but rejects them on write, so they must be resolved
// before anything references the supplier part again. Output is sorted
// ascending by quantity.
func AggregatePriceBreaks(raw []models.PriceBreak) ([]models.PriceBreak, []DuplicateDiscard) {
	byQuantity := make(map[float64][]models.PriceBreak)
	for _, pb := range raw {
		byQuantity[pb.Quantity] = append(byQuantity[pb.Quantity], pb)
	}

	quantities := make([]float64, 0, len(byQuantity))
	for q := range byQuantity {
		quantities = append(quantities, q)
	}
	sort.Float64s(quantities)

	var out []models.PriceBreak
	var discards []DuplicateDiscard
	for _, q := range quantities {
		rows := byQuantity[q]
		selected := rows[0]
		for _, pb := range rows[1:] {
			// Latest update wins; pk breaks ties so reruns are stable
			if pb.Updated > selected.Updated ||
				(pb.Updated == selected.Updated && pb.PK > selected.PK) {
				selected = pb
			}
		}
		if len(rows) > 1 {
			discards = append(discards, DuplicateDiscard{
				SupplierPart: selected.SupplierPart,
				Quantity:     q,
				Discarded:    len(rows) - 1,
			})
		}
		out = append(out, selected)
	}
	return out, discards
}
