package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/epccs/parts-epccs/internal/inventree"
	"github.com/epccs/parts-epccs/internal/models"
)

// CleanupPolicy controls destructive dependency cleanup before a part is
// deleted. It replaces interactive terminal prompts: the decision comes in
// as data, the Confirm callback only fires under CleanupConfirm.
type CleanupPolicy string

const (
	CleanupDeny        CleanupPolicy = "deny"
	CleanupConfirm     CleanupPolicy = "confirm"
	CleanupAutoApprove CleanupPolicy = "auto_approve"
)

// ConfirmFunc answers a cleanup question. The cmd wires a terminal prompt;
// tests inject a canned answer.
type ConfirmFunc func(prompt string) bool

// DeletePartWithDependencies removes a part after clearing the remote
// objects that reference it: BOM lines it owns, BOM lines using it as a
// sub-part, and its supplier parts with their price breaks. Stock handling
// is out of scope. The policy gates the destructive cleanup phase.
func DeletePartWithDependencies(ctx context.Context, client *inventree.Client, pk int, policy CleanupPolicy, confirm ConfirmFunc) error {
	ownLines, err := client.ListBOMLines(ctx, pk)
	if err != nil {
		return fmt.Errorf("list BOM lines of part %d: %w", pk, err)
	}
	usages, err := client.ListBOMUsages(ctx, pk)
	if err != nil {
		return fmt.Errorf("list BOM usages of part %d: %w", pk, err)
	}
	supplierParts, err := client.ListSupplierParts(ctx, pk, 0, "")
	if err != nil {
		return fmt.Errorf("list supplier parts of part %d: %w", pk, err)
	}

	total := len(ownLines) + len(usages) + len(supplierParts)
	if total > 0 {
		switch policy {
		case CleanupAutoApprove:
		case CleanupConfirm:
			prompt := fmt.Sprintf("part %d has %d dependent object(s) (%d BOM lines, %d usages, %d supplier parts); delete them?",
				pk, total, len(ownLines), len(usages), len(supplierParts))
			if confirm == nil || !confirm(prompt) {
				return fmt.Errorf("part %d: dependency cleanup declined", pk)
			}
		default:
			return fmt.Errorf("part %d has %d dependent object(s); cleanup denied by policy", pk, total)
		}

		for _, sp := range supplierParts {
			breaks, err := client.ListPriceBreaks(ctx, sp.PK)
			if err != nil {
				return fmt.Errorf("list price breaks of supplier part %d: %w", sp.PK, err)
			}
			for _, pb := range breaks {
				if err := client.DeletePriceBreak(ctx, pb.PK); err != nil && !errors.Is(err, inventree.ErrNotFound) {
					return fmt.Errorf("delete price break %d: %w", pb.PK, err)
				}
			}
			if err := client.DeleteSupplierPart(ctx, sp.PK); err != nil && !errors.Is(err, inventree.ErrNotFound) {
				return fmt.Errorf("delete supplier part %d: %w", sp.PK, err)
			}
		}
		for _, line := range append(append([]int{}, pksOf(ownLines)...), pksOf(usages)...) {
			if err := client.DeleteBOMLine(ctx, line); err != nil && !errors.Is(err, inventree.ErrNotFound) {
				return fmt.Errorf("delete BOM line %d: %w", line, err)
			}
		}
	}

	if err := client.DeletePart(ctx, pk); err != nil && !errors.Is(err, inventree.ErrNotFound) {
		return fmt.Errorf("delete part %d: %w", pk, err)
	}
	return nil
}

func pksOf(lines []models.BOMLine) []int {
	out := make([]int, 0, len(lines))
	for _, l := range lines {
		out = append(out, l.PK)
	}
	return out
}
