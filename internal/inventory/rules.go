// Package inventory holds the pure stock rules applied to every order line:
// availability checks against the per-size ledger and the exact decrement a
// accepted line produces. Nothing here touches storage; callers persist the
// mutated product snapshot under their own write discipline.
package inventory

import (
	"fmt"

	"github.com/craftmarket/go-artisan-marketplace/internal/catalog"
)

// InsufficientStockError names the product (and size, when sized) that could
// not cover a requested quantity.
type InsufficientStockError struct {
	ProductName string
	Size        string
}

func (e *InsufficientStockError) Error() string {
	if e.Size != "" {
		return fmt.Sprintf("insufficient stock for %s (Size: %s)", e.ProductName, e.Size)
	}
	return fmt.Sprintf("insufficient stock for %s", e.ProductName)
}

// Check decides whether a product can cover a requested (size, quantity)
// without mutating anything.
//
// Sized product with a size given: the matching ledger entry must cover the
// quantity. Sized product with no size given: available stock is the live sum
// over the ledger, not the cached total, which may lag other mutations in the
// same batch. Unsized product: the aggregate total is authoritative.
func Check(p *catalog.Product, size string, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("quantity must be positive, got %d", quantity)
	}

	if size != "" && len(p.SizeStock) > 0 {
		entry := findSize(p.SizeStock, size)
		if entry == nil || entry.Quantity < quantity {
			return &InsufficientStockError{ProductName: p.Name, Size: size}
		}
		return nil
	}

	available := p.TotalStock
	if len(p.SizeStock) > 0 {
		available = 0
		for _, s := range p.SizeStock {
			available += s.Quantity
		}
	}
	if available < quantity {
		return &InsufficientStockError{ProductName: p.Name}
	}
	return nil
}

// Apply checks the request and, on acceptance, applies the decrement to the
// product snapshot and recomputes its derived fields. The check runs before
// any mutation: a request that would take any quantity below zero leaves the
// snapshot untouched.
//
// A sized request decrements exactly the matched ledger entry. An aggregate
// request against a sized product drains entries in ledger order until the
// quantity is covered. An unsized product decrements the aggregate total
// directly.
func Apply(p *catalog.Product, size string, quantity int) error {
	if err := Check(p, size, quantity); err != nil {
		return err
	}

	switch {
	case size != "" && len(p.SizeStock) > 0:
		findSize(p.SizeStock, size).Quantity -= quantity
	case len(p.SizeStock) > 0:
		remaining := quantity
		for i := range p.SizeStock {
			if remaining == 0 {
				break
			}
			take := p.SizeStock[i].Quantity
			if take > remaining {
				take = remaining
			}
			p.SizeStock[i].Quantity -= take
			remaining -= take
		}
	default:
		p.TotalStock -= quantity
	}

	p.RecomputeDerived()
	return nil
}

func findSize(ledger []catalog.SizeStock, size string) *catalog.SizeStock {
	for i := range ledger {
		if ledger[i].Size == size {
			return &ledger[i]
		}
	}
	return nil
}
