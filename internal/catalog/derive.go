package catalog

import "fmt"

// RecomputeDerived recalculates TotalStock from the size ledger and forces
// IsAvailable off when aggregate stock reaches zero. It runs unconditionally
// on every persistence path; stored values for either field are never reused.
//
// IsAvailable is only ever forced false here, never true: a product that was
// explicitly taken off the shelf (soft delete) stays unavailable even if it
// still has stock on the books.
func (p *Product) RecomputeDerived() {
	if len(p.SizeStock) > 0 {
		total := 0
		for _, s := range p.SizeStock {
			total += s.Quantity
		}
		p.TotalStock = total
	}
	if p.TotalStock == 0 {
		p.IsAvailable = false
	}
}

// ValidateStock rejects any negative quantity in the size ledger or the
// aggregate count. Called before every write; a document with a negative
// entry must never reach the table.
func (p *Product) ValidateStock() error {
	for _, s := range p.SizeStock {
		if s.Quantity < 0 {
			return fmt.Errorf("product %s size %s: %w", p.ProductID, s.Size, ErrNegativeStock)
		}
	}
	if p.TotalStock < 0 {
		return fmt.Errorf("product %s: %w", p.ProductID, ErrNegativeStock)
	}
	return nil
}
