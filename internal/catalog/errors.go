package catalog

import "errors"

var (
	// ErrNotFound means the product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrForbidden means the actor is not the owning seller or an admin.
	ErrForbidden = errors.New("not authorized for this product")
	// ErrVersionConflict means a conditional write lost to a concurrent
	// writer; the caller should re-read and retry.
	ErrVersionConflict = errors.New("product version conflict")
	// ErrNegativeStock means a write would persist a negative quantity.
	ErrNegativeStock = errors.New("stock quantity below zero")
)
