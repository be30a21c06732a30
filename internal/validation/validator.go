package validation

import (
	validatorv10 "github.com/go-playground/validator/v10"
)

// New returns a configured validator with struct-level rules registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()
	v.RegisterStructValidation(productStructValidation, ProductRequest{})
	return v
}

// productStructValidation enforces cross-field pricing rules: the sale price
// never exceeds the original price, and a discount implies an original price
// to discount from.
func productStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(ProductRequest)

	if req.OriginalPrice > 0 && req.Price > req.OriginalPrice {
		sl.ReportError(req.Price, "price", "Price", "price_exceeds_original", "")
	}
	if req.Discount > 0 && req.OriginalPrice == 0 {
		sl.ReportError(req.Discount, "discount", "Discount", "discount_without_original_price", "")
	}
}
