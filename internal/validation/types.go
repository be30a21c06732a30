package validation

// VariationRequest selects a product variation on an order line.
type VariationRequest struct {
	Name  string `json:"name" validate:"required"`
	Value string `json:"value" validate:"required"`
}

// OrderItemRequest is one line of a create-order payload. Price is the unit
// price snapshotted by the storefront; the order total is always recomputed
// server-side from these lines.
type OrderItemRequest struct {
	ProductID string            `json:"product" validate:"required"`
	SellerID  string            `json:"seller,omitempty"`
	Name      string            `json:"name,omitempty"`
	Quantity  int               `json:"quantity" validate:"required,min=1"`
	Price     float64           `json:"price" validate:"required,gt=0"`
	Size      string            `json:"size,omitempty"`
	Variation *VariationRequest `json:"variation,omitempty"`
}

// ShippingAddressRequest is the address snapshot supplied with an order.
type ShippingAddressRequest struct {
	Name       string `json:"name,omitempty"`
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	Province   string `json:"province,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

// CreateOrderRequest is the payload for POST /orders. Items intentionally
// has no min constraint: an empty cart is rejected by the workflow with its
// own error code.
type CreateOrderRequest struct {
	Items           []OrderItemRequest     `json:"items" validate:"dive"`
	ShippingAddress ShippingAddressRequest `json:"shippingAddress"`
	PaymentMethod   string                 `json:"paymentMethod" validate:"omitempty,oneof=cod card gcash paymaya"`
}

// UpdateOrderStatusRequest is the payload for PUT /orders/:id/status.
type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note,omitempty"`
}

// SizeStockRequest is one per-size stock entry on a product payload.
type SizeStockRequest struct {
	Size     string `json:"size" validate:"required,oneof=XS S M L XL XXL 'One Size'"`
	Quantity int    `json:"quantity" validate:"min=0"`
}

// ProductVariationRequest is one variation on a product payload.
type ProductVariationRequest struct {
	Name            string  `json:"name" validate:"required"`
	Value           string  `json:"value" validate:"required"`
	PriceAdjustment float64 `json:"priceAdjustment,omitempty"`
	Image           string  `json:"image,omitempty"`
}

// ProductRequest is the payload for creating or updating a product.
type ProductRequest struct {
	Name          string                    `json:"name" validate:"required"`
	Description   string                    `json:"description" validate:"required"`
	Price         float64                   `json:"price" validate:"required,gt=0"`
	OriginalPrice float64                   `json:"originalPrice,omitempty" validate:"omitempty,gt=0"`
	Discount      float64                   `json:"discount,omitempty" validate:"min=0,max=100"`
	CategoryID    string                    `json:"category,omitempty"`
	Images        []string                  `json:"images,omitempty"`
	SizeStock     []SizeStockRequest        `json:"sizeStock,omitempty" validate:"dive"`
	Variations    []ProductVariationRequest `json:"variations,omitempty" validate:"dive"`
	TotalStock    int                       `json:"totalStock,omitempty" validate:"min=0"`
	IsAvailable   *bool                     `json:"isAvailable,omitempty"`
	IsFeatured    bool                      `json:"isFeatured,omitempty"`
	IsFlashSale   bool                      `json:"isFlashSale,omitempty"`
}

// RejectProductRequest is the admin rejection payload.
type RejectProductRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// ProductFlagsRequest toggles admin-curated listing flags.
type ProductFlagsRequest struct {
	IsFeatured  *bool `json:"isFeatured,omitempty"`
	IsFlashSale *bool `json:"isFlashSale,omitempty"`
}

// CreateReviewRequest is the payload for POST /reviews.
type CreateReviewRequest struct {
	ProductID string   `json:"productId" validate:"required"`
	OrderID   string   `json:"orderId" validate:"required"`
	Rating    int      `json:"rating" validate:"required,min=1,max=5"`
	Comment   string   `json:"comment" validate:"required"`
	Images    []string `json:"images,omitempty"`
}

// ReviewReplyRequest is the payload for a seller reply.
type ReviewReplyRequest struct {
	Comment string `json:"comment" validate:"required"`
}
