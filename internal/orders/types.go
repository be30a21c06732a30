package orders

import (
	"errors"
	"time"
)

// Order statuses, transmitted as these literal strings.
const (
	StatusPlaced         = "order placed"
	StatusProcessing     = "processing"
	StatusOutForDelivery = "out for delivery"
	StatusDelivered      = "delivered"
	StatusCancelled      = "cancelled"
)

// Payment methods and payment statuses.
const (
	PaymentCOD     = "cod"
	PaymentCard    = "card"
	PaymentGCash   = "gcash"
	PaymentPayMaya = "paymaya"

	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

// Workflow errors surfaced to the API layer.
var (
	ErrEmptyOrder    = errors.New("no items in order")
	ErrMissingSeller = errors.New("product has no seller assigned")
	ErrInvalidStatus = errors.New("invalid order status")
	ErrForbidden     = errors.New("not authorized to update this order")
	ErrNotFound      = errors.New("order not found")
	// ErrStatusConflict means a conditional status update lost to a
	// concurrent writer; the caller should re-read and retry.
	ErrStatusConflict = errors.New("order status changed concurrently")
	// ErrTooManyConflicts means order creation kept losing the stock
	// transaction to concurrent writers and gave up.
	ErrTooManyConflicts = errors.New("order creation retries exhausted")
)

// ProductUnavailableError names a product that is missing or not orderable.
type ProductUnavailableError struct {
	ProductName string
}

func (e *ProductUnavailableError) Error() string {
	name := e.ProductName
	if name == "" {
		name = "Unknown"
	}
	return "product " + name + " is not available"
}

// ItemVariation snapshots the chosen variation on a line item.
type ItemVariation struct {
	Name  string `dynamodbav:"name" json:"name"`
	Value string `dynamodbav:"value" json:"value"`
}

// Item is one line of an order. Product data (name, price, seller, image) is
// snapshotted at order time, never joined back to the live product.
type Item struct {
	ProductID string         `dynamodbav:"product_id" json:"productId"`
	SellerID  string         `dynamodbav:"seller_id" json:"sellerId"`
	Name      string         `dynamodbav:"name" json:"name"`
	Quantity  int            `dynamodbav:"quantity" json:"quantity"`
	Price     float64        `dynamodbav:"price" json:"price"`
	Size      string         `dynamodbav:"size,omitempty" json:"size,omitempty"`
	Variation *ItemVariation `dynamodbav:"variation,omitempty" json:"variation,omitempty"`
	Image     string         `dynamodbav:"image,omitempty" json:"image,omitempty"`
	HasReview bool           `dynamodbav:"has_review" json:"hasReview"`
}

// StatusEntry is one record of the append-only status history.
type StatusEntry struct {
	Status    string    `dynamodbav:"status" json:"status"`
	UpdatedAt time.Time `dynamodbav:"updated_at" json:"updatedAt"`
	Note      string    `dynamodbav:"note,omitempty" json:"note,omitempty"`
}

// ShippingAddress is the address snapshot taken at order time.
type ShippingAddress struct {
	Name       string `dynamodbav:"name,omitempty" json:"name,omitempty"`
	Street     string `dynamodbav:"street,omitempty" json:"street,omitempty"`
	City       string `dynamodbav:"city,omitempty" json:"city,omitempty"`
	Province   string `dynamodbav:"province,omitempty" json:"province,omitempty"`
	PostalCode string `dynamodbav:"postal_code,omitempty" json:"postalCode,omitempty"`
	Country    string `dynamodbav:"country,omitempty" json:"country,omitempty"`
	Phone      string `dynamodbav:"phone,omitempty" json:"phone,omitempty"`
}

// Order is the document stored in the orders table. SellerIDs denormalizes
// the distinct sellers across items so seller-scoped listings can filter
// without unpacking the item list server-side.
type Order struct {
	OrderID         string          `dynamodbav:"order_id" json:"orderId"` // PK
	OrderNumber     string          `dynamodbav:"order_number" json:"orderNumber"`
	UserID          string          `dynamodbav:"user_id" json:"userId"`
	Items           []Item          `dynamodbav:"items" json:"items"`
	TotalAmount     float64         `dynamodbav:"total_amount" json:"totalAmount"`
	Status          string          `dynamodbav:"status" json:"status"`
	StatusHistory   []StatusEntry   `dynamodbav:"status_history" json:"statusHistory"`
	ShippingAddress ShippingAddress `dynamodbav:"shipping_address" json:"shippingAddress"`
	PaymentMethod   string          `dynamodbav:"payment_method" json:"paymentMethod"`
	PaymentStatus   string          `dynamodbav:"payment_status" json:"paymentStatus"`
	SellerIDs       []string        `dynamodbav:"seller_ids,stringset,omitempty" json:"-"`
	CreatedAt       time.Time       `dynamodbav:"created_at" json:"createdAt"`
	UpdatedAt       time.Time       `dynamodbav:"updated_at" json:"updatedAt"`
	DeliveredAt     *time.Time      `dynamodbav:"delivered_at,omitempty" json:"deliveredAt,omitempty"`
}

// HasSellerLine reports whether any line of the order belongs to sellerID.
func (o *Order) HasSellerLine(sellerID string) bool {
	for _, it := range o.Items {
		if it.SellerID == sellerID {
			return true
		}
	}
	return false
}

// SellerView returns a copy of the order filtered to one seller's lines,
// with TotalAmount recomputed from those lines only.
func (o *Order) SellerView(sellerID string) Order {
	view := *o
	view.Items = nil
	view.TotalAmount = 0
	for _, it := range o.Items {
		if it.SellerID != sellerID {
			continue
		}
		view.Items = append(view.Items, it)
		view.TotalAmount += it.Price * float64(it.Quantity)
	}
	return view
}
