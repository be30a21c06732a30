package catalog

import "time"

// Moderation statuses for a product listing.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Sizes a sizeStock entry may carry.
var Sizes = []string{"XS", "S", "M", "L", "XL", "XXL", "One Size"}

// ValidSize reports whether s is a known size label.
func ValidSize(s string) bool {
	for _, known := range Sizes {
		if s == known {
			return true
		}
	}
	return false
}

// SizeStock is one entry of a product's per-size stock ledger.
type SizeStock struct {
	Size     string `dynamodbav:"size" json:"size"`
	Quantity int    `dynamodbav:"quantity" json:"quantity"`
}

// Variation is an optional product variation (e.g. Color/Red).
type Variation struct {
	Name            string  `dynamodbav:"name" json:"name"`
	Value           string  `dynamodbav:"value" json:"value"`
	PriceAdjustment float64 `dynamodbav:"price_adjustment,omitempty" json:"priceAdjustment,omitempty"`
	Image           string  `dynamodbav:"image,omitempty" json:"image,omitempty"`
}

// Rating is the aggregate review rating maintained on the product.
type Rating struct {
	Average float64 `dynamodbav:"average" json:"average"`
	Count   int     `dynamodbav:"count" json:"count"`
}

// Product is the document stored in the products table.
//
// TotalStock and IsAvailable are derived: RecomputeDerived is applied on
// every save path and their stored values are never trusted from callers.
// Version guards every overwrite with a conditional write.
type Product struct {
	ProductID       string      `dynamodbav:"product_id" json:"productId"` // PK
	SellerID        string      `dynamodbav:"seller_id" json:"sellerId"`
	Name            string      `dynamodbav:"name" json:"name"`
	Description     string      `dynamodbav:"description" json:"description"`
	Price           float64     `dynamodbav:"price" json:"price"`
	OriginalPrice   float64     `dynamodbav:"original_price,omitempty" json:"originalPrice,omitempty"`
	Discount        float64     `dynamodbav:"discount,omitempty" json:"discount,omitempty"`
	CategoryID      string      `dynamodbav:"category_id,omitempty" json:"categoryId,omitempty"`
	Images          []string    `dynamodbav:"images,omitempty" json:"images,omitempty"`
	SizeStock       []SizeStock `dynamodbav:"size_stock,omitempty" json:"sizeStock,omitempty"`
	Variations      []Variation `dynamodbav:"variations,omitempty" json:"variations,omitempty"`
	TotalStock      int         `dynamodbav:"total_stock" json:"totalStock"`
	IsAvailable     bool        `dynamodbav:"is_available" json:"isAvailable"`
	Status          string      `dynamodbav:"status" json:"status"`
	RejectionReason string      `dynamodbav:"rejection_reason,omitempty" json:"rejectionReason,omitempty"`
	ApprovedAt      *time.Time  `dynamodbav:"approved_at,omitempty" json:"approvedAt,omitempty"`
	ApprovedBy      string      `dynamodbav:"approved_by,omitempty" json:"approvedBy,omitempty"`
	RejectedAt      *time.Time  `dynamodbav:"rejected_at,omitempty" json:"rejectedAt,omitempty"`
	RejectedBy      string      `dynamodbav:"rejected_by,omitempty" json:"rejectedBy,omitempty"`
	IsFeatured      bool        `dynamodbav:"is_featured" json:"isFeatured"`
	IsFlashSale     bool        `dynamodbav:"is_flash_sale" json:"isFlashSale"`
	Rating          Rating      `dynamodbav:"rating" json:"rating"`
	SoldCount       int         `dynamodbav:"sold_count" json:"soldCount"`
	Version         int64       `dynamodbav:"version" json:"-"`
	CreatedAt       time.Time   `dynamodbav:"created_at" json:"createdAt"`
	UpdatedAt       time.Time   `dynamodbav:"updated_at" json:"updatedAt"`
}

// OwnedBy reports whether the seller with the given id owns this product.
func (p *Product) OwnedBy(sellerID string) bool {
	return p.SellerID != "" && p.SellerID == sellerID
}
