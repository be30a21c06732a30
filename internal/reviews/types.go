package reviews

import (
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("review not found")
	// ErrForbidden means the actor may not review or reply here.
	ErrForbidden = errors.New("not authorized for this review")
	// ErrNotDelivered means the order has not reached delivered status.
	ErrNotDelivered = errors.New("can only review delivered orders")
	// ErrNotInOrder means the product is not a line of the given order.
	ErrNotInOrder = errors.New("product not in this order")
	// ErrAlreadyReviewed means the (order, product, user) triple already has
	// a review.
	ErrAlreadyReviewed = errors.New("product already reviewed for this order")
)

// SellerReply is the seller's single reply to a review.
type SellerReply struct {
	Comment   string    `dynamodbav:"comment" json:"comment"`
	RepliedAt time.Time `dynamodbav:"replied_at" json:"repliedAt"`
}

// Review is the document stored in the reviews table, tied to one
// (order, product, user) purchase.
type Review struct {
	ReviewID           string       `dynamodbav:"review_id" json:"reviewId"` // PK
	ProductID          string       `dynamodbav:"product_id" json:"productId"`
	UserID             string       `dynamodbav:"user_id" json:"userId"`
	OrderID            string       `dynamodbav:"order_id" json:"orderId"`
	Rating             int          `dynamodbav:"rating" json:"rating"`
	Comment            string       `dynamodbav:"comment" json:"comment"`
	Images             []string     `dynamodbav:"images,omitempty" json:"images,omitempty"`
	SellerReply        *SellerReply `dynamodbav:"seller_reply,omitempty" json:"sellerReply,omitempty"`
	IsVerifiedPurchase bool         `dynamodbav:"is_verified_purchase" json:"isVerifiedPurchase"`
	CreatedAt          time.Time    `dynamodbav:"created_at" json:"createdAt"`
}
