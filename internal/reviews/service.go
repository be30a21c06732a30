package reviews

import (
	"context"
	"errors"
	"log/slog"
	"math"

	"github.com/craftmarket/go-artisan-marketplace/internal/catalog"
	"github.com/craftmarket/go-artisan-marketplace/internal/identity"
	"github.com/craftmarket/go-artisan-marketplace/internal/orders"
)

// Service drives the review workflow: creation gated on a delivered
// purchase, seller replies, and the product rating aggregate.
type Service struct {
	store    *Store
	orders   *orders.Store
	products *catalog.Store
}

// NewService wires the review service.
func NewService(store *Store, orderStore *orders.Store, productStore *catalog.Store) *Service {
	return &Service{
		store:    store,
		orders:   orderStore,
		products: productStore,
	}
}

// CreateInput is a new review request.
type CreateInput struct {
	ProductID string
	OrderID   string
	Rating    int
	Comment   string
	Images    []string
}

// Create adds a review for a delivered purchase and refreshes the product's
// rating aggregate. Only the buyer of the order may review, only products in
// the order qualify, and each purchase can be reviewed once.
func (s *Service) Create(ctx context.Context, actor identity.Actor, in CreateInput) (*Review, error) {
	order, err := s.orders.Get(ctx, in.OrderID)
	if errors.Is(err, orders.ErrNotFound) {
		return nil, orders.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if order.UserID != actor.ID {
		return nil, ErrForbidden
	}
	if order.Status != orders.StatusDelivered {
		return nil, ErrNotDelivered
	}

	itemIndex := -1
	for i, it := range order.Items {
		if it.ProductID == in.ProductID {
			itemIndex = i
			break
		}
	}
	if itemIndex == -1 {
		return nil, ErrNotInOrder
	}

	review := &Review{
		ProductID:          in.ProductID,
		UserID:             actor.ID,
		OrderID:            in.OrderID,
		Rating:             in.Rating,
		Comment:            in.Comment,
		Images:             in.Images,
		IsVerifiedPurchase: true,
	}
	if err := s.store.Create(ctx, review); err != nil {
		return nil, err
	}

	if err := s.orders.MarkItemReviewed(ctx, in.OrderID, itemIndex); err != nil {
		slog.Error("mark item reviewed failed", "order_id", in.OrderID, "error", err)
	}
	s.refreshRating(ctx, in.ProductID)

	return review, nil
}

// Reply records the seller's reply on a review; only the seller of the
// reviewed product may reply.
func (s *Service) Reply(ctx context.Context, actor identity.Actor, reviewID, comment string) (*Review, error) {
	review, err := s.store.Get(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	product, err := s.products.Get(ctx, review.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.OwnedBy(actor.ID) && !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if err := s.store.SetSellerReply(ctx, reviewID, comment); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, reviewID)
}

// ListByProduct returns a product's reviews, newest first.
func (s *Service) ListByProduct(ctx context.Context, productID string) ([]Review, error) {
	return s.store.ListByProduct(ctx, productID)
}

// ListByUser returns the actor's reviews, newest first.
func (s *Service) ListByUser(ctx context.Context, actor identity.Actor) ([]Review, error) {
	return s.store.ListByUser(ctx, actor.ID)
}

// refreshRating recomputes the product's rating aggregate over all of its
// reviews (average rounded to one decimal). Best-effort: a failure leaves a
// stale aggregate behind, corrected by the next review. The guarded save is
// retried a few times since reviews race with stock decrements on the same
// document.
func (s *Service) refreshRating(ctx context.Context, productID string) {
	all, err := s.store.ListByProduct(ctx, productID)
	if err != nil {
		slog.Error("rating refresh: list reviews failed", "product_id", productID, "error", err)
		return
	}
	sum := 0
	for _, r := range all {
		sum += r.Rating
	}
	average := 0.0
	if len(all) > 0 {
		average = math.Round(float64(sum)/float64(len(all))*10) / 10
	}

	for attempt := 0; attempt < 3; attempt++ {
		product, err := s.products.Get(ctx, productID)
		if err != nil {
			slog.Error("rating refresh: load product failed", "product_id", productID, "error", err)
			return
		}
		product.Rating = catalog.Rating{Average: average, Count: len(all)}
		err = s.products.Save(ctx, product)
		if err == nil {
			return
		}
		if !errors.Is(err, catalog.ErrVersionConflict) {
			slog.Error("rating refresh: save product failed", "product_id", productID, "error", err)
			return
		}
	}
	slog.Warn("rating refresh: gave up after version conflicts", "product_id", productID)
}
