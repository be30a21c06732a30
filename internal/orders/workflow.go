package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/craftmarket/go-artisan-marketplace/internal/catalog"
	"github.com/craftmarket/go-artisan-marketplace/internal/idempotency"
	"github.com/craftmarket/go-artisan-marketplace/internal/identity"
	"github.com/craftmarket/go-artisan-marketplace/internal/inventory"
	"github.com/craftmarket/go-artisan-marketplace/internal/messaging"
	"github.com/craftmarket/go-artisan-marketplace/internal/metrics"
)

// Notifier publishes the order-placed event consumed by the notification
// worker. Failures are logged and counted, never surfaced to the buyer.
type Notifier interface {
	OrderPlaced(ctx context.Context, ev messaging.OrderPlacedEvent) error
}

// Workflow drives order placement and status transitions.
type Workflow struct {
	products    *catalog.Store
	store       *Store
	idempotency *idempotency.Store
	notifier    Notifier
	metrics     *metrics.Recorder
	maxRetries  int
	nowFunc     func() time.Time
	newID       func() string
}

// NewWorkflow wires the order workflow. notifier and recorder may be nil.
func NewWorkflow(products *catalog.Store, store *Store, idemp *idempotency.Store, notifier Notifier, recorder *metrics.Recorder) *Workflow {
	return &Workflow{
		products:    products,
		store:       store,
		idempotency: idemp,
		notifier:    notifier,
		metrics:     recorder,
		maxRetries:  3,
		nowFunc:     time.Now,
		newID:       uuid.NewString,
	}
}

// ItemInput is one requested line of a new order. Price is the unit price
// snapshotted by the storefront at add-to-cart time.
type ItemInput struct {
	ProductID string
	SellerID  string
	Name      string
	Quantity  int
	Price     float64
	Size      string
	Variation *ItemVariation
}

// CreateInput is the full order-creation request.
type CreateInput struct {
	Items           []ItemInput
	ShippingAddress ShippingAddress
	PaymentMethod   string
	IdempotencyKey  string
}

// Create places an order for the buyer.
//
// Every line is validated against a freshly read product snapshot: the
// product must exist and be available, the line must resolve to a seller,
// and the inventory rules must accept the quantity. Accepted decrements,
// sold-count bumps and the order document are then persisted in one guarded
// transaction; if a concurrent writer invalidates any product snapshot the
// whole attempt is replayed from validation, so stock can never be oversold
// or partially reserved. The order-placed notification fires after commit
// and is best-effort.
func (w *Workflow) Create(ctx context.Context, actor identity.Actor, in CreateInput) (*Order, error) {
	if len(in.Items) == 0 {
		w.metrics.OrderRejected(ctx, "empty_order")
		return nil, ErrEmptyOrder
	}

	for attempt := 0; ; attempt++ {
		order, writes, err := w.buildOrder(ctx, actor, in)
		if err != nil {
			return nil, err
		}

		var idempItem interface{}
		if in.IdempotencyKey != "" && w.idempotency != nil {
			idempItem = w.idempotency.NewRecord(in.IdempotencyKey, order.OrderID)
		}

		err = w.store.CreateTransaction(ctx, order, writes, idempItem)
		if err == nil {
			w.metrics.OrderCreated(ctx)
			w.notifyOrderPlaced(ctx, order)
			return order, nil
		}
		if errors.Is(err, catalog.ErrVersionConflict) || errors.Is(err, errOrderIDCollision) {
			if attempt >= w.maxRetries {
				return nil, fmt.Errorf("%w: %s", ErrTooManyConflicts, err)
			}
			w.metrics.StockConflictRetry(ctx)
			continue
		}
		return nil, err
	}
}

// buildOrder validates the request against fresh product snapshots and
// produces the order document plus the product writes to persist with it.
func (w *Workflow) buildOrder(ctx context.Context, actor identity.Actor, in CreateInput) (*Order, []ProductWrite, error) {
	// Lines referencing the same product share one snapshot so quantities
	// accumulate during validation.
	snapshots := make(map[string]*ProductWrite)
	var writes []*ProductWrite
	items := make([]Item, 0, len(in.Items))
	var sellerIDs []string
	total := 0.0

	for _, req := range in.Items {
		write, ok := snapshots[req.ProductID]
		if !ok {
			p, err := w.products.Get(ctx, req.ProductID)
			if errors.Is(err, catalog.ErrNotFound) {
				w.metrics.OrderRejected(ctx, "product_unavailable")
				return nil, nil, &ProductUnavailableError{ProductName: req.Name}
			}
			if err != nil {
				return nil, nil, err
			}
			write = &ProductWrite{Product: p, ExpectedVersion: p.Version}
			snapshots[req.ProductID] = write
			writes = append(writes, write)
		}
		p := write.Product

		if !p.IsAvailable {
			w.metrics.OrderRejected(ctx, "product_unavailable")
			return nil, nil, &ProductUnavailableError{ProductName: p.Name}
		}

		sellerID := req.SellerID
		if sellerID == "" {
			sellerID = p.SellerID
		}
		if sellerID == "" {
			w.metrics.OrderRejected(ctx, "missing_seller")
			return nil, nil, fmt.Errorf("product %s: %w", p.Name, ErrMissingSeller)
		}

		size := strings.TrimSpace(req.Size)
		if err := inventory.Apply(p, size, req.Quantity); err != nil {
			var ise *inventory.InsufficientStockError
			if errors.As(err, &ise) {
				w.metrics.OrderRejected(ctx, "insufficient_stock")
			}
			return nil, nil, err
		}
		p.SoldCount += req.Quantity

		name := req.Name
		if name == "" {
			name = p.Name
		}
		image := ""
		if len(p.Images) > 0 {
			image = p.Images[0]
		}
		items = append(items, Item{
			ProductID: p.ProductID,
			SellerID:  sellerID,
			Name:      name,
			Quantity:  req.Quantity,
			Price:     req.Price,
			Size:      size,
			Variation: req.Variation,
			Image:     image,
		})
		if !containsString(sellerIDs, sellerID) {
			sellerIDs = append(sellerIDs, sellerID)
		}
		total += req.Price * float64(req.Quantity)
	}

	now := w.nowFunc()
	paymentMethod := in.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = PaymentCOD
	}

	order := &Order{
		OrderID:     w.newID(),
		OrderNumber: w.orderNumber(now),
		UserID:      actor.ID,
		Items:       items,
		TotalAmount: total,
		Status:      StatusPlaced,
		StatusHistory: []StatusEntry{{
			Status:    StatusPlaced,
			UpdatedAt: now,
			Note:      "Order has been placed",
		}},
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   paymentMethod,
		PaymentStatus:   PaymentStatusPending,
		SellerIDs:       sellerIDs,
		CreatedAt:       now,
	}

	final := make([]ProductWrite, 0, len(writes))
	for _, pw := range writes {
		final = append(final, *pw)
	}
	return order, final, nil
}

// orderNumber derives the human-readable number: PCM + unix millis + a short
// random suffix. The suffix plus the order-id write guard cover concurrent
// same-millisecond creations.
func (w *Workflow) orderNumber(now time.Time) string {
	suffix := strings.ReplaceAll(w.newID(), "-", "")
	if len(suffix) > 4 {
		suffix = suffix[:4]
	}
	return fmt.Sprintf("PCM%d%s", now.UnixMilli(), strings.ToUpper(suffix))
}

func (w *Workflow) notifyOrderPlaced(ctx context.Context, order *Order) {
	if w.notifier == nil {
		return
	}
	ev := messaging.OrderPlacedEvent{
		OrderID:     order.OrderID,
		OrderNumber: order.OrderNumber,
		BuyerID:     order.UserID,
		SellerIDs:   order.SellerIDs,
	}
	if err := w.notifier.OrderPlaced(ctx, ev); err != nil {
		slog.Error("order placed notification failed",
			"order_id", order.OrderID, "error", err)
		w.metrics.NotificationFailure(ctx)
	}
}

// UpdateStatus moves an order to target on behalf of actor, appending one
// status-history entry. The transition is guarded by role and by the status
// observed at read time; a concurrent transition surfaces as
// ErrStatusConflict.
func (w *Workflow) UpdateStatus(ctx context.Context, actor identity.Actor, orderID, target, note string) (*Order, error) {
	order, err := w.store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := AuthorizeTransition(actor, order, target); err != nil {
		return nil, err
	}
	if note == "" {
		note = fmt.Sprintf("Order status updated to %s", target)
	}
	return w.store.UpdateStatus(ctx, orderID, order.Status, target, note)
}

// Get fetches an order, visible only to its buyer, a seller with a line in
// it, or an admin.
func (w *Workflow) Get(ctx context.Context, actor identity.Actor, orderID string) (*Order, error) {
	order, err := w.store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != actor.ID && !order.HasSellerLine(actor.ID) && !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	return order, nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
