package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/craftmarket/go-artisan-marketplace/internal/aws"
)

// Notifier publishes order-placed events to the notifications queue.
type Notifier struct {
	publisher *aws.Publisher
}

// NewNotifier returns a Notifier over an SQS publisher.
func NewNotifier(publisher *aws.Publisher) *Notifier {
	return &Notifier{publisher: publisher}
}

// OrderPlaced publishes one event carrying the order and its distinct
// sellers; the worker turns it into per-seller automated messages.
func (n *Notifier) OrderPlaced(ctx context.Context, ev OrderPlacedEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal order placed event: %w", err)
	}
	attrs := map[string]string{
		"order_id":     ev.OrderID,
		"order_number": ev.OrderNumber,
	}
	if err := n.publisher.Send(ctx, string(body), attrs); err != nil {
		return fmt.Errorf("publish order placed event: %w", err)
	}
	return nil
}
