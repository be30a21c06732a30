package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"

	"github.com/craftmarket/go-artisan-marketplace/internal/messaging"
)

// Processor consumes order-placed events and writes the automated
// acknowledgement message from each seller to the buyer.
type Processor struct {
	messages *messaging.Store
}

// NewProcessor creates a worker processor over the messages store.
func NewProcessor(messages *messaging.Store) *Processor {
	return &Processor{messages: messages}
}

// Handle receives an SQS batch event and processes each record. A failed
// record fails the batch so the runtime redelivers; the deterministic message
// ids make redelivery harmless.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) error {
	for _, rec := range ev.Records {
		if err := p.processRecord(ctx, rec); err != nil {
			slog.Error("worker record failed", "message_id", rec.MessageId, "error", err)
			return err
		}
	}
	return nil
}

func (p *Processor) processRecord(ctx context.Context, rec events.SQSMessage) error {
	var ev messaging.OrderPlacedEvent
	if err := json.Unmarshal([]byte(rec.Body), &ev); err != nil {
		return fmt.Errorf("invalid event body: %w", err)
	}

	for _, sellerID := range ev.SellerIDs {
		msg := messaging.AutomatedOrderMessage(ev.OrderID, ev.OrderNumber, sellerID, ev.BuyerID)
		err := p.messages.Put(ctx, msg)
		if errors.Is(err, messaging.ErrDuplicateMessage) {
			slog.Info("acknowledgement already sent", "order_id", ev.OrderID, "seller_id", sellerID)
			continue
		}
		if err != nil {
			return fmt.Errorf("write acknowledgement for seller %s: %w", sellerID, err)
		}
		slog.Info("acknowledgement sent", "order_id", ev.OrderID, "seller_id", sellerID)
	}
	return nil
}
