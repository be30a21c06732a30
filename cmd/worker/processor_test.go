package main

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aws/aws-lambda-go/events"

	"github.com/craftmarket/go-artisan-marketplace/internal/aws/awstest"
	"github.com/craftmarket/go-artisan-marketplace/internal/messaging"
)

func sqsRecord(t *testing.T, ev messaging.OrderPlacedEvent) events.SQSMessage {
	t.Helper()
	body, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return events.SQSMessage{MessageId: "sqs-1", Body: string(body)}
}

func TestHandleWritesOneMessagePerSeller(t *testing.T) {
	fake := awstest.NewDynamoDB().AddTable("messages", "message_id")
	store := messaging.NewStore(fake, "messages")
	p := NewProcessor(store)

	ev := messaging.OrderPlacedEvent{
		OrderID:     "o1",
		OrderNumber: "PCM123",
		BuyerID:     "buyer-1",
		SellerIDs:   []string{"seller-1", "seller-2"},
	}
	err := p.Handle(context.Background(), events.SQSEvent{Records: []events.SQSMessage{sqsRecord(t, ev)}})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}

	if fake.Len("messages") != 2 {
		t.Fatalf("expected one message per seller, got %d", fake.Len("messages"))
	}

	thread, err := store.ListConversation(context.Background(), "buyer-1", "seller-1")
	if err != nil {
		t.Fatalf("list conversation: %v", err)
	}
	if len(thread) != 1 || !thread[0].IsAutomated || thread[0].SenderID != "seller-1" {
		t.Fatalf("unexpected thread: %+v", thread)
	}
}

func TestHandleRedeliveryIsIdempotent(t *testing.T) {
	fake := awstest.NewDynamoDB().AddTable("messages", "message_id")
	p := NewProcessor(messaging.NewStore(fake, "messages"))

	ev := messaging.OrderPlacedEvent{
		OrderID:     "o1",
		OrderNumber: "PCM123",
		BuyerID:     "buyer-1",
		SellerIDs:   []string{"seller-1"},
	}
	batch := events.SQSEvent{Records: []events.SQSMessage{sqsRecord(t, ev)}}

	if err := p.Handle(context.Background(), batch); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := p.Handle(context.Background(), batch); err != nil {
		t.Fatalf("redelivery must be swallowed: %v", err)
	}
	if fake.Len("messages") != 1 {
		t.Fatalf("redelivery must not duplicate the message, got %d", fake.Len("messages"))
	}
}

func TestHandleRejectsMalformedBody(t *testing.T) {
	fake := awstest.NewDynamoDB().AddTable("messages", "message_id")
	p := NewProcessor(messaging.NewStore(fake, "messages"))

	err := p.Handle(context.Background(), events.SQSEvent{
		Records: []events.SQSMessage{{MessageId: "bad", Body: "{not json"}},
	})
	if err == nil {
		t.Fatalf("malformed body must fail the batch for redelivery")
	}
}
