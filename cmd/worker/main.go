package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/craftmarket/go-artisan-marketplace/internal/aws"
	"github.com/craftmarket/go-artisan-marketplace/internal/config"
	"github.com/craftmarket/go-artisan-marketplace/internal/messaging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	setupLogger(cfg.LogLevel)

	clients, err := aws.NewClients(context.Background())
	if err != nil {
		log.Fatalf("failed to init aws clients: %v", err)
	}

	processor := NewProcessor(messaging.NewStore(clients.DynamoDB, cfg.MessagesTable))

	// RUN_LOCAL=true processes one simulated event instead of serving Lambda.
	if cfg.RunLocal {
		body := os.Getenv("LOCAL_SQS_BODY")
		if body == "" {
			body = `{"order_id":"local-order-1","order_number":"PCM0LOCAL","buyer_id":"local-buyer","seller_ids":["local-seller"]}`
		}
		event := events.SQSEvent{Records: []events.SQSMessage{{Body: body}}}
		if err := processor.Handle(context.Background(), event); err != nil {
			log.Fatalf("local handler error: %v", err)
		}
		return
	}

	lambda.Start(processor.Handle)
}

func setupLogger(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})))
}
