package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/craftmarket/go-artisan-marketplace/internal/aws"
	"github.com/craftmarket/go-artisan-marketplace/internal/catalog"
	"github.com/craftmarket/go-artisan-marketplace/internal/config"
	"github.com/craftmarket/go-artisan-marketplace/internal/idempotency"
	"github.com/craftmarket/go-artisan-marketplace/internal/identity"
	"github.com/craftmarket/go-artisan-marketplace/internal/messaging"
	"github.com/craftmarket/go-artisan-marketplace/internal/metrics"
	"github.com/craftmarket/go-artisan-marketplace/internal/orders"
	"github.com/craftmarket/go-artisan-marketplace/internal/reviews"
	"github.com/craftmarket/go-artisan-marketplace/internal/validation"
)

// Deps groups everything the API routes need.
type Deps struct {
	DynamoDB   aws.DynamoDBAPI
	SQS        aws.SQSAPI
	CloudWatch aws.CloudWatchAPI
	Config     *config.Config
}

// NewRouter wires the stores, workflows and routes into a gin engine.
func NewRouter(d Deps) *gin.Engine {
	v := validation.New()
	cfg := d.Config

	productStore := catalog.NewStore(d.DynamoDB, cfg.ProductsTable)
	orderStore := orders.NewStore(d.DynamoDB, cfg.OrdersTable, cfg.ProductsTable, cfg.IdempotencyTable)
	idempStore := idempotency.NewStore(d.DynamoDB, cfg.IdempotencyTable, cfg.IdempotencyTTL)
	reviewStore := reviews.NewStore(d.DynamoDB, cfg.ReviewsTable)
	messageStore := messaging.NewStore(d.DynamoDB, cfg.MessagesTable)

	var recorder *metrics.Recorder
	if d.CloudWatch != nil {
		recorder = metrics.NewRecorder(d.CloudWatch, cfg.MetricsNamespace)
	}
	var notifier orders.Notifier
	if d.SQS != nil && cfg.NotificationsURL != "" {
		notifier = messaging.NewNotifier(aws.NewPublisher(d.SQS, cfg.NotificationsURL))
	}

	orderWorkflow := orders.NewWorkflow(productStore, orderStore, idempStore, notifier, recorder)
	reviewService := reviews.NewService(reviewStore, orderStore, productStore)

	oh := &orderHandler{workflow: orderWorkflow, store: orderStore, idempotency: idempStore, validate: v}
	ph := &productHandler{store: productStore, validate: v}
	rh := &reviewHandler{service: reviewService, validate: v}
	mh := &messageHandler{store: messageStore}

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authed := r.Group("/", RequireActor())

	authed.POST("/orders", RequireRole(identity.RoleClient), oh.create)
	authed.GET("/orders", RequireRole(identity.RoleClient), oh.listMine)
	authed.GET("/orders/:id", oh.get)
	authed.PUT("/orders/:id/status", oh.updateStatus)
	authed.GET("/seller/orders", RequireRole(identity.RoleSeller), oh.listForSeller)

	r.GET("/products", ph.list)
	r.GET("/products/flash-sale", ph.listFlashSale)
	r.GET("/products/best-selling", ph.listBestSelling)
	r.GET("/products/:id", ph.get)
	authed.POST("/products", RequireRole(identity.RoleSeller), ph.create)
	authed.PUT("/products/:id", RequireRole(identity.RoleSeller, identity.RoleAdmin), ph.update)
	authed.DELETE("/products/:id", RequireRole(identity.RoleSeller, identity.RoleAdmin), ph.softDelete)
	authed.GET("/seller/products", RequireRole(identity.RoleSeller), ph.listMine)

	admin := authed.Group("/admin", RequireRole(identity.RoleAdmin))
	admin.GET("/products", ph.listModeration)
	admin.PATCH("/products/:id/approve", ph.approve)
	admin.PATCH("/products/:id/reject", ph.reject)
	admin.PATCH("/products/:id/flags", ph.setFlags)
	admin.DELETE("/products/:id", ph.hardDelete)

	r.GET("/reviews/product/:productId", rh.listByProduct)
	authed.POST("/reviews", RequireRole(identity.RoleClient), rh.create)
	authed.GET("/reviews/my", RequireRole(identity.RoleClient), rh.listMine)
	authed.POST("/reviews/:id/reply", RequireRole(identity.RoleSeller, identity.RoleAdmin), rh.reply)

	authed.GET("/messages/conversation/:userId", mh.listConversation)

	return r
}
