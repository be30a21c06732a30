package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/craftmarket/go-artisan-marketplace/internal/idempotency"
	"github.com/craftmarket/go-artisan-marketplace/internal/orders"
	"github.com/craftmarket/go-artisan-marketplace/internal/validation"
)

type orderHandler struct {
	workflow    *orders.Workflow
	store       *orders.Store
	idempotency *idempotency.Store
	validate    *validatorv10.Validate
}

func (h *orderHandler) create(c *gin.Context) {
	ctx := c.Request.Context()
	actor := actorFrom(c)

	var req validation.CreateOrderRequest
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		return
	}

	idempKey := c.GetHeader("Idempotency-Key")

	in := orders.CreateInput{
		ShippingAddress: orders.ShippingAddress(req.ShippingAddress),
		PaymentMethod:   req.PaymentMethod,
		IdempotencyKey:  idempKey,
	}
	for _, it := range req.Items {
		item := orders.ItemInput{
			ProductID: it.ProductID,
			SellerID:  it.SellerID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			Price:     it.Price,
			Size:      it.Size,
		}
		if it.Variation != nil {
			item.Variation = &orders.ItemVariation{Name: it.Variation.Name, Value: it.Variation.Value}
		}
		in.Items = append(in.Items, item)
	}

	order, err := h.workflow.Create(ctx, actor, in)
	if errors.Is(err, orders.ErrIdempotencyConflict) {
		h.replayIdempotent(c, idempKey)
		return
	}
	if err != nil {
		writeDomainError(c, err)
		return
	}

	if idempKey != "" {
		body, _ := json.Marshal(gin.H{"message": "Order placed successfully", "order": order})
		_ = h.idempotency.MarkDone(ctx, idempKey, string(body), http.StatusCreated)
	}

	c.Header("Location", fmt.Sprintf("/orders/%s", order.OrderID))
	c.JSON(http.StatusCreated, gin.H{"message": "Order placed successfully", "order": order})
}

// replayIdempotent answers a duplicate create using the recorded outcome of
// the original attempt.
func (h *orderHandler) replayIdempotent(c *gin.Context, key string) {
	rec, err := h.idempotency.Get(c.Request.Context(), key)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "idempotency_check_failed"})
		return
	}
	if rec == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "idempotency_record_missing"})
		return
	}
	switch rec.Status {
	case idempotency.StatusDone:
		if rec.ResponseBody != "" {
			c.Data(rec.ResponseStatus, "application/json", []byte(rec.ResponseBody))
			return
		}
		c.JSON(http.StatusOK, gin.H{"orderId": rec.OrderID})
	case idempotency.StatusInProgress:
		c.JSON(http.StatusAccepted, gin.H{"message": "request already in progress", "orderId": rec.OrderID})
	case idempotency.StatusFailed:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "previous_attempt_failed", "orderId": rec.OrderID})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unknown_idempotency_status"})
	}
}

func (h *orderHandler) listMine(c *gin.Context) {
	actor := actorFrom(c)
	list, err := h.store.ListByBuyer(c.Request.Context(), actor.ID)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list})
}

func (h *orderHandler) get(c *gin.Context) {
	actor := actorFrom(c)
	order, err := h.workflow.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (h *orderHandler) updateStatus(c *gin.Context) {
	actor := actorFrom(c)

	var req validation.UpdateOrderStatusRequest
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		return
	}

	order, err := h.workflow.UpdateStatus(c.Request.Context(), actor, c.Param("id"), req.Status, req.Note)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order status updated", "order": order})
}

func (h *orderHandler) listForSeller(c *gin.Context) {
	actor := actorFrom(c)
	list, err := h.store.ListBySeller(c.Request.Context(), actor.ID, c.Query("status"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list})
}
