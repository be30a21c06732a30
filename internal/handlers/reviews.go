package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/craftmarket/go-artisan-marketplace/internal/reviews"
	"github.com/craftmarket/go-artisan-marketplace/internal/validation"
)

type reviewHandler struct {
	service  *reviews.Service
	validate *validatorv10.Validate
}

func (h *reviewHandler) create(c *gin.Context) {
	actor := actorFrom(c)

	var req validation.CreateReviewRequest
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		return
	}

	review, err := h.service.Create(c.Request.Context(), actor, reviews.CreateInput{
		ProductID: req.ProductID,
		OrderID:   req.OrderID,
		Rating:    req.Rating,
		Comment:   req.Comment,
		Images:    req.Images,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Review submitted", "review": review})
}

func (h *reviewHandler) listByProduct(c *gin.Context) {
	list, err := h.service.ListByProduct(c.Request.Context(), c.Param("productId"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": list})
}

func (h *reviewHandler) listMine(c *gin.Context) {
	list, err := h.service.ListByUser(c.Request.Context(), actorFrom(c))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": list})
}

func (h *reviewHandler) reply(c *gin.Context) {
	actor := actorFrom(c)

	var req validation.ReviewReplyRequest
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		return
	}

	review, err := h.service.Reply(c.Request.Context(), actor, c.Param("id"), req.Comment)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Reply added", "review": review})
}
