package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/craftmarket/go-artisan-marketplace/internal/catalog"
	"github.com/craftmarket/go-artisan-marketplace/internal/inventory"
	"github.com/craftmarket/go-artisan-marketplace/internal/orders"
	"github.com/craftmarket/go-artisan-marketplace/internal/reviews"
)

// writeDomainError maps domain errors onto HTTP responses. Anything
// unrecognized is a 500 with the detail logged, not leaked.
func writeDomainError(c *gin.Context, err error) {
	var unavailable *orders.ProductUnavailableError
	var insufficient *inventory.InsufficientStockError

	switch {
	case errors.Is(err, orders.ErrEmptyOrder):
		c.JSON(http.StatusBadRequest, gin.H{"error": "no_items_in_order", "message": err.Error()})
	case errors.As(err, &unavailable),
		errors.As(err, &insufficient),
		errors.Is(err, orders.ErrMissingSeller),
		errors.Is(err, orders.ErrInvalidStatus),
		errors.Is(err, reviews.ErrNotDelivered),
		errors.Is(err, reviews.ErrNotInOrder),
		errors.Is(err, reviews.ErrAlreadyReviewed),
		errors.Is(err, catalog.ErrNegativeStock):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
	case errors.Is(err, orders.ErrForbidden),
		errors.Is(err, catalog.ErrForbidden),
		errors.Is(err, reviews.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "message": err.Error()})
	case errors.Is(err, orders.ErrNotFound),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, reviews.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": err.Error()})
	case errors.Is(err, orders.ErrStatusConflict),
		errors.Is(err, orders.ErrTooManyConflicts),
		errors.Is(err, catalog.ErrVersionConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "conflict", "message": err.Error()})
	default:
		slog.Error("internal error", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}
