package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/craftmarket/go-artisan-marketplace/internal/catalog"
	"github.com/craftmarket/go-artisan-marketplace/internal/identity"
	"github.com/craftmarket/go-artisan-marketplace/internal/validation"
)

type productHandler struct {
	store    *catalog.Store
	validate *validatorv10.Validate
}

func (h *productHandler) list(c *gin.Context) {
	f := catalog.ListFilter{
		CategoryID: c.Query("category"),
		SellerID:   c.Query("seller"),
		Search:     c.Query("search"),
		Sort:       c.Query("sort"),
		MinPrice:   queryFloat(c, "minPrice"),
		MaxPrice:   queryFloat(c, "maxPrice"),
		Limit:      queryInt(c, "limit", 20),
		Page:       queryInt(c, "page", 1),
	}
	products, err := h.store.List(c.Request.Context(), f)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products, "page": f.Page})
}

func (h *productHandler) listFlashSale(c *gin.Context) {
	products, err := h.store.List(c.Request.Context(), catalog.ListFilter{FlashSale: true, Limit: 10})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *productHandler) listBestSelling(c *gin.Context) {
	products, err := h.store.List(c.Request.Context(), catalog.ListFilter{Sort: catalog.SortBestSelling, Limit: 10})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *productHandler) get(c *gin.Context) {
	product, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

func (h *productHandler) listMine(c *gin.Context) {
	actor := actorFrom(c)
	products, err := h.store.ListBySeller(c.Request.Context(), actor.ID)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *productHandler) create(c *gin.Context) {
	actor := actorFrom(c)

	var req validation.ProductRequest
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		return
	}

	product := &catalog.Product{SellerID: actor.ID, IsAvailable: true}
	applyProductRequest(product, req)

	if err := h.store.Create(c.Request.Context(), product); err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Product created", "product": product})
}

func (h *productHandler) update(c *gin.Context) {
	actor := actorFrom(c)

	var req validation.ProductRequest
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		return
	}

	product, err := h.loadOwned(c, actor)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	applyProductRequest(product, req)
	if req.IsAvailable != nil {
		product.IsAvailable = *req.IsAvailable
	}

	if err := h.store.Save(c.Request.Context(), product); err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product updated", "product": product})
}

// softDelete marks the product unavailable; the record stays so order
// snapshots keep resolving.
func (h *productHandler) softDelete(c *gin.Context) {
	actor := actorFrom(c)

	product, err := h.loadOwned(c, actor)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	product.IsAvailable = false
	if err := h.store.Save(c.Request.Context(), product); err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product marked as unavailable"})
}

func (h *productHandler) listModeration(c *gin.Context) {
	products, err := h.store.ListModeration(c.Request.Context(), c.Query("status"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *productHandler) approve(c *gin.Context) {
	h.moderate(c, func(p *catalog.Product, actor identity.Actor) {
		now := time.Now()
		p.Status = catalog.StatusApproved
		p.RejectionReason = ""
		p.ApprovedAt = &now
		p.ApprovedBy = actor.ID
	}, "Product approved successfully")
}

func (h *productHandler) reject(c *gin.Context) {
	var req validation.RejectProductRequest
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		return
	}
	h.moderate(c, func(p *catalog.Product, actor identity.Actor) {
		now := time.Now()
		p.Status = catalog.StatusRejected
		p.RejectionReason = req.Reason
		p.RejectedAt = &now
		p.RejectedBy = actor.ID
	}, "Product rejected successfully")
}

func (h *productHandler) setFlags(c *gin.Context) {
	var req validation.ProductFlagsRequest
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		return
	}
	h.moderate(c, func(p *catalog.Product, _ identity.Actor) {
		if req.IsFeatured != nil {
			p.IsFeatured = *req.IsFeatured
		}
		if req.IsFlashSale != nil {
			p.IsFlashSale = *req.IsFlashSale
		}
	}, "Product updated")
}

func (h *productHandler) hardDelete(c *gin.Context) {
	if _, err := h.store.Get(c.Request.Context(), c.Param("id")); err != nil {
		writeDomainError(c, err)
		return
	}
	if err := h.store.HardDelete(c.Request.Context(), c.Param("id")); err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted"})
}

// moderate applies an admin mutation under the store's guarded save.
func (h *productHandler) moderate(c *gin.Context, mutate func(*catalog.Product, identity.Actor), message string) {
	actor := actorFrom(c)
	product, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	mutate(product, actor)
	if err := h.store.Save(c.Request.Context(), product); err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": message, "product": product})
}

// loadOwned fetches the product and enforces that the actor owns it or is an
// admin.
func (h *productHandler) loadOwned(c *gin.Context, actor identity.Actor) (*catalog.Product, error) {
	product, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		return nil, err
	}
	if !product.OwnedBy(actor.ID) && !actor.IsAdmin() {
		return nil, catalog.ErrForbidden
	}
	return product, nil
}

func applyProductRequest(p *catalog.Product, req validation.ProductRequest) {
	p.Name = req.Name
	p.Description = req.Description
	p.Price = req.Price
	p.OriginalPrice = req.OriginalPrice
	if p.OriginalPrice == 0 {
		p.OriginalPrice = req.Price
	}
	p.Discount = req.Discount
	p.CategoryID = req.CategoryID
	p.Images = req.Images
	p.IsFeatured = req.IsFeatured
	p.IsFlashSale = req.IsFlashSale
	p.TotalStock = req.TotalStock

	p.SizeStock = p.SizeStock[:0]
	for _, s := range req.SizeStock {
		p.SizeStock = append(p.SizeStock, catalog.SizeStock{Size: s.Size, Quantity: s.Quantity})
	}
	p.Variations = p.Variations[:0]
	for _, v := range req.Variations {
		p.Variations = append(p.Variations, catalog.Variation{
			Name:            v.Name,
			Value:           v.Value,
			PriceAdjustment: v.PriceAdjustment,
			Image:           v.Image,
		})
	}
}

func queryFloat(c *gin.Context, key string) float64 {
	v, err := strconv.ParseFloat(c.Query(key), 64)
	if err != nil {
		return 0
	}
	return v
}

func queryInt(c *gin.Context, key string, fallback int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v < 1 {
		return fallback
	}
	return v
}
