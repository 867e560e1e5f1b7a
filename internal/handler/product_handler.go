package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/lumina_api/internal/models"
	"github.com/GTDGit/lumina_api/internal/search"
	"github.com/GTDGit/lumina_api/internal/utils"
)

const defaultRelatedLimit = 4

// CatalogAPI is the public product surface used by ProductHandler.
type CatalogAPI interface {
	List(ctx context.Context) ([]models.ProductView, error)
	Get(ctx context.Context, id int) (*models.ProductView, error)
	Related(ctx context.Context, id, limit int) ([]models.ProductView, error)
	Search(ctx context.Context, f search.Filters) ([]models.ProductView, error)
	FlashSales(ctx context.Context) ([]models.ProductView, error)
}

// ProductHandler serves the public catalog.
type ProductHandler struct {
	catalog CatalogAPI
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(catalog CatalogAPI) *ProductHandler {
	return &ProductHandler{catalog: catalog}
}

// List handles GET /api/products
func (h *ProductHandler) List(c *gin.Context) {
	products, err := h.catalog.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Products retrieved", products)
}

// Get handles GET /api/products/:id
func (h *ProductHandler) Get(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	product, err := h.catalog.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Product retrieved", product)
}

// Related handles GET /api/products/:id/related?limit=4
func (h *ProductHandler) Related(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	var errs utils.ValidationErrors
	limit := defaultRelatedLimit
	if v := queryInt(c, "limit", &errs); v != nil {
		limit = *v
	}
	if err := errs.OrNil(); err != nil {
		respondError(c, err)
		return
	}

	products, err := h.catalog.Related(c.Request.Context(), id, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Related products retrieved", products)
}

// Search handles GET /api/products/search
func (h *ProductHandler) Search(c *gin.Context) {
	f, err := parseFilters(c)
	if err != nil {
		respondError(c, err)
		return
	}

	products, err := h.catalog.Search(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Search results", products)
}

// FlashSales handles GET /api/flash-sales
func (h *ProductHandler) FlashSales(c *gin.Context) {
	products, err := h.catalog.FlashSales(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Flash sales retrieved", products)
}

// parseFilters reads search filters from the query string. Tags may be
// repeated or comma separated.
func parseFilters(c *gin.Context) (search.Filters, error) {
	var errs utils.ValidationErrors
	f := search.Filters{
		Query:    c.Query("q"),
		Category: c.Query("category"),
		Brand:    c.Query("brand"),
		MinPrice: queryInt(c, "minPrice", &errs),
		MaxPrice: queryInt(c, "maxPrice", &errs),
	}
	for _, raw := range c.QueryArray("tags") {
		f.Tags = append(f.Tags, splitCSV(raw)...)
	}
	return f, errs.OrNil()
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
