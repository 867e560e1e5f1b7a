package handler

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/lumina_api/internal/models"
	"github.com/GTDGit/lumina_api/internal/service"
	"github.com/GTDGit/lumina_api/internal/utils"
)

// ProductAdminAPI is the catalog management surface used by
// ProductAdminHandler.
type ProductAdminAPI interface {
	Create(ctx context.Context, in service.CreateProductInput) (*models.ProductView, error)
	Update(ctx context.Context, id int, in service.UpdateProductInput) (*models.ProductView, error)
	Delete(ctx context.Context, id int) error
	SetFlashSale(ctx context.Context, id int, in service.FlashSaleInput) (*models.ProductView, error)
	ClearFlashSale(ctx context.Context, id int) (*models.ProductView, error)
	RegenerateMarketing(ctx context.Context, id int) (*models.MarketingContent, error)
}

// ProductAdminHandler handles product management endpoints.
type ProductAdminHandler struct {
	products     ProductAdminAPI
	maxImageSize int64
}

// NewProductAdminHandler creates a new ProductAdminHandler.
func NewProductAdminHandler(products ProductAdminAPI, maxImageSize int64) *ProductAdminHandler {
	return &ProductAdminHandler{products: products, maxImageSize: maxImageSize}
}

// Create handles POST /api/admin/products (multipart form).
func (h *ProductAdminHandler) Create(c *gin.Context) {
	in, err := h.readCreateForm(c)
	if err != nil {
		respondError(c, err)
		return
	}

	product, err := h.products.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.Success(c, http.StatusCreated, "Product created", product)
}

// Update handles PATCH /api/admin/products/:id
func (h *ProductAdminHandler) Update(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	var req service.UpdateProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c)
		return
	}

	product, err := h.products.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Product updated", product)
}

// Delete handles DELETE /api/admin/products/:id
func (h *ProductAdminHandler) Delete(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.products.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	log.Info().Int("product_id", id).Msg("Product deleted")
	utils.Success(c, http.StatusOK, "Product deleted", nil)
}

// SetFlashSale handles POST /api/admin/products/:id/flash-sale
func (h *ProductAdminHandler) SetFlashSale(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	var req service.FlashSaleInput
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c)
		return
	}

	product, err := h.products.SetFlashSale(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Flash sale started", product)
}

// ClearFlashSale handles DELETE /api/admin/products/:id/flash-sale
func (h *ProductAdminHandler) ClearFlashSale(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	product, err := h.products.ClearFlashSale(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Flash sale cleared", product)
}

// RegenerateMarketing handles POST /api/admin/products/:id/marketing
func (h *ProductAdminHandler) RegenerateMarketing(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	content, err := h.products.RegenerateMarketing(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Marketing copy generated", content)
}

func (h *ProductAdminHandler) readCreateForm(c *gin.Context) (service.CreateProductInput, error) {
	var in service.CreateProductInput
	var errs utils.ValidationErrors

	file, err := c.FormFile("image")
	if err != nil {
		errs.Add("image", "is required")
	} else {
		data, err := readUpload(file, h.maxImageSize)
		if err != nil {
			return in, err
		}
		img, err := service.DetectImage(data, h.maxImageSize)
		if err != nil {
			return in, err
		}
		in.Image = img
	}

	in.Title = formString(c, "title")
	in.Description = formString(c, "description")
	in.ShortDescription = formString(c, "shortDescription")
	in.Category = formString(c, "category")
	in.Brand = formString(c, "brand")
	in.Price = formInt(c, "price", &errs)
	in.Stock = formInt(c, "stock", &errs)
	if raw, ok := c.GetPostForm("tags"); ok {
		in.Tags = splitCSV(raw)
	}

	return in, errs.OrNil()
}

// readUpload reads at most limit+1 bytes so oversized files are detected
// without buffering them whole.
func readUpload(fh *multipart.FileHeader, limit int64) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, utils.NewValidationError("image", "could not be read")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, utils.NewValidationError("image", "could not be read")
	}
	return data, nil
}

// formString treats blank fields as absent so the image analysis fills them.
func formString(c *gin.Context, key string) *string {
	v, ok := c.GetPostForm(key)
	if !ok || strings.TrimSpace(v) == "" {
		return nil
	}
	return &v
}

func formInt(c *gin.Context, key string, errs *utils.ValidationErrors) *int {
	raw, ok := c.GetPostForm(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		errs.Add(key, "must be an integer")
		return nil
	}
	return &v
}
