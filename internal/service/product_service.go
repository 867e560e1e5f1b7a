package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/lumina_api/internal/cache"
	"github.com/GTDGit/lumina_api/internal/flashsale"
	"github.com/GTDGit/lumina_api/internal/models"
	"github.com/GTDGit/lumina_api/internal/search"
	"github.com/GTDGit/lumina_api/internal/utils"
)

const (
	defaultRelatedLimit = 4
	maxRelatedLimit     = 20
)

// ProductStore is the product persistence used by ProductService.
type ProductStore interface {
	List(ctx context.Context) ([]models.Product, error)
	GetByID(ctx context.Context, id int) (*models.Product, error)
	Related(ctx context.Context, p *models.Product, limit int) ([]models.Product, error)
	Create(ctx context.Context, p *models.Product) error
	Update(ctx context.Context, p *models.Product) error
	UpdateFlashSale(ctx context.Context, p *models.Product) error
	UpdateMarketingCopy(ctx context.Context, id int, text string) error
	Delete(ctx context.Context, id int) error
}

// CreateProductInput is an admin upload. Nil fields are filled from the
// image analysis; set fields always win.
type CreateProductInput struct {
	Image            *UploadedImage
	Title            *string
	Price            *int
	Description      *string
	ShortDescription *string
	Category         *string
	Brand            *string
	Stock            *int
	Tags             []string
}

// UpdateProductInput is a partial update. Nil fields are left unchanged.
type UpdateProductInput struct {
	Title            *string              `json:"title"`
	Price            *int                 `json:"price"`
	Description      *string              `json:"description"`
	ShortDescription *string              `json:"shortDescription"`
	FullDescription  *string              `json:"fullDescription"`
	ImageURL         *string              `json:"imageUrl"`
	Gallery          *[]string            `json:"gallery"`
	VideoURL         *string              `json:"videoUrl"`
	Category         *string              `json:"category"`
	Brand            *string              `json:"brand"`
	Stock            *int                 `json:"stock"`
	Tags             *[]string            `json:"tags"`
	Specs            *models.ProductSpecs `json:"specs"`
}

// FlashSaleInput starts a sale.
type FlashSaleInput struct {
	Price         int `json:"price"`
	DurationHours int `json:"durationHours"`
}

// ProductService handles the catalog.
type ProductService struct {
	products   ProductStore
	catalog    *cache.CatalogCache
	filter     *search.Filter
	images     ImageStore
	analyzer   ImageAnalyzer
	copywriter Copywriter
	now        func() time.Time
}

// NewProductService constructs a ProductService.
func NewProductService(
	products ProductStore,
	catalog *cache.CatalogCache,
	filter *search.Filter,
	images ImageStore,
	analyzer ImageAnalyzer,
	copywriter Copywriter,
) *ProductService {
	return &ProductService{
		products:   products,
		catalog:    catalog,
		filter:     filter,
		images:     images,
		analyzer:   analyzer,
		copywriter: copywriter,
		now:        time.Now,
	}
}

func (s *ProductService) all(ctx context.Context) ([]models.Product, error) {
	return s.catalog.Products(ctx, s.products.List)
}

// List returns every product newest first, priced as of now.
func (s *ProductService) List(ctx context.Context) ([]models.ProductView, error) {
	products, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	return flashsale.Views(products, s.now()), nil
}

// Get returns one product.
func (s *ProductService) Get(ctx context.Context, id int) (*models.ProductView, error) {
	p, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	view := flashsale.View(*p, s.now())
	return &view, nil
}

// Related returns products sharing the category or brand of id.
func (s *ProductService) Related(ctx context.Context, id, limit int) ([]models.ProductView, error) {
	if limit <= 0 {
		limit = defaultRelatedLimit
	}
	limit = min(limit, maxRelatedLimit)

	p, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	related, err := s.products.Related(ctx, p, limit)
	if err != nil {
		return nil, err
	}
	return flashsale.Views(related, s.now()), nil
}

// Search filters the catalog.
func (s *ProductService) Search(ctx context.Context, f search.Filters) ([]models.ProductView, error) {
	products, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	return flashsale.Views(s.filter.Search(products, f), s.now()), nil
}

// FlashSales returns the products whose sale applies now.
func (s *ProductService) FlashSales(ctx context.Context) ([]models.ProductView, error) {
	products, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	return flashsale.Views(flashsale.ActiveOnly(products, now), now), nil
}

// Create stores the uploaded image, enriches the product from it and saves it.
// A failed analysis falls back to placeholder values and never blocks creation.
func (s *ProductService) Create(ctx context.Context, in CreateProductInput) (*models.ProductView, error) {
	if in.Image == nil {
		return nil, utils.NewValidationError("image", "image is required")
	}
	if err := validateCreate(in); err != nil {
		return nil, err
	}

	imageURL, err := s.images.Save(ctx, in.Image)
	if err != nil {
		return nil, err
	}

	analysis := s.analyzer.Analyze(ctx, in.Image)
	if analysis.Fallback {
		log.Warn().Str("image_url", imageURL).Msg("Product created with fallback analysis")
	}

	p := &models.Product{
		Title:       pick(in.Title, analysis.Title),
		Price:       pickInt(in.Price, analysis.PriceValue()),
		Description: pick(in.Description, analysis.Description),
		Category:    pick(in.Category, analysis.Category),
		ImageURL:    imageURL,
		Brand:       trimmedOrNil(in.Brand),
		Stock:       in.Stock,
		AIAnalysis:  analysis.Record(),
		Specs:       models.ProductSpecs{},
	}
	if in.ShortDescription != nil {
		p.ShortDescription = trimmedOrNil(in.ShortDescription)
	} else if analysis.ShortDescription != "" {
		p.ShortDescription = &analysis.ShortDescription
	}
	if tags := cleanTagList(in.Tags); len(tags) > 0 {
		p.Tags = tags
	} else {
		p.Tags = cleanTagList(analysis.Keywords)
	}

	if err := s.products.Create(ctx, p); err != nil {
		return nil, err
	}
	s.catalog.Invalidate(ctx)

	log.Info().Int("product_id", p.ID).Str("title", p.Title).Bool("ai_fallback", analysis.Fallback).Msg("Product created")
	view := flashsale.View(*p, s.now())
	return &view, nil
}

// Update applies a partial edit.
func (s *ProductService) Update(ctx context.Context, id int, in UpdateProductInput) (*models.ProductView, error) {
	p, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	var errs utils.ValidationErrors
	if in.Title != nil {
		if strings.TrimSpace(*in.Title) == "" {
			errs.Add("title", "title must not be empty")
		}
		p.Title = strings.TrimSpace(*in.Title)
	}
	if in.Price != nil {
		if *in.Price <= 0 {
			errs.Add("price", "price must be greater than 0")
		} else if flashsale.IsEffectivelyActive(p, s.now()) && *in.Price <= *p.FlashSalePrice {
			errs.Add("price", "price must stay above the active flash sale price")
		}
		p.Price = *in.Price
	}
	if in.Category != nil {
		if strings.TrimSpace(*in.Category) == "" {
			errs.Add("category", "category must not be empty")
		}
		p.Category = strings.TrimSpace(*in.Category)
	}
	if in.Stock != nil {
		if *in.Stock < 0 {
			errs.Add("stock", "stock must not be negative")
		}
		p.Stock = in.Stock
	}
	if in.ImageURL != nil {
		if strings.TrimSpace(*in.ImageURL) == "" {
			errs.Add("imageUrl", "image URL must not be empty")
		}
		p.ImageURL = strings.TrimSpace(*in.ImageURL)
	}
	if err := errs.OrNil(); err != nil {
		return nil, err
	}

	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.ShortDescription != nil {
		p.ShortDescription = trimmedOrNil(in.ShortDescription)
	}
	if in.FullDescription != nil {
		p.FullDescription = trimmedOrNil(in.FullDescription)
	}
	if in.VideoURL != nil {
		p.VideoURL = trimmedOrNil(in.VideoURL)
	}
	if in.Brand != nil {
		p.Brand = trimmedOrNil(in.Brand)
	}
	if in.Gallery != nil {
		p.Gallery = *in.Gallery
	}
	if in.Tags != nil {
		p.Tags = cleanTagList(*in.Tags)
	}
	if in.Specs != nil {
		p.Specs = *in.Specs
	}

	if err := s.products.Update(ctx, p); err != nil {
		return nil, notFound(err)
	}
	s.catalog.Invalidate(ctx)

	view := flashsale.View(*p, s.now())
	return &view, nil
}

// Delete removes a product nothing references.
func (s *ProductService) Delete(ctx context.Context, id int) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return notFound(err)
	}
	s.catalog.Invalidate(ctx)
	log.Info().Int("product_id", id).Msg("Product deleted")
	return nil
}

// SetFlashSale starts a sale ending durationHours from now. Announcement text
// is generated best-effort; the sale starts without it on failure.
func (s *ProductService) SetFlashSale(ctx context.Context, id int, in FlashSaleInput) (*models.ProductView, error) {
	p, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := flashsale.ValidateSet(p.Price, in.Price, in.DurationHours); err != nil {
		return nil, err
	}

	var text *string
	if s.copywriter != nil {
		generated, err := s.copywriter.FlashSaleText(ctx, p, in.Price, in.DurationHours)
		if err != nil {
			log.Warn().Err(err).Int("product_id", id).Msg("Flash sale text generation failed")
		} else {
			text = &generated
		}
	}

	now := s.now()
	flashsale.Open(in.Price, in.DurationHours, text, now).Apply(p)
	if err := s.products.UpdateFlashSale(ctx, p); err != nil {
		return nil, notFound(err)
	}
	s.catalog.Invalidate(ctx)

	log.Info().Int("product_id", id).Int("price", in.Price).Time("ends_at", *p.FlashSaleEnds).Msg("Flash sale started")
	view := flashsale.View(*p, now)
	return &view, nil
}

// ClearFlashSale ends any sale on the product, whatever its state.
func (s *ProductService) ClearFlashSale(ctx context.Context, id int) (*models.ProductView, error) {
	p, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	flashsale.Clear().Apply(p)
	if err := s.products.UpdateFlashSale(ctx, p); err != nil {
		return nil, notFound(err)
	}
	s.catalog.Invalidate(ctx)

	view := flashsale.View(*p, s.now())
	return &view, nil
}

// RegenerateMarketing writes new promotional copy for the product.
func (s *ProductService) RegenerateMarketing(ctx context.Context, id int) (*models.MarketingContent, error) {
	p, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.copywriter == nil {
		return nil, utils.NewExternalServiceError("marketing", errors.New("copywriter not configured"))
	}

	content, err := s.copywriter.Generate(ctx, p, s.now())
	if err != nil {
		return nil, utils.NewExternalServiceError("marketing", err)
	}
	if err := s.products.UpdateMarketingCopy(ctx, id, PlainText(content)); err != nil {
		return nil, notFound(err)
	}
	s.catalog.Invalidate(ctx)
	return content, nil
}

func (s *ProductService) get(ctx context.Context, id int) (*models.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func validateCreate(in CreateProductInput) error {
	var errs utils.ValidationErrors
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		errs.Add("title", "title must not be empty")
	}
	if in.Price != nil && *in.Price <= 0 {
		errs.Add("price", "price must be greater than 0")
	}
	if in.Category != nil && strings.TrimSpace(*in.Category) == "" {
		errs.Add("category", "category must not be empty")
	}
	if in.Stock != nil && *in.Stock < 0 {
		errs.Add("stock", "stock must not be negative")
	}
	return errs.OrNil()
}

// notFound maps a missing row to utils.ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return utils.ErrNotFound
	}
	return err
}

func pick(override *string, fallback string) string {
	if override != nil {
		return strings.TrimSpace(*override)
	}
	return fallback
}

func pickInt(override *int, fallback int) int {
	if override != nil {
		return *override
	}
	return fallback
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func cleanTagList(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
