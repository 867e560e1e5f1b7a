package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/lumina_api/internal/cache"
	"github.com/GTDGit/lumina_api/internal/config"
	"github.com/GTDGit/lumina_api/internal/flashsale"
	"github.com/GTDGit/lumina_api/internal/models"
	"github.com/GTDGit/lumina_api/internal/utils"
)

// Publisher posts photos to the promotional channel.
type Publisher interface {
	SendPhoto(ctx context.Context, photoURL, caption string) (string, error)
}

// ChannelProductStore is the product persistence used by ChannelService.
type ChannelProductStore interface {
	GetByID(ctx context.Context, id int) (*models.Product, error)
	RandomUnposted(ctx context.Context) (*models.Product, error)
	Latest(ctx context.Context) (*models.Product, error)
	MarkPosted(ctx context.Context, id int, at time.Time) error
}

// ChannelPostStore logs post attempts.
type ChannelPostStore interface {
	Create(ctx context.Context, post *models.ChannelPost) error
	ListRecent(ctx context.Context, limit int) ([]models.ChannelPost, error)
}

// ChannelService publishes products to the promotional channel.
type ChannelService struct {
	products   ChannelProductStore
	posts      ChannelPostStore
	publisher  Publisher
	copywriter Copywriter
	catalog    *cache.CatalogCache
	baseURL    string
	shopHandle string
	website    string
	now        func() time.Time
}

// NewChannelService constructs a ChannelService.
func NewChannelService(
	products ChannelProductStore,
	posts ChannelPostStore,
	publisher Publisher,
	copywriter Copywriter,
	catalog *cache.CatalogCache,
	cfg *config.Config,
) *ChannelService {
	return &ChannelService{
		products:   products,
		posts:      posts,
		publisher:  publisher,
		copywriter: copywriter,
		catalog:    catalog,
		baseURL:    cfg.PublicBaseURL,
		shopHandle: cfg.Telegram.ShopHandle,
		website:    cfg.Telegram.Website,
		now:        time.Now,
	}
}

// PostProduct publishes one product. Every attempt is logged; a failed send
// is returned as an ExternalServiceError and leaves the product untouched.
func (s *ChannelService) PostProduct(ctx context.Context, id int) (*models.ChannelPost, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return s.post(ctx, p)
}

// PostNext publishes a random never-posted product, or the newest one when
// everything was posted. An empty catalog is a no-op returning nil.
func (s *ChannelService) PostNext(ctx context.Context) (*models.ChannelPost, error) {
	p, err := s.products.RandomUnposted(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		p, err = s.products.Latest(ctx)
	}
	if errors.Is(err, sql.ErrNoRows) {
		log.Info().Msg("No products to post")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.post(ctx, p)
}

// ListPosts returns the most recent post attempts.
func (s *ChannelService) ListPosts(ctx context.Context, limit int) ([]models.ChannelPost, error) {
	return s.posts.ListRecent(ctx, limit)
}

func (s *ChannelService) post(ctx context.Context, p *models.Product) (*models.ChannelPost, error) {
	now := s.now()

	content, err := s.generate(ctx, p, now)
	if err != nil {
		log.Warn().Err(err).Int("product_id", p.ID).Msg("Marketing generation failed, using template")
		content = FallbackMarketing(p, now)
	}

	caption := FormatCaption(p, content, now, s.shopHandle, s.website)
	productID := p.ID
	record := &models.ChannelPost{
		ProductID:         &productID,
		Caption:           caption,
		MarketingVariantA: nonEmpty(content.VariantA),
		MarketingVariantB: nonEmpty(content.VariantB),
	}

	messageID, sendErr := s.publisher.SendPhoto(ctx, s.absoluteURL(p.ImageURL), caption)
	if sendErr != nil {
		msg := sendErr.Error()
		record.Status = models.ChannelPostFailed
		record.Error = &msg
	} else {
		record.Status = models.ChannelPostSent
		record.MessageID = &messageID
	}

	if err := s.posts.Create(ctx, record); err != nil {
		log.Error().Err(err).Int("product_id", p.ID).Msg("Failed to log channel post")
	}

	if sendErr != nil {
		log.Error().Err(sendErr).Int("product_id", p.ID).Msg("Failed to post product to channel")
		return record, utils.NewExternalServiceError("telegram", sendErr)
	}

	if err := s.products.MarkPosted(ctx, p.ID, now); err != nil {
		log.Error().Err(err).Int("product_id", p.ID).Msg("Failed to mark product as posted")
	} else {
		s.catalog.Invalidate(ctx)
	}

	log.Info().Int("product_id", p.ID).Str("message_id", messageID).Msg("Product posted to channel")
	return record, nil
}

func (s *ChannelService) generate(ctx context.Context, p *models.Product, now time.Time) (*models.MarketingContent, error) {
	if s.copywriter == nil {
		return nil, errors.New("copywriter not configured")
	}
	return s.copywriter.Generate(ctx, p, now)
}

func (s *ChannelService) absoluteURL(u string) string {
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	return s.baseURL + "/" + strings.TrimPrefix(u, "/")
}

// FormatCaption renders the HTML caption of a channel post with prices as
// of now.
func FormatCaption(p *models.Product, content *models.MarketingContent, now time.Time, shopHandle, website string) string {
	esc := html.EscapeString
	var b strings.Builder

	b.WriteString(esc(content.Headline))
	b.WriteString("\n")
	if brand := p.BrandName(); brand != "" {
		fmt.Fprintf(&b, "\n🏷 Brand: %s", esc(brand))
	}
	if p.ShortDescription != nil && *p.ShortDescription != "" {
		fmt.Fprintf(&b, "\n\n%s", esc(*p.ShortDescription))
	}

	fmt.Fprintf(&b, "\n\n%s\n\n", esc(content.SalesText))

	if flashsale.IsEffectivelyActive(p, now) {
		fmt.Fprintf(&b, "💥 <s>$%d</s> <b>$%d</b> SALE -%d%%!",
			p.Price, flashsale.EffectivePrice(p, now), flashsale.DiscountPercent(p, now))
	} else {
		fmt.Fprintf(&b, "💰 <b>$%d</b>", p.Price)
	}
	if p.Stock != nil {
		if *p.Stock > 0 {
			fmt.Fprintf(&b, "\n📦 %d in stock", *p.Stock)
		} else {
			b.WriteString("\n⚠️ Sold out")
		}
	}

	if len(content.Offers) > 0 {
		b.WriteString("\n")
		for _, o := range content.Offers {
			fmt.Fprintf(&b, "\n✅ %s", esc(o))
		}
	}

	if content.CTA != "" || p.VideoURL != nil {
		b.WriteString("\n\n")
		b.WriteString(esc(content.CTA))
		if p.VideoURL != nil && *p.VideoURL != "" {
			fmt.Fprintf(&b, "\n\n🎬 <a href=\"%s\">Watch video</a>", esc(*p.VideoURL))
		}
	}

	if len(content.Hashtags) > 0 {
		fmt.Fprintf(&b, "\n\n%s", esc(strings.Join(content.Hashtags, " ")))
	}

	fmt.Fprintf(&b, "\n\n🛒 Order: %s\n🌐 Website: %s", esc(shopHandle), esc(website))
	return b.String()
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
