package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/lumina_api/internal/flashsale"
	"github.com/GTDGit/lumina_api/internal/models"
)

const copywriterPrompt = "You are a concise e-commerce copywriter. Reply with the requested text only, " +
	"no quotes, no markdown."

// TextCompleter is a chat model returning free text and JSON.
type TextCompleter interface {
	Completer
	Complete(ctx context.Context, system, prompt string, temperature float64) (string, error)
}

// Copywriter produces promotional text for products.
type Copywriter interface {
	Generate(ctx context.Context, p *models.Product, now time.Time) (*models.MarketingContent, error)
	FlashSaleText(ctx context.Context, p *models.Product, discountPrice, durationHours int) (string, error)
}

// MarketingService writes promotional copy with a language model.
type MarketingService struct {
	llm TextCompleter
}

// NewMarketingService constructs a MarketingService.
func NewMarketingService(llm TextCompleter) *MarketingService {
	return &MarketingService{llm: llm}
}

// Generate writes channel copy for p priced as of now.
func (s *MarketingService) Generate(ctx context.Context, p *models.Product, now time.Time) (*models.MarketingContent, error) {
	raw, err := s.llm.CompleteJSON(ctx, marketingPrompt(p, now), 0.8)
	if err != nil {
		return nil, err
	}

	var content models.MarketingContent
	if err := json.Unmarshal([]byte(raw), &content); err != nil {
		return nil, fmt.Errorf("decode marketing content: %w", err)
	}
	content.Headline = strings.TrimSpace(content.Headline)
	content.SalesText = strings.TrimSpace(content.SalesText)
	if content.Headline == "" || content.SalesText == "" {
		return nil, errors.New("marketing content missing headline or sales text")
	}
	content.Hashtags = normalizeHashtags(content.Hashtags)

	log.Debug().Int("product_id", p.ID).Str("headline", content.Headline).Msg("Marketing content generated")
	return &content, nil
}

// FlashSaleText writes a one-line announcement for a new sale on p.
func (s *MarketingService) FlashSaleText(ctx context.Context, p *models.Product, discountPrice, durationHours int) (string, error) {
	prompt := fmt.Sprintf(
		"Write one urgent sentence (max 25 words) announcing a flash sale: %q drops from $%d to $%d for the next %d hours.",
		p.Title, p.Price, discountPrice, durationHours,
	)
	text, err := s.llm.Complete(ctx, copywriterPrompt, prompt, 0.9)
	if err != nil {
		return "", err
	}
	text = strings.Trim(strings.TrimSpace(text), `"`)
	if text == "" {
		return "", errors.New("empty flash sale text")
	}
	return text, nil
}

// FallbackMarketing is the template used when no copy could be generated.
func FallbackMarketing(p *models.Product, now time.Time) *models.MarketingContent {
	hashtags := []string{"#Lumina"}
	if tag := hashtag(p.Category); tag != "" {
		hashtags = append(hashtags, tag)
	}
	return &models.MarketingContent{
		Headline:  "🔥 " + p.Title,
		SalesText: fmt.Sprintf("%s now for $%d.", p.Title, flashsale.EffectivePrice(p, now)),
		CTA:       "Order now!",
		Hashtags:  hashtags,
	}
}

// PlainText renders content as plain text for storage on the product.
func PlainText(content *models.MarketingContent) string {
	parts := []string{content.Headline, content.SalesText}
	if len(content.Offers) > 0 {
		parts = append(parts, "- "+strings.Join(content.Offers, "\n- "))
	}
	if content.CTA != "" {
		parts = append(parts, content.CTA)
	}
	if len(content.Hashtags) > 0 {
		parts = append(parts, strings.Join(content.Hashtags, " "))
	}
	return strings.Join(parts, "\n\n")
}

func marketingPrompt(p *models.Product, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a promotional post for this product.\n\nTitle: %s\nCategory: %s\nPrice: $%d\n",
		p.Title, p.Category, flashsale.EffectivePrice(p, now))
	if flashsale.IsEffectivelyActive(p, now) {
		fmt.Fprintf(&b, "On flash sale: was $%d, %d%% off\n", p.Price, flashsale.DiscountPercent(p, now))
	}
	if brand := p.BrandName(); brand != "" {
		fmt.Fprintf(&b, "Brand: %s\n", brand)
	}
	fmt.Fprintf(&b, "Description: %s\n", p.Description)
	b.WriteString(`
Return JSON with exactly these fields:
{
  "headline": "catchy headline with one emoji",
  "salesText": "2-3 persuasive sentences",
  "cta": "short call to action",
  "offers": ["2-3 short offer bullet points"],
  "hashtags": ["3-5 hashtags"],
  "variantA": "alternative one-paragraph pitch focusing on benefits",
  "variantB": "alternative one-paragraph pitch focusing on urgency"
}`)
	return b.String()
}

func normalizeHashtags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if tag := hashtag(t); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

func hashtag(s string) string {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	s = strings.Join(strings.Fields(s), "")
	if s == "" {
		return ""
	}
	return "#" + s
}
