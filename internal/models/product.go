package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/lib/pq"
)

// ProductSpec is a single label/value row of a product's specification table.
type ProductSpec struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// ProductSpecs is stored as a jsonb array.
type ProductSpecs []ProductSpec

// Value implements driver.Valuer for database storage
func (s ProductSpecs) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner for database retrieval
func (s *ProductSpecs) Scan(value interface{}) error {
	if value == nil {
		*s = ProductSpecs{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan ProductSpecs")
	}
	return json.Unmarshal(bytes, s)
}

// AIAnalysis keeps the enrichment produced when the product photo was analyzed.
type AIAnalysis struct {
	Sentiment          string   `json:"sentiment"`
	Keywords           []string `json:"keywords"`
	Prediction         string   `json:"prediction"`
	SellingPoints      []string `json:"sellingPoints,omitempty"`
	UseCases           []string `json:"useCases,omitempty"`
	PriceJustification string   `json:"priceJustification,omitempty"`
	SEOTitle           string   `json:"seoTitle,omitempty"`
	SEODescription     string   `json:"seoDescription,omitempty"`
	// Labels are the raw vision labels the analysis was built from.
	Labels   []string `json:"labels,omitempty"`
	Fallback bool     `json:"fallback,omitempty"`
}

// Value implements driver.Valuer for database storage
func (a AIAnalysis) Value() (driver.Value, error) {
	return json.Marshal(a)
}

// Scan implements sql.Scanner for database retrieval
func (a *AIAnalysis) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan AIAnalysis")
	}
	return json.Unmarshal(bytes, a)
}

// Product represents one catalog item.
// Fields are tagged for both DB scanning and JSON serialization.
type Product struct {
	ID               int            `db:"id" json:"id"`
	Title            string         `db:"title" json:"title"`
	Price            int            `db:"price" json:"price"`
	Description      string         `db:"description" json:"description"`
	ShortDescription *string        `db:"short_description" json:"shortDescription"`
	FullDescription  *string        `db:"full_description" json:"fullDescription"`
	ImageURL         string         `db:"image_url" json:"imageUrl"`
	Gallery          pq.StringArray `db:"gallery" json:"gallery"`
	VideoURL         *string        `db:"video_url" json:"videoUrl"`
	Category         string         `db:"category" json:"category"`
	Brand            *string        `db:"brand" json:"brand"`
	Stock            *int           `db:"stock" json:"stock"`
	Tags             pq.StringArray `db:"tags" json:"tags"`
	Specs            ProductSpecs   `db:"specs" json:"specs"`
	AIAnalysis       *AIAnalysis    `db:"ai_analysis" json:"aiAnalysis,omitempty"`
	MarketingCopy    *string        `db:"marketing_copy" json:"marketingCopy,omitempty"`

	// Flash sale window. Stored as written by admin actions; expiry is derived
	// at read time and never written back.
	IsFlashSale            bool       `db:"is_flash_sale" json:"isFlashSale"`
	FlashSalePrice         *int       `db:"flash_sale_price" json:"flashSalePrice"`
	FlashSaleEnds          *time.Time `db:"flash_sale_ends" json:"flashSaleEnds"`
	FlashSaleMarketingText *string    `db:"flash_sale_marketing_text" json:"flashSaleMarketingText"`

	ChannelPostedAt *time.Time `db:"channel_posted_at" json:"channelPostedAt,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"createdAt"`
}

// BrandName returns the brand or an empty string.
func (p *Product) BrandName() string {
	if p.Brand == nil {
		return ""
	}
	return *p.Brand
}

// FlashSaleState is the derived status of a product's discount window.
type FlashSaleState string

const (
	FlashSaleNone    FlashSaleState = "none"
	FlashSaleActive  FlashSaleState = "active"
	FlashSaleExpired FlashSaleState = "expired"
)

// ProductView is the read model returned to clients: the stored product plus
// pricing derived for the moment of the request.
type ProductView struct {
	Product
	EffectivePrice  int            `json:"effectivePrice"`
	FlashSaleActive bool           `json:"flashSaleActive"`
	FlashSaleState  FlashSaleState `json:"flashSaleState"`
	DiscountPercent int            `json:"discountPercent"`
}
