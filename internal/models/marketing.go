package models

// MarketingContent is promotional copy generated for one product.
type MarketingContent struct {
	Headline  string   `json:"headline"`
	SalesText string   `json:"salesText"`
	CTA       string   `json:"cta"`
	Offers    []string `json:"offers"`
	Hashtags  []string `json:"hashtags"`
	// Two alternative one-paragraph pitches kept for A/B comparison.
	VariantA string `json:"variantA"`
	VariantB string `json:"variantB"`
}
