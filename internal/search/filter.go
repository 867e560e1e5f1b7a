package search

import (
	"strings"

	"github.com/GTDGit/lumina_api/internal/models"
)

// Filters describes a product search. Zero values mean "no constraint".
type Filters struct {
	Query    string   `form:"q" json:"query"`
	Category string   `form:"category" json:"category"`
	Brand    string   `form:"brand" json:"brand"`
	Tags     []string `form:"tags" json:"tags"`
	MinPrice *int     `form:"minPrice" json:"minPrice"`
	MaxPrice *int     `form:"maxPrice" json:"maxPrice"`
}

// IsEmpty reports whether the filters constrain nothing.
func (f Filters) IsEmpty() bool {
	return strings.TrimSpace(f.Query) == "" &&
		strings.TrimSpace(f.Category) == "" &&
		strings.TrimSpace(f.Brand) == "" &&
		len(cleanTags(f.Tags)) == 0 &&
		f.MinPrice == nil && f.MaxPrice == nil
}

// Filter applies Filters to an in-memory product collection.
type Filter struct {
	matcher *Matcher
}

// NewFilter creates a Filter using m for the free-text axis. A nil m uses
// DefaultMatcher.
func NewFilter(m *Matcher) *Filter {
	if m == nil {
		m = DefaultMatcher()
	}
	return &Filter{matcher: m}
}

// Search returns the products matching every axis of f, in input order.
// The tags axis matches when at least one tag is shared. Prices compare
// against the base price, bounds inclusive. The result is never nil.
func (s *Filter) Search(products []models.Product, f Filters) []models.Product {
	result := make([]models.Product, 0, len(products))

	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return result
	}

	query := strings.TrimSpace(f.Query)
	category := strings.TrimSpace(f.Category)
	brand := strings.TrimSpace(f.Brand)
	tags := cleanTags(f.Tags)

	for i := range products {
		p := &products[i]

		if category != "" && !strings.EqualFold(p.Category, category) {
			continue
		}
		if brand != "" && (p.Brand == nil || !strings.EqualFold(*p.Brand, brand)) {
			continue
		}
		if len(tags) > 0 && !sharesTag(p.Tags, tags) {
			continue
		}
		if f.MinPrice != nil && p.Price < *f.MinPrice {
			continue
		}
		if f.MaxPrice != nil && p.Price > *f.MaxPrice {
			continue
		}
		if query != "" && !s.matcher.Matches(query, SearchableText(p)) {
			continue
		}

		result = append(result, *p)
	}

	return result
}

// SearchableText joins the fields the free-text query is matched against.
func SearchableText(p *models.Product) string {
	parts := []string{p.Title, p.Description, p.Category}
	if p.Brand != nil {
		parts = append(parts, *p.Brand)
	}
	if p.ShortDescription != nil {
		parts = append(parts, *p.ShortDescription)
	}
	parts = append(parts, p.Tags...)

	var b strings.Builder
	for _, part := range parts {
		if part == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(part)
	}
	return b.String()
}

func sharesTag(have []string, want map[string]struct{}) bool {
	for _, t := range have {
		if _, ok := want[strings.ToLower(strings.TrimSpace(t))]; ok {
			return true
		}
	}
	return false
}

func cleanTags(tags []string) map[string]struct{} {
	out := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out[t] = struct{}{}
		}
	}
	return out
}
