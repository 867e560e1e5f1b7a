// Package flashsale derives the state of a product's time-boxed discount.
//
// Storage keeps only the admin-written flag, price and end time. Expiry is
// never written back: every read path derives the state for the moment it
// is asked about, so a stale stored flag is never honoured after endsAt.
package flashsale

import (
	"math"
	"time"

	"github.com/GTDGit/lumina_api/internal/models"
	"github.com/GTDGit/lumina_api/internal/utils"
)

// MaxDurationHours caps how long a single sale may run.
const MaxDurationHours = 24 * 30

// Window is the stored flash-sale portion of a product.
type Window struct {
	Active        bool
	Price         *int
	EndsAt        *time.Time
	MarketingText *string
}

// WindowOf extracts the stored window from p.
func WindowOf(p *models.Product) Window {
	return Window{
		Active:        p.IsFlashSale,
		Price:         p.FlashSalePrice,
		EndsAt:        p.FlashSaleEnds,
		MarketingText: p.FlashSaleMarketingText,
	}
}

// Apply writes w onto p.
func (w Window) Apply(p *models.Product) {
	p.IsFlashSale = w.Active
	p.FlashSalePrice = w.Price
	p.FlashSaleEnds = w.EndsAt
	p.FlashSaleMarketingText = w.MarketingText
}

// Open builds the window stored when an admin starts a sale at now.
func Open(discountPrice, durationHours int, marketingText *string, now time.Time) Window {
	price := discountPrice
	ends := now.Add(time.Duration(durationHours) * time.Hour)
	return Window{Active: true, Price: &price, EndsAt: &ends, MarketingText: marketingText}
}

// Clear returns the empty window. Clearing is unconditional.
func Clear() Window {
	return Window{}
}

// ValidateSet checks the preconditions for starting a sale.
func ValidateSet(basePrice, discountPrice, durationHours int) error {
	var errs utils.ValidationErrors
	switch {
	case discountPrice <= 0:
		errs.Add("price", "flash sale price must be greater than 0")
	case discountPrice >= basePrice:
		errs.Add("price", "flash sale price must be lower than the base price")
	}
	switch {
	case durationHours <= 0:
		errs.Add("durationHours", "duration must be at least 1 hour")
	case durationHours > MaxDurationHours:
		errs.Add("durationHours", "duration must not exceed 720 hours")
	}
	return errs.OrNil()
}

// StateOf derives the sale state of p at now.
func StateOf(p *models.Product, now time.Time) models.FlashSaleState {
	if !p.IsFlashSale || p.FlashSalePrice == nil || p.FlashSaleEnds == nil {
		return models.FlashSaleNone
	}
	// a window that no longer undercuts the base price is ignored
	if *p.FlashSalePrice >= p.Price {
		return models.FlashSaleNone
	}
	if !now.Before(*p.FlashSaleEnds) {
		return models.FlashSaleExpired
	}
	return models.FlashSaleActive
}

// IsEffectivelyActive reports whether the discount applies at now.
func IsEffectivelyActive(p *models.Product, now time.Time) bool {
	return StateOf(p, now) == models.FlashSaleActive
}

// EffectivePrice is the price to display and charge at now.
func EffectivePrice(p *models.Product, now time.Time) int {
	if IsEffectivelyActive(p, now) {
		return *p.FlashSalePrice
	}
	return p.Price
}

// DiscountPercent is the rounded discount shown next to an active sale.
func DiscountPercent(p *models.Product, now time.Time) int {
	if !IsEffectivelyActive(p, now) || p.Price <= 0 {
		return 0
	}
	off := float64(p.Price-*p.FlashSalePrice) / float64(p.Price) * 100
	return int(math.Round(off))
}

// View builds the client read model of p at now.
func View(p models.Product, now time.Time) models.ProductView {
	return models.ProductView{
		Product:         p,
		EffectivePrice:  EffectivePrice(&p, now),
		FlashSaleActive: IsEffectivelyActive(&p, now),
		FlashSaleState:  StateOf(&p, now),
		DiscountPercent: DiscountPercent(&p, now),
	}
}

// Views builds read models for a list, preserving order.
func Views(products []models.Product, now time.Time) []models.ProductView {
	out := make([]models.ProductView, 0, len(products))
	for _, p := range products {
		out = append(out, View(p, now))
	}
	return out
}

// ActiveOnly keeps the products whose sale applies at now.
func ActiveOnly(products []models.Product, now time.Time) []models.Product {
	out := make([]models.Product, 0)
	for i := range products {
		if IsEffectivelyActive(&products[i], now) {
			out = append(out, products[i])
		}
	}
	return out
}
