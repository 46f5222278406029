package catalog

import (
	"time"

	"pos_core/internal/pricing"
)

// Product is the availability/pricing view the checkout core reads. Tier
// numbers and discount amounts are computed by the catalog service; the core
// only selects between them.
type Product struct {
	ID             string
	Name           string
	Barcode        string
	Retail         pricing.Tier
	Wholesale      pricing.Tier
	Discount       *pricing.Discount
	EffectiveStock Stock
}

type Stock struct {
	Current int
}

// Available reports whether the product can be added to a cart.
func (p Product) Available() bool {
	return p.EffectiveStock.Current > 0
}

func (p Product) TierFor(kind pricing.TierKind) pricing.Tier {
	if kind == pricing.Wholesale {
		return p.Wholesale
	}
	return p.Retail
}

type tierPayload struct {
	Configured        bool                 `json:"configured"`
	Base              float64              `json:"base"`
	Final             float64              `json:"final"`
	DiscountAmount    float64              `json:"discount_amount"`
	DiscountType      pricing.DiscountType `json:"discount_type,omitempty"`
	DiscountValue     float64              `json:"discount_value,omitempty"`
	HasActiveDiscount bool                 `json:"has_active_discount"`
}

func (t tierPayload) toTier() pricing.Tier {
	if !t.Configured {
		return pricing.UnconfiguredTier()
	}
	return pricing.Tier{
		Configured:        true,
		Base:              t.Base,
		Final:             t.Final,
		DiscountAmount:    t.DiscountAmount,
		DiscountType:      t.DiscountType,
		DiscountValue:     t.DiscountValue,
		HasActiveDiscount: t.HasActiveDiscount,
	}
}

type discountPayload struct {
	IsEnabled bool                 `json:"is_enabled"`
	Type      pricing.DiscountType `json:"type"`
	Value     float64              `json:"value"`
	StartAt   time.Time            `json:"start_at"`
	EndAt     time.Time            `json:"end_at"`
	Notes     string               `json:"notes,omitempty"`
}

type stockPayload struct {
	Current int `json:"current"`
}

type productPayload struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Barcode        string           `json:"barcode,omitempty"`
	Retail         tierPayload      `json:"retail"`
	Wholesale      tierPayload      `json:"wholesale"`
	Discount       *discountPayload `json:"discount,omitempty"`
	EffectiveStock stockPayload     `json:"effective_stock"`
}

func (p productPayload) toProduct() Product {
	product := Product{
		ID:             p.ID,
		Name:           p.Name,
		Barcode:        p.Barcode,
		Retail:         p.Retail.toTier(),
		Wholesale:      p.Wholesale.toTier(),
		EffectiveStock: Stock{Current: p.EffectiveStock.Current},
	}
	if p.Discount != nil {
		product.Discount = &pricing.Discount{
			Enabled: p.Discount.IsEnabled,
			Type:    p.Discount.Type,
			Value:   p.Discount.Value,
			StartAt: p.Discount.StartAt,
			EndAt:   p.Discount.EndAt,
			Notes:   p.Discount.Notes,
		}
	}
	return product
}

type paging struct {
	NextCursor string `json:"next_cursor"`
}

type listResponse[T any] struct {
	Items  []T    `json:"items"`
	Paging paging `json:"paging"`
}
