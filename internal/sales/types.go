package sales

import (
	"time"

	"pos_core/internal/pricing"
)

// SnapshotLine is one cart line captured at hold or checkout time. Prices are
// the frozen per-unit values recorded when the line entered the cart.
type SnapshotLine struct {
	ProductID       string               `json:"product_id"`
	Name            string               `json:"name"`
	Quantity        int                  `json:"quantity"`
	UnitPriceFinal  float64              `json:"unit_price_final"`
	UnitPriceBase   float64              `json:"unit_price_base"`
	DiscountPerUnit float64              `json:"discount_per_unit"`
	DiscountType    pricing.DiscountType `json:"discount_type,omitempty"`
	DiscountValue   float64              `json:"discount_value,omitempty"`
	Tier            pricing.TierKind     `json:"tier"`
}

// Snapshot is the full cart state shipped to the sales service, either as a
// held ticket or as the body of a completed sale.
type Snapshot struct {
	Lines      []SnapshotLine `json:"lines"`
	Discount   float64        `json:"discount"`
	Subtotal   float64        `json:"subtotal"`
	Tax        float64        `json:"tax"`
	Total      float64        `json:"total"`
	CapturedAt time.Time      `json:"captured_at"`
}

// TicketRef identifies a held ticket on the sales service.
type TicketRef struct {
	ID     string    `json:"id"`
	Note   string    `json:"note,omitempty"`
	HeldAt time.Time `json:"held_at"`
}

// Payment describes how a completed sale was settled.
type Payment struct {
	Method string  `json:"method"`
	Paid   float64 `json:"paid"`
	Change float64 `json:"change"`
}

// Sale is a completed checkout posted to the sales service.
type Sale struct {
	Snapshot Snapshot `json:"snapshot"`
	Payment  Payment  `json:"payment"`
	// ResumedFrom links the sale back to the held ticket it was resumed
	// from, when any.
	ResumedFrom string `json:"resumed_from,omitempty"`
}

// Receipt is the service's acknowledgement of a completed sale.
type Receipt struct {
	ID          string    `json:"id"`
	CompletedAt time.Time `json:"completed_at"`
}

type holdRequest struct {
	Snapshot Snapshot `json:"snapshot"`
	Note     string   `json:"note,omitempty"`
}

type resumeResponse struct {
	Snapshot Snapshot `json:"snapshot"`
}
