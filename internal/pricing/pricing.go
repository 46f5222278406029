package pricing

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrNoConfiguredTier = errors.New("product has no configured price tier")
	ErrMalformedTier    = errors.New("configured tier has no base price")
)

// TierKind selects which customer-class price list applies.
type TierKind string

const (
	Retail    TierKind = "retail"
	Wholesale TierKind = "wholesale"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Tier is one price list entry for a product. Configured gates every numeric
// field: an unconfigured tier carries no usable price and must never be
// selected as active.
type Tier struct {
	Configured        bool
	Base              float64
	Final             float64
	DiscountAmount    float64
	DiscountType      DiscountType
	DiscountValue     float64
	HasActiveDiscount bool
}

func UnconfiguredTier() Tier {
	return Tier{}
}

func ConfiguredTier(base, final, discountAmount float64) Tier {
	return Tier{
		Configured:     true,
		Base:           base,
		Final:          final,
		DiscountAmount: discountAmount,
	}
}

// Usable reports whether the tier can be selected as the active price list.
func (t Tier) Usable() bool {
	return t.Configured && t.Base > 0
}

// Discount is a time-windowed price reduction attached to a product. The
// per-tier Final/DiscountAmount numbers are computed upstream; this type only
// carries the window and the knobs needed to derive its lifecycle status.
type Discount struct {
	Enabled bool
	Type    DiscountType
	Value   float64
	StartAt time.Time
	EndAt   time.Time
	Notes   string
}

// Status is the derived lifecycle state of a discount. It is never stored.
type Status string

const (
	StatusNone      Status = "none"
	StatusDisabled  Status = "disabled"
	StatusScheduled Status = "scheduled"
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
)

// StatusAt derives the discount status for the given instant. A nil discount
// is StatusNone; a disabled one is StatusDisabled regardless of the window.
func (d *Discount) StatusAt(now time.Time) Status {
	if d == nil {
		return StatusNone
	}
	if !d.Enabled {
		return StatusDisabled
	}
	if now.Before(d.StartAt) {
		return StatusScheduled
	}
	if now.After(d.EndAt) {
		return StatusExpired
	}
	return StatusActive
}

// MaxPercentage is the validation ceiling for percentage discounts.
const MaxPercentage = 90

// Validate checks the discount knobs against a tier base price. Percentage
// discounts are capped at MaxPercentage; fixed discounts may not exceed the
// base price, so a final price can never go negative.
func (d *Discount) Validate(base float64) error {
	if d == nil {
		return nil
	}
	switch d.Type {
	case DiscountPercentage:
		if d.Value < 0 || d.Value > MaxPercentage {
			return fmt.Errorf("percentage discount must be within [0, %d], got %v", MaxPercentage, d.Value)
		}
	case DiscountFixed:
		if d.Value < 0 || d.Value > base {
			return fmt.Errorf("fixed discount must be within [0, %v], got %v", base, d.Value)
		}
	default:
		return fmt.Errorf("unknown discount type %q", d.Type)
	}
	if d.EndAt.Before(d.StartAt) {
		return errors.New("discount window ends before it starts")
	}
	return nil
}

// Priced is the minimal product view the resolver needs.
type Priced interface {
	TierFor(kind TierKind) Tier
}

// Quote is the authoritative per-unit price for one product at one instant.
type Quote struct {
	UnitPrice       float64
	BasePrice       float64
	DiscountPerUnit float64
	TierUsed        TierKind
}

// Resolve picks the active tier for a product and surfaces its precomputed
// numbers. Wholesale is honored only when that tier is usable; otherwise the
// resolution falls back to retail, then to whichever tier is configured at
// all. The resolver does not recompute discount arithmetic, it only clamps
// the final price at zero.
func Resolve(p Priced, prefer TierKind) (Quote, error) {
	kind := Retail
	if prefer == Wholesale && p.TierFor(Wholesale).Usable() {
		kind = Wholesale
	}

	tier := p.TierFor(kind)
	if !tier.Usable() {
		if other := otherKind(kind); p.TierFor(other).Usable() {
			kind = other
			tier = p.TierFor(other)
		} else if tier.Configured {
			return Quote{}, fmt.Errorf("%w: %s tier", ErrMalformedTier, kind)
		} else {
			return Quote{}, ErrNoConfiguredTier
		}
	}

	final := math.Max(0, tier.Base-tier.DiscountAmount)

	return Quote{
		UnitPrice:       final,
		BasePrice:       tier.Base,
		DiscountPerUnit: tier.Base - final,
		TierUsed:        kind,
	}, nil
}

func otherKind(kind TierKind) TierKind {
	if kind == Retail {
		return Wholesale
	}
	return Retail
}

// RoundCents rounds a money amount to two decimal places.
func RoundCents(amount float64) float64 {
	return math.Round(amount*100) / 100
}

// TaxOn computes tax on an amount at the given rate, rounded to cents.
func TaxOn(amount, rate float64) float64 {
	return RoundCents(amount * rate)
}
