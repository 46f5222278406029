package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pos_core/internal/pricing"
	"pos_core/internal/sales"

	"go.uber.org/zap"
)

var (
	ErrEmptyCart = errors.New("cart is empty")
	// ErrBusy is returned while a hold, resume, or complete call is in
	// flight. The cart is owned by a single checkout session, so this is
	// a reentrancy guard, not a lock.
	ErrBusy = errors.New("cart operation already in flight")
)

// Line is one product entry in the cart. Unit prices are frozen the moment
// the line is first added; later external discount edits never reprice a
// line mid-session.
type Line struct {
	ProductID       string
	Name            string
	Quantity        int
	UnitPriceFinal  float64
	UnitPriceBase   float64
	DiscountPerUnit float64
	DiscountType    pricing.DiscountType
	DiscountValue   float64
	Tier            pricing.TierKind
}

type EventKind string

const (
	EventLineAdded   EventKind = "line_added"
	EventLineChanged EventKind = "line_changed"
	EventLineRemoved EventKind = "line_removed"
	EventCleared     EventKind = "cleared"
	EventHeld        EventKind = "held"
	EventResumed     EventKind = "resumed"
	EventCompleted   EventKind = "completed"
)

// Event is a change notification emitted after a mutation has committed.
type Event struct {
	Kind      EventKind
	ProductID string
	TicketID  string
	Receipt   *sales.Receipt
	Total     float64
}

// Cart is the session's mutable line-item ledger. It is not safe for
// concurrent use; all mutations happen on the event-handling goroutine.
type Cart struct {
	api         sales.API
	taxRate     float64
	logger      *zap.Logger
	now         func() time.Time
	lines       []Line
	discount    float64
	heldTicket  string
	busy        bool
	subscribers []func(Event)
}

type Option func(*Cart)

// WithClock overrides the snapshot timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Cart) { c.now = now }
}

func New(api sales.API, taxRate float64, logger *zap.Logger, opts ...Option) *Cart {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Cart{
		api:     api,
		taxRate: taxRate,
		logger:  logger.Named("cart"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subscribe registers a change listener. Listeners are invoked synchronously,
// in registration order, after each mutation commits.
func (c *Cart) Subscribe(fn func(Event)) {
	if fn != nil {
		c.subscribers = append(c.subscribers, fn)
	}
}

func (c *Cart) emit(ev Event) {
	for _, fn := range c.subscribers {
		fn(ev)
	}
}

// AddItem inserts a line, or bumps quantity when a line with the same product
// id already exists. On a repeat add the recorded unit price stays unchanged.
// Quantities below one are treated as one.
func (c *Cart) AddItem(line Line, qty int) {
	if qty < 1 {
		qty = 1
	}

	for i := range c.lines {
		if c.lines[i].ProductID == line.ProductID {
			c.lines[i].Quantity += qty
			c.emit(Event{Kind: EventLineChanged, ProductID: line.ProductID})
			return
		}
	}

	line.Quantity = qty
	c.lines = append(c.lines, line)
	c.logger.Debug("line added", zap.String("product_id", line.ProductID), zap.Int("qty", qty))
	c.emit(Event{Kind: EventLineAdded, ProductID: line.ProductID})
}

// Inc bumps the quantity of the identified line by one. Unknown ids no-op.
func (c *Cart) Inc(productID string) {
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			c.lines[i].Quantity++
			c.emit(Event{Kind: EventLineChanged, ProductID: productID})
			return
		}
	}
}

// Dec lowers the quantity of the identified line by one, removing the line
// when it would reach zero. Unknown ids no-op.
func (c *Cart) Dec(productID string) {
	for i := range c.lines {
		if c.lines[i].ProductID != productID {
			continue
		}
		if c.lines[i].Quantity <= 1 {
			c.removeAt(i)
			return
		}
		c.lines[i].Quantity--
		c.emit(Event{Kind: EventLineChanged, ProductID: productID})
		return
	}
}

// Remove deletes the identified line regardless of quantity.
func (c *Cart) Remove(productID string) {
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			c.removeAt(i)
			return
		}
	}
}

func (c *Cart) removeAt(i int) {
	productID := c.lines[i].ProductID
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	c.emit(Event{Kind: EventLineRemoved, ProductID: productID})
}

// Clear empties the cart and resets the order-level discount. Idempotent.
func (c *Cart) Clear() {
	if len(c.lines) == 0 && c.discount == 0 && c.heldTicket == "" {
		return
	}
	c.lines = nil
	c.discount = 0
	c.heldTicket = ""
	c.emit(Event{Kind: EventCleared})
}

// SetDiscount applies a manual order-level reduction, clamped to
// [0, subtotal].
func (c *Cart) SetDiscount(amount float64) {
	if amount < 0 {
		amount = 0
	}
	if s := c.Subtotal(); amount > s {
		amount = s
	}
	c.discount = amount
	c.emit(Event{Kind: EventLineChanged})
}

func (c *Cart) Discount() float64 { return c.discount }

// HeldTicketID returns the id of the ticket this cart was resumed from, or
// the empty string.
func (c *Cart) HeldTicketID() string { return c.heldTicket }

func (c *Cart) Len() int { return len(c.lines) }

func (c *Cart) Empty() bool { return len(c.lines) == 0 }

// Lines returns a copy of the lines in display (insertion) order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// LineAt returns the line at the given display index.
func (c *Cart) LineAt(i int) (Line, bool) {
	if i < 0 || i >= len(c.lines) {
		return Line{}, false
	}
	return c.lines[i], true
}

// Subtotal is recomputed from the lines on every call so it can never drift
// from them.
func (c *Cart) Subtotal() float64 {
	var sum float64
	for _, line := range c.lines {
		sum += line.UnitPriceFinal * float64(line.Quantity)
	}
	return pricing.RoundCents(sum)
}

// Tax is charged on the subtotal after the order-level discount.
func (c *Cart) Tax() float64 {
	return pricing.TaxOn(c.discounted(), c.taxRate)
}

func (c *Cart) Total() float64 {
	return pricing.RoundCents(c.discounted() + c.Tax())
}

func (c *Cart) discounted() float64 {
	d := c.Subtotal() - c.discount
	if d < 0 {
		return 0
	}
	return d
}

// Snapshot captures the current cart state for the sales service.
func (c *Cart) Snapshot() sales.Snapshot {
	lines := make([]sales.SnapshotLine, 0, len(c.lines))
	for _, line := range c.lines {
		lines = append(lines, sales.SnapshotLine{
			ProductID:       line.ProductID,
			Name:            line.Name,
			Quantity:        line.Quantity,
			UnitPriceFinal:  line.UnitPriceFinal,
			UnitPriceBase:   line.UnitPriceBase,
			DiscountPerUnit: line.DiscountPerUnit,
			DiscountType:    line.DiscountType,
			DiscountValue:   line.DiscountValue,
			Tier:            line.Tier,
		})
	}
	return sales.Snapshot{
		Lines:      lines,
		Discount:   c.discount,
		Subtotal:   c.Subtotal(),
		Tax:        c.Tax(),
		Total:      c.Total(),
		CapturedAt: c.now(),
	}
}

// Hold suspends the cart as a ticket on the sales service, then clears it.
// When the remote call fails the cart is left exactly as it was.
func (c *Cart) Hold(ctx context.Context, note string) (sales.TicketRef, error) {
	if c.busy {
		return sales.TicketRef{}, ErrBusy
	}
	if len(c.lines) == 0 {
		return sales.TicketRef{}, ErrEmptyCart
	}

	c.busy = true
	defer func() { c.busy = false }()

	ref, err := c.api.Hold(ctx, c.Snapshot(), note)
	if err != nil {
		return sales.TicketRef{}, fmt.Errorf("holding cart: %w", err)
	}

	c.lines = nil
	c.discount = 0
	c.heldTicket = ""
	c.emit(Event{Kind: EventHeld, TicketID: ref.ID})
	return ref, nil
}

// Resume replaces the cart wholesale with a held ticket's snapshot. Any
// unsaved content is discarded; callers warn the operator first when the cart
// is non-empty.
func (c *Cart) Resume(ctx context.Context, ticketID string) error {
	if c.busy {
		return ErrBusy
	}

	c.busy = true
	defer func() { c.busy = false }()

	snapshot, err := c.api.Resume(ctx, ticketID)
	if err != nil {
		return fmt.Errorf("resuming ticket %s: %w", ticketID, err)
	}

	lines := make([]Line, 0, len(snapshot.Lines))
	for _, sl := range snapshot.Lines {
		lines = append(lines, Line{
			ProductID:       sl.ProductID,
			Name:            sl.Name,
			Quantity:        sl.Quantity,
			UnitPriceFinal:  sl.UnitPriceFinal,
			UnitPriceBase:   sl.UnitPriceBase,
			DiscountPerUnit: sl.DiscountPerUnit,
			DiscountType:    sl.DiscountType,
			DiscountValue:   sl.DiscountValue,
			Tier:            sl.Tier,
		})
	}
	c.lines = lines
	c.discount = snapshot.Discount
	c.heldTicket = ticketID
	c.emit(Event{Kind: EventResumed, TicketID: ticketID})
	return nil
}

// Complete posts the sale and clears the cart on success. Failure leaves the
// cart untouched so the operator can retry or fall back to another tender.
func (c *Cart) Complete(ctx context.Context, payment sales.Payment) (sales.Receipt, error) {
	if c.busy {
		return sales.Receipt{}, ErrBusy
	}
	if len(c.lines) == 0 {
		return sales.Receipt{}, ErrEmptyCart
	}

	c.busy = true
	defer func() { c.busy = false }()

	sale := sales.Sale{
		Snapshot:    c.Snapshot(),
		Payment:     payment,
		ResumedFrom: c.heldTicket,
	}
	receipt, err := c.api.Complete(ctx, sale)
	if err != nil {
		return sales.Receipt{}, fmt.Errorf("completing sale: %w", err)
	}

	total := sale.Snapshot.Total
	c.lines = nil
	c.discount = 0
	c.heldTicket = ""
	c.emit(Event{Kind: EventCompleted, Receipt: &receipt, Total: total})
	return receipt, nil
}
