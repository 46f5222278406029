package dispatch

import (
	"context"
	"testing"
	"time"

	"pos_core/internal/cart"
	"pos_core/internal/sales"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct{}

func (fakeAPI) Hold(context.Context, sales.Snapshot, string) (sales.TicketRef, error) {
	return sales.TicketRef{ID: "t"}, nil
}

func (fakeAPI) Resume(context.Context, string) (sales.Snapshot, error) {
	return sales.Snapshot{}, nil
}

func (fakeAPI) Complete(context.Context, sales.Sale) (sales.Receipt, error) {
	return sales.Receipt{ID: "r", CompletedAt: time.Now()}, nil
}

type fakeProducts struct {
	count      int
	outOfStock map[int]bool
}

func (f fakeProducts) Count() int { return f.count }

func (f fakeProducts) Available(i int) bool {
	if i < 0 || i >= f.count {
		return false
	}
	return !f.outOfStock[i]
}

// recorder captures hook invocations so tests can assert which single action
// a key press produced.
type recorder struct {
	pays, holds, resumes int
	notices              []Notice
	added                [][2]int
	toggles              int
	helps                int
	logouts              int
}

func (r *recorder) hooks() Hooks {
	return Hooks{
		OnPay:                func() { r.pays++ },
		OnHold:               func() { r.holds++ },
		OnResume:             func() { r.resumes++ },
		OnNotice:             func(n Notice) { r.notices = append(r.notices, n) },
		OnAddProduct:         func(index, qty int) { r.added = append(r.added, [2]int{index, qty}) },
		OnToggleCustomerType: func() { r.toggles++ },
		OnShowHelp:           func() { r.helps++ },
		OnLogout:             func() { r.logouts++ },
	}
}

func newFixture(t *testing.T, products fakeProducts) (*Dispatcher, *cart.Cart, *recorder) {
	t.Helper()
	c := cart.New(fakeAPI{}, 0.10, nil)
	rec := &recorder{}
	d := New(c, products, 3, rec.hooks(), nil)
	d.Attach()
	return d, c, rec
}

func key(name string) KeyEvent { return KeyEvent{Key: name} }

func addLine(c *cart.Cart, id string, qty int) {
	c.AddItem(cart.Line{ProductID: id, Name: id, UnitPriceFinal: 1, UnitPriceBase: 1}, qty)
}

func TestEscapeResetsSelection(t *testing.T) {
	d, _, _ := newFixture(t, fakeProducts{count: 6})
	d.Handle(key("ArrowRight"))
	require.Equal(t, 0, d.SelectedProduct())

	res := d.Handle(key("Escape"))
	assert.True(t, res.Consumed)
	assert.Equal(t, ActionBlur, res.Action)
	assert.Equal(t, -1, d.SelectedProduct())
	assert.Equal(t, -1, d.SelectedCartLine())
}

func TestEscapeNotConsumedWhileModalOpen(t *testing.T) {
	d, _, _ := newFixture(t, fakeProducts{count: 6})
	d.SetModalOpen(true)

	res := d.Handle(key("Escape"))
	assert.False(t, res.Consumed)
}

func TestFunctionKeysConsumedInsideTextInput(t *testing.T) {
	d, c, rec := newFixture(t, fakeProducts{count: 6})
	addLine(c, "p1", 1)

	res := d.Handle(KeyEvent{Key: "F9", InInput: true})
	assert.True(t, res.Consumed)
	assert.Equal(t, 1, rec.pays)
	assert.Equal(t, FocusPayment, d.FocusArea())
}

func TestPayWithEmptyCartRaisesNotice(t *testing.T) {
	d, _, rec := newFixture(t, fakeProducts{count: 6})

	res := d.Handle(key("F9"))
	assert.True(t, res.Consumed)
	assert.Equal(t, ActionNotice, res.Action)
	assert.Equal(t, 0, rec.pays)
	require.Len(t, rec.notices, 1)
	assert.Equal(t, NoticeEmptyCart, rec.notices[0].Code)
	assert.NotEqual(t, FocusPayment, d.FocusArea())
}

func TestHoldAndResumeKeys(t *testing.T) {
	d, _, rec := newFixture(t, fakeProducts{count: 1})
	d.Handle(key("F4"))
	d.Handle(key("F8"))
	assert.Equal(t, 1, rec.holds)
	assert.Equal(t, 1, rec.resumes)
}

func TestF2SelectsFirstCartLine(t *testing.T) {
	d, c, _ := newFixture(t, fakeProducts{count: 1})
	addLine(c, "p1", 1)

	d.Handle(key("F2"))
	assert.Equal(t, FocusCart, d.FocusArea())
	assert.Equal(t, 0, d.SelectedCartLine())
}

func TestChordClearCart(t *testing.T) {
	d, c, _ := newFixture(t, fakeProducts{count: 1})
	addLine(c, "p1", 3)

	res := d.Handle(KeyEvent{Key: "Delete", Ctrl: true, Shift: true})
	assert.True(t, res.Consumed)
	assert.Equal(t, ActionClearCart, res.Action)
	assert.Equal(t, 0, c.Len())
}

func TestChordLogout(t *testing.T) {
	d, _, rec := newFixture(t, fakeProducts{count: 1})

	res := d.Handle(KeyEvent{Key: "L", Ctrl: true, InInput: true})
	assert.True(t, res.Consumed)
	assert.Equal(t, 1, rec.logouts)
}

func TestUnknownChordNotConsumed(t *testing.T) {
	d, _, _ := newFixture(t, fakeProducts{count: 1})
	res := d.Handle(KeyEvent{Key: "z", Ctrl: true})
	assert.False(t, res.Consumed)
}

func TestHelpOnlyOutsideTextInput(t *testing.T) {
	d, _, rec := newFixture(t, fakeProducts{count: 1})

	assert.True(t, d.Handle(key("?")).Consumed)
	assert.Equal(t, 1, rec.helps)

	assert.False(t, d.Handle(KeyEvent{Key: "?", InInput: true}).Consumed)
	assert.Equal(t, 1, rec.helps)
}

func TestTextInputSwallowsNavigationKeys(t *testing.T) {
	d, _, _ := newFixture(t, fakeProducts{count: 6})

	res := d.Handle(KeyEvent{Key: "ArrowRight", InInput: true})
	assert.False(t, res.Consumed)
	assert.Equal(t, -1, d.SelectedProduct())
}

func TestModalSuppressesNavigationForAnyFocus(t *testing.T) {
	for _, focus := range []Focus{FocusProducts, FocusCart, FocusPayment} {
		d, c, rec := newFixture(t, fakeProducts{count: 6})
		addLine(c, "p1", 2)
		d.SetFocus(focus)
		d.SetModalOpen(true)

		for _, k := range []string{"ArrowRight", "ArrowDown", "Tab", "Enter", "5", "+", "-", "Delete"} {
			res := d.Handle(key(k))
			assert.False(t, res.Consumed, "focus %s key %s", focus, k)
		}

		assert.Equal(t, -1, d.SelectedProduct())
		assert.Empty(t, rec.added)
		line, _ := c.LineAt(0)
		assert.Equal(t, 2, line.Quantity)
	}
}

func TestTabTogglesCustomerTypeOnProductsOnly(t *testing.T) {
	d, _, rec := newFixture(t, fakeProducts{count: 1})

	assert.True(t, d.Handle(key("Tab")).Consumed)
	assert.Equal(t, 1, rec.toggles)

	d.SetFocus(FocusCart)
	assert.False(t, d.Handle(key("Tab")).Consumed)
	assert.Equal(t, 1, rec.toggles)
}

func TestGridNavigationRowMajor(t *testing.T) {
	// 8 products, 3 per row:  0 1 2 / 3 4 5 / 6 7
	d, _, _ := newFixture(t, fakeProducts{count: 8})

	d.Handle(key("ArrowRight"))
	assert.Equal(t, 0, d.SelectedProduct())
	d.Handle(key("ArrowDown"))
	assert.Equal(t, 3, d.SelectedProduct())
	d.Handle(key("ArrowRight"))
	assert.Equal(t, 4, d.SelectedProduct())
	d.Handle(key("ArrowDown"))
	assert.Equal(t, 7, d.SelectedProduct())
	d.Handle(key("ArrowDown")) // clamped at the last index
	assert.Equal(t, 7, d.SelectedProduct())
	d.Handle(key("ArrowUp"))
	assert.Equal(t, 4, d.SelectedProduct())
	d.Handle(key("Home"))
	assert.Equal(t, 0, d.SelectedProduct())
	d.Handle(key("ArrowLeft"))
	assert.Equal(t, 0, d.SelectedProduct())
	d.Handle(key("End"))
	assert.Equal(t, 7, d.SelectedProduct())
}

func TestEnterAddsSelectedProduct(t *testing.T) {
	d, _, rec := newFixture(t, fakeProducts{count: 3})
	d.Handle(key("Home"))

	res := d.Handle(key("Enter"))
	assert.True(t, res.Consumed)
	assert.Equal(t, ActionAddProduct, res.Action)
	require.Len(t, rec.added, 1)
	assert.Equal(t, [2]int{0, 1}, rec.added[0])
}

func TestDigitAddsExactQuantity(t *testing.T) {
	d, _, rec := newFixture(t, fakeProducts{count: 3})
	d.Handle(key("End"))

	d.Handle(key("5"))
	require.Len(t, rec.added, 1)
	assert.Equal(t, [2]int{2, 5}, rec.added[0])
}

func TestOutOfStockAddRaisesNotice(t *testing.T) {
	d, _, rec := newFixture(t, fakeProducts{count: 3, outOfStock: map[int]bool{1: true}})
	d.Handle(key("Home"))
	d.Handle(key("ArrowRight"))

	res := d.Handle(key("Enter"))
	assert.True(t, res.Consumed)
	assert.Equal(t, ActionNotice, res.Action)
	assert.Empty(t, rec.added)
	require.Len(t, rec.notices, 1)
	assert.Equal(t, NoticeOutOfStock, rec.notices[0].Code)
}

func TestEnterWithoutSelectionIsNoOp(t *testing.T) {
	d, _, rec := newFixture(t, fakeProducts{count: 3})

	res := d.Handle(key("Enter"))
	assert.True(t, res.Consumed)
	assert.Empty(t, rec.added)
	assert.Empty(t, rec.notices)
}

func TestCartIncrementDecrementRemove(t *testing.T) {
	d, c, _ := newFixture(t, fakeProducts{count: 1})
	addLine(c, "p1", 1)
	d.Handle(key("F2"))

	d.Handle(key("+"))
	line, _ := c.LineAt(0)
	assert.Equal(t, 2, line.Quantity)

	// Enter doubles as increment on the cart.
	d.Handle(key("Enter"))
	line, _ = c.LineAt(0)
	assert.Equal(t, 3, line.Quantity)

	d.Handle(key("-"))
	d.Handle(key("_"))
	line, _ = c.LineAt(0)
	assert.Equal(t, 1, line.Quantity)

	d.Handle(key("-"))
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, -1, d.SelectedCartLine())
}

func TestCartDeleteReclampsIndex(t *testing.T) {
	d, c, _ := newFixture(t, fakeProducts{count: 1})
	addLine(c, "p1", 1)
	addLine(c, "p2", 1)
	addLine(c, "p3", 1)
	d.Handle(key("F2"))
	d.Handle(key("End"))
	require.Equal(t, 2, d.SelectedCartLine())

	d.Handle(key("Delete")) // removes the last line
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, 1, d.SelectedCartLine())

	d.Handle(key("Delete"))
	d.Handle(key("Delete"))
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, -1, d.SelectedCartLine())
}

func TestCartNavigationClamped(t *testing.T) {
	d, c, _ := newFixture(t, fakeProducts{count: 1})
	addLine(c, "p1", 1)
	addLine(c, "p2", 1)
	d.SetFocus(FocusCart)

	d.Handle(key("ArrowDown"))
	assert.Equal(t, 0, d.SelectedCartLine())
	d.Handle(key("ArrowDown"))
	assert.Equal(t, 1, d.SelectedCartLine())
	d.Handle(key("ArrowDown"))
	assert.Equal(t, 1, d.SelectedCartLine())
	d.Handle(key("ArrowUp"))
	assert.Equal(t, 0, d.SelectedCartLine())
	d.Handle(key("ArrowUp"))
	assert.Equal(t, 0, d.SelectedCartLine())
}

func TestGridKeysIgnoredWhenCartFocused(t *testing.T) {
	d, c, rec := newFixture(t, fakeProducts{count: 3})
	addLine(c, "p1", 1)
	d.SetFocus(FocusCart)
	d.Handle(key("ArrowDown"))

	d.Handle(key("5"))
	assert.Empty(t, rec.added)
	assert.Equal(t, -1, d.SelectedProduct())
}

func TestCompletedSaleResetsFocus(t *testing.T) {
	d, c, _ := newFixture(t, fakeProducts{count: 3})
	addLine(c, "p1", 1)
	d.Handle(key("F2"))
	require.Equal(t, FocusCart, d.FocusArea())

	_, err := c.Complete(context.Background(), sales.Payment{Method: "cash", Paid: 5})
	require.NoError(t, err)

	assert.Equal(t, FocusProducts, d.FocusArea())
	assert.Equal(t, -1, d.SelectedCartLine())
}

func TestDetachedDispatcherIgnoresKeys(t *testing.T) {
	d, _, rec := newFixture(t, fakeProducts{count: 3})
	d.Detach()

	res := d.Handle(key("F9"))
	assert.False(t, res.Consumed)
	assert.Empty(t, rec.notices)
}

// Scenario: add a product from the grid, bump it from the cart, then
// decrement it out of existence.
func TestCheckoutKeySequence(t *testing.T) {
	products := fakeProducts{count: 5}
	c := cart.New(fakeAPI{}, 0.10, nil)
	rec := &recorder{}
	hooks := rec.hooks()
	hooks.OnAddProduct = func(index, qty int) {
		addLine(c, "P", qty)
	}
	d := New(c, products, 3, hooks, nil)
	d.Attach()

	d.Handle(key("Home"))
	d.Handle(key("Enter"))
	require.Equal(t, 1, c.Len())
	line, _ := c.LineAt(0)
	assert.Equal(t, 1, line.Quantity)

	d.Handle(key("F2"))
	d.Handle(key("+"))
	line, _ = c.LineAt(0)
	assert.Equal(t, 2, line.Quantity)

	d.Handle(key("-"))
	d.Handle(key("-"))
	assert.Equal(t, 0, c.Len())
}
