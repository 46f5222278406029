package dispatch

import (
	"strings"

	"pos_core/internal/cart"

	"go.uber.org/zap"
)

// Focus identifies which logical zone owns keyboard routing.
type Focus string

const (
	FocusProducts Focus = "products"
	FocusCart     Focus = "cart"
	FocusPayment  Focus = "payment"
	FocusModal    Focus = "modal"
)

// Action reports what a handled key event did. Primarily for tests and logs.
type Action string

const (
	ActionNone        Action = ""
	ActionBlur        Action = "blur"
	ActionFocusSearch Action = "focus_search"
	ActionFocusCart   Action = "focus_cart"
	ActionHold        Action = "hold"
	ActionResume      Action = "resume"
	ActionPay         Action = "pay"
	ActionLogout      Action = "logout"
	ActionPrint       Action = "print"
	ActionReturn      Action = "return"
	ActionExchange    Action = "exchange"
	ActionDamage      Action = "damage"
	ActionClearCart   Action = "clear_cart"
	ActionHelp        Action = "help"
	ActionToggleTier  Action = "toggle_tier"
	ActionNavigate    Action = "navigate"
	ActionAddProduct  Action = "add_product"
	ActionIncrement   Action = "increment"
	ActionDecrement   Action = "decrement"
	ActionRemoveLine  Action = "remove_line"
	ActionNotice      Action = "notice"
)

// Result describes how a key event was classified.
type Result struct {
	Consumed bool
	Action   Action
}

func consumed(a Action) Result { return Result{Consumed: true, Action: a} }

var unconsumed = Result{}

// Notice is a non-fatal, advisory message for the operator. Notices never
// interrupt the session.
type Notice struct {
	Code    string
	Message string
}

const (
	NoticeOutOfStock = "out_of_stock"
	NoticeEmptyCart  = "empty_cart"
)

// ProductSource is the dispatcher's read-only view of the product grid.
type ProductSource interface {
	Count() int
	Available(index int) bool
}

// Hooks are the callbacks the owning UI supplies. Nil hooks are skipped.
type Hooks struct {
	OnPay                func()
	OnHold               func()
	OnResume             func()
	OnDamage             func()
	OnReturn             func()
	OnExchange           func()
	OnPrint              func()
	OnLogout             func()
	OnShowHelp           func()
	OnBlur               func()
	OnFocusSearch        func()
	OnFocusCart          func()
	OnToggleCustomerType func()
	OnNotice             func(Notice)
	OnAddProduct         func(index, qty int)
	OnSelectProduct      func(index int)
	OnSelectCartLine     func(index int)
}

// Dispatcher routes every key event to a global shortcut, a navigation move,
// or a cart mutation, based on the current focus area. Classification
// short-circuits top to bottom, so one key press triggers at most one action.
// Like the cart it serves, it is single-goroutine by contract.
type Dispatcher struct {
	cart           *cart.Cart
	products       ProductSource
	hooks          Hooks
	logger         *zap.Logger
	productsPerRow int

	attached        bool
	subscribed      bool
	focus           Focus
	modalOpen       bool
	selectedProduct int
	selectedCart    int
}

func New(c *cart.Cart, products ProductSource, productsPerRow int, hooks Hooks, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if productsPerRow < 1 {
		productsPerRow = 1
	}
	return &Dispatcher{
		cart:            c,
		products:        products,
		hooks:           hooks,
		logger:          logger.Named("dispatch"),
		productsPerRow:  productsPerRow,
		focus:           FocusProducts,
		selectedProduct: -1,
		selectedCart:    -1,
	}
}

// Attach starts routing. It also subscribes to cart changes so the cart
// selection index is re-clamped when lines disappear, and focus returns to
// the product grid when a sale completes or the session clears.
func (d *Dispatcher) Attach() {
	if d.attached {
		return
	}
	d.attached = true
	if !d.subscribed {
		d.cart.Subscribe(d.onCartEvent)
		d.subscribed = true
	}
	d.logger.Debug("dispatcher attached")
}

// Detach stops routing. Handle returns unconsumed results until the next
// Attach.
func (d *Dispatcher) Detach() {
	d.attached = false
	d.logger.Debug("dispatcher detached")
}

func (d *Dispatcher) onCartEvent(ev cart.Event) {
	if !d.attached {
		return
	}
	switch ev.Kind {
	case cart.EventLineRemoved, cart.EventResumed:
		d.clampCartSelection()
	case cart.EventCleared, cart.EventCompleted, cart.EventHeld:
		d.selectCartLine(-1)
		d.selectProduct(-1)
		d.setFocus(FocusProducts)
	}
}

func (d *Dispatcher) FocusArea() Focus { return d.focus }

func (d *Dispatcher) SetFocus(f Focus) { d.setFocus(f) }

func (d *Dispatcher) setFocus(f Focus) {
	d.focus = f
}

func (d *Dispatcher) ModalOpen() bool { return d.modalOpen }

// SetModalOpen is called by the UI whenever a dialog opens or closes. While
// open, all navigation and quantity shortcuts are suppressed; the modal owns
// its own keys.
func (d *Dispatcher) SetModalOpen(open bool) {
	d.modalOpen = open
}

func (d *Dispatcher) SelectedProduct() int { return d.selectedProduct }

func (d *Dispatcher) SelectedCartLine() int { return d.selectedCart }

func (d *Dispatcher) selectProduct(i int) {
	d.selectedProduct = i
	if d.hooks.OnSelectProduct != nil {
		d.hooks.OnSelectProduct(i)
	}
}

func (d *Dispatcher) selectCartLine(i int) {
	d.selectedCart = i
	if d.hooks.OnSelectCartLine != nil {
		d.hooks.OnSelectCartLine(i)
	}
}

func (d *Dispatcher) clampCartSelection() {
	last := d.cart.Len() - 1
	if d.selectedCart > last {
		d.selectCartLine(last)
	}
}

func (d *Dispatcher) notify(code, message string) Result {
	if d.hooks.OnNotice != nil {
		d.hooks.OnNotice(Notice{Code: code, Message: message})
	}
	return consumed(ActionNotice)
}

func call(fn func()) {
	if fn != nil {
		fn()
	}
}

// Handle classifies one key event. Rules are ordered; each returns as soon as
// it consumes the event, so later rules only see what earlier ones passed on.
func (d *Dispatcher) Handle(ev KeyEvent) Result {
	if !d.attached {
		return unconsumed
	}

	// 1. Escape. A modal owns its own Escape; otherwise blur and drop both
	// selection indices.
	if ev.Key == "Escape" {
		if d.modalOpen {
			return unconsumed
		}
		d.selectProduct(-1)
		d.selectCartLine(-1)
		call(d.hooks.OnBlur)
		return consumed(ActionBlur)
	}

	// 2. Global function keys. Consumed even while a text input has focus;
	// cashiers routinely leave the cursor in the search box.
	if res, ok := d.handleFunctionKey(ev); ok {
		return res
	}

	// 3. Ctrl/Cmd chords.
	if ev.modified() {
		if res, ok := d.handleChord(ev); ok {
			return res
		}
		return unconsumed
	}

	// 4. Help, only outside text inputs.
	if ev.Key == "?" && !ev.InInput {
		call(d.hooks.OnShowHelp)
		return consumed(ActionHelp)
	}

	// 5. Preserve native text editing for everything else while an input
	// has focus.
	if ev.InInput {
		return unconsumed
	}

	// 6. A modal suppresses all navigation and quantity shortcuts; the
	// modal implements its own.
	if d.modalOpen {
		return unconsumed
	}

	// 7. Tab on the product grid toggles the customer type instead of
	// moving native focus.
	if ev.Key == "Tab" && d.focus == FocusProducts {
		call(d.hooks.OnToggleCustomerType)
		return consumed(ActionToggleTier)
	}

	// 8. Product grid navigation.
	if d.focus == FocusProducts && d.products.Count() > 0 {
		if res, ok := d.handleGridKey(ev); ok {
			return res
		}
	}

	// 9. Cart navigation.
	if d.focus == FocusCart && d.cart.Len() > 0 {
		if res, ok := d.handleCartKey(ev); ok {
			return res
		}
	}

	return unconsumed
}

func (d *Dispatcher) handleFunctionKey(ev KeyEvent) (Result, bool) {
	switch ev.Key {
	case "F1":
		d.setFocus(FocusProducts)
		call(d.hooks.OnFocusSearch)
		return consumed(ActionFocusSearch), true
	case "F2":
		d.setFocus(FocusCart)
		if d.selectedCart < 0 && d.cart.Len() > 0 {
			d.selectCartLine(0)
		}
		call(d.hooks.OnFocusCart)
		return consumed(ActionFocusCart), true
	case "F4":
		call(d.hooks.OnHold)
		return consumed(ActionHold), true
	case "F8":
		call(d.hooks.OnResume)
		return consumed(ActionResume), true
	case "F9":
		if d.cart.Empty() {
			return d.notify(NoticeEmptyCart, "Cart is empty"), true
		}
		d.setFocus(FocusPayment)
		call(d.hooks.OnPay)
		return consumed(ActionPay), true
	}
	return unconsumed, false
}

func (d *Dispatcher) handleChord(ev KeyEvent) (Result, bool) {
	if ev.Shift && (ev.Key == "Delete" || ev.Key == "Backspace") {
		d.cart.Clear()
		return consumed(ActionClearCart), true
	}

	switch strings.ToLower(ev.Key) {
	case "l":
		call(d.hooks.OnLogout)
		return consumed(ActionLogout), true
	case "f":
		d.setFocus(FocusProducts)
		call(d.hooks.OnFocusSearch)
		return consumed(ActionFocusSearch), true
	case "p":
		call(d.hooks.OnPrint)
		return consumed(ActionPrint), true
	case "r":
		call(d.hooks.OnReturn)
		return consumed(ActionReturn), true
	case "e":
		call(d.hooks.OnExchange)
		return consumed(ActionExchange), true
	case "d":
		call(d.hooks.OnDamage)
		return consumed(ActionDamage), true
	}
	return unconsumed, false
}

// handleGridKey moves a 2-D selection through a row-major grid and adds the
// indexed product to the cart on Enter or a digit key.
func (d *Dispatcher) handleGridKey(ev KeyEvent) (Result, bool) {
	count := d.products.Count()
	last := count - 1

	move := func(next int) (Result, bool) {
		d.selectProduct(clamp(next, 0, last))
		return consumed(ActionNavigate), true
	}

	switch ev.Key {
	case "ArrowRight":
		return move(d.selectedProduct + 1)
	case "ArrowLeft":
		return move(d.selectedProduct - 1)
	case "ArrowDown":
		if d.selectedProduct < 0 {
			return move(0)
		}
		return move(d.selectedProduct + d.productsPerRow)
	case "ArrowUp":
		if d.selectedProduct < 0 {
			return move(0)
		}
		return move(d.selectedProduct - d.productsPerRow)
	case "Home":
		return move(0)
	case "End":
		return move(last)
	case "Enter":
		return d.addSelectedProduct(1), true
	}

	if qty := digitQuantity(ev.Key); qty > 0 {
		return d.addSelectedProduct(qty), true
	}

	return unconsumed, false
}

func (d *Dispatcher) addSelectedProduct(qty int) Result {
	idx := d.selectedProduct
	if idx < 0 || idx >= d.products.Count() {
		return consumed(ActionNone)
	}
	if !d.products.Available(idx) {
		return d.notify(NoticeOutOfStock, "Out of stock")
	}
	if d.hooks.OnAddProduct != nil {
		d.hooks.OnAddProduct(idx, qty)
	}
	return consumed(ActionAddProduct)
}

// handleCartKey moves a 1-D selection through the cart and mutates the
// indexed line. Enter doubles as increment, same as "+".
func (d *Dispatcher) handleCartKey(ev KeyEvent) (Result, bool) {
	last := d.cart.Len() - 1

	switch ev.Key {
	case "ArrowDown":
		d.selectCartLine(clamp(d.selectedCart+1, 0, last))
		return consumed(ActionNavigate), true
	case "ArrowUp":
		if d.selectedCart < 0 {
			d.selectCartLine(0)
		} else {
			d.selectCartLine(clamp(d.selectedCart-1, 0, last))
		}
		return consumed(ActionNavigate), true
	case "Home":
		d.selectCartLine(0)
		return consumed(ActionNavigate), true
	case "End":
		d.selectCartLine(last)
		return consumed(ActionNavigate), true
	case "+", "=", "Enter":
		if line, ok := d.cart.LineAt(d.selectedCart); ok {
			d.cart.Inc(line.ProductID)
		}
		return consumed(ActionIncrement), true
	case "-", "_":
		if line, ok := d.cart.LineAt(d.selectedCart); ok {
			d.cart.Dec(line.ProductID)
		}
		return consumed(ActionDecrement), true
	case "Delete", "Backspace":
		if line, ok := d.cart.LineAt(d.selectedCart); ok {
			d.cart.Remove(line.ProductID)
		}
		return consumed(ActionRemoveLine), true
	}

	return unconsumed, false
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
