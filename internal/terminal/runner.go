package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"pos_core/internal/broadcast"
	"pos_core/internal/cart"
	"pos_core/internal/catalog"
	"pos_core/internal/config"
	"pos_core/internal/dispatch"
	"pos_core/internal/pricing"
	"pos_core/internal/sales"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// promptMode tracks which modal dialog, if any, currently owns the input
// line. While a dialog is open the dispatcher suppresses all navigation keys.
type promptMode int

const (
	promptNone promptMode = iota
	promptPayment
	promptResume
)

// Runner drives a checkout session from stdin. Each line is either a modal
// answer, a scanner read, a slash command, or whitespace-separated key tokens
// fed one by one into the dispatcher.
type Runner struct {
	cfg      config.Config
	logger   *zap.Logger
	cart     *cart.Cart
	catalog  *catalog.Client
	notifier broadcast.Notifier

	grid       *grid
	dispatcher *dispatch.Dispatcher
	sessionID  string
	mode       promptMode
	quit       bool
}

func NewRunner(cfg config.Config, logger *zap.Logger, c *cart.Cart, cat *catalog.Client, notifier broadcast.Notifier) *Runner {
	return &Runner{
		cfg:       cfg,
		logger:    logger.Named("terminal"),
		cart:      c,
		catalog:   cat,
		notifier:  notifier,
		sessionID: uuid.NewString(),
	}
}

func (r *Runner) Execute() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	products, err := r.catalog.List(ctx)
	if err != nil {
		return fmt.Errorf("loading products: %w", err)
	}
	r.grid = newGrid(products)
	r.logger.Info("session started",
		zap.String("session_id", r.sessionID),
		zap.Int("products", len(products)),
	)

	r.dispatcher = dispatch.New(r.cart, r.grid, r.cfg.ProductsPerRow, r.hooks(ctx), r.logger)
	r.dispatcher.Attach()
	defer r.dispatcher.Detach()

	r.cart.Subscribe(func(ev cart.Event) {
		if ev.Kind == cart.EventCompleted && ev.Receipt != nil {
			r.notifier.SaleCompleted(ctx, broadcast.SaleEvent{
				StoreID:     r.cfg.StoreID,
				RegisterID:  r.cfg.RegisterID,
				ReceiptID:   ev.Receipt.ID,
				Total:       ev.Total,
				CompletedAt: ev.Receipt.CompletedAt,
			})
		}
	})

	fmt.Fprintf(os.Stdout, "POS terminal: %d products loaded (type /help for keys, 'exit' to quit)\n", len(products))

	reader := bufio.NewScanner(os.Stdin)
	for !r.quit {
		fmt.Fprint(os.Stdout, "> ")
		if !reader.Scan() {
			return reader.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(reader.Text())
		if line == "" {
			continue
		}

		if r.mode != promptNone {
			r.handlePromptLine(ctx, line)
			continue
		}

		switch {
		case line == "exit" || line == "quit":
			return nil
		case line == "/help":
			r.printHelp()
			continue
		case strings.HasPrefix(line, "/find "):
			r.findProduct(strings.TrimSpace(strings.TrimPrefix(line, "/find ")))
			continue
		case strings.HasPrefix(line, "/scan "):
			r.scan(ctx, strings.TrimSpace(strings.TrimPrefix(line, "/scan ")))
		case looksLikeBarcode(line):
			r.scan(ctx, line)
		default:
			r.handleKeyTokens(line)
		}

		r.render()
	}
	return nil
}

func (r *Runner) handleKeyTokens(line string) {
	for _, token := range strings.Fields(line) {
		ev, ok := parseKeyEvent(token)
		if !ok {
			fmt.Fprintf(os.Stdout, "unknown key %q (try /help)\n", token)
			continue
		}
		result := r.dispatcher.Handle(ev)
		r.logger.Debug("key handled",
			zap.String("key", ev.Key),
			zap.Bool("consumed", result.Consumed),
			zap.String("action", string(result.Action)),
		)
	}
}

func (r *Runner) hooks(ctx context.Context) dispatch.Hooks {
	return dispatch.Hooks{
		OnPay:    func() { r.openPaymentPrompt() },
		OnHold:   func() { r.hold(ctx) },
		OnResume: func() { r.openResumePrompt() },
		OnNotice: func(n dispatch.Notice) {
			fmt.Fprintf(os.Stdout, "! %s\n", n.Message)
		},
		OnToggleCustomerType: func() {
			fmt.Fprintf(os.Stdout, "customer type: %s\n", r.grid.ToggleTier())
		},
		OnShowHelp: func() { r.printHelp() },
		OnLogout:   func() { r.quit = true },
		OnFocusSearch: func() {
			fmt.Fprintln(os.Stdout, "search: use /find <name>")
		},
		OnFocusCart:  func() {},
		OnBlur:       func() {},
		OnAddProduct: func(index, qty int) { r.addProduct(index, qty) },
		OnPrint: func() {
			fmt.Fprintln(os.Stdout, "printing is handled by the receipt station")
		},
		OnReturn:   r.unavailableFlow("returns"),
		OnExchange: r.unavailableFlow("exchanges"),
		OnDamage:   r.unavailableFlow("damage write-offs"),
	}
}

func (r *Runner) unavailableFlow(name string) func() {
	return func() {
		fmt.Fprintf(os.Stdout, "%s are handled at the back office\n", name)
	}
}

func (r *Runner) addProduct(index, qty int) {
	product, ok := r.grid.At(index)
	if !ok {
		return
	}
	quote, err := pricing.Resolve(product, r.grid.Tier())
	if err != nil {
		// A product the catalog served without a usable tier is an
		// upstream data bug, not an operator mistake.
		r.logger.Error("unpriceable product",
			zap.String("product_id", product.ID),
			zap.Error(err),
		)
		fmt.Fprintf(os.Stdout, "cannot price %s: %v\n", product.Name, err)
		return
	}

	tier := product.TierFor(quote.TierUsed)
	r.cart.AddItem(cart.Line{
		ProductID:       product.ID,
		Name:            product.Name,
		UnitPriceFinal:  quote.UnitPrice,
		UnitPriceBase:   quote.BasePrice,
		DiscountPerUnit: quote.DiscountPerUnit,
		DiscountType:    tier.DiscountType,
		DiscountValue:   tier.DiscountValue,
		Tier:            quote.TierUsed,
	}, qty)
}

func (r *Runner) scan(ctx context.Context, barcode string) {
	idx := r.grid.indexOfBarcode(barcode)
	if idx < 0 {
		product, err := r.catalog.FindByBarcode(ctx, barcode)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				fmt.Fprintf(os.Stdout, "! Unknown barcode %s\n", barcode)
				return
			}
			fmt.Fprintf(os.Stdout, "scan failed: %v\n", err)
			return
		}
		r.grid.products = append(r.grid.products, product)
		idx = len(r.grid.products) - 1
	}

	if !r.grid.Available(idx) {
		fmt.Fprintln(os.Stdout, "! Out of stock")
		return
	}
	r.addProduct(idx, 1)
}

func (r *Runner) findProduct(query string) {
	needle := strings.ToLower(query)
	for i, p := range r.grid.products {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			r.dispatcher.SetFocus(dispatch.FocusProducts)
			r.dispatcher.Handle(dispatch.KeyEvent{Key: "Home"})
			for j := 0; j < i; j++ {
				r.dispatcher.Handle(dispatch.KeyEvent{Key: "ArrowRight"})
			}
			fmt.Fprintf(os.Stdout, "selected #%d %s\n", i, p.Name)
			return
		}
	}
	fmt.Fprintf(os.Stdout, "no product matches %q\n", query)
}

func (r *Runner) hold(ctx context.Context) {
	ref, err := r.cart.Hold(ctx, "")
	if err != nil {
		if errors.Is(err, cart.ErrEmptyCart) {
			fmt.Fprintln(os.Stdout, "! Cart is empty")
			return
		}
		fmt.Fprintf(os.Stdout, "hold failed, cart kept: %v\n", err)
		return
	}
	fmt.Fprintf(os.Stdout, "held as ticket %s\n", ref.ID)
}

func (r *Runner) openPaymentPrompt() {
	r.mode = promptPayment
	r.dispatcher.SetModalOpen(true)
	fmt.Fprintf(os.Stdout, "total %.2f, amount tendered (or 'cancel'): ", r.cart.Total())
}

func (r *Runner) openResumePrompt() {
	r.mode = promptResume
	r.dispatcher.SetModalOpen(true)
	if !r.cart.Empty() {
		fmt.Fprintf(os.Stdout, "warning: %d unsaved line(s) will be discarded\n", r.cart.Len())
	}
	fmt.Fprint(os.Stdout, "ticket id (or 'cancel'): ")
}

func (r *Runner) closePrompt() {
	r.mode = promptNone
	r.dispatcher.SetModalOpen(false)
}

func (r *Runner) handlePromptLine(ctx context.Context, line string) {
	if strings.EqualFold(line, "cancel") {
		r.closePrompt()
		return
	}

	switch r.mode {
	case promptPayment:
		paid, err := strconv.ParseFloat(line, 64)
		if err != nil {
			fmt.Fprint(os.Stdout, "enter an amount (or 'cancel'): ")
			return
		}
		total := r.cart.Total()
		if paid < total {
			fmt.Fprintf(os.Stdout, "insufficient, total is %.2f: ", total)
			return
		}
		receipt, err := r.cart.Complete(ctx, sales.Payment{
			Method: "cash",
			Paid:   paid,
			Change: pricing.RoundCents(paid - total),
		})
		r.closePrompt()
		if err != nil {
			fmt.Fprintf(os.Stdout, "payment failed, cart kept: %v\n", err)
			return
		}
		fmt.Fprintf(os.Stdout, "sale %s complete, change %.2f\n", receipt.ID, pricing.RoundCents(paid-total))

	case promptResume:
		if err := r.cart.Resume(ctx, line); err != nil {
			r.closePrompt()
			fmt.Fprintf(os.Stdout, "resume failed: %v\n", err)
			return
		}
		r.closePrompt()
		fmt.Fprintf(os.Stdout, "ticket %s resumed\n", line)
		r.render()
	}
}

func (r *Runner) render() {
	lines := r.cart.Lines()
	if len(lines) == 0 {
		fmt.Fprintln(os.Stdout, "(cart empty)")
		return
	}
	selected := r.dispatcher.SelectedCartLine()
	for i, line := range lines {
		marker := "  "
		if i == selected {
			marker = "> "
		}
		fmt.Fprintf(os.Stdout, "%s%-24s x%-3d %8.2f", marker, line.Name, line.Quantity,
			line.UnitPriceFinal*float64(line.Quantity))
		if line.DiscountPerUnit > 0 {
			fmt.Fprintf(os.Stdout, "  (save %.2f/ea)", line.DiscountPerUnit)
		}
		fmt.Fprintln(os.Stdout)
	}
	if d := r.cart.Discount(); d > 0 {
		fmt.Fprintf(os.Stdout, "  discount       -%8.2f\n", d)
	}
	fmt.Fprintf(os.Stdout, "  subtotal %8.2f  tax %8.2f  total %8.2f\n",
		r.cart.Subtotal(), r.cart.Tax(), r.cart.Total())
}

func (r *Runner) printHelp() {
	fmt.Fprint(os.Stdout, `keys (space-separated tokens, e.g. "down down enter"):
  f1        focus product search     f2   focus cart
  f4        hold cart                f8   resume held ticket
  f9        pay                      tab  toggle retail/wholesale
  up/down/left/right/home/end        move selection
  enter     add product / +1 line    1-9  add product at that quantity
  + - del   change / remove the selected cart line
  esc       clear selection          ?    this help
  ctrl+l logout  ctrl+p print  ctrl+r return  ctrl+e exchange  ctrl+d damage
  ctrl+shift+del clear cart
commands: /find <name>, /scan <barcode>, bare barcode lines, exit
`)
}
