package terminal

import (
	"pos_core/internal/catalog"
	"pos_core/internal/pricing"
)

// grid is the dispatcher's view of the loaded product list, plus the
// register's current customer type. Tab on the product grid flips between
// retail and wholesale pricing for subsequent adds.
type grid struct {
	products []catalog.Product
	tier     pricing.TierKind
}

func newGrid(products []catalog.Product) *grid {
	return &grid{products: products, tier: pricing.Retail}
}

func (g *grid) Count() int { return len(g.products) }

func (g *grid) Available(index int) bool {
	if index < 0 || index >= len(g.products) {
		return false
	}
	return g.products[index].Available()
}

func (g *grid) At(index int) (catalog.Product, bool) {
	if index < 0 || index >= len(g.products) {
		return catalog.Product{}, false
	}
	return g.products[index], true
}

func (g *grid) ToggleTier() pricing.TierKind {
	if g.tier == pricing.Retail {
		g.tier = pricing.Wholesale
	} else {
		g.tier = pricing.Retail
	}
	return g.tier
}

func (g *grid) Tier() pricing.TierKind { return g.tier }

// indexOfBarcode finds a scanned product in the loaded grid, so scans and
// grid adds share one availability gate.
func (g *grid) indexOfBarcode(barcode string) int {
	for i, p := range g.products {
		if p.Barcode == barcode {
			return i
		}
	}
	return -1
}
