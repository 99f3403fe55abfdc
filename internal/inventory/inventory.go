// Package inventory derives sellable stock and turns cart activity into
// stock deltas. Bundles never hold stock of their own; their availability
// and their stock movements are always expressed through their components.
package inventory

import (
	"fmt"
	"sort"

	"dhukaan/backend/internal/domain"
)

// EffectiveStock reports how many units of product can be sold right now.
// For a plain product that is its stored stock. For a bundle it is the
// minimum of floor(componentStock / perBundleQuantity) across components;
// a bundle with no components, or with a component missing from catalog,
// has zero effective stock.
func EffectiveStock(product domain.Product, catalog map[string]domain.Product) int {
	if !product.IsBundle {
		return product.Stock
	}
	if len(product.BundleItems) == 0 {
		return 0
	}
	effective := -1
	for _, item := range product.BundleItems {
		if item.Quantity <= 0 {
			return 0
		}
		component, ok := catalog[item.ComponentID]
		if !ok {
			return 0
		}
		buildable := component.Stock / item.Quantity
		if effective < 0 || buildable < effective {
			effective = buildable
		}
	}
	if effective < 0 {
		return 0
	}
	return effective
}

// SaleDeltas decomposes a cart into negative component-level stock deltas,
// merged per product. A bundle sale never touches the bundle row itself.
func SaleDeltas(items []domain.CartItem, catalog map[string]domain.Product, transactionID string) ([]domain.StockDelta, error) {
	needed := map[string]int{}
	notes := map[string]string{}
	for _, item := range items {
		product, ok := catalog[item.ProductID]
		if !ok {
			return nil, fmt.Errorf("unknown product %q", item.ProductID)
		}
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("product %q: quantity must be positive", item.ProductID)
		}
		if product.IsBundle {
			for _, component := range product.BundleItems {
				needed[component.ComponentID] += component.Quantity * item.Quantity
				notes[component.ComponentID] = "bundle " + product.ID
			}
			continue
		}
		needed[item.ProductID] += item.Quantity
	}
	deltas := make([]domain.StockDelta, 0, len(needed))
	for productID, quantity := range needed {
		deltas = append(deltas, domain.StockDelta{
			ProductID: productID,
			Delta:     -quantity,
			Type:      domain.InventoryEventSale,
			RelatedID: transactionID,
			Notes:     notes[productID],
		})
	}
	sortDeltas(deltas)
	return deltas, nil
}

// ReturnDeltas decomposes returned lines into positive component-level
// stock deltas, mirroring SaleDeltas.
func ReturnDeltas(lines []domain.ReturnLine, catalog map[string]domain.Product, returnID string) ([]domain.StockDelta, error) {
	restocked := map[string]int{}
	for _, line := range lines {
		product, ok := catalog[line.ProductID]
		if !ok {
			return nil, fmt.Errorf("unknown product %q", line.ProductID)
		}
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("product %q: quantity must be positive", line.ProductID)
		}
		if product.IsBundle {
			for _, component := range product.BundleItems {
				restocked[component.ComponentID] += component.Quantity * line.Quantity
			}
			continue
		}
		restocked[line.ProductID] += line.Quantity
	}
	deltas := make([]domain.StockDelta, 0, len(restocked))
	for productID, quantity := range restocked {
		deltas = append(deltas, domain.StockDelta{
			ProductID: productID,
			Delta:     quantity,
			Type:      domain.InventoryEventReturn,
			RelatedID: returnID,
		})
	}
	sortDeltas(deltas)
	return deltas, nil
}

// sortDeltas keeps delta batches in a stable order so stores that lock or
// update rows sequentially always do so in the same order.
func sortDeltas(deltas []domain.StockDelta) {
	sort.Slice(deltas, func(i, j int) bool {
		return deltas[i].ProductID < deltas[j].ProductID
	})
}
