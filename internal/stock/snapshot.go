// Package stock polls the storefront catalog and publishes availability snapshots.
package stock

import (
	"time"

	"example.com/restock/internal/country"
	"example.com/restock/internal/storefront"
)

// Snapshot is one observation of a product's purchasable variants. Variants
// only ever holds entries with a positive quantity.
type Snapshot struct {
	Product    string               `json:"product"`
	ProductID  int64                `json:"productId"`
	Country    country.Code         `json:"country"`
	Variants   []storefront.Variant `json:"variants"`
	ObservedAt time.Time            `json:"observedAt"`
}

// FilterAvailable returns the variants with quantity > 0 in their original order.
func FilterAvailable(variants []storefront.Variant) []storefront.Variant {
	var out []storefront.Variant
	for _, v := range variants {
		if v.Quantity > 0 {
			out = append(out, v)
		}
	}
	return out
}
