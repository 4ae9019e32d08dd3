package model

import "github.com/shopspring/decimal"

// Catalog defaults for fields missing from an upload.
const (
	DefaultMinLimit = 10
	DefaultDiscount = "0%"
)

// MaxQuantity bounds stock, thresholds and order sizes so that restocking
// stays well inside SQLite's integer range.
const MaxQuantity = 1_000_000_000

// InventoryItem is one catalog row.
type InventoryItem struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	MRP      decimal.Decimal `json:"mrp"`
	SP       decimal.Decimal `json:"sp"`
	Discount string          `json:"discount"`
	Cost     decimal.Decimal `json:"cost"`
	Stock    int             `json:"stock"`
	MinLimit int             `json:"min_limit"`
}

// LowStock reports whether the item is below its reorder threshold.
func (i InventoryItem) LowStock() bool {
	return i.Stock < i.MinLimit
}

// Value is stock valued at cost.
func (i InventoryItem) Value() decimal.Decimal {
	return i.Cost.Mul(decimal.NewFromInt(int64(i.Stock)))
}

// Supplier links an item name to a supplier contact. Several suppliers may
// be listed for one item; the most recently added one wins on lookup.
type Supplier struct {
	ID       int64  `json:"id"`
	ItemName string `json:"item_name"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}
