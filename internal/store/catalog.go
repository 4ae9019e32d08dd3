package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/nabava/internal/model"
	"github.com/shopspring/decimal"
)

// Catalog is a complete replacement for the inventory, supplier and
// negotiation tables.
type Catalog struct {
	Items        []model.InventoryItem
	Suppliers    []model.Supplier
	Negotiations []model.Negotiation
}

// InventorySummary aggregates the whole inventory table.
type InventorySummary struct {
	Count      int             `json:"count"`
	TotalValue decimal.Decimal `json:"total_value"`
	LowStock   int             `json:"low_stock"`
}

const inventoryColumns = `id, name, mrp, sp, discount, cost, stock, min_limit`

// ReplaceCatalog atomically swaps the catalog and the negotiation ledger for
// the given rows. Nothing changes if any insert fails.
func ReplaceCatalog(ctx context.Context, db *sql.DB, c Catalog) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"negotiations", "suppliers", "inventory"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	for _, it := range c.Items {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO inventory (name, mrp, sp, discount, cost, stock, min_limit)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			it.Name, it.MRP, it.SP, it.Discount, it.Cost, it.Stock, it.MinLimit,
		)
		if err != nil {
			return fmt.Errorf("inserting item %q: %w", it.Name, err)
		}
	}

	for _, s := range c.Suppliers {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO suppliers (item_name, name, email) VALUES (?, ?, ?)`,
			s.ItemName, s.Name, s.Email,
		)
		if err != nil {
			return fmt.Errorf("inserting supplier for %q: %w", s.ItemName, err)
		}
	}

	for _, n := range c.Negotiations {
		if err := insertNegotiation(ctx, tx, n); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing catalog: %w", err)
	}
	return nil
}

// ListInventoryPage returns up to limit items ordered by id, skipping offset.
func ListInventoryPage(ctx context.Context, db *sql.DB, limit, offset int) ([]model.InventoryItem, error) {
	return queryInventory(ctx, db,
		`SELECT `+inventoryColumns+` FROM inventory ORDER BY id LIMIT ? OFFSET ?`,
		limit, offset,
	)
}

// ListLowStock returns every item whose stock is below its threshold.
func ListLowStock(ctx context.Context, db *sql.DB) ([]model.InventoryItem, error) {
	return queryInventory(ctx, db,
		`SELECT `+inventoryColumns+` FROM inventory WHERE stock < min_limit ORDER BY id`,
	)
}

// GetInventoryItemByName returns the first item with the given name.
func GetInventoryItemByName(ctx context.Context, db *sql.DB, name string) (*model.InventoryItem, error) {
	items, err := queryInventory(ctx, db,
		`SELECT `+inventoryColumns+` FROM inventory WHERE name = ? ORDER BY id LIMIT 1`, name,
	)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

// SummarizeInventory counts items, values stock at cost and counts low-stock rows.
func SummarizeInventory(ctx context.Context, db *sql.DB) (InventorySummary, error) {
	var s InventorySummary
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(cost * stock), 0),
		        COALESCE(SUM(CASE WHEN stock < min_limit THEN 1 ELSE 0 END), 0)
		 FROM inventory`,
	).Scan(&s.Count, &s.TotalValue, &s.LowStock)
	if err != nil {
		return s, fmt.Errorf("summarizing inventory: %w", err)
	}
	return s, nil
}

// ListSuppliers returns all supplier rows in upload order.
func ListSuppliers(ctx context.Context, db *sql.DB) ([]model.Supplier, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, item_name, name, email FROM suppliers ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing suppliers: %w", err)
	}
	defer rows.Close()

	var suppliers []model.Supplier
	for rows.Next() {
		var s model.Supplier
		if err := rows.Scan(&s.ID, &s.ItemName, &s.Name, &s.Email); err != nil {
			return nil, fmt.Errorf("scanning supplier: %w", err)
		}
		suppliers = append(suppliers, s)
	}
	return suppliers, rows.Err()
}

func queryInventory(ctx context.Context, db *sql.DB, query string, args ...any) ([]model.InventoryItem, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying inventory: %w", err)
	}
	defer rows.Close()

	var items []model.InventoryItem
	for rows.Next() {
		var it model.InventoryItem
		if err := rows.Scan(&it.ID, &it.Name, &it.MRP, &it.SP, &it.Discount, &it.Cost, &it.Stock, &it.MinLimit); err != nil {
			return nil, fmt.Errorf("scanning inventory item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
