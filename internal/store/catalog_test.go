package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/erazemk/nabava/internal/db"
	"github.com/erazemk/nabava/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(name string, cost int64, stock, minLimit int) model.InventoryItem {
	return model.InventoryItem{
		Name:     name,
		Cost:     decimal.NewFromInt(cost),
		MRP:      decimal.NewFromInt(cost * 2),
		SP:       decimal.NewFromInt(cost + 5),
		Discount: model.DefaultDiscount,
		Stock:    stock,
		MinLimit: minLimit,
	}
}

func seedCatalog(t *testing.T, database *sql.DB) {
	t.Helper()
	err := ReplaceCatalog(context.Background(), database, Catalog{
		Items: []model.InventoryItem{
			item("Bolts", 10, 5, 20),
			item("Nuts", 2, 100, 10),
			item("Washers", 1, 3, 10),
		},
		Suppliers: []model.Supplier{
			{ItemName: "Bolts", Name: "Acme", Email: "acme@example.com"},
		},
		Negotiations: []model.Negotiation{
			{ItemName: "Bolts", SupplierName: "Acme", SupplierEmail: "acme@example.com",
				Draft: "please send", InvoiceAmount: decimal.NewFromInt(5000)},
		},
	})
	require.NoError(t, err)
}

func TestReplaceCatalogReplacesEverything(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	seedCatalog(t, database)

	err := ReplaceCatalog(ctx, database, Catalog{
		Items: []model.InventoryItem{item("Screws", 3, 50, 10)},
	})
	require.NoError(t, err)

	items, err := ListInventoryPage(ctx, database, 10, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Screws", items[0].Name)

	suppliers, err := ListSuppliers(ctx, database)
	require.NoError(t, err)
	assert.Empty(t, suppliers)

	negs, err := ListNegotiations(ctx, database, "")
	require.NoError(t, err)
	assert.Empty(t, negs)
}

func TestReplaceCatalogRollsBackOnFailure(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	seedCatalog(t, database)

	// Negative stock violates the CHECK constraint on the second row.
	err := ReplaceCatalog(ctx, database, Catalog{
		Items: []model.InventoryItem{item("Screws", 3, 50, 10), item("Broken", 1, -1, 10)},
	})
	require.Error(t, err)

	items, err := ListInventoryPage(ctx, database, 10, 0)
	require.NoError(t, err)
	assert.Len(t, items, 3)

	negs, err := ListNegotiations(ctx, database, "")
	require.NoError(t, err)
	assert.Len(t, negs, 1)
}

func TestInventoryPagingAndSummary(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	seedCatalog(t, database)

	page, err := ListInventoryPage(ctx, database, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "Washers", page[0].Name)
	assert.True(t, page[0].Cost.Equal(decimal.NewFromInt(1)))

	summary, err := SummarizeInventory(ctx, database)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Count)
	assert.Equal(t, 2, summary.LowStock)
	// 10*5 + 2*100 + 1*3
	assert.True(t, summary.TotalValue.Equal(decimal.NewFromInt(253)), summary.TotalValue.String())
}

func TestSummarizeEmptyInventory(t *testing.T) {
	database := db.NewTestDB(t)

	summary, err := SummarizeInventory(context.Background(), database)
	require.NoError(t, err)
	assert.Zero(t, summary.Count)
	assert.True(t, summary.TotalValue.IsZero())
}

func TestListLowStockAndLookup(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	seedCatalog(t, database)

	low, err := ListLowStock(ctx, database)
	require.NoError(t, err)
	require.Len(t, low, 2)
	assert.Equal(t, "Bolts", low[0].Name)
	assert.Equal(t, "Washers", low[1].Name)

	got, err := GetInventoryItemByName(ctx, database, "Nuts")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 100, got.Stock)

	missing, err := GetInventoryItemByName(ctx, database, "Gears")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
