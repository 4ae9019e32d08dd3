// Package catalog parses uploaded inventory and supplier spreadsheets.
//
// Column names vary between exports, so each logical field accepts several
// header spellings. The first alias holding a non-empty value wins.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/erazemk/nabava/internal/model"
	"github.com/shopspring/decimal"
)

// Header aliases, in lookup order.
var (
	itemNameAliases = []string{"item", "name", "Item Name"}
	costAliases     = []string{"price", "cost", "Cost Price"}
	mrpAliases      = []string{"mrp", "MRP"}
	spAliases       = []string{"sp", "Selling Price"}
	stockAliases    = []string{"stock", "Stock"}
	minLimitAliases = []string{"min_limit", "Threshold", "Min Limit"}
	discountAliases = []string{"discount", "Discount"}

	supplierItemAliases  = []string{"item", "item_name", "Product"}
	supplierNameAliases  = []string{"supplier_name", "Supplier", "Name"}
	supplierEmailAliases = []string{"supplier_email", "Email", "Contact"}
)

// ParseError points at the offending cell of an upload.
type ParseError struct {
	Line   int
	Column string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d, column %q: %v", e.Line, e.Column, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var errNegative = errors.New("must not be negative")

// ParseInventory reads inventory rows. Rows without a name are skipped.
func ParseInventory(r io.Reader) ([]model.InventoryItem, error) {
	var items []model.InventoryItem
	err := readRows(r, func(row record) error {
		name := row.value(itemNameAliases)
		if name == "" {
			return nil
		}

		it := model.InventoryItem{
			Name:     name,
			Discount: model.DefaultDiscount,
			MinLimit: model.DefaultMinLimit,
		}
		var err error
		if it.Cost, err = row.decimal(costAliases); err != nil {
			return err
		}
		if it.MRP, err = row.decimal(mrpAliases); err != nil {
			return err
		}
		if it.SP, err = row.decimal(spAliases); err != nil {
			return err
		}
		if it.Stock, err = row.integer(stockAliases, 0); err != nil {
			return err
		}
		if it.MinLimit, err = row.integer(minLimitAliases, model.DefaultMinLimit); err != nil {
			return err
		}
		if d := row.value(discountAliases); d != "" {
			it.Discount = d
		}
		items = append(items, it)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// ParseSuppliers reads supplier rows. Rows missing the item or supplier
// name are skipped.
func ParseSuppliers(r io.Reader) ([]model.Supplier, error) {
	var suppliers []model.Supplier
	err := readRows(r, func(row record) error {
		s := model.Supplier{
			ItemName: row.value(supplierItemAliases),
			Name:     row.value(supplierNameAliases),
			Email:    row.value(supplierEmailAliases),
		}
		if s.ItemName == "" || s.Name == "" {
			return nil
		}
		suppliers = append(suppliers, s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return suppliers, nil
}

// record is one data row keyed by trimmed header name.
type record struct {
	line   int
	header map[string]int
	fields []string
}

func (r record) lookup(aliases []string) (string, string) {
	for _, alias := range aliases {
		idx, ok := r.header[alias]
		if !ok || idx >= len(r.fields) {
			continue
		}
		if v := strings.TrimSpace(r.fields[idx]); v != "" {
			return alias, v
		}
	}
	return "", ""
}

func (r record) value(aliases []string) string {
	_, v := r.lookup(aliases)
	return v
}

func (r record) decimal(aliases []string) (decimal.Decimal, error) {
	col, v := r.lookup(aliases)
	if v == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, &ParseError{Line: r.line, Column: col, Err: fmt.Errorf("invalid number %q", v)}
	}
	if d.IsNegative() {
		return decimal.Zero, &ParseError{Line: r.line, Column: col, Err: errNegative}
	}
	return d, nil
}

func (r record) integer(aliases []string, fallback int) (int, error) {
	col, v := r.lookup(aliases)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &ParseError{Line: r.line, Column: col, Err: fmt.Errorf("invalid integer %q", v)}
	}
	if n < 0 {
		return 0, &ParseError{Line: r.line, Column: col, Err: errNegative}
	}
	if n > model.MaxQuantity {
		return 0, &ParseError{Line: r.line, Column: col, Err: fmt.Errorf("must not exceed %d", model.MaxQuantity)}
	}
	return n, nil
}

func readRows(r io.Reader, fn func(record) error) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	head, err := cr.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return &ParseError{Line: 1, Err: err}
	}

	header := make(map[string]int, len(head))
	for i, h := range head {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		h = strings.TrimSpace(h)
		if _, dup := header[h]; !dup {
			header[h] = i
		}
	}

	for {
		fields, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			var csvErr *csv.ParseError
			if errors.As(err, &csvErr) {
				return &ParseError{Line: csvErr.Line, Err: csvErr.Err}
			}
			return fmt.Errorf("reading csv: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if err := fn(record{line: line, header: header, fields: fields}); err != nil {
			return err
		}
	}
}
