package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/nabava/internal/model"
	"github.com/shopspring/decimal"
)

const negotiationColumns = `id, item_name, supplier_name, supplier_email, draft,
	invoice_amount, status, units, last_reply, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNegotiation(row rowScanner) (*model.Negotiation, error) {
	n := &model.Negotiation{}
	err := row.Scan(&n.ID, &n.ItemName, &n.SupplierName, &n.SupplierEmail, &n.Draft,
		&n.InvoiceAmount, &n.Status, &n.Units, &n.LastReply, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return n, nil
}

func insertNegotiation(ctx context.Context, tx *sql.Tx, n model.Negotiation) error {
	if n.Status == "" {
		n.Status = model.StatusAwaitingHuman
	}
	if n.Units == 0 {
		n.Units = model.DefaultUnits
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO negotiations (item_name, supplier_name, supplier_email, draft, invoice_amount, status, units)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ItemName, n.SupplierName, n.SupplierEmail, n.Draft, n.InvoiceAmount, n.Status, n.Units,
	)
	if err != nil {
		return fmt.Errorf("inserting negotiation for %q: %w", n.ItemName, err)
	}
	return nil
}

// GetNegotiation returns a negotiation by ID.
func GetNegotiation(ctx context.Context, db *sql.DB, id int64) (*model.Negotiation, error) {
	n, err := scanNegotiation(db.QueryRowContext(ctx,
		`SELECT `+negotiationColumns+` FROM negotiations WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting negotiation: %w", err)
	}
	return n, nil
}

// ListNegotiations returns negotiations, optionally filtered by status.
func ListNegotiations(ctx context.Context, db *sql.DB, status string) ([]model.Negotiation, error) {
	query := `SELECT ` + negotiationColumns + ` FROM negotiations`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	return queryNegotiations(ctx, db, query+` ORDER BY id`, args...)
}

// ListOpenNegotiations returns every negotiation that has not placed an order.
func ListOpenNegotiations(ctx context.Context, db *sql.DB) ([]model.Negotiation, error) {
	return queryNegotiations(ctx, db,
		`SELECT `+negotiationColumns+` FROM negotiations WHERE status != ? ORDER BY id`,
		model.StatusOrderPlaced,
	)
}

func queryNegotiations(ctx context.Context, db *sql.DB, query string, args ...any) ([]model.Negotiation, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing negotiations: %w", err)
	}
	defer rows.Close()

	var out []model.Negotiation
	for rows.Next() {
		n, err := scanNegotiation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning negotiation: %w", err)
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

// UpdateNegotiationDraft overwrites draft, units and invoice amount of a
// negotiation that is still awaiting a human. It reports whether a row changed.
func UpdateNegotiationDraft(ctx context.Context, db *sql.DB, id int64, draft string, units int, amount decimal.Decimal) (bool, error) {
	res, err := db.ExecContext(ctx,
		`UPDATE negotiations
		 SET draft = ?, units = ?, invoice_amount = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = ?`,
		draft, units, amount, id, model.StatusAwaitingHuman,
	)
	if err != nil {
		return false, fmt.Errorf("updating negotiation draft: %w", err)
	}
	return affected(res)
}

// TransitionNegotiation moves a negotiation from one status to another. It
// reports false when the row was not in the expected status.
func TransitionNegotiation(ctx context.Context, db *sql.DB, id int64, from, to string) (bool, error) {
	res, err := db.ExecContext(ctx,
		`UPDATE negotiations SET status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = ?`,
		to, id, from,
	)
	if err != nil {
		return false, fmt.Errorf("updating negotiation status: %w", err)
	}
	return affected(res)
}

// RecordReply stores a supplier reply and marks the invoice as received,
// provided the inquiry is still outstanding.
func RecordReply(ctx context.Context, db *sql.DB, id int64, reply string) (bool, error) {
	res, err := db.ExecContext(ctx,
		`UPDATE negotiations
		 SET last_reply = ?, status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = ?`,
		reply, model.StatusInvoiceReceived, id, model.StatusInquirySent,
	)
	if err != nil {
		return false, fmt.Errorf("recording reply: %w", err)
	}
	return affected(res)
}

// FinalizeNegotiation places the order and adds the negotiated units to the
// item's stock in one transaction. It reports false if the order was
// already placed, in which case stock is left alone.
func FinalizeNegotiation(ctx context.Context, db *sql.DB, id int64) (bool, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var itemName, status string
	var units int
	err = tx.QueryRowContext(ctx,
		`SELECT item_name, status, units FROM negotiations WHERE id = ?`, id,
	).Scan(&itemName, &status, &units)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading negotiation: %w", err)
	}
	if status == model.StatusOrderPlaced {
		return false, nil
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE negotiations SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		model.StatusOrderPlaced, id,
	)
	if err != nil {
		return false, fmt.Errorf("placing order: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE inventory SET stock = stock + ? WHERE name = ?`,
		units, itemName,
	)
	if err != nil {
		return false, fmt.Errorf("restocking %q: %w", itemName, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing finalize: %w", err)
	}
	return true, nil
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading affected rows: %w", err)
	}
	return n > 0, nil
}
