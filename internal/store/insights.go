package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/nabava/internal/model"
)

// CreateInsight appends an insight and returns it with ID and timestamp set.
func CreateInsight(ctx context.Context, db *sql.DB, in model.Insight) (*model.Insight, error) {
	if in.Source == "" {
		in.Source = "api"
	}
	result, err := db.ExecContext(ctx,
		`INSERT INTO insights (raw_text, processed_json, summary, sentiment, revenue, source)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		in.RawText, in.ProcessedJSON, in.Summary, in.Sentiment, in.Revenue, in.Source,
	)
	if err != nil {
		return nil, fmt.Errorf("creating insight: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting insight id: %w", err)
	}
	return GetInsight(ctx, db, id)
}

// GetInsight returns an insight by ID.
func GetInsight(ctx context.Context, db *sql.DB, id int64) (*model.Insight, error) {
	in := &model.Insight{}
	err := db.QueryRowContext(ctx,
		`SELECT id, raw_text, processed_json, summary, sentiment, revenue, source, created_at
		 FROM insights WHERE id = ?`, id,
	).Scan(&in.ID, &in.RawText, &in.ProcessedJSON, &in.Summary, &in.Sentiment, &in.Revenue, &in.Source, &in.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting insight: %w", err)
	}
	return in, nil
}

// ListInsights returns the most recent insights first.
func ListInsights(ctx context.Context, db *sql.DB, limit int) ([]model.Insight, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, raw_text, processed_json, summary, sentiment, revenue, source, created_at
		 FROM insights ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing insights: %w", err)
	}
	defer rows.Close()

	var out []model.Insight
	for rows.Next() {
		var in model.Insight
		if err := rows.Scan(&in.ID, &in.RawText, &in.ProcessedJSON, &in.Summary, &in.Sentiment, &in.Revenue, &in.Source, &in.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning insight: %w", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}
