// Package history keeps an append-only log of published stock snapshots.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"example.com/restock/internal/country"
	"example.com/restock/internal/stock"
	"example.com/restock/internal/storefront"
)

const defaultLimit = 50

// Store persists snapshots in SQLite. It implements stock.Sink.
type Store struct {
	db *sql.DB
}

var _ stock.Sink = (*Store)(nil)

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Init applies the schema.
func (s *Store) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS stock_snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			product TEXT NOT NULL,
			product_id INTEGER NOT NULL,
			country TEXT NOT NULL,
			variant_count INTEGER NOT NULL,
			variants TEXT NOT NULL,
			observed_at TIMESTAMP NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_stock_snapshots_product ON stock_snapshots(product, observed_at DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply history schema: %w", err)
		}
	}
	return nil
}

// Record appends one snapshot.
func (s *Store) Record(ctx context.Context, snap stock.Snapshot) error {
	variants, err := json.Marshal(snap.Variants)
	if err != nil {
		return fmt.Errorf("marshal variants: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO stock_snapshots(product, product_id, country, variant_count, variants, observed_at)
		 VALUES(?, ?, ?, ?, ?, ?)`,
		snap.Product, snap.ProductID, string(snap.Country), len(snap.Variants), string(variants), snap.ObservedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// Recent returns up to limit snapshots of product, newest first.
func (s *Store) Recent(ctx context.Context, product string, limit int) ([]stock.Snapshot, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT product, product_id, country, variants, observed_at
		 FROM stock_snapshots WHERE product = ?
		 ORDER BY observed_at DESC, id DESC LIMIT ?`, product, limit)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []stock.Snapshot
	for rows.Next() {
		var (
			snap     stock.Snapshot
			code     string
			variants string
			observed time.Time
		)
		if err := rows.Scan(&snap.Product, &snap.ProductID, &code, &variants, &observed); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		var vs []storefront.Variant
		if err := json.Unmarshal([]byte(variants), &vs); err != nil {
			return nil, fmt.Errorf("decode variants: %w", err)
		}
		snap.Country = country.Code(code)
		snap.Variants = vs
		snap.ObservedAt = observed.UTC()
		out = append(out, snap)
	}
	return out, rows.Err()
}
