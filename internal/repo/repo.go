// Package repo contains all database access logic for the GarageKeeper API.
// Each resource has its own file with an interface and a Postgres implementation.
// No business logic lives here — only SQL and type mapping.
package repo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/garagekeeper/backend/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test, giving free
// per-test isolation without any manual cleanup.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// scanner is satisfied by both pgx.Row and pgx.Rows, allowing the scan
// helpers to be reused for both QueryRow and Query calls.
type scanner interface {
	Scan(dest ...any) error
}

// datePtr converts a nullable pgtype.Date into a *time.Time.
func datePtr(d pgtype.Date) *time.Time {
	if !d.Valid {
		return nil
	}
	t := d.Time
	return &t
}

// floatPtr converts a nullable pgtype.Float8 into a *float64.
func floatPtr(f pgtype.Float8) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

// intPtr converts a nullable pgtype.Int8 into a *int.
func intPtr(i pgtype.Int8) *int {
	if !i.Valid {
		return nil
	}
	v := int(i.Int64)
	return &v
}

// saleInfoFromJSON unmarshals a nullable jsonb sale_info column.
func saleInfoFromJSON(raw []byte) *domain.SaleInfo {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var info domain.SaleInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil
	}
	return &info
}

// saleInfoToJSON marshals sale info for a jsonb column, nil for NULL.
func saleInfoToJSON(info *domain.SaleInfo) []byte {
	if info == nil {
		return nil
	}
	raw, err := json.Marshal(info)
	if err != nil {
		return nil
	}
	return raw
}
