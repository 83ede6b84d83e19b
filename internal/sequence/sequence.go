// Package sequence issues the month-bucketed document codes used across the
// system (OI-YYYYMM-NNNN for intake orders, LP- for production lots, OS- for
// outbound orders). Codes are drawn from a per-(doc type, month) counter row
// incremented atomically, so concurrent creates within the same month cannot
// collide.
package sequence

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// DocType is the prefix of a document code family.
type DocType string

const (
	// DocOrdenIngreso prefixes intake order codes.
	DocOrdenIngreso DocType = "OI"
	// DocLoteProduccion prefixes production lot codes.
	DocLoteProduccion DocType = "LP"
	// DocOrdenSalida prefixes outbound order codes.
	DocOrdenSalida DocType = "OS"
)

// Querier is satisfied by *pgxpool.Pool, pgx.Conn and pgx.Tx, so codes can be
// drawn inside an open transaction.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Bucket formats the year-month bucket for a point in time.
func Bucket(t time.Time) string {
	return t.Format("200601")
}

// Format renders a document code from its parts.
func Format(doc DocType, bucket string, seq int64) string {
	return fmt.Sprintf("%s-%s-%04d", doc, bucket, seq)
}

// Next draws the next code for the document family in the bucket of now.
// The upsert increments the counter row atomically; under RepeatableRead the
// row lock serialises concurrent creates in the same bucket.
func Next(ctx context.Context, q Querier, doc DocType, now time.Time) (string, error) {
	bucket := Bucket(now)
	var seq int64
	err := q.QueryRow(ctx, `
		INSERT INTO doc_sequences (doc_type, bucket, last_value)
		VALUES ($1, $2, 1)
		ON CONFLICT (doc_type, bucket)
		DO UPDATE SET last_value = doc_sequences.last_value + 1
		RETURNING last_value`, string(doc), bucket).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("sequence: next %s/%s: %w", doc, bucket, err)
	}
	return Format(doc, bucket, seq), nil
}
