// Package rawstore persists fetched items as RawSignal rows with
// content-hash deduplication, creating a companion PENDING Signal for each
// newly-accepted raw item in the same transaction.
package rawstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/signaldesk/signaldesk/internal/db"
	"github.com/signaldesk/signaldesk/internal/feedfetch"
	"github.com/signaldesk/signaldesk/internal/textutil"
)

const maxRawTextChars = 20000

// Store writes fetched items into signaldesk.raw_signals / signaldesk.signals.
type Store struct {
	pool *db.Pool
}

func New(pool *db.Pool) *Store {
	return &Store{pool: pool}
}

// StoreResult reports the outcome of persisting one batch of fetched items.
type StoreResult struct {
	Accepted int
	Deduped  int
	Failed   int
	Errors   []error
}

// StoreItem persists one connector item for the given source. It computes
// the content hash, checks uniqueness, and on a fresh hash inserts the
// RawSignal and its companion PENDING Signal in one transaction. A
// duplicate hash is reported as a dedup, not an error; any other failure
// isolates to this item and is returned as an error without touching the
// surrounding batch.
func (s *Store) StoreItem(ctx context.Context, sourceType, sourceName string, item feedfetch.Item) (inserted bool, signalID int64, err error) {
	domain := textutil.ExtractDomain(item.SourceURL)
	contentHash := textutil.ContentHash(item.SourceURL, item.ExternalID, item.Title, item.PublishedAt)

	payloadJSON, err := json.Marshal(item.Payload)
	if err != nil {
		return false, 0, fmt.Errorf("marshal raw payload: %w", err)
	}

	rawText := textutil.Truncate(item.Text, maxRawTextChars)
	title := textutil.Truncate(item.Title, 500)

	tx, err := s.pool.BeginTx(ctx, db.TxOptions{})
	if err != nil {
		return false, 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now().UTC()

	const insertRaw = `
INSERT INTO signaldesk.raw_signals (
	source_type, source_name, source_url, source_domain, external_id,
	fetched_at, content_type, raw_payload, raw_text, content_hash, created_at
)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8::jsonb, NULLIF($9, ''), $10, $6)
ON CONFLICT (content_hash) DO NOTHING
RETURNING raw_signal_id
`

	var rawSignalID int64
	err = tx.QueryRow(ctx, insertRaw,
		sourceType, sourceName, item.SourceURL, domain, item.ExternalID,
		now, item.ContentType, string(payloadJSON), rawText, contentHash,
	).Scan(&rawSignalID)
	if err != nil {
		if db.IsNoRows(err) {
			return false, 0, nil
		}
		return false, 0, fmt.Errorf("insert raw_signals: %w", err)
	}

	const insertSignal = `
INSERT INTO signaldesk.signals (
	raw_signal_id, canonical_url, title, author, published_at, language,
	ingest_status, created_at
)
VALUES ($1, $2, $3, NULLIF($4, ''), $5, 'en', 'PENDING', $6)
RETURNING signal_id
`

	var newSignalID int64
	if err := tx.QueryRow(ctx, insertSignal,
		rawSignalID, item.SourceURL, title, item.Author, item.PublishedAt, now,
	).Scan(&newSignalID); err != nil {
		return false, 0, fmt.Errorf("insert signals: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, 0, fmt.Errorf("commit: %w", err)
	}

	return true, newSignalID, nil
}

// StoreBatch persists every item in items, continuing past per-item
// failures so one bad item cannot sink the rest of the cycle's fetch.
func (s *Store) StoreBatch(ctx context.Context, sourceType, sourceName string, items []feedfetch.Item) ([]int64, StoreResult) {
	var pendingIDs []int64
	var result StoreResult

	for _, item := range items {
		inserted, signalID, err := s.StoreItem(ctx, sourceType, sourceName, item)
		switch {
		case err != nil:
			result.Failed++
			result.Errors = append(result.Errors, fmt.Errorf("%s: %w", item.SourceURL, err))
		case !inserted:
			result.Deduped++
		default:
			result.Accepted++
			pendingIDs = append(pendingIDs, signalID)
		}
	}

	return pendingIDs, result
}
