// Package feedquery serves the cursor-paginated cluster feed: a keyset walk
// over active story clusters ordered by importance, with optional category
// and platform filters.
package feedquery

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/signaldesk/signaldesk/internal/db"
)

const (
	maxSignalsPerCluster = 10
	defaultLimit         = 20
	maxLimit             = 50
	defaultWindow        = "7d"
)

var windowDurations = map[string]time.Duration{
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
}

// Params controls one page of the feed.
type Params struct {
	Category string
	Platform string
	Window   string
	Cursor   string
	Limit    int
}

// resolved is Params after defaulting and validation.
type resolved struct {
	category string
	platform string
	since    time.Time
	cursor   *Cursor
	limit    int
}

func (p Params) resolve() (resolved, error) {
	r := resolved{
		category: strings.TrimSpace(p.Category),
		platform: strings.ToLower(strings.TrimSpace(p.Platform)),
		limit:    p.Limit,
	}

	window := strings.ToLower(strings.TrimSpace(p.Window))
	if window == "" {
		window = defaultWindow
	}
	dur, ok := windowDurations[window]
	if !ok {
		return resolved{}, fmt.Errorf("invalid window %q", p.Window)
	}
	r.since = time.Now().UTC().Add(-dur)

	if r.limit <= 0 {
		r.limit = defaultLimit
	}
	if r.limit > maxLimit {
		r.limit = maxLimit
	}

	if strings.TrimSpace(p.Cursor) != "" {
		cursor, err := DecodeCursor(p.Cursor)
		if err != nil {
			return resolved{}, fmt.Errorf("invalid cursor: %w", err)
		}
		r.cursor = &cursor
	}

	return r, nil
}

// PlatformRef is one companion platform a cluster has been linked to.
type PlatformRef struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// SignalRef is one signal attached to a cluster, trimmed to presentation
// fields.
type SignalRef struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	CanonicalURL *string    `json:"canonicalUrl,omitempty"`
	ImageURL     *string    `json:"imageUrl,omitempty"`
	SourceName   string     `json:"sourceName"`
	SourceDomain string     `json:"sourceDomain"`
	PublishedAt  *time.Time `json:"publishedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// ClusterPage is one row of the feed.
type ClusterPage struct {
	ID              string          `json:"id"`
	Headline        string          `json:"headline"`
	ContextSummary  string          `json:"contextSummary"`
	Categories      []string        `json:"categories"`
	Platforms       []PlatformRef   `json:"platforms"`
	ImportanceScore int64           `json:"importanceScore"`
	ScoreBreakdown  json.RawMessage `json:"scoreBreakdown,omitempty"`
	SignalCount     int             `json:"signalCount"`
	FirstSeenAt     time.Time       `json:"firstSeenAt"`
	LastSignalAt    time.Time       `json:"lastSignalAt"`
	Signals         []SignalRef     `json:"signals"`

	clusterID int64
}

// Page is one page of the feed: the rows plus the cursor to fetch the next
// one, if any.
type Page struct {
	Clusters   []ClusterPage `json:"clusters"`
	NextCursor *string       `json:"nextCursor"`
	HasMore    bool          `json:"hasMore"`
}

// Service answers feed queries against the cluster/platform/signal tables.
type Service struct {
	pool *db.Pool
}

// New builds a feed query service bound to pool.
func New(pool *db.Pool) *Service {
	return &Service{pool: pool}
}

// List returns one page of the cluster feed for the given params.
func (s *Service) List(ctx context.Context, params Params) (Page, error) {
	r, err := params.resolve()
	if err != nil {
		return Page{}, err
	}

	rows, err := s.queryClusters(ctx, r)
	if err != nil {
		return Page{}, fmt.Errorf("query cluster feed: %w", err)
	}

	hasMore := len(rows) > r.limit
	if hasMore {
		rows = rows[:r.limit]
	}

	var nextCursor *string
	if hasMore && len(rows) > 0 {
		last := rows[len(rows)-1]
		token := Cursor{ImportanceScore: last.ImportanceScore, LastSignalAt: last.LastSignalAt, ID: last.ID}.Encode()
		nextCursor = &token
	}

	if len(rows) == 0 {
		return Page{Clusters: []ClusterPage{}, NextCursor: nextCursor, HasMore: hasMore}, nil
	}

	ids := make([]int64, len(rows))
	byID := make(map[int64]*ClusterPage, len(rows))
	for i := range rows {
		ids[i] = rows[i].clusterID
		byID[rows[i].clusterID] = &rows[i]
	}

	if err := s.attachPlatforms(ctx, ids, byID); err != nil {
		return Page{}, fmt.Errorf("load cluster platforms: %w", err)
	}
	if err := s.attachSignals(ctx, ids, byID); err != nil {
		return Page{}, fmt.Errorf("load cluster signals: %w", err)
	}

	return Page{Clusters: rows, NextCursor: nextCursor, HasMore: hasMore}, nil
}

func (s *Service) queryClusters(ctx context.Context, r resolved) ([]ClusterPage, error) {
	hasCursor := r.cursor != nil
	var cursorScore int64
	var cursorLastSignalAt time.Time
	var cursorID string
	if hasCursor {
		cursorScore = r.cursor.ImportanceScore
		cursorLastSignalAt = r.cursor.LastSignalAt
		cursorID = r.cursor.ID
	}

	const q = `
SELECT
	c.cluster_id, c.cluster_uuid, c.headline, c.context_summary, c.categories,
	c.importance_score, c.score_breakdown, c.first_seen_at, c.last_signal_at,
	(SELECT count(*) FROM signaldesk.signals sc WHERE sc.cluster_id = c.cluster_id) AS signal_count
FROM signaldesk.story_clusters c
WHERE c.status = 'ACTIVE'
  AND c.last_signal_at >= $1
  AND ($2 = '' OR c.categories ? $2)
  AND ($3 = '' OR EXISTS (
        SELECT 1 FROM signaldesk.cluster_platforms cp
        JOIN signaldesk.platforms p ON p.platform_id = cp.platform_id
        WHERE cp.cluster_id = c.cluster_id AND p.slug = $3
      ))
  AND (
        NOT $4
        OR c.importance_score < $5
        OR (c.importance_score = $5 AND c.last_signal_at < $6)
        OR (c.importance_score = $5 AND c.last_signal_at = $6 AND c.cluster_uuid < $7)
      )
ORDER BY c.importance_score DESC, c.last_signal_at DESC, c.cluster_uuid DESC
LIMIT $8
`

	rows, err := s.pool.Query(ctx, q,
		r.since, r.category, r.platform,
		hasCursor, cursorScore, cursorLastSignalAt, cursorID,
		r.limit+1,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ClusterPage
	for rows.Next() {
		var (
			row          ClusterPage
			categoriesJS []byte
			breakdown    []byte
		)
		if err := rows.Scan(
			&row.clusterID, &row.ID, &row.Headline, &row.ContextSummary, &categoriesJS,
			&row.ImportanceScore, &breakdown, &row.FirstSeenAt, &row.LastSignalAt,
			&row.SignalCount,
		); err != nil {
			return nil, fmt.Errorf("scan cluster row: %w", err)
		}
		if len(categoriesJS) > 0 {
			_ = json.Unmarshal(categoriesJS, &row.Categories)
		}
		if len(breakdown) > 0 {
			row.ScoreBreakdown = json.RawMessage(breakdown)
		}
		row.Platforms = []PlatformRef{}
		row.Signals = []SignalRef{}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cluster rows: %w", err)
	}
	return out, nil
}

func (s *Service) attachPlatforms(ctx context.Context, ids []int64, byID map[int64]*ClusterPage) error {
	const q = `
SELECT cp.cluster_id, p.slug, p.name
FROM signaldesk.cluster_platforms cp
JOIN signaldesk.platforms p ON p.platform_id = cp.platform_id
WHERE cp.cluster_id = ANY($1)
ORDER BY p.name
`
	rows, err := s.pool.Query(ctx, q, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var clusterID int64
		var ref PlatformRef
		if err := rows.Scan(&clusterID, &ref.Slug, &ref.Name); err != nil {
			return fmt.Errorf("scan cluster platform row: %w", err)
		}
		if cluster, ok := byID[clusterID]; ok {
			cluster.Platforms = append(cluster.Platforms, ref)
		}
	}
	return rows.Err()
}

func (s *Service) attachSignals(ctx context.Context, ids []int64, byID map[int64]*ClusterPage) error {
	const q = `
SELECT cluster_id, signal_uuid, title, canonical_url, image_url, source_name, source_domain, published_at, created_at
FROM (
	SELECT
		s.cluster_id, s.signal_uuid, s.title, s.canonical_url, s.image_url,
		rs.source_name, rs.source_domain, s.published_at, s.created_at,
		row_number() OVER (PARTITION BY s.cluster_id ORDER BY s.created_at DESC) AS rn
	FROM signaldesk.signals s
	JOIN signaldesk.raw_signals rs ON rs.raw_signal_id = s.raw_signal_id
	WHERE s.cluster_id = ANY($1)
) ranked
WHERE rn <= $2
ORDER BY cluster_id, created_at DESC
`
	rows, err := s.pool.Query(ctx, q, ids, maxSignalsPerCluster)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var clusterID int64
		var ref SignalRef
		if err := rows.Scan(
			&clusterID, &ref.ID, &ref.Title, &ref.CanonicalURL, &ref.ImageURL,
			&ref.SourceName, &ref.SourceDomain, &ref.PublishedAt, &ref.CreatedAt,
		); err != nil {
			return fmt.Errorf("scan cluster signal row: %w", err)
		}
		if cluster, ok := byID[clusterID]; ok {
			cluster.Signals = append(cluster.Signals, ref)
		}
	}
	return rows.Err()
}
