// Package clusterer implements the fingerprint-and-advisory-lock
// create-or-attach protocol that groups accepted signals reporting the
// same underlying story into a StoryCluster.
package clusterer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/signaldesk/signaldesk/internal/db"
	"github.com/signaldesk/signaldesk/internal/textutil"
	"github.com/signaldesk/signaldesk/internal/tfidf"
)

const (
	defaultContextSummaryLimit = 1000
	defaultHeadlineLimit       = 200
	candidateSearchLimit       = 10
	untitledStoryHeadline      = "Untitled Story"
)

// Clusterer groups accepted signals into story clusters.
type Clusterer struct {
	pool                *db.Pool
	similarityThreshold float64
	trgmThreshold       float64
	activeDays          int
}

// New builds a Clusterer against the given pool and thresholds.
func New(pool *db.Pool, similarityThreshold, trgmThreshold float64, activeDays int) *Clusterer {
	return &Clusterer{
		pool:                pool,
		similarityThreshold: similarityThreshold,
		trgmThreshold:       trgmThreshold,
		activeDays:          activeDays,
	}
}

// AssignInput describes one accepted signal awaiting cluster assignment.
type AssignInput struct {
	SignalID    int64
	Headline    string
	Summary     string
	Categories  []string
	Platforms   []string
	PublishedAt *time.Time
	CreatedAt   time.Time
}

// AssignResult reports the outcome of one assignment.
type AssignResult struct {
	ClusterID int64
	Created   bool
}

type candidate struct {
	ClusterID  int64
	SearchText string
	Platforms  []string
}

// AssignSignal runs the full create-or-attach protocol for one accepted
// signal, entirely within one transaction.
func (c *Clusterer) AssignSignal(ctx context.Context, in AssignInput) (AssignResult, error) {
	if c == nil || c.pool == nil {
		return AssignResult{}, fmt.Errorf("clusterer is not initialized")
	}

	headline := in.Headline
	if headline == "" {
		headline = untitledStoryHeadline
	}
	searchText := tfidf.BuildSearchText(headline, in.Summary)
	keywords := textutil.TopNKeywords(headline+" "+in.Summary, fingerprintTopKeywords)
	fingerprint := Fingerprint(in.Platforms, in.PublishedAt, in.CreatedAt, keywords)
	lockKey := textutil.FingerprintLockKey(fingerprint)

	tx, err := c.pool.BeginTx(ctx, db.TxOptions{})
	if err != nil {
		return AssignResult{}, fmt.Errorf("begin cluster assignment tx: %w", err)
	}
	result, err := c.assignWithinTx(ctx, tx, in, headline, searchText, fingerprint, lockKey)
	if err != nil {
		_ = tx.Rollback(ctx)
		return AssignResult{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return AssignResult{}, fmt.Errorf("commit cluster assignment: %w", err)
	}
	return result, nil
}

func (c *Clusterer) assignWithinTx(ctx context.Context, tx db.Tx, in AssignInput, headline, searchText, fingerprint string, lockKey int64) (AssignResult, error) {
	// Step 1: advisory lock serializes only signals sharing this fingerprint.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, lockKey); err != nil {
		return AssignResult{}, fmt.Errorf("acquire fingerprint advisory lock: %w", err)
	}

	// Step 2: exact fingerprint match.
	if clusterID, found, err := findClusterByFingerprintTx(ctx, tx, fingerprint); err != nil {
		return AssignResult{}, err
	} else if found {
		if err := attachTx(ctx, tx, clusterID, in.SignalID); err != nil {
			return AssignResult{}, err
		}
		return AssignResult{ClusterID: clusterID, Created: false}, nil
	}

	// Step 3: phase-1 trigram candidate search.
	candidates, err := c.findTrigramCandidatesTx(ctx, tx, searchText)
	if err != nil {
		return AssignResult{}, err
	}

	// Step 4: phase-2 TF-IDF cosine + platform-overlap refinement.
	if len(candidates) > 0 {
		tfidfCandidates := make([]tfidf.Candidate, len(candidates))
		for i, cand := range candidates {
			tfidfCandidates[i] = tfidf.Candidate{SearchText: cand.SearchText, Platforms: cand.Platforms}
		}
		if best, ok := tfidf.BestCandidate(searchText, in.Platforms, tfidfCandidates); ok && best.Score >= c.similarityThreshold {
			clusterID := candidates[best.Index].ClusterID
			if err := attachTx(ctx, tx, clusterID, in.SignalID); err != nil {
				return AssignResult{}, err
			}
			return AssignResult{ClusterID: clusterID, Created: false}, nil
		}
	}

	// Step 5: create a new cluster.
	firstSeenAt := in.CreatedAt
	if in.PublishedAt != nil && !in.PublishedAt.IsZero() {
		firstSeenAt = *in.PublishedAt
	}
	now := time.Now().UTC()
	if _, err := tx.Exec(ctx, `SAVEPOINT create_cluster`); err != nil {
		return AssignResult{}, fmt.Errorf("savepoint before cluster insert: %w", err)
	}
	clusterID, err := createClusterTx(ctx, tx, fingerprint, headline, in.Summary, searchText, in.Categories, in.Platforms, firstSeenAt, now)
	if err != nil {
		if db.IsUniqueViolation(err) {
			// Step 6: race fallback — another transaction won the insert race.
			// Roll back to the savepoint so the transaction is usable again.
			if _, rbErr := tx.Exec(ctx, `ROLLBACK TO SAVEPOINT create_cluster`); rbErr != nil {
				return AssignResult{}, fmt.Errorf("rollback to savepoint after fingerprint race: %w", rbErr)
			}
			raceClusterID, found, findErr := findClusterByFingerprintTx(ctx, tx, fingerprint)
			if findErr != nil {
				return AssignResult{}, findErr
			}
			if !found {
				return AssignResult{}, fmt.Errorf("unique violation on fingerprint insert but fingerprint not found on reread")
			}
			if err := attachTx(ctx, tx, raceClusterID, in.SignalID); err != nil {
				return AssignResult{}, err
			}
			return AssignResult{ClusterID: raceClusterID, Created: false}, nil
		}
		return AssignResult{}, err
	}

	// Step 7: attach to the newly created cluster.
	if err := attachTx(ctx, tx, clusterID, in.SignalID); err != nil {
		return AssignResult{}, err
	}
	return AssignResult{ClusterID: clusterID, Created: true}, nil
}

func findClusterByFingerprintTx(ctx context.Context, tx db.Tx, fingerprint string) (int64, bool, error) {
	var clusterID int64
	err := tx.QueryRow(ctx, `SELECT cluster_id FROM signaldesk.story_clusters WHERE fingerprint = $1`, fingerprint).Scan(&clusterID)
	if err != nil {
		if db.IsNoRows(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("find cluster by fingerprint: %w", err)
	}
	return clusterID, true, nil
}

func (c *Clusterer) findTrigramCandidatesTx(ctx context.Context, tx db.Tx, searchText string) ([]candidate, error) {
	threshold := c.trgmThreshold
	if threshold <= 0 {
		threshold = 0.2
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL pg_trgm.similarity_threshold = %f", threshold)); err != nil {
		return nil, fmt.Errorf("set pg_trgm.similarity_threshold: %w", err)
	}

	activeDays := c.activeDays
	if activeDays <= 0 {
		activeDays = 7
	}
	cutoff := time.Now().UTC().Add(-time.Duration(activeDays) * 24 * time.Hour)

	const q = `
SELECT cluster_id, search_text
FROM signaldesk.story_clusters
WHERE status = 'ACTIVE'
  AND last_signal_at >= $1
  AND search_text % $2
ORDER BY similarity(search_text, $2) DESC
LIMIT $3
`
	rows, err := tx.Query(ctx, q, cutoff, searchText, candidateSearchLimit)
	if err != nil {
		return nil, fmt.Errorf("find trigram candidates: %w", err)
	}
	defer rows.Close()

	var candidates []candidate
	for rows.Next() {
		var cand candidate
		if err := rows.Scan(&cand.ClusterID, &cand.SearchText); err != nil {
			return nil, fmt.Errorf("scan trigram candidate: %w", err)
		}
		candidates = append(candidates, cand)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trigram candidates: %w", err)
	}

	for i := range candidates {
		platforms, err := platformSlugsForClusterTx(ctx, tx, candidates[i].ClusterID)
		if err != nil {
			return nil, err
		}
		candidates[i].Platforms = platforms
	}

	return candidates, nil
}

func platformSlugsForClusterTx(ctx context.Context, tx db.Tx, clusterID int64) ([]string, error) {
	const q = `
SELECT p.slug
FROM signaldesk.cluster_platforms cp
JOIN signaldesk.platforms p ON p.platform_id = cp.platform_id
WHERE cp.cluster_id = $1
`
	rows, err := tx.Query(ctx, q, clusterID)
	if err != nil {
		return nil, fmt.Errorf("load cluster platforms cluster_id=%d: %w", clusterID, err)
	}
	defer rows.Close()

	var slugs []string
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, fmt.Errorf("scan cluster platform slug: %w", err)
		}
		slugs = append(slugs, slug)
	}
	return slugs, rows.Err()
}

func createClusterTx(ctx context.Context, tx db.Tx, fingerprint, headline, summary, searchText string, categories, platforms []string, firstSeenAt, now time.Time) (int64, error) {
	contextSummary := textutil.Truncate(summary, defaultContextSummaryLimit)
	headline = textutil.Truncate(headline, defaultHeadlineLimit)

	categoriesJSON, err := json.Marshal(defaultSlice(categories))
	if err != nil {
		return 0, fmt.Errorf("marshal cluster categories: %w", err)
	}

	const q = `
INSERT INTO signaldesk.story_clusters (
	fingerprint, headline, context_summary, search_text, categories,
	importance_score, manual_boost, first_seen_at, last_seen_at, last_signal_at,
	status, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5::jsonb, 0, 0, $6, $7, $7, 'ACTIVE', $7, $7)
RETURNING cluster_id
`
	var clusterID int64
	err = tx.QueryRow(ctx, q, fingerprint, headline, contextSummary, searchText, string(categoriesJSON), firstSeenAt, now).Scan(&clusterID)
	if err != nil {
		return 0, err
	}

	for _, slug := range platforms {
		var platformID int64
		lookupErr := tx.QueryRow(ctx, `SELECT platform_id FROM signaldesk.platforms WHERE slug = $1`, slug).Scan(&platformID)
		if lookupErr != nil {
			if db.IsNoRows(lookupErr) {
				continue
			}
			return 0, fmt.Errorf("lookup platform slug=%q: %w", slug, lookupErr)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO signaldesk.cluster_platforms (cluster_id, platform_id, created_at) VALUES ($1, $2, $3) ON CONFLICT (cluster_id, platform_id) DO NOTHING`, clusterID, platformID, now); err != nil {
			return 0, fmt.Errorf("link cluster platform slug=%q: %w", slug, err)
		}
	}

	return clusterID, nil
}

func attachTx(ctx context.Context, tx db.Tx, clusterID, signalID int64) error {
	if _, err := tx.Exec(ctx, `UPDATE signaldesk.signals SET cluster_id = $1 WHERE signal_id = $2`, clusterID, signalID); err != nil {
		return fmt.Errorf("attach signal_id=%d to cluster_id=%d: %w", signalID, clusterID, err)
	}
	now := time.Now().UTC()
	if _, err := tx.Exec(ctx, `UPDATE signaldesk.story_clusters SET last_signal_at = $1, last_seen_at = $1, updated_at = $1 WHERE cluster_id = $2`, now, clusterID); err != nil {
		return fmt.Errorf("update cluster_id=%d last_signal_at: %w", clusterID, err)
	}
	return nil
}

func defaultSlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
