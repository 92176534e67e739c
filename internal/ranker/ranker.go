// Package ranker computes and persists each story cluster's multi-factor
// importance score.
package ranker

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/signaldesk/signaldesk/internal/db"
)

const (
	sourceDiversityWeight = 2.0
	velocityWeight        = 3.0
	credibilityWeight     = 1.5
	categoryWeightFactor  = 2.0
	recencyWeight         = 1.0
	manualWeight          = 5.0

	defaultCredibilityWeight = 0.5
	velocityWindow           = 60 * time.Minute
)

var highRiskCategoryWeight = map[string]float64{
	"SAFETY_YOUTH_RISK": 1.5,
	"REGULATORY_LEGAL":  1.5,
}

// Breakdown is the audit-only per-component score record persisted
// alongside the integer importance score.
type Breakdown struct {
	SourceDiversity float64 `json:"sourceDiversity"`
	Velocity        float64 `json:"velocity"`
	Credibility     float64 `json:"credibility"`
	Category        float64 `json:"category"`
	Recency         float64 `json:"recency"`
	Manual          float64 `json:"manual"`
	Total           float64 `json:"total"`
}

// Ranker recomputes importance scores for story clusters.
type Ranker struct {
	pool       *db.Pool
	maxDomains int
	decayHours float64
}

// New builds a Ranker against the given pool and configured weights.
func New(pool *db.Pool, maxDomains int, decayHours float64) *Ranker {
	return &Ranker{pool: pool, maxDomains: maxDomains, decayHours: decayHours}
}

type clusterSignalRow struct {
	SourceDomain string
	CreatedAt    time.Time
}

// RescoreCluster recomputes and persists the importance score for one
// cluster from its currently attached, accepted signals.
func (r *Ranker) RescoreCluster(ctx context.Context, clusterID int64) error {
	if r == nil || r.pool == nil {
		return fmt.Errorf("ranker is not initialized")
	}

	var (
		manualBoost  int
		lastSignalAt time.Time
		categoriesJS []byte
	)
	err := r.pool.QueryRow(ctx, `SELECT manual_boost, last_signal_at, categories FROM signaldesk.story_clusters WHERE cluster_id = $1`, clusterID).
		Scan(&manualBoost, &lastSignalAt, &categoriesJS)
	if err != nil {
		if db.IsNoRows(err) {
			return fmt.Errorf("cluster_id=%d not found", clusterID)
		}
		return fmt.Errorf("load cluster_id=%d: %w", clusterID, err)
	}

	var categories []string
	if len(categoriesJS) > 0 {
		if err := json.Unmarshal(categoriesJS, &categories); err != nil {
			return fmt.Errorf("unmarshal categories for cluster_id=%d: %w", clusterID, err)
		}
	}

	signals, err := r.loadAttachedSignalsTx(ctx, clusterID)
	if err != nil {
		return err
	}

	credibilityAvg, err := r.averageCredibility(ctx, signals)
	if err != nil {
		return err
	}

	breakdown := Breakdown{
		SourceDiversity: sourceDiversityComponent(signals, r.maxDomains) * sourceDiversityWeight,
		Velocity:        velocityComponent(signals) * velocityWeight,
		Credibility:     credibilityAvg * credibilityWeight,
		Category:        categoryComponent(categories) * categoryWeightFactor,
		Recency:         recencyComponent(lastSignalAt, r.decayHours) * recencyWeight,
		Manual:          float64(manualBoost) * manualWeight,
	}
	breakdown.Total = breakdown.SourceDiversity + breakdown.Velocity + breakdown.Credibility +
		breakdown.Category + breakdown.Recency + breakdown.Manual

	importanceScore := int64(math.Round(breakdown.Total * 1000))

	breakdownJSON, err := json.Marshal(breakdown)
	if err != nil {
		return fmt.Errorf("marshal score breakdown for cluster_id=%d: %w", clusterID, err)
	}

	_, err = r.pool.Exec(ctx,
		`UPDATE signaldesk.story_clusters SET importance_score = $1, score_breakdown = $2::jsonb, updated_at = $3 WHERE cluster_id = $4`,
		importanceScore, string(breakdownJSON), time.Now().UTC(), clusterID)
	if err != nil {
		return fmt.Errorf("persist importance score for cluster_id=%d: %w", clusterID, err)
	}
	return nil
}

// RecomputeAll rescoes every ACTIVE cluster. Individual failures are
// logged but never abort the batch.
func (r *Ranker) RecomputeAll(ctx context.Context, logger zerolog.Logger) (processed, failed int, err error) {
	if r == nil || r.pool == nil {
		return 0, 0, fmt.Errorf("ranker is not initialized")
	}

	rows, err := r.pool.Query(ctx, `SELECT cluster_id FROM signaldesk.story_clusters WHERE status = 'ACTIVE'`)
	if err != nil {
		return 0, 0, fmt.Errorf("list active clusters: %w", err)
	}
	var clusterIDs []int64
	for rows.Next() {
		var id int64
		if scanErr := rows.Scan(&id); scanErr != nil {
			rows.Close()
			return 0, 0, fmt.Errorf("scan active cluster id: %w", scanErr)
		}
		clusterIDs = append(clusterIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, 0, fmt.Errorf("iterate active clusters: %w", err)
	}

	for _, clusterID := range clusterIDs {
		processed++
		if err := r.RescoreCluster(ctx, clusterID); err != nil {
			failed++
			logger.Error().Err(err).Int64("cluster_id", clusterID).Msg("rescore cluster failed")
		}
	}
	return processed, failed, nil
}

func (r *Ranker) loadAttachedSignalsTx(ctx context.Context, clusterID int64) ([]clusterSignalRow, error) {
	const q = `
SELECT rs.source_domain, s.created_at
FROM signaldesk.signals s
JOIN signaldesk.raw_signals rs ON rs.raw_signal_id = s.raw_signal_id
WHERE s.cluster_id = $1 AND s.ingest_status = 'ACCEPTED'
`
	rows, err := r.pool.Query(ctx, q, clusterID)
	if err != nil {
		return nil, fmt.Errorf("load attached signals for cluster_id=%d: %w", clusterID, err)
	}
	defer rows.Close()

	var signals []clusterSignalRow
	for rows.Next() {
		var row clusterSignalRow
		if err := rows.Scan(&row.SourceDomain, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan attached signal: %w", err)
		}
		signals = append(signals, row)
	}
	return signals, rows.Err()
}

func (r *Ranker) averageCredibility(ctx context.Context, signals []clusterSignalRow) (float64, error) {
	if len(signals) == 0 {
		return defaultCredibilityWeight, nil
	}

	domains := make(map[string]struct{}, len(signals))
	for _, s := range signals {
		domains[s.SourceDomain] = struct{}{}
	}

	weights := make(map[string]float64, len(domains))
	rows, err := r.pool.Query(ctx, `SELECT source_domain, weight FROM signaldesk.source_credibility`)
	if err != nil {
		return 0, fmt.Errorf("load source credibility: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var domain string
		var weight float64
		if err := rows.Scan(&domain, &weight); err != nil {
			return 0, fmt.Errorf("scan source credibility: %w", err)
		}
		weights[domain] = weight
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate source credibility: %w", err)
	}

	var total float64
	for _, s := range signals {
		if w, ok := weights[s.SourceDomain]; ok {
			total += w
		} else {
			total += defaultCredibilityWeight
		}
	}
	return total / float64(len(signals)), nil
}

func sourceDiversityComponent(signals []clusterSignalRow, maxDomains int) float64 {
	if maxDomains <= 0 {
		maxDomains = 6
	}
	domains := make(map[string]struct{}, len(signals))
	for _, s := range signals {
		domains[s.SourceDomain] = struct{}{}
	}
	count := len(domains)
	if count > maxDomains {
		count = maxDomains
	}
	return float64(count)
}

func velocityComponent(signals []clusterSignalRow) float64 {
	cutoff := time.Now().UTC().Add(-velocityWindow)
	recent := 0
	for _, s := range signals {
		if s.CreatedAt.UTC().After(cutoff) {
			recent++
		}
	}
	return math.Log(1 + float64(recent))
}

func categoryComponent(categories []string) float64 {
	best := 1.0
	for _, c := range categories {
		if w, ok := highRiskCategoryWeight[c]; ok && w > best {
			best = w
		}
	}
	return best
}

func recencyComponent(lastSignalAt time.Time, decayHours float64) float64 {
	if decayHours <= 0 {
		decayHours = 24
	}
	hours := time.Since(lastSignalAt).Hours()
	if hours < 0 {
		hours = 0
	}
	return math.Exp(-hours / decayHours)
}
