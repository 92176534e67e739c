// Package pipeline orchestrates one end-to-end ingest cycle: fetch, store,
// normalize, cluster, sweep, and rescore, under a wall-clock budget with
// bounded LLM concurrency, recording an IngestRun audit row throughout.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/signaldesk/signaldesk/internal/clusterer"
	"github.com/signaldesk/signaldesk/internal/config"
	"github.com/signaldesk/signaldesk/internal/db"
	"github.com/signaldesk/signaldesk/internal/feedfetch"
	"github.com/signaldesk/signaldesk/internal/normalizer"
	"github.com/signaldesk/signaldesk/internal/pipelineerr"
	"github.com/signaldesk/signaldesk/internal/ranker"
	"github.com/signaldesk/signaldesk/internal/rawstore"
)

const (
	normalizeBudgetMargin = 10 * time.Second
	clusterBudgetMargin   = 5 * time.Second
)

// Runner drives one pipeline cycle end to end.
type Runner struct {
	pool       *db.Pool
	logger     zerolog.Logger
	registry   *feedfetch.Registry
	store      *rawstore.Store
	normalizer *normalizer.Normalizer
	clusterer  *clusterer.Clusterer
	ranker     *ranker.Ranker
	sources    []config.FeedSource
	maxItems   int
	budget     time.Duration
	concurrent int
}

// New assembles a Runner from configuration, wiring the normalizer's LLM
// client, the feed-fetch registry, the clusterer, and the ranker from the
// same config that the rest of the process uses.
func New(cfg *config.Config, pool *db.Pool, logger zerolog.Logger) *Runner {
	llmClient := normalizer.NewLLMClient(cfg.LLMBaseURL, cfg.LLMModel, cfg.LLMAPIKey)

	return &Runner{
		pool:       pool,
		logger:     logger,
		registry:   feedfetch.NewRegistry(feedfetch.NewSyndicationConnector(), feedfetch.StubConnector{}),
		store:      rawstore.New(pool),
		normalizer: normalizer.New(pool, llmClient, cfg.LLMProvider, cfg.LLMPromptVersion, cfg.MinConfidenceThreshold),
		clusterer:  clusterer.New(pool, cfg.ClusterSimilarityThreshold, cfg.ClusterTrgmThreshold, cfg.ClusterActiveDays),
		ranker:     ranker.New(pool, cfg.RankingMaxDomains, cfg.RankingRecencyDecayHours),
		sources:    cfg.FeedSources(),
		maxItems:   cfg.DirectModeMaxItems,
		budget:     time.Duration(cfg.DirectModeTimeoutMS) * time.Millisecond,
		concurrent: cfg.DirectModeLLMConcurrency,
	}
}

// Summary reports one cycle's outcome for the caller and the IngestRun row.
type Summary struct {
	RunID           int64
	RunUUID         string
	Status          string
	SignalsFetched  int
	SignalsAccepted int
	SignalsRejected int
	Errors          []pipelineerr.Record
}

// RunOnce executes exactly one ingest cycle.
func (r *Runner) RunOnce(ctx context.Context) (Summary, error) {
	if r == nil || r.pool == nil {
		return Summary{}, fmt.Errorf("pipeline runner is not initialized")
	}

	deadline := time.Now().Add(r.budget)

	runID, runUUID, err := r.insertRun(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("insert ingest run: %w", err)
	}

	summary, runErr := r.runCycle(ctx, deadline)
	summary.RunID = runID
	summary.RunUUID = runUUID

	if runErr != nil {
		summary.Status = "FAILED"
		summary.Errors = append(summary.Errors, pipelineerr.ToRecord(runErr))
	} else {
		summary.Status = "COMPLETED"
	}

	if err := r.finalizeRun(ctx, runID, summary); err != nil {
		return summary, fmt.Errorf("finalize ingest run: %w", err)
	}

	return summary, nil
}

func (r *Runner) runCycle(ctx context.Context, deadline time.Time) (Summary, error) {
	var summary Summary

	// Step 2: fetch from all enabled sources, cap at MAX_ITEMS applied after
	// concatenating results in source-registration order.
	items, fetchErrors := r.registry.FetchAll(ctx, r.sources)
	for _, fe := range fetchErrors {
		summary.Errors = append(summary.Errors, pipelineerr.Record{
			Kind:    pipelineerr.FetchError,
			Source:  fe.SourceName,
			Message: fe.Message,
		})
	}
	if r.maxItems > 0 && len(items) > r.maxItems {
		items = items[:r.maxItems]
	}
	summary.SignalsFetched = len(items)

	// Step 3: store raw signals, deduping at this step.
	var pendingIDs []int64
	for _, item := range items {
		inserted, signalID, err := r.store.StoreItem(ctx, item.SourceType, item.SourceName, item)
		switch {
		case err != nil:
			summary.Errors = append(summary.Errors, pipelineerr.ToRecord(pipelineerr.New(pipelineerr.PipelineError, item.SourceName, err)))
		case !inserted:
			summary.Errors = append(summary.Errors, pipelineerr.Record{Kind: pipelineerr.Dedup, Source: item.SourceName, Message: "duplicate content hash"})
		default:
			pendingIDs = append(pendingIDs, signalID)
		}
	}

	// Step 4: normalize with bounded concurrency under the wall-clock budget.
	acceptedIDs, rejected, normErrs := r.normalizeAll(ctx, pendingIDs, deadline)
	summary.SignalsRejected = rejected
	summary.Errors = append(summary.Errors, normErrs...)

	// Step 5: cluster each accepted signal sequentially.
	summary.SignalsAccepted = len(acceptedIDs)
	clusterErrs := r.clusterAll(ctx, acceptedIDs, deadline)
	for _, err := range clusterErrs {
		summary.Errors = append(summary.Errors, pipelineerr.ToRecord(err))
	}

	// Step 6: stale sweep.
	if _, err := r.clusterer.SweepStale(ctx); err != nil {
		summary.Errors = append(summary.Errors, pipelineerr.ToRecord(pipelineerr.New(pipelineerr.PipelineError, "stale-sweep", err)))
	}

	// Step 7: recompute rankings for all active clusters.
	if _, failed, err := r.ranker.RecomputeAll(ctx, r.logger); err != nil {
		summary.Errors = append(summary.Errors, pipelineerr.ToRecord(pipelineerr.New(pipelineerr.PipelineError, "recompute-rankings", err)))
	} else if failed > 0 {
		r.logger.Warn().Int("failed", failed).Msg("some clusters failed to rescore")
	}

	return summary, nil
}

func (r *Runner) normalizeAll(ctx context.Context, pendingIDs []int64, deadline time.Time) (acceptedIDs []int64, rejected int, errs []pipelineerr.Record) {
	concurrency := r.concurrent
	if concurrency < 1 {
		concurrency = 1
	}
	sem := semaphore.NewWeighted(int64(concurrency))

	type outcome struct {
		signalID int64
		status   string
		err      error
	}
	results := make(chan outcome, len(pendingIDs))

	group, groupCtx := errgroup.WithContext(ctx)
	for _, signalID := range pendingIDs {
		if time.Now().After(deadline.Add(-normalizeBudgetMargin)) {
			errs = append(errs, pipelineerr.Record{Kind: pipelineerr.BudgetExceeded, Message: "normalize budget exhausted; remaining signals skipped"})
			break
		}

		signalID := signalID
		if err := sem.Acquire(groupCtx, 1); err != nil {
			break
		}
		group.Go(func() error {
			defer sem.Release(1)
			status, err := r.normalizer.NormalizeOne(groupCtx, signalID)
			results <- outcome{signalID: signalID, status: status, err: err}
			return nil
		})
	}
	_ = group.Wait()
	close(results)

	for res := range results {
		if res.err != nil {
			errs = append(errs, pipelineerr.ToRecord(pipelineerr.New(pipelineerr.PipelineError, fmt.Sprintf("signal:%d", res.signalID), res.err)))
			continue
		}
		switch res.status {
		case "ACCEPTED":
			acceptedIDs = append(acceptedIDs, res.signalID)
		case "REJECTED":
			rejected++
		}
	}

	return acceptedIDs, rejected, errs
}

func (r *Runner) clusterAll(ctx context.Context, acceptedIDs []int64, deadline time.Time) []error {
	var errs []error
	for _, signalID := range acceptedIDs {
		if time.Now().After(deadline.Add(-clusterBudgetMargin)) {
			errs = append(errs, pipelineerr.New(pipelineerr.BudgetExceeded, "clusterer", fmt.Errorf("cluster budget exhausted; remaining signals skipped")))
			break
		}

		in, err := r.loadClusterInput(ctx, signalID)
		if err != nil {
			errs = append(errs, pipelineerr.New(pipelineerr.PipelineError, fmt.Sprintf("signal:%d", signalID), err))
			continue
		}

		assigned, err := r.clusterer.AssignSignal(ctx, in)
		if err != nil {
			errs = append(errs, pipelineerr.New(pipelineerr.PipelineError, fmt.Sprintf("signal:%d", signalID), err))
			continue
		}

		if err := r.ranker.RescoreCluster(ctx, assigned.ClusterID); err != nil {
			r.logger.Warn().Err(err).Int64("signal_id", signalID).Msg("post-assignment rescore failed")
		}
	}
	return errs
}

func (r *Runner) loadClusterInput(ctx context.Context, signalID int64) (clusterer.AssignInput, error) {
	var (
		headline, summary string
		categoriesJS      []byte
		platformsJS       []byte
		publishedAt       *time.Time
		createdAt         time.Time
	)
	const q = `
SELECT COALESCE(s.suggested_headline, s.title), COALESCE(s.normalized_summary, ''),
       s.categories, s.entities_platforms, s.published_at, s.created_at
FROM signaldesk.signals s
WHERE s.signal_id = $1
`
	err := r.pool.QueryRow(ctx, q, signalID).Scan(&headline, &summary, &categoriesJS, &platformsJS, &publishedAt, &createdAt)
	if err != nil {
		return clusterer.AssignInput{}, fmt.Errorf("load cluster input signal_id=%d: %w", signalID, err)
	}

	var categories, platforms []string
	if len(categoriesJS) > 0 {
		_ = json.Unmarshal(categoriesJS, &categories)
	}
	if len(platformsJS) > 0 {
		_ = json.Unmarshal(platformsJS, &platforms)
	}

	return clusterer.AssignInput{
		SignalID:    signalID,
		Headline:    headline,
		Summary:     summary,
		Categories:  categories,
		Platforms:   platforms,
		PublishedAt: publishedAt,
		CreatedAt:   createdAt,
	}, nil
}

func (r *Runner) insertRun(ctx context.Context) (int64, string, error) {
	const q = `
INSERT INTO signaldesk.ingest_runs (started_at, status, created_at)
VALUES ($1, 'RUNNING', $1)
RETURNING run_id, run_uuid
`
	var runID int64
	var runUUID string
	now := time.Now().UTC()
	if err := r.pool.QueryRow(ctx, q, now).Scan(&runID, &runUUID); err != nil {
		return 0, "", err
	}
	return runID, runUUID, nil
}

func (r *Runner) finalizeRun(ctx context.Context, runID int64, summary Summary) error {
	errorsJSON, err := json.Marshal(summary.Errors)
	if err != nil {
		return fmt.Errorf("marshal run errors: %w", err)
	}

	const q = `
UPDATE signaldesk.ingest_runs
SET finished_at = $1, status = $2, signals_fetched = $3, signals_accepted = $4,
    signals_rejected = $5, errors = $6::jsonb
WHERE run_id = $7
`
	_, err = r.pool.Exec(ctx, q, time.Now().UTC(), summary.Status, summary.SignalsFetched,
		summary.SignalsAccepted, summary.SignalsRejected, string(errorsJSON), runID)
	return err
}
