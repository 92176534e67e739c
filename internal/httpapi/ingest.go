package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
)

type ingestRunSummary struct {
	RunID           int64           `json:"runId"`
	RunUUID         string          `json:"runUuid"`
	Status          string          `json:"status"`
	StartedAt       time.Time       `json:"startedAt"`
	FinishedAt      *time.Time      `json:"finishedAt,omitempty"`
	SignalsFetched  int             `json:"signalsFetched"`
	SignalsAccepted int             `json:"signalsAccepted"`
	SignalsRejected int             `json:"signalsRejected"`
	Errors          json.RawMessage `json:"errors,omitempty"`
}

const ingestRunAuditLimit = 10

func (s *Server) handleIngestRuns(c echo.Context) error {
	rows, err := s.queryRecentIngestRuns(c.Request().Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("query ingest runs failed")
		return internalError(c, "Failed to load ingest runs")
	}
	return success(c, map[string]any{"items": rows})
}

func (s *Server) queryRecentIngestRuns(ctx context.Context) ([]ingestRunSummary, error) {
	const q = `
SELECT run_id, run_uuid, status, started_at, finished_at,
       signals_fetched, signals_accepted, signals_rejected, errors
FROM signaldesk.ingest_runs
ORDER BY started_at DESC, run_id DESC
LIMIT $1
`
	rows, err := s.pool.Query(ctx, q, ingestRunAuditLimit)
	if err != nil {
		return nil, fmt.Errorf("query ingest runs: %w", err)
	}
	defer rows.Close()

	var out []ingestRunSummary
	for rows.Next() {
		var row ingestRunSummary
		var errsJS []byte
		if err := rows.Scan(
			&row.RunID, &row.RunUUID, &row.Status, &row.StartedAt, &row.FinishedAt,
			&row.SignalsFetched, &row.SignalsAccepted, &row.SignalsRejected, &errsJS,
		); err != nil {
			return nil, fmt.Errorf("scan ingest run row: %w", err)
		}
		if len(errsJS) > 0 {
			row.Errors = json.RawMessage(errsJS)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ingest run rows: %w", err)
	}
	return out, nil
}

func (s *Server) handleTriggerIngest(c echo.Context) error {
	if s.runner == nil {
		return internalError(c, "Ingest runner is not configured")
	}

	started := time.Now()
	summary, err := s.runner.RunOnce(c.Request().Context())
	duration := time.Since(started)

	if err != nil {
		s.logger.Error().Err(err).Msg("triggered ingest cycle failed")
		return internalError(c, "Ingest cycle failed")
	}

	return success(c, map[string]any{
		"runId":           summary.RunID,
		"status":          summary.Status,
		"mode":            "manual",
		"signalsFetched":  summary.SignalsFetched,
		"signalsAccepted": summary.SignalsAccepted,
		"signalsRejected": summary.SignalsRejected,
		"errorCount":      len(summary.Errors),
		"durationMs":      duration.Milliseconds(),
	})
}
