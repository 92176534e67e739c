package httpapi

import (
	"context"
	"fmt"

	"github.com/labstack/echo/v4"
)

type platformSummary struct {
	Slug               string `json:"slug"`
	Name               string `json:"name"`
	ActiveClusterCount int64  `json:"activeClusterCount"`
}

func (s *Server) handlePlatforms(c echo.Context) error {
	rows, err := s.queryPlatformSummaries(c.Request().Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("query platforms failed")
		return internalError(c, "Failed to load platforms")
	}
	return success(c, map[string]any{"items": rows})
}

func (s *Server) queryPlatformSummaries(ctx context.Context) ([]platformSummary, error) {
	const q = `
SELECT p.slug, p.name, COUNT(cp.cluster_id) FILTER (WHERE c.status = 'ACTIVE')
FROM signaldesk.platforms p
LEFT JOIN signaldesk.cluster_platforms cp ON cp.platform_id = p.platform_id
LEFT JOIN signaldesk.story_clusters c ON c.cluster_id = cp.cluster_id
GROUP BY p.platform_id, p.slug, p.name
ORDER BY p.name
`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query platform summaries: %w", err)
	}
	defer rows.Close()

	var out []platformSummary
	for rows.Next() {
		var row platformSummary
		if err := rows.Scan(&row.Slug, &row.Name, &row.ActiveClusterCount); err != nil {
			return nil, fmt.Errorf("scan platform summary row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate platform summary rows: %w", err)
	}
	return out, nil
}
