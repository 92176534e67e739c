package clusterer

import (
	"context"
	"fmt"
	"time"
)

// SweepStale demotes ACTIVE clusters whose lastSignalAt has fallen outside
// the active-days window to STALE, returning the number of rows demoted.
func (c *Clusterer) SweepStale(ctx context.Context) (int64, error) {
	if c == nil || c.pool == nil {
		return 0, fmt.Errorf("clusterer is not initialized")
	}

	activeDays := c.activeDays
	if activeDays <= 0 {
		activeDays = 7
	}
	cutoff := time.Now().UTC().Add(-time.Duration(activeDays) * 24 * time.Hour)

	const q = `
UPDATE signaldesk.story_clusters
SET status = 'STALE', updated_at = $2
WHERE status = 'ACTIVE' AND last_signal_at < $1
`
	tag, err := c.pool.Exec(ctx, q, cutoff, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("sweep stale clusters: %w", err)
	}
	return tag.RowsAffected(), nil
}
