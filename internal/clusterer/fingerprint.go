package clusterer

import (
	"sort"
	"strings"
	"time"
)

const fingerprintTopKeywords = 5

// Fingerprint composes the coarse grouping key for one signal: sorted
// platform slugs, the UTC date of publishedAt (falling back to createdAt),
// and the top keywords of its headline/summary. Two items about the same
// story on the same day converge onto the same fingerprint.
func Fingerprint(platforms []string, publishedAt *time.Time, createdAt time.Time, keywords []string) string {
	sortedPlatforms := append([]string(nil), platforms...)
	sort.Strings(sortedPlatforms)

	day := createdAt.UTC()
	if publishedAt != nil && !publishedAt.IsZero() {
		day = publishedAt.UTC()
	}

	top := keywords
	if len(top) > fingerprintTopKeywords {
		top = top[:fingerprintTopKeywords]
	}

	return strings.Join(sortedPlatforms, ",") + "|" + day.Format("2006-01-02") + "|" + strings.Join(top, ",")
}
