// Package textutil provides the pure, deterministic text and hashing
// primitives shared by the fetch connectors, raw-signal store, normalizer,
// and clusterer: content hashing, URL normalization, domain extraction,
// tokenization, and keyword extraction.
package textutil

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// NormalizeURL lowercases the scheme, host, and path, strips a trailing
// slash (except for the root path), and discards the query and fragment.
// It is used only to build the content hash input, not as a display URL.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return strings.ToLower(raw)
	}

	scheme := strings.ToLower(parsed.Scheme)
	host := strings.ToLower(parsed.Host)
	path := strings.ToLower(parsed.Path)
	if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}

	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString("://")
	b.WriteString(host)
	b.WriteString(path)
	return b.String()
}

// ExtractDomain returns the host of rawURL with a leading "www." stripped.
// If the URL fails to parse, it falls back to a conservative regex match
// against the raw string so callers always get a best-effort domain.
func ExtractDomain(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ""
	}
	if parsed, err := url.Parse(rawURL); err == nil && parsed.Host != "" {
		return stripWWW(parsed.Host)
	}
	if m := domainFallbackRe.FindString(rawURL); m != "" {
		return stripWWW(strings.ToLower(m))
	}
	return ""
}

var domainFallbackRe = regexp.MustCompile(`(?i)[a-z0-9][a-z0-9-]*(\.[a-z0-9][a-z0-9-]*)+`)

func stripWWW(host string) string {
	host = strings.ToLower(host)
	if idx := strings.IndexByte(host, ':'); idx >= 0 {
		host = host[:idx]
	}
	return strings.TrimPrefix(host, "www.")
}

// ContentHash computes the deduplication key for a fetched item. When the
// source feed supplied an external id, the hash covers the normalized URL
// and that id. Otherwise it falls back to the normalized URL, the
// lowercased title, and a coarse publish-date bucket (day granularity, or
// "unknown" when no published time is available).
func ContentHash(rawURL, externalID, title string, publishedAt *time.Time) string {
	normalizedURL := NormalizeURL(rawURL)

	var input string
	if externalID != "" {
		input = normalizedURL + "|" + externalID + "|"
	} else {
		bucket := "unknown"
		if publishedAt != nil && !publishedAt.IsZero() {
			bucket = publishedAt.UTC().Format("2006-01-02")
		}
		input = normalizedURL + "|" + strings.ToLower(strings.TrimSpace(title)) + "|" + bucket
	}

	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// FingerprintLockKey derives a deterministic PostgreSQL advisory-lock key
// from a cluster fingerprint: SHA-256 over the fingerprint, the top 8 bytes
// of the digest with the high 4 bits cleared so the result always fits in
// the signed 64-bit range pg_advisory_xact_lock expects.
func FingerprintLockKey(fingerprint string) int64 {
	sum := sha256.Sum256([]byte(fingerprint))
	v := binary.BigEndian.Uint64(sum[:8])
	v &^= uint64(0xF) << 60
	return int64(v)
}

// Truncate shortens s to at most limit runes, appending an ellipsis marker
// within the limit when truncation occurs. Strings already within the
// limit are returned unchanged.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	const marker = "…"
	if limit <= len([]rune(marker)) {
		return string(runes[:limit])
	}
	return string(runes[:limit-1]) + marker
}
