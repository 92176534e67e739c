package normalizer

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	ogImageFetchTimeout = 10 * time.Second
	ogImageMaxBytes     = 50 * 1024
	ogImageMaxURLLen    = 2000
	ogImageMaxQueryLen  = 200
)

var (
	ogImageRe      = regexp.MustCompile(`(?is)<meta[^>]+property=["']og:image["'][^>]+content=["']([^"']+)["']`)
	twitterImageRe = regexp.MustCompile(`(?is)<meta[^>]+name=["']twitter:image["'][^>]+content=["']([^"']+)["']`)
)

// FetchOGImage issues a short-timeout GET against pageURL with a
// browser-like User-Agent, reads at most ogImageMaxBytes or up to the first
// "</head>", and regex-extracts an og:image or twitter:image URL. Any
// failure along the way is silent: this is a best-effort enrichment, never
// a reason to fail normalization.
func FetchOGImage(ctx context.Context, pageURL string) string {
	imageURL, ok := fetchOGImage(ctx, pageURL)
	if !ok {
		return ""
	}
	return imageURL
}

func fetchOGImage(ctx context.Context, pageURL string) (string, bool) {
	requestCtx, cancel := context.WithTimeout(ctx, ogImageFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", false
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; SignalDeskBot/1.0; +https://signaldesk.example/bot)")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", false
	}

	body, err := readUntilHeadOrLimit(resp.Body, ogImageMaxBytes)
	if err != nil {
		return "", false
	}

	candidate := firstMatch(ogImageRe, body)
	if candidate == "" {
		candidate = firstMatch(twitterImageRe, body)
	}
	if candidate == "" {
		return "", false
	}

	if !validOGImageURL(candidate) {
		return "", false
	}
	return candidate, true
}

func readUntilHeadOrLimit(r io.Reader, limit int64) (string, error) {
	limited := io.LimitReader(r, limit)
	var buf strings.Builder
	chunk := make([]byte, 4096)
	for {
		n, err := limited.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			if strings.Contains(strings.ToLower(buf.String()), "</head>") {
				break
			}
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return "", err
		}
	}
	return buf.String(), nil
}

func firstMatch(re *regexp.Regexp, body string) string {
	m := re.FindStringSubmatch(body)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func validOGImageURL(raw string) bool {
	if len(raw) == 0 || len(raw) > ogImageMaxURLLen {
		return false
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	if len(parsed.RawQuery) > ogImageMaxQueryLen {
		return false
	}
	path := strings.ToLower(parsed.Path)
	if strings.Contains(path, "/api/og") || strings.Contains(path, "/og-image") {
		return false
	}
	return true
}
