package normalizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/signaldesk/signaldesk/internal/db"
	"github.com/signaldesk/signaldesk/internal/langdetect"
)

const (
	minCombinedTextLen = 50
	defaultMaxAttempts = 3
	maxSummaryLen      = 500
	maxHeadlineLen     = 200
	maxRawResponseLen  = 20000
)

const systemPrompt = `You are a filter and summarizer for an AI-companion-platform news aggregator.
Accept only items that are directly about known AI companion platforms (Replika, Character.AI,
Chai, Janitor AI, Kindroid, Talkie, and similar) or about companion-specific regulation, safety,
or business news. Respond with a single JSON object and nothing else, matching this shape:
{"summary": string, "suggestedHeadline": string, "categories": [string,...],
"entities": {"platforms": [string,...], "companies": [string,...], "people": [string,...], "topics": [string,...]},
"confidence": number}
Valid categories: PRODUCT_UPDATE, MONETIZATION_CHANGE, SAFETY_YOUTH_RISK, NSFW_CONTENT_POLICY,
CULTURAL_TREND, REGULATORY_LEGAL, BUSINESS_FUNDING.`

const fallbackSystemPrompt = systemPrompt + `
Your previous response did not match the required shape. Respond with EXACTLY this JSON shape and
nothing else — no prose, no markdown fences:
{"summary": "...", "suggestedHeadline": "...", "categories": ["PRODUCT_UPDATE"], "entities": {"platforms": [], "companies": [], "people": [], "topics": []}, "confidence": 0.5}`

// Normalizer calls the LLM for each pending signal, validates its response,
// decides accept/reject/fail, resolves platform slugs, detects language,
// and fetches an OG image for accepted signals.
type Normalizer struct {
	pool          *db.Pool
	client        *LLMClient
	provider      string
	promptVersion string
	minConfidence float64
	maxAttempts   int
}

func New(pool *db.Pool, client *LLMClient, provider, promptVersion string, minConfidence float64) *Normalizer {
	return &Normalizer{
		pool:          pool,
		client:        client,
		provider:      provider,
		promptVersion: promptVersion,
		minConfidence: minConfidence,
		maxAttempts:   defaultMaxAttempts,
	}
}

type pendingSignal struct {
	SignalID     int64
	Title        string
	RawText      string
	SourceName   string
	SourceURL    string
	PublishedAt  *time.Time
	CanonicalURL string
}

// NormalizeOne processes exactly one pending signal by id. It always leaves
// the signal in a terminal status (ACCEPTED/REJECTED/FAILED); a returned
// error means the database interaction itself failed, not that the item was
// rejected (rejection is a successful, recorded outcome). The returned
// status lets the caller decide whether to hand the signal to the
// clusterer.
func (n *Normalizer) NormalizeOne(ctx context.Context, signalID int64) (status string, err error) {
	sig, err := n.loadPending(ctx, signalID)
	if err != nil {
		return "", fmt.Errorf("load pending signal: %w", err)
	}

	combined := strings.TrimSpace(sig.Title + " " + sig.RawText)
	if len([]rune(combined)) < minCombinedTextLen {
		rejected := outcome{status: "REJECTED", reason: "text too short"}
		if err := n.finalize(ctx, sig.SignalID, rejected); err != nil {
			return "", err
		}
		return rejected.status, nil
	}

	out := n.runLLM(ctx, sig)
	if err := n.finalize(ctx, sig.SignalID, out); err != nil {
		return "", err
	}

	if out.status == "ACCEPTED" {
		if err := n.linkKnownPlatforms(ctx, sig.SignalID, out.platforms); err != nil {
			return "", fmt.Errorf("link known platforms: %w", err)
		}

		imageURL := FetchOGImage(ctx, firstNonEmptyStr(sig.CanonicalURL, sig.SourceURL))
		if imageURL != "" {
			if err := n.setImageURL(ctx, sig.SignalID, imageURL); err != nil {
				return "", fmt.Errorf("set image url: %w", err)
			}
		}
	}

	return out.status, nil
}

// linkKnownPlatforms splits slugs into those that exist in the Platform
// table (linked via SignalPlatform) and unknown ones (left recorded only in
// the signal's entities_platforms list, never linked).
func (n *Normalizer) linkKnownPlatforms(ctx context.Context, signalID int64, slugs []string) error {
	for _, slug := range slugs {
		var platformID int64
		err := n.pool.QueryRow(ctx, `SELECT platform_id FROM signaldesk.platforms WHERE slug = $1`, slug).Scan(&platformID)
		if err != nil {
			if db.IsNoRows(err) {
				continue // unknown platform: recorded in entities, not linked
			}
			return err
		}
		if _, err := n.pool.Exec(ctx, `
INSERT INTO signaldesk.signal_platforms (signal_id, platform_id, created_at)
VALUES ($1, $2, now())
ON CONFLICT (signal_id, platform_id) DO NOTHING`, signalID, platformID); err != nil {
			return err
		}
	}
	return nil
}

type outcome struct {
	status      string
	reason      string
	summary     string
	headline    string
	categories  []string
	platforms   []string
	companies   []string
	people      []string
	topics      []string
	confidence  *float64
	rawResponse string
	language    string
}

func (n *Normalizer) runLLM(ctx context.Context, sig pendingSignal) outcome {
	usedFallback := false
	var lastErr error

	for attempt := 1; attempt <= n.maxAttempts; attempt++ {
		system := systemPrompt
		if usedFallback {
			system = fallbackSystemPrompt
		}
		user := buildUserPrompt(sig)

		raw, err := n.client.Chat(ctx, system, user)
		if err != nil {
			var rl *RateLimitError
			if errors.As(err, &rl) {
				lastErr = err
				select {
				case <-ctx.Done():
					return outcome{status: "FAILED", reason: ctx.Err().Error()}
				case <-time.After(backoffDelay(rl.RetryAfter, attempt)):
				}
				continue
			}
			// Network/timeout/transport errors are not retried.
			return outcome{status: "FAILED", reason: fmt.Sprintf("llm request failed: %v", err)}
		}

		resp, err := ValidateLLMResponse(raw)
		if err != nil {
			lastErr = err
			if errors.Is(err, ErrSchemaInvalid) && !usedFallback {
				usedFallback = true
				continue
			}
			// Malformed JSON, or a validation failure that already used its
			// one fallback retry: stop without retrying further.
			return outcome{
				status:      "FAILED",
				reason:      summarizeError(err),
				rawResponse: raw,
			}
		}

		return n.decide(sig, resp, raw)
	}

	return outcome{status: "FAILED", reason: summarizeError(lastErr)}
}

func (n *Normalizer) decide(sig pendingSignal, resp *LLMResponse, raw string) outcome {
	language := langdetect.DetectISO6391(sig.Title + " " + sig.RawText)

	out := outcome{
		summary:     truncateRunes(resp.Summary, maxSummaryLen),
		headline:    truncateRunes(resp.SuggestedHeadline, maxHeadlineLen),
		categories:  resp.Categories,
		companies:   resp.Entities.Companies,
		people:      resp.Entities.People,
		topics:      resp.Entities.Topics,
		confidence:  &resp.Confidence,
		rawResponse: truncateRunes(raw, maxRawResponseLen),
		language:    language,
	}

	if resp.Confidence < n.minConfidence {
		out.status = "REJECTED"
		out.reason = fmt.Sprintf("confidence %.2f below threshold %.2f", resp.Confidence, n.minConfidence)
		return out
	}

	out.status = "ACCEPTED"
	out.platforms = normalizePlatformSlugs(resp.Entities.Platforms)
	return out
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

func normalizePlatformSlugs(raw []string) []string {
	slugs := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, p := range raw {
		slug := strings.Trim(nonSlugChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(p)), "-"), "-")
		if slug == "" {
			continue
		}
		if _, dup := seen[slug]; dup {
			continue
		}
		seen[slug] = struct{}{}
		slugs = append(slugs, slug)
	}
	return slugs
}

func buildUserPrompt(sig pendingSignal) string {
	published := "unknown"
	if sig.PublishedAt != nil {
		published = sig.PublishedAt.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf(
		"Title: %s\nSource: %s\nURL: %s\nPublished: %s\nContent:\n%s",
		sig.Title, sig.SourceName, sig.SourceURL, published, sig.RawText,
	)
}

func backoffDelay(serverAdvised time.Duration, attempt int) time.Duration {
	if serverAdvised > 0 {
		return serverAdvised
	}
	return time.Duration(attempt) * time.Second
}

func summarizeError(err error) string {
	if err == nil {
		return "unknown normalization failure"
	}
	msg := err.Error()
	return truncateRunes(msg, 500)
}

func truncateRunes(s string, limit int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= limit {
		return string(runes)
	}
	if limit <= 1 {
		return "…"
	}
	return string(runes[:limit-1]) + "…"
}

func firstNonEmptyStr(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func (n *Normalizer) loadPending(ctx context.Context, signalID int64) (pendingSignal, error) {
	const q = `
SELECT s.signal_id, s.title, COALESCE(s.canonical_url, ''), r.raw_text, r.source_name, r.source_url, s.published_at
FROM signaldesk.signals s
JOIN signaldesk.raw_signals r ON r.raw_signal_id = s.raw_signal_id
WHERE s.signal_id = $1 AND s.ingest_status = 'PENDING'
`
	var sig pendingSignal
	var rawText *string
	err := n.pool.QueryRow(ctx, q, signalID).Scan(
		&sig.SignalID, &sig.Title, &sig.CanonicalURL, &rawText, &sig.SourceName, &sig.SourceURL, &sig.PublishedAt,
	)
	if err != nil {
		return pendingSignal{}, err
	}
	if rawText != nil {
		sig.RawText = *rawText
	}
	return sig, nil
}

func (n *Normalizer) finalize(ctx context.Context, signalID int64, o outcome) error {
	categoriesJSON, _ := json.Marshal(defaultSlice(o.categories))
	platformsJSON, _ := json.Marshal(defaultSlice(o.platforms))
	companiesJSON, _ := json.Marshal(defaultSlice(o.companies))
	peopleJSON, _ := json.Marshal(defaultSlice(o.people))
	topicsJSON, _ := json.Marshal(defaultSlice(o.topics))

	language := o.language
	if language == "" {
		language = "en"
	}

	const q = `
UPDATE signaldesk.signals
SET normalized_summary = NULLIF($1, ''),
    suggested_headline  = NULLIF($2, ''),
    categories          = $3::jsonb,
    entities_platforms   = $4::jsonb,
    entities_companies   = $5::jsonb,
    entities_people      = $6::jsonb,
    entities_topics      = $7::jsonb,
    confidence           = $8,
    llm_provider         = $9,
    llm_prompt_version   = $10,
    llm_raw_response     = NULLIF($11, ''),
    ingest_status        = $12,
    ingest_reason        = NULLIF($13, ''),
    language             = $14,
    normalized_at        = $15
WHERE signal_id = $16
`
	tag, err := n.pool.Exec(ctx, q,
		o.summary, o.headline, string(categoriesJSON), string(platformsJSON), string(companiesJSON),
		string(peopleJSON), string(topicsJSON), o.confidence, n.provider, n.promptVersion,
		o.rawResponse, o.status, o.reason, language, time.Now().UTC(), signalID,
	)
	if err != nil {
		return fmt.Errorf("update signal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("signal %d not found during finalize", signalID)
	}
	return nil
}

func (n *Normalizer) setImageURL(ctx context.Context, signalID int64, imageURL string) error {
	_, err := n.pool.Exec(ctx, `UPDATE signaldesk.signals SET image_url = $1 WHERE signal_id = $2`, imageURL, signalID)
	return err
}

func defaultSlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
