package db

import (
	"context"
	"fmt"
)

// platformSeed is a small embedded catalog of known companion platforms,
// upserted idempotently at startup so the normalizer has slugs to resolve
// against without a separate seed-script binary.
var platformSeed = []struct {
	Slug        string
	Name        string
	Description string
	Website     string
}{
	{"character-ai", "Character.AI", "General-purpose companion chatbot platform.", "https://character.ai"},
	{"replika", "Replika", "AI companion app focused on long-term relationships.", "https://replika.com"},
	{"chai", "Chai", "Chat-app style companion platform.", "https://chai-research.com"},
	{"janitor-ai", "Janitor AI", "Roleplay-focused companion chat platform.", "https://janitorai.com"},
	{"kindroid", "Kindroid", "Customizable AI companion platform.", "https://kindroid.ai"},
	{"talkie", "Talkie", "Companion chat app.", ""},
	{"chatgpt", "ChatGPT", "General-purpose assistant occasionally used as a companion.", "https://chat.openai.com"},
}

// SeedPlatforms upserts the embedded platform catalog by slug.
func (p *Pool) SeedPlatforms(ctx context.Context) error {
	if p == nil || p.gdb == nil {
		return fmt.Errorf("database pool is not initialized")
	}

	const q = `
INSERT INTO signaldesk.platforms (slug, name, description, website)
VALUES ($1, $2, $3, NULLIF($4, ''))
ON CONFLICT (slug) DO UPDATE SET
	name = EXCLUDED.name,
	description = EXCLUDED.description,
	website = EXCLUDED.website
`

	for _, seed := range platformSeed {
		if _, err := p.Exec(ctx, q, seed.Slug, seed.Name, seed.Description, seed.Website); err != nil {
			return fmt.Errorf("seed platform %q: %w", seed.Slug, err)
		}
	}
	return nil
}
