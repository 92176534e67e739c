package normalizer

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrMalformedJSON means the model's output could not even be parsed as
// JSON; the retry loop must not retry this with a fallback prompt, per the
// "on JSON error without validation error, do not retry" rule.
var ErrMalformedJSON = errors.New("llm response is not valid JSON")

// ErrSchemaInvalid means the JSON parsed but failed shape validation; the
// retry loop retries this once with a stricter fallback prompt.
var ErrSchemaInvalid = errors.New("llm response does not match the expected shape")

//go:embed llm_response.schema.json
var llmResponseSchemaJSON string

// LLMResponse is the validated shape of one normalizer LLM call's JSON
// output, per spec.md §4.4.
type LLMResponse struct {
	Summary           string   `json:"summary"`
	SuggestedHeadline string   `json:"suggestedHeadline"`
	Categories        []string `json:"categories"`
	Entities          Entities `json:"entities"`
	Confidence        float64  `json:"confidence"`
}

// Entities holds the four recognized entity lists. Any missing list
// defaults to empty rather than null.
type Entities struct {
	Platforms []string `json:"platforms"`
	Companies []string `json:"companies"`
	People    []string `json:"people"`
	Topics    []string `json:"topics"`
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// ValidateLLMResponse extracts a balanced {...} block from raw (in case the
// model wrapped it in prose), decodes it strictly, validates it against the
// embedded schema, and unmarshals it into an LLMResponse with empty-list
// defaults for omitted entity fields.
func ValidateLLMResponse(raw string) (*LLMResponse, error) {
	candidate, err := extractJSONObject(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}

	value, err := decodeStrictJSON([]byte(candidate))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaInvalid, err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize response JSON: %w", err)
	}

	var resp LLMResponse
	if err := json.Unmarshal(normalized, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if resp.Entities.Platforms == nil {
		resp.Entities.Platforms = []string{}
	}
	if resp.Entities.Companies == nil {
		resp.Entities.Companies = []string{}
	}
	if resp.Entities.People == nil {
		resp.Entities.People = []string{}
	}
	if resp.Entities.Topics == nil {
		resp.Entities.Topics = []string{}
	}

	return &resp, nil
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource("llm_response.schema.json", strings.NewReader(llmResponseSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("llm_response.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}

		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("response is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("response contains trailing content")
	}

	return value, nil
}

// extractJSONObject returns the first balanced {...} substring in raw,
// tolerating prose the model may have wrapped the object in.
func extractJSONObject(raw string) (string, error) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", fmt.Errorf("no JSON object found in response")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		switch {
		case inString:
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
		case c == '"':
			inString = true
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return raw[start : i+1], nil
			}
		}
	}

	return "", fmt.Errorf("unbalanced JSON object in response")
}
