package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"

	"github.com/anjanaaa29/rag-reader/internal/domain"
	"github.com/anjanaaa29/rag-reader/internal/embedding"
)

// DefaultMaxTokens is the maximum content length before truncation (in tokens).
const DefaultMaxTokens = 4000

// DefaultModel is the chat model asked for citation fields.
const DefaultModel = "gpt-4o-mini"

// CitationFields are the fields the model is asked to infer.
type CitationFields struct {
	Title        string `json:"title"`
	Authors      string `json:"authors"`
	Organization string `json:"organization"`
	Year         string `json:"year"`
	SourceType   string `json:"source_type"`
}

// Generator infers missing citation metadata with a chat model.
type Generator struct {
	client    *embedding.Client
	model     string
	maxTokens int
	logger    *slog.Logger
}

// NewGenerator creates a metadata generator with the given OpenAI client.
// Empty model means DefaultModel; maxTokens <= 0 means DefaultMaxTokens.
func NewGenerator(client *embedding.Client, model string, maxTokens int, logger *slog.Logger) *Generator {
	if model == "" {
		model = DefaultModel
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
		logger:    logger,
	}
}

// GenerateMetadata asks the model for citation fields of one document.
func (g *Generator) GenerateMetadata(ctx context.Context, path, content string) (*CitationFields, error) {
	truncated := g.truncateContent(content)

	prompt := fmt.Sprintf(`Identify citation details for this document.

Document path: %s

Document content:
%s

Respond in JSON format with these keys, using "" when unknown:
{"title": "...", "authors": "Surname, I, Surname, I", "organization": "...", "year": "YYYY", "source_type": "..."}

source_type must be one of: official_guideline, research_article, educational_material, web_page, generic.`, path, truncated)

	resp, err := g.client.Client().Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model: openai.ChatModel(g.model),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{
				Type: "json_object",
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	var fields CitationFields
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &fields); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &fields, nil
}

// Enrich returns a copy of meta with missing citation fields filled in.
// Existing values are never overwritten.
func (g *Generator) Enrich(ctx context.Context, path, content string, meta domain.Metadata) (domain.Metadata, error) {
	fields, err := g.GenerateMetadata(ctx, path, content)
	if err != nil {
		return nil, err
	}
	return merge(meta, fields), nil
}

func merge(meta domain.Metadata, fields *CitationFields) domain.Metadata {
	out := meta.Clone()
	fill := func(key, value string) {
		value = strings.TrimSpace(value)
		if value == "" {
			return
		}
		if existing := strings.TrimSpace(out.String(key)); existing != "" {
			return
		}
		out[key] = value
	}

	fill("title", fields.Title)
	fill("authors", fields.Authors)
	fill("organization", fields.Organization)
	fill("year", fields.Year)

	// generic is the loader default, so a model guess may replace it.
	if st := domain.ParseSourceType(fields.SourceType); st != domain.SourceGeneric && out.SourceType() == domain.SourceGeneric {
		out[domain.MetaSourceType] = string(st)
	}
	return out
}

// truncateContent truncates content to fit within token limits.
// Uses rough estimate of 4 characters per token.
func (g *Generator) truncateContent(content string) string {
	maxChars := g.maxTokens * 4

	runes := []rune(content)
	if len(runes) <= maxChars {
		return content
	}

	g.logger.Warn("Truncating content for metadata generation",
		"from_chars", len(runes),
		"to_chars", maxChars,
		"max_tokens", g.maxTokens,
	)
	return string(runes[:maxChars])
}
