// Package mcp exposes question answering over the indexed corpus as Model
// Context Protocol tools.
package mcp

import "time"

// AskInput defines the input parameters for the ask_documents tool.
type AskInput struct {
	Query          string            `json:"query" jsonschema:"the question to answer from the indexed documents"`
	ConversationID string            `json:"conversation_id,omitempty" jsonschema:"conversation to continue; omit to start a new one"`
	Filter         map[string]string `json:"filter,omitempty" jsonschema:"metadata key/value pairs every source must match"`
}

// AskOutput contains the answer and its provenance.
type AskOutput struct {
	Answer         string   `json:"answer"`
	Citations      []string `json:"citations"`
	Excerpts       []string `json:"excerpts"`
	Disclaimer     string   `json:"disclaimer,omitempty"`
	ConversationID string   `json:"conversation_id"`
	Turns          int      `json:"turns"`
}

// SearchInput defines the input parameters for the search_documents tool.
type SearchInput struct {
	Query          string            `json:"query" jsonschema:"the semantic search query"`
	Strategy       string            `json:"strategy,omitempty" jsonschema:"similarity, mmr or similarity_score_threshold"`
	K              int               `json:"k,omitempty" jsonschema:"maximum number of chunks to return"`
	FetchK         int               `json:"fetch_k,omitempty" jsonschema:"candidate pool size for mmr"`
	ScoreThreshold *float64          `json:"score_threshold,omitempty" jsonschema:"minimum relevance score in [0, 1]"`
	Filter         map[string]string `json:"filter,omitempty" jsonschema:"metadata key/value pairs every chunk must match"`
}

// SearchOutput contains the retrieved chunks.
type SearchOutput struct {
	Strategy string         `json:"strategy"`
	Results  []SearchResult `json:"results"`
	Message  string         `json:"message,omitempty"`
}

// SearchResult represents a single chunk match.
type SearchResult struct {
	Citation string  `json:"citation"`
	SourceID string  `json:"source_id"`
	Section  string  `json:"section,omitempty"`
	Score    float64 `json:"score"`
	Text     string  `json:"text"`
}

// StatusInput takes no parameters.
type StatusInput struct{}

// StatusOutput describes the loaded index.
type StatusOutput struct {
	IndexName      string    `json:"index_name"`
	EmbeddingModel string    `json:"embedding_model"`
	DocumentCount  int       `json:"document_count"`
	ChunkCount     int       `json:"chunk_count"`
	Dimension      int       `json:"dimension"`
	CreatedAt      time.Time `json:"created_at"`
}

// ClearInput defines the input parameters for the clear_conversation tool.
type ClearInput struct {
	ConversationID string `json:"conversation_id" jsonschema:"the conversation whose history should be deleted"`
}

// ClearOutput reports the cleared conversation.
type ClearOutput struct {
	ConversationID string `json:"conversation_id"`
	Cleared        bool   `json:"cleared"`
}
