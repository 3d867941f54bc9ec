package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anjanaaa29/rag-reader/internal/assistant"
	"github.com/anjanaaa29/rag-reader/internal/domain"
	"github.com/anjanaaa29/rag-reader/internal/retriever"
)

// toolError hides internal details; the SDK reports it as a tool error
// result rather than a protocol failure.
func (s *Server) toolError(tool string, err error) error {
	s.logger.Warn("Tool call failed", "tool", tool, "error", err)
	return errors.New(assistant.UserMessage(err))
}

func toFilter(in map[string]string) domain.Filter {
	if len(in) == 0 {
		return nil
	}
	f := make(domain.Filter, len(in))
	for k, v := range in {
		f[k] = v
	}
	return f
}

func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (
	*mcp.CallToolResult, AskOutput, error,
) {
	resp, err := s.assistant.Ask(ctx, assistant.AskRequest{
		Query:          input.Query,
		ConversationID: input.ConversationID,
		Filter:         toFilter(input.Filter),
	})
	if err != nil {
		return nil, AskOutput{}, s.toolError("ask_documents", err)
	}

	return nil, AskOutput{
		Answer:         resp.Answer,
		Citations:      nonNil(resp.Citations),
		Excerpts:       nonNil(resp.Excerpts),
		Disclaimer:     resp.Disclaimer,
		ConversationID: resp.ConversationID,
		Turns:          len(resp.History),
	}, nil
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult, SearchOutput, error,
) {
	result, err := s.assistant.Search(ctx, retriever.Request{
		Query:          input.Query,
		Strategy:       retriever.Strategy(input.Strategy),
		K:              input.K,
		FetchK:         input.FetchK,
		ScoreThreshold: input.ScoreThreshold,
		Filter:         toFilter(input.Filter),
	})
	if err != nil {
		return nil, SearchOutput{}, s.toolError("search_documents", err)
	}

	output := SearchOutput{
		Strategy: string(result.Strategy),
		Results:  make([]SearchResult, 0, len(result.Chunks)),
	}
	for _, sc := range result.Chunks {
		meta := sc.Chunk.Metadata
		output.Results = append(output.Results, SearchResult{
			Citation: s.citations.Format(meta),
			SourceID: meta.String(domain.MetaSourceID),
			Section:  meta.String(domain.MetaSection),
			Score:    sc.Score,
			Text:     sc.Chunk.Text,
		})
	}
	if len(output.Results) == 0 {
		output.Message = "No matching documents found. Try broader search terms."
	}
	return nil, output, nil
}

func (s *Server) handleStatus(ctx context.Context, _ *mcp.CallToolRequest, _ StatusInput) (
	*mcp.CallToolResult, StatusOutput, error,
) {
	info := s.index.Info()
	return nil, StatusOutput{
		IndexName:      info.IndexName,
		EmbeddingModel: info.EmbeddingModelName,
		DocumentCount:  info.DocumentCount,
		ChunkCount:     info.ChunkCount,
		Dimension:      info.Dimension,
		CreatedAt:      info.CreatedAt,
	}, nil
}

func (s *Server) handleClear(ctx context.Context, _ *mcp.CallToolRequest, input ClearInput) (
	*mcp.CallToolResult, ClearOutput, error,
) {
	if err := s.assistant.ClearConversation(ctx, input.ConversationID); err != nil {
		return nil, ClearOutput{}, s.toolError("clear_conversation", err)
	}
	return nil, ClearOutput{ConversationID: input.ConversationID, Cleared: true}, nil
}

// nonNil keeps JSON arrays from encoding as null.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
