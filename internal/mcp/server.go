package mcp

import (
	"context"
	"errors"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anjanaaa29/rag-reader/internal/assistant"
	"github.com/anjanaaa29/rag-reader/internal/citation"
	"github.com/anjanaaa29/rag-reader/internal/retriever"
	"github.com/anjanaaa29/rag-reader/internal/vectorindex"
)

// ErrMissingAssistant is returned by NewServer without an Assistant.
var ErrMissingAssistant = errors.New("mcp: assistant is required")

// Assistant is the question-answering service behind the tools.
type Assistant interface {
	Ask(ctx context.Context, req assistant.AskRequest) (*assistant.AskResponse, error)
	Search(ctx context.Context, req retriever.Request) (*retriever.Result, error)
	ClearConversation(ctx context.Context, id string) error
}

// IndexInfo reports on the loaded index.
type IndexInfo interface {
	Info() vectorindex.Info
}

// Server wraps the MCP server with dependencies.
type Server struct {
	server    *mcp.Server
	assistant Assistant
	index     IndexInfo
	citations citation.Formatter
	logger    *slog.Logger
}

// Config holds server dependencies.
type Config struct {
	Name      string
	Version   string
	Assistant Assistant
	Index     IndexInfo
	Logger    *slog.Logger
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) (*Server, error) {
	if cfg == nil || cfg.Assistant == nil {
		return nil, ErrMissingAssistant
	}

	name := cfg.Name
	if name == "" {
		name = "rag-reader"
	}
	version := cfg.Version
	if version == "" {
		version = "v0.1.0"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		server:    mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil),
		assistant: cfg.Assistant,
		index:     cfg.Index,
		citations: citation.New(),
		logger:    logger,
	}
	s.registerTools()
	return s, nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask_documents",
		Description: "Answer a question from the indexed documents. Returns the answer with citations and supporting excerpts. Pass conversation_id to ask follow-up questions.",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_documents",
		Description: "Retrieve the document chunks most relevant to a query without generating an answer.",
	}, s.handleSearch)

	if s.index != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "get_index_status",
			Description: "Get the current status of the document index including document and chunk counts and the embedding model.",
		}, s.handleStatus)
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "clear_conversation",
		Description: "Delete the history of a conversation.",
	}, s.handleClear)
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
// Used by transport handlers that need to wrap the server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
