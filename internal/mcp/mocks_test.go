package mcp

import (
	"context"
	"errors"
	"time"

	"github.com/anjanaaa29/rag-reader/internal/assistant"
	"github.com/anjanaaa29/rag-reader/internal/conversation"
	"github.com/anjanaaa29/rag-reader/internal/retriever"
	"github.com/anjanaaa29/rag-reader/internal/vectorindex"
)

type mockAssistant struct {
	askReq    assistant.AskRequest
	searchReq retriever.Request
	cleared   string

	askResp *assistant.AskResponse
	result  *retriever.Result
	err     error
}

func (m *mockAssistant) Ask(ctx context.Context, req assistant.AskRequest) (*assistant.AskResponse, error) {
	m.askReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.askResp, nil
}

func (m *mockAssistant) Search(ctx context.Context, req retriever.Request) (*retriever.Result, error) {
	m.searchReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockAssistant) ClearConversation(ctx context.Context, id string) error {
	m.cleared = id
	return m.err
}

type mockIndex struct{ info vectorindex.Info }

func (m mockIndex) Info() vectorindex.Info { return m.info }

type mockChecker struct{ err error }

func (m mockChecker) Health(ctx context.Context) error { return m.err }

var errDown = errors.New("dial tcp 10.1.2.3:6334: connection refused")

func sampleAnswer() *assistant.AskResponse {
	return &assistant.AskResponse{
		Answer:         "Rest and fluids.",
		Citations:      []string{"[WHO, 'Care Guide', 2021]"},
		Excerpts:       []string{"Rest is advised..."},
		ConversationID: "conv-1",
		History: []conversation.Turn{
			{Query: "q", Answer: "Rest and fluids.", Timestamp: time.Now()},
		},
	}
}
