package assistant

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anjanaaa29/rag-reader/internal/conversation"
	"github.com/anjanaaa29/rag-reader/internal/domain"
	"github.com/anjanaaa29/rag-reader/internal/embedding"
	"github.com/anjanaaa29/rag-reader/internal/metrics"
	"github.com/anjanaaa29/rag-reader/internal/retriever"
	"github.com/anjanaaa29/rag-reader/internal/synth"
	"github.com/anjanaaa29/rag-reader/internal/vectorindex"
)

type stubCompleter struct {
	mu      sync.Mutex
	answer  string
	err     error
	prompts []string
}

func (s *stubCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	return s.answer, s.err
}

func setupService(t *testing.T, completer synth.Completer) (*Service, conversation.Store) {
	t.Helper()
	emb := embedding.NewHashEmbedder(128)
	chunks := []domain.Chunk{
		{Text: "The vector index stores normalized embeddings.", Metadata: domain.Metadata{"source_id": "index.md", "source_type": "educational_material", "publisher": "Docs Team"}},
		{Text: "Maximal marginal relevance balances relevance and diversity.", Metadata: domain.Metadata{"source_id": "mmr.md", "source_type": "research_article", "authors": "Carbonell, J, Goldstein, J", "year": "1998"}},
		{Text: "Conversation history is kept per session.", Metadata: domain.Metadata{"source_id": "chat.md", "source_type": "web_page", "site_name": "Wiki"}},
	}
	idx, err := vectorindex.Build(context.Background(), chunks, emb)
	require.NoError(t, err)

	store := conversation.NewMemoryStore()
	svc := New(
		retriever.New(idx, emb),
		synth.New(completer),
		store,
		WithRetrievalDefaults(RetrievalDefaults{Strategy: retriever.StrategySimilarity, K: 2}),
		WithMetrics(metrics.New()),
	)
	return svc, store
}

func TestAsk_NewConversation(t *testing.T) {
	completer := &stubCompleter{answer: "Embeddings are normalized."}
	svc, _ := setupService(t, completer)

	resp, err := svc.Ask(context.Background(), AskRequest{Query: "how does the vector index store embeddings?"})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.ConversationID)
	assert.Contains(t, resp.Answer, "Embeddings are normalized.")
	assert.Equal(t, synth.GeneralDisclaimer, resp.Disclaimer)
	assert.Len(t, resp.Citations, 2)
	assert.Len(t, resp.Excerpts, 2)
	require.Len(t, resp.History, 1)
	assert.Equal(t, "how does the vector index store embeddings?", resp.History[0].Query)
	assert.Equal(t, resp.Answer, resp.History[0].Answer)
}

func TestAsk_ContinuesConversation(t *testing.T) {
	completer := &stubCompleter{answer: "Answer."}
	svc, _ := setupService(t, completer)
	ctx := context.Background()

	first, err := svc.Ask(ctx, AskRequest{Query: "what is mmr?"})
	require.NoError(t, err)

	second, err := svc.Ask(ctx, AskRequest{Query: "and why does it help?", ConversationID: first.ConversationID})
	require.NoError(t, err)

	assert.Equal(t, first.ConversationID, second.ConversationID)
	require.Len(t, second.History, 2)
	assert.Equal(t, "what is mmr?", second.History[0].Query)
	assert.Contains(t, completer.prompts[1], "User: what is mmr?")
}

func TestAsk_FailureCommitsNothing(t *testing.T) {
	completer := &stubCompleter{err: errors.New("service unavailable")}
	svc, store := setupService(t, completer)
	ctx := context.Background()

	id, err := store.Create(ctx)
	require.NoError(t, err)

	_, err = svc.Ask(ctx, AskRequest{Query: "anything", ConversationID: id})
	require.ErrorIs(t, err, domain.ErrGeneration)

	history, err := store.History(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestAsk_EmptyQuery(t *testing.T) {
	completer := &stubCompleter{answer: "x"}
	svc, _ := setupService(t, completer)

	_, err := svc.Ask(context.Background(), AskRequest{Query: "  "})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Empty(t, completer.prompts)
}

func TestAsk_Filter(t *testing.T) {
	completer := &stubCompleter{answer: "Answer."}
	svc, _ := setupService(t, completer)

	resp, err := svc.Ask(context.Background(), AskRequest{
		Query:  "what is stored?",
		Filter: domain.Filter{"source_id": "chat.md"},
	})
	require.NoError(t, err)
	require.Len(t, resp.Citations, 1)
	assert.Equal(t, "[Wiki]", resp.Citations[0])
}

func TestSearch_UsesDefaults(t *testing.T) {
	svc, _ := setupService(t, &stubCompleter{answer: "x"})

	res, err := svc.Search(context.Background(), retriever.Request{Query: "diversity"})
	require.NoError(t, err)
	assert.Equal(t, retriever.StrategySimilarity, res.Strategy)
	assert.Len(t, res.Chunks, 2)
}

func TestClearConversation(t *testing.T) {
	svc, _ := setupService(t, &stubCompleter{answer: "Answer."})
	ctx := context.Background()

	resp, err := svc.Ask(ctx, AskRequest{Query: "hello"})
	require.NoError(t, err)

	require.NoError(t, svc.ClearConversation(ctx, resp.ConversationID))
	history, err := svc.History(ctx, resp.ConversationID)
	require.NoError(t, err)
	assert.Empty(t, history)

	assert.ErrorIs(t, svc.ClearConversation(ctx, ""), domain.ErrValidation)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, metrics.OutcomeSuccess, outcome(nil))
	assert.Equal(t, metrics.OutcomeValidation, outcome(domain.ErrUnsupportedStrategy))
	assert.Equal(t, metrics.OutcomeTimeout, outcome(domain.ErrTimeout))
	assert.Equal(t, metrics.OutcomeGeneration, outcome(domain.ErrGeneration))
	assert.Equal(t, metrics.OutcomeError, outcome(errors.New("boom")))
}

func TestUserMessage(t *testing.T) {
	assert.Empty(t, UserMessage(nil))
	assert.Equal(t, "validation error: query must not be empty",
		UserMessage(fmt.Errorf("%w: query must not be empty", domain.ErrValidation)))
	assert.Contains(t, UserMessage(fmt.Errorf("wrap: %w", domain.ErrTimeout)), "too long")
	assert.Contains(t, UserMessage(domain.ErrGeneration), "could not be generated")
	assert.Contains(t, UserMessage(domain.ErrEmptyCorpus), "No documents")

	internal := UserMessage(errors.New("dial tcp 10.0.0.1:6379: connection refused"))
	assert.NotContains(t, internal, "10.0.0.1")
}
