package synth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anjanaaa29/rag-reader/internal/conversation"
	"github.com/anjanaaa29/rag-reader/internal/domain"
	"github.com/anjanaaa29/rag-reader/internal/retriever"
)

// fakeCompleter records prompts and returns a canned answer.
type fakeCompleter struct {
	answer  string
	err     error
	delay   time.Duration
	prompts []string
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.answer, f.err
}

func retrieval(n int) *retriever.Result {
	res := &retriever.Result{Strategy: retriever.StrategySimilarity}
	for i := 0; i < n; i++ {
		res.Chunks = append(res.Chunks, retriever.ScoredChunk{
			Chunk: domain.Chunk{
				Text: "Chunk   text\n\nnumber " + string(rune('A'+i)) + " " + strings.Repeat("long ", 100),
				Metadata: domain.Metadata{
					"source_type": "web_page",
					"site_name":   "Site " + string(rune('A'+i)),
				},
			},
			Score: 0.9,
		})
	}
	return res
}

func TestSynthesize_CapsSourcesAndExcerpts(t *testing.T) {
	fc := &fakeCompleter{answer: "Grounded answer."}
	s := New(fc)

	resp, err := s.Synthesize(context.Background(), Request{Query: "what?", Retrieval: retrieval(5)})
	require.NoError(t, err)

	require.Len(t, resp.Citations, DefaultMaxSources)
	require.Len(t, resp.Excerpts, DefaultMaxSources)
	assert.Equal(t, "[Site A]", resp.Citations[0])
	assert.True(t, strings.HasPrefix(resp.Excerpts[0], "Chunk text number A long"))
	assert.True(t, strings.HasSuffix(resp.Excerpts[0], "..."))
	assert.Len(t, []rune(resp.Excerpts[0]), DefaultExcerptLength+3)

	require.Len(t, fc.prompts, 1)
	assert.Contains(t, fc.prompts[0], "[5] [Site E]")
}

func TestSynthesize_EmptyRetrievalStillCallsCompleter(t *testing.T) {
	fc := &fakeCompleter{answer: "I could not find this in the documents."}
	s := New(fc)

	resp, err := s.Synthesize(context.Background(), Request{Query: "anything?", Retrieval: &retriever.Result{}})
	require.NoError(t, err)
	require.Len(t, fc.prompts, 1)
	assert.Contains(t, fc.prompts[0], noContext)
	assert.Empty(t, resp.Citations)
	assert.Empty(t, resp.Excerpts)
	assert.NotNil(t, resp.Citations)
}

func TestSynthesize_AppendsDisclaimer(t *testing.T) {
	fc := &fakeCompleter{answer: "Answer text."}
	s := New(fc, WithDomain("legal"))

	resp, err := s.Synthesize(context.Background(), Request{Query: "can I sue?"})
	require.NoError(t, err)
	assert.Equal(t, LegalNotice, resp.Disclaimer)
	assert.Equal(t, "Answer text.\n\n"+LegalNotice, resp.Answer)
}

func TestSynthesize_NoDuplicateDisclaimer(t *testing.T) {
	fc := &fakeCompleter{answer: "Answer.\n\n**DISCLAIMER**: already here."}
	s := New(fc)

	resp, err := s.Synthesize(context.Background(), Request{Query: "q"})
	require.NoError(t, err)
	assert.Empty(t, resp.Disclaimer)
	assert.Equal(t, 1, strings.Count(strings.ToLower(resp.Answer), "disclaimer"))
}

func TestSynthesize_RequestDomainOverridesDefault(t *testing.T) {
	fc := &fakeCompleter{answer: "Answer."}
	s := New(fc, WithDomain("legal"))

	resp, err := s.Synthesize(context.Background(), Request{Query: "what are the symptoms of flu?", Domain: "medical"})
	require.NoError(t, err)
	assert.Equal(t, DiagnosisDisclaimer, resp.Disclaimer)
	assert.Contains(t, fc.prompts[0], "You are a medical specialist")
}

func TestSynthesize_HistoryWindow(t *testing.T) {
	fc := &fakeCompleter{answer: "Answer."}
	s := New(fc, WithHistoryTurns(2))

	history := []conversation.Turn{
		{Query: "first question", Answer: "first answer"},
		{Query: "second question", Answer: "second answer"},
		{Query: "third question", Answer: "third answer"},
	}
	_, err := s.Synthesize(context.Background(), Request{Query: "follow up", History: history})
	require.NoError(t, err)

	prompt := fc.prompts[0]
	assert.NotContains(t, prompt, "first question")
	assert.Contains(t, prompt, "User: second question\nAssistant: second answer")
	assert.Contains(t, prompt, "User: third question")
	assert.Less(t, strings.Index(prompt, "third question"), strings.Index(prompt, "Question: follow up"))
}

func TestSynthesize_SensitiveQueryAddsCaution(t *testing.T) {
	fc := &fakeCompleter{answer: "Answer."}
	s := New(fc)

	_, err := s.Synthesize(context.Background(), Request{Query: "what dosage is safe?"})
	require.NoError(t, err)
	assert.Contains(t, fc.prompts[0], "sensitive information")

	_, err = s.Synthesize(context.Background(), Request{Query: "what is the capital?"})
	require.NoError(t, err)
	assert.NotContains(t, fc.prompts[1], "sensitive information")
}

func TestSynthesize_GenerationError(t *testing.T) {
	s := New(&fakeCompleter{err: errors.New("upstream 500")})

	resp, err := s.Synthesize(context.Background(), Request{Query: "q"})
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, domain.ErrGeneration)
}

func TestSynthesize_EmptyCompletionIsGenerationError(t *testing.T) {
	s := New(&fakeCompleter{answer: "   "})

	_, err := s.Synthesize(context.Background(), Request{Query: "q"})
	assert.ErrorIs(t, err, domain.ErrGeneration)
}

func TestSynthesize_Timeout(t *testing.T) {
	s := New(&fakeCompleter{answer: "late", delay: time.Second}, WithTimeout(20*time.Millisecond))

	resp, err := s.Synthesize(context.Background(), Request{Query: "q"})
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, domain.ErrTimeout)
}

func TestSynthesize_EmptyQuery(t *testing.T) {
	fc := &fakeCompleter{answer: "x"}
	_, err := New(fc).Synthesize(context.Background(), Request{Query: " "})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Empty(t, fc.prompts)
}

func TestSynthesize_TruncatesBeforeDisclaimer(t *testing.T) {
	fc := &fakeCompleter{answer: "First sentence. Second sentence is much longer than the limit allows."}
	s := New(fc, WithMaxAnswerLength(30))

	resp, err := s.Synthesize(context.Background(), Request{Query: "q"})
	require.NoError(t, err)
	assert.Equal(t, "First sentence."+truncationMarker+"\n\n"+GeneralDisclaimer, resp.Answer)
}

func TestSelectDisclaimer(t *testing.T) {
	tests := []struct {
		query, domain, want string
	}{
		{"what are the signs of diabetes", "medical", DiagnosisDisclaimer},
		{"how to diagnose flu", "Health", DiagnosisDisclaimer},
		{"best therapy for back pain", "medical", TreatmentNotice},
		{"what is a vitamin", "medical", GeneralDisclaimer},
		{"anything", "law", LegalNotice},
		{"anything", "investment", FinancialDisclaimer},
		{"symptoms", "general", GeneralDisclaimer},
		{"", "", GeneralDisclaimer},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SelectDisclaimer(tt.query, tt.domain), "query %q domain %q", tt.query, tt.domain)
	}
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "a b c", Excerpt("  a\n\tb   c ", 10))
	assert.Equal(t, "abc...", Excerpt("abcdef", 3))
	assert.Equal(t, "éé...", Excerpt("ééé", 2))
}
