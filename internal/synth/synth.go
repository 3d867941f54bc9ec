// Package synth turns retrieved chunks and conversation history into a
// cited, disclaimed answer through a single completion call.
package synth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/anjanaaa29/rag-reader/internal/citation"
	"github.com/anjanaaa29/rag-reader/internal/conversation"
	"github.com/anjanaaa29/rag-reader/internal/domain"
	"github.com/anjanaaa29/rag-reader/internal/retriever"
)

const (
	DefaultDomain          = "general"
	DefaultMaxSources      = 3
	DefaultExcerptLength   = 250
	DefaultHistoryTurns    = 6
	DefaultMaxAnswerLength = 4000

	truncationMarker = " [response truncated]"
)

// DefaultSensitiveKeywords switch the prompt into its cautious variant.
var DefaultSensitiveKeywords = []string{"diagnos", "medication", "dosage", "lawsuit", "invest"}

var whitespaceRe = regexp.MustCompile(`\s+`)

// Completer is the external text-completion service.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Request is one synthesis call.
type Request struct {
	Query     string
	Retrieval *retriever.Result
	History   []conversation.Turn
	Domain    string // empty uses the synthesizer's default domain
}

// Response is a synthesized answer. Citations and Excerpts are parallel.
type Response struct {
	Answer     string   `json:"answer"`
	Citations  []string `json:"citations"`
	Excerpts   []string `json:"excerpts"`
	Disclaimer string   `json:"disclaimer,omitempty"`
}

// Synthesizer builds prompts and post-processes completions.
type Synthesizer struct {
	completer         Completer
	formatter         citation.Formatter
	domain            string
	maxSources        int
	excerptLength     int
	historyTurns      int
	maxAnswerLength   int
	timeout           time.Duration
	sensitiveKeywords []string
	logger            *slog.Logger
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

func WithDomain(d string) Option {
	return func(s *Synthesizer) {
		if d != "" {
			s.domain = d
		}
	}
}

func WithMaxSources(n int) Option {
	return func(s *Synthesizer) { s.maxSources = n }
}

func WithExcerptLength(n int) Option {
	return func(s *Synthesizer) { s.excerptLength = n }
}

func WithHistoryTurns(n int) Option {
	return func(s *Synthesizer) { s.historyTurns = n }
}

// WithMaxAnswerLength caps the answer length in characters; 0 disables it.
func WithMaxAnswerLength(n int) Option {
	return func(s *Synthesizer) { s.maxAnswerLength = n }
}

// WithTimeout bounds the completion call; 0 relies on the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(s *Synthesizer) { s.timeout = d }
}

func WithSensitiveKeywords(keywords []string) Option {
	return func(s *Synthesizer) {
		if len(keywords) > 0 {
			s.sensitiveKeywords = keywords
		}
	}
}

func WithCitationFormatter(f citation.Formatter) Option {
	return func(s *Synthesizer) { s.formatter = f }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Synthesizer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Synthesizer around completer.
func New(completer Completer, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		completer:         completer,
		formatter:         citation.New(),
		domain:            DefaultDomain,
		maxSources:        DefaultMaxSources,
		excerptLength:     DefaultExcerptLength,
		historyTurns:      DefaultHistoryTurns,
		maxAnswerLength:   DefaultMaxAnswerLength,
		sensitiveKeywords: DefaultSensitiveKeywords,
		logger:            slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize calls the completer once and assembles the response. An empty
// retrieval still produces a prompt. Completion failures return
// domain.ErrTimeout or domain.ErrGeneration and no partial answer.
func (s *Synthesizer) Synthesize(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("%w: query must not be empty", domain.ErrValidation)
	}

	var chunks []retriever.ScoredChunk
	if req.Retrieval != nil {
		chunks = req.Retrieval.Chunks
	}
	citations := make([]string, len(chunks))
	for i, c := range chunks {
		citations[i] = s.formatter.Format(c.Chunk.Metadata)
	}

	dom := req.Domain
	if dom == "" {
		dom = s.domain
	}

	prompt := buildPrompt(promptInput{
		domain:    dom,
		query:     req.Query,
		history:   lastTurns(req.History, s.historyTurns),
		chunks:    chunks,
		citations: citations,
		sensitive: containsAny(strings.ToLower(req.Query), s.sensitiveKeywords),
	})

	raw, err := s.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	answer := truncateAnswer(strings.TrimSpace(raw), s.maxAnswerLength)

	var disclaimer string
	if !hasDisclaimer(answer) {
		disclaimer = SelectDisclaimer(req.Query, dom)
		answer += "\n\n" + disclaimer
	}

	n := min(len(chunks), s.maxSources)
	resp := &Response{
		Answer:     answer,
		Citations:  make([]string, 0, n),
		Excerpts:   make([]string, 0, n),
		Disclaimer: disclaimer,
	}
	for i := 0; i < n; i++ {
		resp.Citations = append(resp.Citations, citations[i])
		resp.Excerpts = append(resp.Excerpts, Excerpt(chunks[i].Chunk.Text, s.excerptLength))
	}

	s.logger.Debug("Synthesized answer",
		"domain", dom,
		"context_chunks", len(chunks),
		"citations", n,
		"answer_chars", utf8.RuneCountInString(answer),
	)
	return resp, nil
}

func (s *Synthesizer) complete(ctx context.Context, prompt string) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	answer, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: completion did not finish after %s", domain.ErrTimeout, time.Since(start).Round(time.Millisecond))
		}
		return "", fmt.Errorf("%w: %v", domain.ErrGeneration, err)
	}
	if strings.TrimSpace(answer) == "" {
		return "", fmt.Errorf("%w: completion returned no text", domain.ErrGeneration)
	}
	return answer, nil
}

// Excerpt returns the first n characters of text with whitespace collapsed,
// followed by "..." when cut.
func Excerpt(text string, n int) string {
	text = strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
	if n <= 0 || utf8.RuneCountInString(text) <= n {
		return text
	}
	return string([]rune(text)[:n]) + "..."
}

// truncateAnswer cuts answers longer than max characters back to the last
// complete sentence and marks the cut.
func truncateAnswer(answer string, max int) string {
	if max <= 0 || utf8.RuneCountInString(answer) <= max {
		return answer
	}
	cut := string([]rune(answer)[:max])
	if i := strings.LastIndex(cut, "."); i > 0 {
		cut = cut[:i+1]
	}
	return cut + truncationMarker
}

func lastTurns(history []conversation.Turn, n int) []conversation.Turn {
	if n <= 0 {
		return nil
	}
	if len(history) > n {
		return history[len(history)-n:]
	}
	return history
}
