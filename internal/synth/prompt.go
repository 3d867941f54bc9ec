package synth

import (
	"fmt"
	"strings"

	"github.com/anjanaaa29/rag-reader/internal/conversation"
	"github.com/anjanaaa29/rag-reader/internal/retriever"
)

var responseRules = []string{
	"Use ONLY the provided context",
	"Respond at an 8th grade reading level",
	"ALWAYS cite sources using the bracketed citations given with each context block",
	"Include appropriate disclaimers when needed",
	"Structure responses clearly",
	"If the context does not contain the answer, say so instead of guessing",
}

var responseFormat = []string{
	"### Answer",
	"[Clear summary answer]",
	"",
	"### Evidence",
	"[Relevant excerpts from sources]",
	"",
	"### Sources",
	"[Formatted citations]",
}

var cautionRules = []string{
	"Provide balanced information",
	"Note important considerations",
	"Include appropriate disclaimers",
}

// noContext is shown to the model when retrieval found nothing.
const noContext = "No relevant documents were found for this question."

// promptInput is everything the prompt is assembled from.
type promptInput struct {
	domain    string
	query     string
	history   []conversation.Turn
	chunks    []retriever.ScoredChunk
	citations []string
	sensitive bool
}

func buildPrompt(in promptInput) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are a %s specialist providing accurate information.\n", in.domain)
	b.WriteString("Provide evidence-based responses following these rules:\n\n")
	for i, rule := range responseRules {
		fmt.Fprintf(&b, "%d. %s\n", i+1, rule)
	}

	if in.sensitive {
		b.WriteString("\nYou are being asked about sensitive information. You MUST:\n")
		for i, rule := range cautionRules {
			fmt.Fprintf(&b, "%d. %s\n", i+1, rule)
		}
	}

	b.WriteString("\nRequired response format:\n")
	b.WriteString(strings.Join(responseFormat, "\n"))
	b.WriteString("\n")

	if len(in.history) > 0 {
		b.WriteString("\nConversation so far:\n")
		for _, turn := range in.history {
			fmt.Fprintf(&b, "User: %s\nAssistant: %s\n", turn.Query, turn.Answer)
		}
	}

	b.WriteString("\nContext:\n")
	if len(in.chunks) == 0 {
		b.WriteString(noContext + "\n")
	}
	for i, c := range in.chunks {
		fmt.Fprintf(&b, "\n[%d] %s\n%s\n", i+1, in.citations[i], strings.TrimSpace(c.Chunk.Text))
	}

	fmt.Fprintf(&b, "\nQuestion: %s\n", in.query)
	return b.String()
}
