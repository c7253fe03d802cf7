// Package llm wraps the local generative model used for query
// expansion, cluster labelling, and follow-up questions. Every call has
// a deterministic fallback so search keeps working when the model is
// slow, down, or circuit-broken.
package llm

import (
	"context"
)

// QA is one follow-up exchange in a session's conversation.
type QA struct {
	Question string `json:"q"`
	Answer   string `json:"a"`
}

// Generator produces the three kinds of text the narrowing flow needs.
type Generator interface {
	// ExpandQuery rewrites a short query into an enriched formulation
	// with synonyms, related terms, and likely full titles.
	ExpandQuery(ctx context.Context, query string) (string, error)

	// LabelCluster returns a concise descriptive label for a cluster,
	// given aggregated excerpt text from its files.
	LabelCluster(ctx context.Context, text string) (string, error)

	// FollowupQuestion generates one short question that best
	// distinguishes between the remaining candidate files.
	FollowupQuestion(ctx context.Context, fileSummaries map[string]string, conversation []QA, questionNum, maxQuestions int) (string, error)

	Close() error
}

// FallbackQuestion is used when question generation fails.
const FallbackQuestion = "Can you describe anything else you remember about the file?"
