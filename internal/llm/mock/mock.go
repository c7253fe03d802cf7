// Package mock provides a Generator test double with scriptable
// responses and call counting.
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/ismail180205/HippoMind/internal/llm"
)

// Generator is a mock implementation of llm.Generator.
// Zero value returns deterministic canned responses.
type Generator struct {
	mu sync.Mutex

	// ExpandFunc overrides ExpandQuery when set.
	ExpandFunc func(ctx context.Context, query string) (string, error)

	// LabelFunc overrides LabelCluster when set.
	LabelFunc func(ctx context.Context, text string) (string, error)

	// QuestionFunc overrides FollowupQuestion when set.
	QuestionFunc func(ctx context.Context, fileSummaries map[string]string, conversation []llm.QA, questionNum, maxQuestions int) (string, error)

	ExpandCalls   int
	LabelCalls    int
	QuestionCalls int
}

// NewGenerator creates a mock with default canned behavior.
func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) ExpandQuery(ctx context.Context, query string) (string, error) {
	g.mu.Lock()
	g.ExpandCalls++
	fn := g.ExpandFunc
	g.mu.Unlock()

	if fn != nil {
		return fn(ctx, query)
	}
	return "expanded: " + query, nil
}

func (g *Generator) LabelCluster(ctx context.Context, text string) (string, error) {
	g.mu.Lock()
	g.LabelCalls++
	fn := g.LabelFunc
	g.mu.Unlock()

	if fn != nil {
		return fn(ctx, text)
	}
	if len(text) > 12 {
		text = text[:12]
	}
	return fmt.Sprintf("label(%s)", text), nil
}

func (g *Generator) FollowupQuestion(ctx context.Context, fileSummaries map[string]string, conversation []llm.QA, questionNum, maxQuestions int) (string, error) {
	g.mu.Lock()
	g.QuestionCalls++
	fn := g.QuestionFunc
	g.mu.Unlock()

	if fn != nil {
		return fn(ctx, fileSummaries, conversation, questionNum, maxQuestions)
	}
	return fmt.Sprintf("question %d of %d?", questionNum, maxQuestions), nil
}

func (g *Generator) Close() error {
	return nil
}
