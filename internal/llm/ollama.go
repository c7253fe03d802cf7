package llm

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/ismail180205/HippoMind/internal/config"
	hmerrors "github.com/ismail180205/HippoMind/internal/errors"
)

// clusterTextLimit caps the excerpt text sent for labelling.
const clusterTextLimit = 3000

// OllamaGenerator implements Generator against a local Ollama server.
// Calls run under a timeout, retry transient failures, and share a
// circuit breaker so a dead model server fails fast instead of stalling
// every round.
type OllamaGenerator struct {
	model   llms.Model
	cfg     config.LLMConfig
	breaker *hmerrors.CircuitBreaker
	logger  *slog.Logger
}

// NewOllamaGenerator creates a generator for the configured model.
func NewOllamaGenerator(cfg config.LLMConfig) (*OllamaGenerator, error) {
	model, err := ollama.New(
		ollama.WithServerURL(cfg.Host),
		ollama.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, hmerrors.Wrap(hmerrors.ErrCodeLLMUnavailable, err)
	}

	return &OllamaGenerator{
		model:   model,
		cfg:     cfg,
		breaker: hmerrors.NewCircuitBreaker("ollama"),
		logger:  slog.Default().With("component", "ollama-generator"),
	}, nil
}

// generate runs one prompt through the breaker, retry policy, and timeout.
func (g *OllamaGenerator) generate(ctx context.Context, prompt string) (string, error) {
	if !g.breaker.Allow() {
		return "", hmerrors.New(hmerrors.ErrCodeLLMUnavailable, "llm circuit breaker is open", hmerrors.ErrCircuitOpen)
	}

	retryCfg := hmerrors.DefaultRetryConfig()
	retryCfg.MaxRetries = g.cfg.MaxRetries

	out, err := hmerrors.RetryWithResult(ctx, retryCfg, func() (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
		return llms.GenerateFromSinglePrompt(callCtx, g.model, prompt)
	})
	if err != nil {
		g.breaker.RecordFailure()
		return "", hmerrors.Wrap(hmerrors.ErrCodeLLMUnavailable, err)
	}

	g.breaker.RecordSuccess()
	return strings.TrimSpace(out), nil
}

// ExpandQuery rewrites the query into an enriched paragraph. On any
// failure the original query is returned, so expansion never blocks a
// search.
func (g *OllamaGenerator) ExpandQuery(ctx context.Context, query string) (string, error) {
	prompt := fmt.Sprintf(
		"You are a search-query expander. Given the user's short query, "+
			"rewrite it as a single enriched paragraph that includes synonyms, "+
			"related terms, likely full titles, and geographic context if applicable. "+
			"Do NOT explain - output ONLY the expanded query.\n\n"+
			"User query: %s\n\nExpanded query:", query)

	expanded, err := g.generate(ctx, prompt)
	if err != nil || expanded == "" {
		g.logger.Warn("query expansion failed, using original query",
			slog.String("error", errString(err)))
		return query, nil
	}

	g.logger.Info("expanded query", slog.String("expanded", truncate(expanded, 200)))
	return expanded, nil
}

// LabelCluster returns a short descriptive phrase for the cluster text.
func (g *OllamaGenerator) LabelCluster(ctx context.Context, text string) (string, error) {
	prompt := fmt.Sprintf(
		"You are an expert librarian. Given the following collection of "+
			"text excerpts from documents, provide a concise descriptive label "+
			"(a short phrase) that captures the main topic. "+
			"Return ONLY the label, nothing else.\n\nText:\n%s\n\nLabel:",
		truncate(text, clusterTextLimit))

	label, err := g.generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.Trim(label, `"`), nil
}

// FollowupQuestion generates one distinguishing question for the
// remaining candidates.
func (g *OllamaGenerator) FollowupQuestion(ctx context.Context, fileSummaries map[string]string, conversation []QA, questionNum, maxQuestions int) (string, error) {
	files := make([]string, 0, len(fileSummaries))
	for name := range fileSummaries {
		files = append(files, name)
	}
	sort.Strings(files)

	var filesBlock strings.Builder
	for i, name := range files {
		if i > 0 {
			filesBlock.WriteString("\n\n")
		}
		fmt.Fprintf(&filesBlock, "FILE: %s\n%s", name, fileSummaries[name])
	}

	history := "(no questions asked yet)"
	if len(conversation) > 0 {
		var b strings.Builder
		for i, qa := range conversation {
			if i > 0 {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "Q: %s\nA: %s", qa.Question, qa.Answer)
		}
		history = b.String()
	}

	prompt := fmt.Sprintf(
		"You are helping a user find a specific file they half-remember. "+
			"Below are summaries of the remaining candidate files, plus the "+
			"conversation so far.\n\n"+
			"Candidate files:\n%s\n\n"+
			"Conversation so far:\n%s\n\n"+
			"This is follow-up question %d of %d. "+
			"Generate ONE short, concrete yes/no or multiple-choice question "+
			"that would best help narrow down which file the user is looking for. "+
			"Focus on distinguishing features: topic, geography, date, format, "+
			"methodology, organisation, etc. "+
			"Return ONLY the question, nothing else.",
		filesBlock.String(), history, questionNum, maxQuestions)

	question, err := g.generate(ctx, prompt)
	if err != nil || question == "" {
		g.logger.Warn("followup question generation failed, using fallback",
			slog.String("error", errString(err)))
		return FallbackQuestion, nil
	}
	return question, nil
}

// Close is a no-op; the client holds no persistent resources.
func (g *OllamaGenerator) Close() error {
	return nil
}

// BreakerState exposes the circuit state for status reporting.
func (g *OllamaGenerator) BreakerState() hmerrors.State {
	return g.breaker.State()
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func errString(err error) string {
	if err == nil {
		return "empty response"
	}
	return err.Error()
}
