// Package summarize turns extracted patent text into a structured
// five-field summary via an external text-generation service.
package summarize

import (
	"context"
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// SentinelUnknown backfills summary fields the model omitted. A record
	// is never rejected solely for a missing summary field.
	SentinelUnknown = "unknown"

	// DefaultCharBudget bounds the text prefix submitted for summarization.
	// The truncation point is silent: text past the budget is never
	// inspected for this record's summary.
	DefaultCharBudget = 30000

	DefaultTimeout = 120 * time.Second

	maxAttempts = 3
)

// Summary is the structured result: exactly five fields, all non-empty after
// sentinel backfill.
type Summary struct {
	Title    string `json:"title"`
	Problem  string `json:"problem"`
	Solution string `json:"solution"`
	Effect   string `json:"effect"`
	Category string `json:"category"`
}

type Config struct {
	CharBudget int
	Timeout    time.Duration
}

func (c *Config) normalize() {
	if c.CharBudget <= 0 {
		c.CharBudget = DefaultCharBudget
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
}

type Summarizer struct {
	caller LLMCaller
	cfg    Config
}

func New(caller LLMCaller, cfg Config) *Summarizer {
	cfg.normalize()
	return &Summarizer{caller: caller, cfg: cfg}
}

// Summarize submits a bounded prefix of text and parses the five-field JSON
// summary from the response. Failures are terminal for the current document
// only: *GenerationError when the call itself fails, *MalformedResponseError
// when the stripped content does not parse.
func (s *Summarizer) Summarize(ctx context.Context, text string) (Summary, error) {
	prompt := buildPrompt(truncate(text, s.cfg.CharBudget))

	raw, err := s.generate(ctx, prompt)
	if err != nil {
		return Summary{}, &GenerationError{Err: err}
	}

	_, content := splitFence(raw)
	var sum Summary
	if err := json.Unmarshal([]byte(content), &sum); err != nil {
		return Summary{}, &MalformedResponseError{Raw: content, Err: err}
	}
	sum.backfill()
	return sum, nil
}

// generate runs the call under the configured timeout, retrying transient
// transport failures.
func (s *Summarizer) generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
		raw, err := s.caller.GenerateText(callCtx, prompt)
		cancel()
		if err == nil {
			return raw, nil
		}
		lastErr = err
		if !retryableFailure(classifyTransportError(err)) || attempt == maxAttempts {
			break
		}
		time.Sleep(backoffDelay(attempt))
	}
	return "", lastErr
}

func (s *Summary) backfill() {
	fields := []*string{&s.Title, &s.Problem, &s.Solution, &s.Effect, &s.Category}
	for _, f := range fields {
		if strings.TrimSpace(*f) == "" {
			*f = SentinelUnknown
		}
	}
}

func buildPrompt(text string) string {
	var b strings.Builder
	b.WriteString("Analyze the following patent document and summarize it as JSON.\n\n")
	b.WriteString("Required fields:\n")
	b.WriteString("- title: the patent title, concise, at most 50 words\n")
	b.WriteString("- problem: the problem being solved (1-2 sentences, specific)\n")
	b.WriteString("- solution: the proposed solution (1-2 sentences, include technical detail)\n")
	b.WriteString("- effect: the expected effect (1-2 sentences, quantitative where available)\n")
	b.WriteString("- category: the technology field (e.g. medical AI, electric vehicles, renewable energy)\n\n")
	b.WriteString("Patent document:\n")
	b.WriteString(text)
	b.WriteString("\n\nRespond with only the JSON object. No explanatory text.\n")
	return b.String()
}

func truncate(text string, budget int) string {
	if len(text) <= budget {
		return text
	}
	// Avoid cutting in the middle of a rune sequence.
	prefix := text[:budget]
	for len(prefix) > 0 && !utf8.ValidString(prefix) {
		prefix = prefix[:len(prefix)-1]
	}
	return prefix
}
