// Package trendreport synthesizes a strategic trend report over a selected
// subset of the patent portfolio.
package trendreport

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joelkehle/patent-insight/internal/portfolio"
)

const DefaultTimeout = 120 * time.Second

// GenerationError reports a failed report request. It is terminal for the
// whole request; the caller may retry with the same selection.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("report generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// LLMCaller is the external text-generation capability used for reports.
type LLMCaller interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

type Config struct {
	Timeout time.Duration
}

type Generator struct {
	caller LLMCaller
	cfg    Config
}

func New(caller LLMCaller, cfg Config) *Generator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Generator{caller: caller, cfg: cfg}
}

// Generate submits a digest of the selected records and returns the response
// body verbatim as a Markdown document. There is no partial report: any
// failure is a single *GenerationError for the request.
func (g *Generator) Generate(ctx context.Context, selection []portfolio.PatentRecord) (string, error) {
	if len(selection) == 0 {
		return "", &GenerationError{Err: errors.New("selection is empty")}
	}

	callCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	report, err := g.caller.GenerateText(callCtx, buildPrompt(selection))
	if err != nil {
		return "", &GenerationError{Err: err}
	}
	return report, nil
}

// buildDigest renders the selected records' summary fields as the textual
// analysis input.
func buildDigest(selection []portfolio.PatentRecord) string {
	var b strings.Builder
	for i, p := range selection {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[Patent %d: %s]\n", i+1, p.ID)
		fmt.Fprintf(&b, "Title: %s\n", p.Title)
		fmt.Fprintf(&b, "Category: %s\n", p.Category)
		fmt.Fprintf(&b, "Problem: %s\n", p.Problem)
		fmt.Fprintf(&b, "Solution: %s\n", p.Solution)
		fmt.Fprintf(&b, "Effect: %s", p.Effect)
	}
	return b.String()
}

func buildPrompt(selection []portfolio.PatentRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the following %d patents and write a strategic trend report in Markdown.\n\n", len(selection))
	b.WriteString(`## Report outline:

### 1. Executive Summary
- Overview of the analyzed set (3-4 sentences)
- Key findings (3-5 bullet points)

### 2. Technology Trend Analysis
- Common technical approaches
- Points of innovation
- Direction of technical evolution
- Applicability to adjacent fields

### 3. Market and Competitive Strategy
- Likely market positioning
- Sources of competitive advantage
- Differentiators and barriers to entry

### 4. Outlook and Recommended Actions
**Short term (1-2 years):** concrete development directions and productization timeline.
**Mid to long term (3-5 years):** predicted technical evolution and new market opportunities.
**Recommended actions:** R&D investment priorities, patent strategy, partnership strategy.

### 5. Risks and Opportunities
**Technical risks**, **market risks**, and **business opportunities**.

### 6. Conclusion
- Overall assessment and the highest-priority next step.

`)
	b.WriteString("Patent information:\n")
	b.WriteString(buildDigest(selection))
	b.WriteString("\n\nWrite a professional, practical report useful for management decisions. ")
	b.WriteString("Prefer concrete statements over abstract ones.\n")
	return b.String()
}

// Filename builds the download name for an exported report, embedding the
// generation timestamp.
func Filename(now time.Time) string {
	return fmt.Sprintf("patent-trend-report_%s.md", now.Format("20060102_150405"))
}
