// Package ingest drives uploaded patent documents through the extract,
// summarize, embed, and commit stages, one file at a time.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/joelkehle/patent-insight/internal/portfolio"
	"github.com/joelkehle/patent-insight/internal/summarize"
)

// Stage names a pipeline step for progress reporting and failure attribution.
type Stage string

const (
	StageExtract   Stage = "extract"
	StageSummarize Stage = "summarize"
	StageEmbed     Stage = "embed"
	StageCommit    Stage = "commit"
)

// StageError attributes a per-file failure to the stage that produced it.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// ProgressFn observes pipeline progress. It is called before each stage of
// each file and once after each file completes or fails, so one file's
// completion is visible before the next starts.
type ProgressFn func(fileIndex, fileCount int, stage Stage, message string)

// TextExtractor converts a document payload into plain text.
type TextExtractor interface {
	Text(data []byte) (string, error)
}

// Summarizer produces the structured five-field summary.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (summarize.Summary, error)
}

// Embedder returns a fixed-length vector and whether it is a degraded
// placeholder. It never fails terminally.
type Embedder interface {
	Embed(ctx context.Context, text string) (vector []float64, degraded bool)
}

// File is one uploaded document.
type File struct {
	Name string
	Data []byte
}

// FileResult records the outcome for a single file in a batch.
type FileResult struct {
	Filename string `json:"filename"`
	RecordID string `json:"record_id,omitempty"`
	Degraded bool   `json:"degraded,omitempty"`
	Failed   bool   `json:"failed,omitempty"`
	Stage    Stage  `json:"stage,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// BatchReport summarizes a whole batch: between 0 and N new records plus the
// per-file failures. A failed file never aborts the batch.
type BatchReport struct {
	Results     []FileResult `json:"results"`
	Ingested    int          `json:"ingested"`
	Failed      int          `json:"failed"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt time.Time    `json:"completed_at"`
}

type Pipeline struct {
	extractor  TextExtractor
	summarizer Summarizer
	embedder   Embedder
	store      *portfolio.Store
}

func NewPipeline(extractor TextExtractor, summarizer Summarizer, embedder Embedder, store *portfolio.Store) *Pipeline {
	return &Pipeline{
		extractor:  extractor,
		summarizer: summarizer,
		embedder:   embedder,
		store:      store,
	}
}

// Run processes the batch strictly sequentially. Each file either commits a
// complete record or is reported failed with the stage and reason; no partial
// record is ever committed.
func (p *Pipeline) Run(ctx context.Context, files []File, progress ProgressFn) BatchReport {
	report := BatchReport{StartedAt: time.Now()}

	for i, f := range files {
		res := p.runFile(ctx, i, len(files), f, progress)
		report.Results = append(report.Results, res)
		if res.Failed {
			report.Failed++
			emit(progress, i, len(files), res.Stage, fmt.Sprintf("%s failed: %s", f.Name, res.Reason))
		} else {
			report.Ingested++
			emit(progress, i, len(files), StageCommit, fmt.Sprintf("%s stored as %s", f.Name, res.RecordID))
		}
	}

	report.CompletedAt = time.Now()
	return report
}

func (p *Pipeline) runFile(ctx context.Context, idx, total int, f File, progress ProgressFn) FileResult {
	res := FileResult{Filename: f.Name}

	fail := func(stage Stage, err error) FileResult {
		res.Failed = true
		res.Stage = stage
		res.Reason = err.Error()
		return res
	}

	emit(progress, idx, total, StageExtract, fmt.Sprintf("extracting text from %s", f.Name))
	text, err := p.extractor.Text(f.Data)
	if err != nil {
		return fail(StageExtract, err)
	}

	emit(progress, idx, total, StageSummarize, fmt.Sprintf("summarizing %s (%d chars)", f.Name, len(text)))
	sum, err := p.summarizer.Summarize(ctx, text)
	if err != nil {
		return fail(StageSummarize, err)
	}

	emit(progress, idx, total, StageEmbed, fmt.Sprintf("embedding %s", f.Name))
	vector, degraded := p.embedder.Embed(ctx, text)

	rec := portfolio.PatentRecord{
		Filename:    f.Name,
		Title:       sum.Title,
		Problem:     sum.Problem,
		Solution:    sum.Solution,
		Effect:      sum.Effect,
		Category:    sum.Category,
		TextExcerpt: portfolio.Excerpt(text),
		Embedding:   vector,
		Degraded:    degraded,
		ProcessedAt: time.Now(),
	}
	stored, err := p.store.Append(rec)
	if err != nil {
		return fail(StageCommit, err)
	}

	res.RecordID = stored.ID
	res.Degraded = degraded
	return res
}

func emit(progress ProgressFn, idx, total int, stage Stage, message string) {
	if progress != nil {
		progress(idx, total, stage, message)
	}
}
