// Package embed maps extracted patent text to fixed-length vectors via an
// external embedding service, with a degraded random fallback so a missing
// vector never blocks ingestion.
package embed

import (
	"context"
	"log"
	"math/rand"
	"time"
	"unicode/utf8"
)

const (
	// DefaultDimension matches the external embedding model output length.
	DefaultDimension = 768

	// DefaultCharBudget bounds the text prefix submitted for embedding.
	// Deliberately smaller than the summarizer's budget: embeddings need
	// less context.
	DefaultCharBudget = 10000

	DefaultTimeout = 30 * time.Second
)

// VectorSource is the external embedding capability. gollem.LLMClient
// satisfies it.
type VectorSource interface {
	GenerateEmbedding(ctx context.Context, dimension int, input []string) ([][]float64, error)
}

type Config struct {
	Dimension  int
	CharBudget int
	Timeout    time.Duration
}

func (c *Config) normalize() {
	if c.Dimension <= 0 {
		c.Dimension = DefaultDimension
	}
	if c.CharBudget <= 0 {
		c.CharBudget = DefaultCharBudget
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
}

type Embedder struct {
	source VectorSource
	cfg    Config
	rng    *rand.Rand
}

func New(source VectorSource, cfg Config) *Embedder {
	cfg.normalize()
	return &Embedder{
		source: source,
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Dimension returns the configured output vector length.
func (e *Embedder) Dimension() int { return e.cfg.Dimension }

// Embed returns a vector of the configured dimension for a bounded prefix of
// text. It never fails terminally: on any failure (call error, timeout, or a
// vector of the wrong length) it returns a uniform-random placeholder and
// degraded=true, so downstream clustering keeps a point for every record at
// the cost of that point's position being meaningless.
func (e *Embedder) Embed(ctx context.Context, text string) (vector []float64, degraded bool) {
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	vectors, err := e.source.GenerateEmbedding(callCtx, e.cfg.Dimension, []string{truncate(text, e.cfg.CharBudget)})
	if err != nil {
		log.Printf("embed: falling back to random vector: %v", err)
		return e.fallback(), true
	}
	if len(vectors) == 0 || len(vectors[0]) != e.cfg.Dimension {
		log.Printf("embed: service returned %d vectors (want dimension %d), falling back", len(vectors), e.cfg.Dimension)
		return e.fallback(), true
	}
	return vectors[0], false
}

func (e *Embedder) fallback() []float64 {
	v := make([]float64, e.cfg.Dimension)
	for i := range v {
		v[i] = e.rng.Float64()
	}
	return v
}

func truncate(text string, budget int) string {
	if len(text) <= budget {
		return text
	}
	prefix := text[:budget]
	for len(prefix) > 0 && !utf8.ValidString(prefix) {
		prefix = prefix[:len(prefix)-1]
	}
	return prefix
}
