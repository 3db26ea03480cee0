// Package analysis clusters the portfolio's embedding vectors and lays them
// out in two dimensions for visualization.
package analysis

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/joelkehle/patent-insight/internal/portfolio"
)

// MinRecords is the smallest portfolio the analyzer accepts. Below this the
// caller must render an explicit insufficient-data state instead.
const MinRecords = 3

// ErrInsufficientData is returned for portfolios with fewer than MinRecords
// records.
var ErrInsufficientData = errors.New("analysis requires at least 3 records")

type Config struct {
	// MaxClusters caps k; the effective cluster count is min(MaxClusters, N).
	MaxClusters int
	// Seed drives both the k-means restarts and the projection init, making
	// the whole analysis deterministic for a fixed record set.
	Seed int64
	// Restarts is the number of k-means re-initializations; the labeling
	// with the best inertia wins.
	Restarts int
	// MaxIter bounds k-means iterations per restart.
	MaxIter int
	// PerplexityCap bounds the projection neighborhood size; the effective
	// value is min(PerplexityCap, N-1).
	PerplexityCap int
	// ProjectionIters bounds the projection's gradient steps.
	ProjectionIters int
	LearningRate    float64
}

func (c *Config) normalize() {
	if c.MaxClusters <= 0 {
		c.MaxClusters = 3
	}
	if c.Seed == 0 {
		c.Seed = 42
	}
	if c.Restarts <= 0 {
		c.Restarts = 10
	}
	if c.MaxIter <= 0 {
		c.MaxIter = 300
	}
	if c.PerplexityCap <= 0 {
		c.PerplexityCap = 30
	}
	if c.ProjectionIters <= 0 {
		c.ProjectionIters = 300
	}
	if c.LearningRate <= 0 {
		c.LearningRate = 200
	}
}

// Result carries parallel arrays indexed identically to the input record
// order. It is derived data: recomputed fresh whenever membership changes,
// never stored on the records.
type Result struct {
	K        int       `json:"k"`
	Labels   []int     `json:"labels"`
	X        []float64 `json:"x"`
	Y        []float64 `json:"y"`
	Degraded []bool    `json:"degraded"`
}

type Analyzer struct {
	cfg Config
}

func New(cfg Config) *Analyzer {
	cfg.normalize()
	return &Analyzer{cfg: cfg}
}

// Analyze clusters the records' embeddings into k = min(MaxClusters, N)
// groups and projects them to 2-D. The embedding dimension must be uniform;
// the store enforces that at admission, so a mismatch here is a programming
// error and is reported as one.
func (a *Analyzer) Analyze(records []portfolio.PatentRecord) (Result, error) {
	n := len(records)
	if n < MinRecords {
		return Result{}, ErrInsufficientData
	}

	dim := len(records[0].Embedding)
	points := make([][]float64, n)
	flat := make([]float64, 0, n*dim)
	degraded := make([]bool, n)
	for i, r := range records {
		if len(r.Embedding) != dim {
			return Result{}, fmt.Errorf("record %s has a %d-dim embedding, expected %d", r.ID, len(r.Embedding), dim)
		}
		points[i] = r.Embedding
		flat = append(flat, r.Embedding...)
		degraded[i] = r.Degraded
	}

	k := a.cfg.MaxClusters
	if n < k {
		k = n
	}
	labels := kmeans(points, k, a.cfg.Seed, a.cfg.Restarts, a.cfg.MaxIter)

	perplexity := a.cfg.PerplexityCap
	if n-1 < perplexity {
		perplexity = n - 1
	}
	xs, ys := projectTSNE(mat.NewDense(n, dim, flat), float64(perplexity), a.cfg.LearningRate, a.cfg.ProjectionIters, a.cfg.Seed)

	return Result{K: k, Labels: labels, X: xs, Y: ys, Degraded: degraded}, nil
}
