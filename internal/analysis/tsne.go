package analysis

import (
	"math/rand"

	"github.com/danaugrs/go-tsne/tsne"
	"gonum.org/v1/gonum/mat"
)

// projectTSNE computes a neighborhood-preserving 2-D layout of the embedding
// matrix. The projection library draws its initial embedding from the global
// math/rand source, so the seed is applied there for reproducible layouts.
func projectTSNE(data *mat.Dense, perplexity float64, learningRate float64, iters int, seed int64) (xs, ys []float64) {
	n, _ := data.Dims()

	rand.Seed(seed)
	t := tsne.NewTSNE(2, perplexity, learningRate, iters, false)
	embedded := t.EmbedData(data, nil)

	xs = make([]float64, n)
	ys = make([]float64, n)
	for i := 0; i < n; i++ {
		xs[i] = embedded.At(i, 0)
		ys[i] = embedded.At(i, 1)
	}
	return xs, ys
}
