package nn

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// uniformInit fills a new weight matrix with values drawn uniformly from
// [-limit, limit] where limit = sqrt(6/(fanIn+fanOut)).
func uniformInit(rng *rand.Rand, rows, cols int) []float64 {
	limit := math.Sqrt(6.0 / float64(rows+cols))
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = (rng.Float64()*2 - 1) * limit
	}
	return data
}

// addBias adds the 1×c bias row to every row of dst.
func addBias(dst *mat.Dense, bias *mat.Dense) {
	rows, cols := dst.Dims()
	b := bias.RawRowView(0)
	for i := 0; i < rows; i++ {
		row := dst.RawRowView(i)
		for j := 0; j < cols; j++ {
			row[j] += b[j]
		}
	}
}

// accumulateColSums adds the column sums of src into the 1×c matrix dst.
func accumulateColSums(dst *mat.Dense, src *mat.Dense) {
	rows, cols := src.Dims()
	d := dst.RawRowView(0)
	for i := 0; i < rows; i++ {
		row := src.RawRowView(i)
		for j := 0; j < cols; j++ {
			d[j] += row[j]
		}
	}
}

func zerosLike(m *mat.Dense) *mat.Dense {
	rows, cols := m.Dims()
	return mat.NewDense(rows, cols, nil)
}

// denseView slices a column range [from, to) of m as a *mat.Dense.
func denseView(m *mat.Dense, from, to int) *mat.Dense {
	rows, _ := m.Dims()
	return m.Slice(0, rows, from, to).(*mat.Dense)
}
