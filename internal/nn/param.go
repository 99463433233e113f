// Package nn implements the sequence-to-point regression network: a 1-D
// convolution feeding two bidirectional LSTM layers and a dense head, with
// hand-derived backward passes and an Adam optimizer over the parameters.
package nn

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Param is one learned weight tensor together with its gradient accumulator.
type Param struct {
	Name string
	W    *mat.Dense
	Grad *mat.Dense
}

func NewParam(name string, rows, cols int, data []float64) *Param {
	return &Param{
		Name: name,
		W:    mat.NewDense(rows, cols, data),
		Grad: mat.NewDense(rows, cols, nil),
	}
}

func (p *Param) ZeroGrad() {
	p.Grad.Zero()
}

type adamMoments struct {
	m []float64
	v []float64
}

// Adam is a fixed-learning-rate adaptive optimizer with bias-corrected first
// and second moment estimates. Moments live in the optimizer, so a fresh
// Adam starts every training call from clean state.
type Adam struct {
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64

	step    int
	moments map[*Param]*adamMoments
}

func NewAdam(learningRate float64) *Adam {
	return &Adam{
		LearningRate: learningRate,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-8,
		moments:      make(map[*Param]*adamMoments),
	}
}

// Step applies one update to every parameter from its accumulated gradient.
func (a *Adam) Step(params []*Param) {
	a.step++
	correction1 := 1 - math.Pow(a.Beta1, float64(a.step))
	correction2 := 1 - math.Pow(a.Beta2, float64(a.step))

	for _, p := range params {
		w := p.W.RawMatrix().Data
		g := p.Grad.RawMatrix().Data

		mom, ok := a.moments[p]
		if !ok {
			mom = &adamMoments{m: make([]float64, len(w)), v: make([]float64, len(w))}
			a.moments[p] = mom
		}
		for i := range w {
			mom.m[i] = a.Beta1*mom.m[i] + (1-a.Beta1)*g[i]
			mom.v[i] = a.Beta2*mom.v[i] + (1-a.Beta2)*g[i]*g[i]
			mHat := mom.m[i] / correction1
			vHat := mom.v[i] / correction2
			w[i] -= a.LearningRate * mHat / (math.Sqrt(vHat) + a.Epsilon)
		}
	}
}
