package nn

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Conv1D is a one-dimensional convolution over the time axis of a batched
// sequence. Input and output are time-major: one n×channels matrix per
// timestep. With symmetric padding the output length is T+2*pad-kernel+1;
// the exact length is not load-bearing downstream, only the ordering is.
type Conv1D struct {
	In     int
	Out    int
	Kernel int
	Pad    int

	w *Param // (kernel*in)×out, tap k occupies rows [k*in, (k+1)*in)
	b *Param // 1×out

	xs []*mat.Dense
}

func NewConv1D(name string, in, out, kernel, pad int, rng *rand.Rand) *Conv1D {
	return &Conv1D{
		In:     in,
		Out:    out,
		Kernel: kernel,
		Pad:    pad,
		w:      NewParam(name+".w", kernel*in, out, uniformInit(rng, kernel*in, out)),
		b:      NewParam(name+".b", 1, out, nil),
	}
}

func (c *Conv1D) Params() []*Param {
	return []*Param{c.w, c.b}
}

func (c *Conv1D) tap(m *mat.Dense, k int) *mat.Dense {
	_, cols := m.Dims()
	return m.Slice(k*c.In, (k+1)*c.In, 0, cols).(*mat.Dense)
}

func (c *Conv1D) Forward(xs []*mat.Dense) []*mat.Dense {
	c.xs = xs
	steps := len(xs)
	n, _ := xs[0].Dims()
	outSteps := steps + 2*c.Pad - c.Kernel + 1

	out := make([]*mat.Dense, outSteps)
	var tmp mat.Dense
	for t := 0; t < outSteps; t++ {
		acc := mat.NewDense(n, c.Out, nil)
		for k := 0; k < c.Kernel; k++ {
			s := t + k - c.Pad
			if s < 0 || s >= steps {
				continue
			}
			tmp.Mul(xs[s], c.tap(c.w.W, k))
			acc.Add(acc, &tmp)
		}
		addBias(acc, c.b.W)
		out[t] = acc
	}
	return out
}

func (c *Conv1D) Backward(dOut []*mat.Dense) []*mat.Dense {
	steps := len(c.xs)

	dXs := make([]*mat.Dense, steps)
	for s := range dXs {
		dXs[s] = zerosLike(c.xs[s])
	}

	var tmpW, tmpX mat.Dense
	for t := range dOut {
		accumulateColSums(c.b.Grad, dOut[t])
		for k := 0; k < c.Kernel; k++ {
			s := t + k - c.Pad
			if s < 0 || s >= steps {
				continue
			}
			grad := c.tap(c.w.Grad, k)
			tmpW.Mul(c.xs[s].T(), dOut[t])
			grad.Add(grad, &tmpW)

			tmpX.Mul(dOut[t], c.tap(c.w.W, k).T())
			dXs[s].Add(dXs[s], &tmpX)
		}
	}
	return dXs
}
