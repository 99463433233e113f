package nn

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Dense is a fully connected projection y = x·W + b.
type Dense struct {
	w *Param // in×out
	b *Param // 1×out

	x *mat.Dense
}

func NewDense(name string, in, out int, rng *rand.Rand) *Dense {
	return &Dense{
		w: NewParam(name+".w", in, out, uniformInit(rng, in, out)),
		b: NewParam(name+".b", 1, out, nil),
	}
}

func (d *Dense) Params() []*Param {
	return []*Param{d.w, d.b}
}

func (d *Dense) Forward(x *mat.Dense) *mat.Dense {
	d.x = x
	rows, _ := x.Dims()
	_, out := d.w.W.Dims()
	y := mat.NewDense(rows, out, nil)
	y.Mul(x, d.w.W)
	addBias(y, d.b.W)
	return y
}

func (d *Dense) Backward(dOut *mat.Dense) *mat.Dense {
	var tmp mat.Dense
	tmp.Mul(d.x.T(), dOut)
	d.w.Grad.Add(d.w.Grad, &tmp)
	accumulateColSums(d.b.Grad, dOut)

	var dX mat.Dense
	dX.Mul(dOut, d.w.W.T())
	return mat.DenseCopyOf(&dX)
}

// Tanh is an elementwise hyperbolic-tangent activation.
type Tanh struct {
	y *mat.Dense
}

func (a *Tanh) Forward(x *mat.Dense) *mat.Dense {
	y := zerosLike(x)
	y.Apply(func(_, _ int, v float64) float64 { return math.Tanh(v) }, x)
	a.y = y
	return y
}

func (a *Tanh) Backward(dOut *mat.Dense) *mat.Dense {
	dX := zerosLike(dOut)
	rows, cols := dOut.Dims()
	for i := 0; i < rows; i++ {
		do := dOut.RawRowView(i)
		y := a.y.RawRowView(i)
		dx := dX.RawRowView(i)
		for j := 0; j < cols; j++ {
			dx[j] = do[j] * (1 - y[j]*y[j])
		}
	}
	return dX
}
