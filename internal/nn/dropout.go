package nn

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Dropout zeroes activations with probability Rate during training and
// scales survivors by 1/(1-Rate) so evaluation needs no rescaling. In
// evaluation mode it is the identity.
type Dropout struct {
	Rate float64

	rng   *rand.Rand
	masks []*mat.Dense
}

func NewDropout(rate float64, rng *rand.Rand) *Dropout {
	return &Dropout{Rate: rate, rng: rng}
}

func (d *Dropout) mask(rows, cols int) *mat.Dense {
	m := mat.NewDense(rows, cols, nil)
	keep := 1 - d.Rate
	data := m.RawMatrix().Data
	for i := range data {
		if d.rng.Float64() < keep {
			data[i] = 1 / keep
		}
	}
	return m
}

func (d *Dropout) Forward(x *mat.Dense, train bool) *mat.Dense {
	if !train || d.Rate == 0 {
		d.masks = nil
		return x
	}
	rows, cols := x.Dims()
	m := d.mask(rows, cols)
	d.masks = []*mat.Dense{m}
	y := zerosLike(x)
	y.MulElem(x, m)
	return y
}

func (d *Dropout) ForwardSeq(xs []*mat.Dense, train bool) []*mat.Dense {
	if !train || d.Rate == 0 {
		d.masks = nil
		return xs
	}
	d.masks = make([]*mat.Dense, len(xs))
	out := make([]*mat.Dense, len(xs))
	for t, x := range xs {
		rows, cols := x.Dims()
		m := d.mask(rows, cols)
		d.masks[t] = m
		y := zerosLike(x)
		y.MulElem(x, m)
		out[t] = y
	}
	return out
}

func (d *Dropout) Backward(dOut *mat.Dense) *mat.Dense {
	if d.masks == nil {
		return dOut
	}
	dX := zerosLike(dOut)
	dX.MulElem(dOut, d.masks[0])
	return dX
}

// BackwardSeq accepts nil entries for timesteps that received no gradient.
func (d *Dropout) BackwardSeq(dOut []*mat.Dense) []*mat.Dense {
	if d.masks == nil {
		return dOut
	}
	dXs := make([]*mat.Dense, len(dOut))
	for t, do := range dOut {
		if do == nil {
			continue
		}
		dX := zerosLike(do)
		dX.MulElem(do, d.masks[t])
		dXs[t] = dX
	}
	return dXs
}
