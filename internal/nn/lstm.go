package nn

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// lstmDirection is one direction of a bidirectional LSTM layer. Gate
// pre-activations are laid out column-wise as [input, forget, cell, output],
// each hidden-width wide. Caches from the last Forward are kept for
// backpropagation through time.
type lstmDirection struct {
	in      int
	hidden  int
	reverse bool

	wx *Param // in×4h
	wh *Param // h×4h
	b  *Param // 1×4h

	xs    []*mat.Dense
	gates []*mat.Dense // n×4h, post-activation
	cs    []*mat.Dense
	tanhC []*mat.Dense
	hs    []*mat.Dense
}

func newLSTMDirection(name string, in, hidden int, reverse bool, rng *rand.Rand) *lstmDirection {
	return &lstmDirection{
		in:      in,
		hidden:  hidden,
		reverse: reverse,
		wx:      NewParam(name+".wx", in, 4*hidden, uniformInit(rng, in, 4*hidden)),
		wh:      NewParam(name+".wh", hidden, 4*hidden, uniformInit(rng, hidden, 4*hidden)),
		b:       NewParam(name+".b", 1, 4*hidden, nil),
	}
}

func (d *lstmDirection) params() []*Param {
	return []*Param{d.wx, d.wh, d.b}
}

// index maps processing order to timestep position: the reverse direction
// walks the sequence back to front but stores outputs at their original
// positions.
func (d *lstmDirection) index(step, steps int) int {
	if d.reverse {
		return steps - 1 - step
	}
	return step
}

func (d *lstmDirection) forward(xs []*mat.Dense) []*mat.Dense {
	steps := len(xs)
	n, _ := xs[0].Dims()
	h := d.hidden

	d.xs = xs
	d.gates = make([]*mat.Dense, steps)
	d.cs = make([]*mat.Dense, steps)
	d.tanhC = make([]*mat.Dense, steps)
	d.hs = make([]*mat.Dense, steps)

	hPrev := mat.NewDense(n, h, nil)
	cPrev := mat.NewDense(n, h, nil)
	var xw, hw mat.Dense
	for step := 0; step < steps; step++ {
		t := d.index(step, steps)

		gates := mat.NewDense(n, 4*h, nil)
		xw.Mul(xs[t], d.wx.W)
		hw.Mul(hPrev, d.wh.W)
		gates.Add(&xw, &hw)
		addBias(gates, d.b.W)

		c := mat.NewDense(n, h, nil)
		tc := mat.NewDense(n, h, nil)
		ht := mat.NewDense(n, h, nil)
		for i := 0; i < n; i++ {
			g := gates.RawRowView(i)
			cp := cPrev.RawRowView(i)
			cr := c.RawRowView(i)
			tr := tc.RawRowView(i)
			hr := ht.RawRowView(i)
			for j := 0; j < h; j++ {
				g[j] = sigmoid(g[j])
				g[h+j] = sigmoid(g[h+j])
				g[2*h+j] = math.Tanh(g[2*h+j])
				g[3*h+j] = sigmoid(g[3*h+j])

				cr[j] = g[h+j]*cp[j] + g[j]*g[2*h+j]
				tr[j] = math.Tanh(cr[j])
				hr[j] = g[3*h+j] * tr[j]
			}
		}

		d.gates[t] = gates
		d.cs[t] = c
		d.tanhC[t] = tc
		d.hs[t] = ht
		hPrev, cPrev = ht, c
	}
	return d.hs
}

// backward runs BPTT over the cached forward pass, accumulating parameter
// gradients and returning the gradient with respect to the inputs.
func (d *lstmDirection) backward(dHs []*mat.Dense) []*mat.Dense {
	steps := len(d.xs)
	n, _ := d.xs[0].Dims()
	h := d.hidden

	dXs := make([]*mat.Dense, steps)
	dhNext := mat.NewDense(n, h, nil)
	dcNext := mat.NewDense(n, h, nil)
	dPre := mat.NewDense(n, 4*h, nil)
	var tmpX, tmpH, tmpGX, tmpGH mat.Dense

	for step := steps - 1; step >= 0; step-- {
		t := d.index(step, steps)

		var cPrev, hPrev *mat.Dense
		if step > 0 {
			prev := d.index(step-1, steps)
			cPrev = d.cs[prev]
			hPrev = d.hs[prev]
		}

		gates := d.gates[t]
		for i := 0; i < n; i++ {
			g := gates.RawRowView(i)
			tc := d.tanhC[t].RawRowView(i)
			dh := dhNext.RawRowView(i)
			dc := dcNext.RawRowView(i)
			dp := dPre.RawRowView(i)
			var ext, cp []float64
			if dHs[t] != nil {
				ext = dHs[t].RawRowView(i)
			}
			if cPrev != nil {
				cp = cPrev.RawRowView(i)
			}
			for j := 0; j < h; j++ {
				dhj := dh[j]
				if ext != nil {
					dhj += ext[j]
				}
				gi, gf, gg, go_ := g[j], g[h+j], g[2*h+j], g[3*h+j]

				dcj := dc[j] + dhj*go_*(1-tc[j]*tc[j])
				doj := dhj * tc[j]

				dij := dcj * gg
				dfj := 0.0
				if cp != nil {
					dfj = dcj * cp[j]
				}
				dgj := dcj * gi

				dp[j] = dij * gi * (1 - gi)
				dp[h+j] = dfj * gf * (1 - gf)
				dp[2*h+j] = dgj * (1 - gg*gg)
				dp[3*h+j] = doj * go_ * (1 - go_)

				dc[j] = dcj * gf
			}
		}

		tmpGX.Mul(d.xs[t].T(), dPre)
		d.wx.Grad.Add(d.wx.Grad, &tmpGX)
		if hPrev != nil {
			tmpGH.Mul(hPrev.T(), dPre)
			d.wh.Grad.Add(d.wh.Grad, &tmpGH)
		}
		accumulateColSums(d.b.Grad, dPre)

		tmpX.Mul(dPre, d.wx.W.T())
		dXs[t] = mat.DenseCopyOf(&tmpX)

		tmpH.Mul(dPre, d.wh.W.T())
		dhNext.Copy(&tmpH)
	}
	return dXs
}

// BiLSTM runs a forward and a reverse LSTM over the same input sequence and
// concatenates their hidden states per timestep, yielding 2*hidden features.
type BiLSTM struct {
	Hidden int

	fw *lstmDirection
	bw *lstmDirection
}

func NewBiLSTM(name string, in, hidden int, rng *rand.Rand) *BiLSTM {
	return &BiLSTM{
		Hidden: hidden,
		fw:     newLSTMDirection(name+".fw", in, hidden, false, rng),
		bw:     newLSTMDirection(name+".bw", in, hidden, true, rng),
	}
}

func (l *BiLSTM) Params() []*Param {
	return append(l.fw.params(), l.bw.params()...)
}

func (l *BiLSTM) Forward(xs []*mat.Dense) []*mat.Dense {
	fwH := l.fw.forward(xs)
	bwH := l.bw.forward(xs)

	out := make([]*mat.Dense, len(xs))
	n, _ := xs[0].Dims()
	for t := range xs {
		m := mat.NewDense(n, 2*l.Hidden, nil)
		denseView(m, 0, l.Hidden).Copy(fwH[t])
		denseView(m, l.Hidden, 2*l.Hidden).Copy(bwH[t])
		out[t] = m
	}
	return out
}

// Backward accepts a nil entry for any timestep that received no gradient.
func (l *BiLSTM) Backward(dOut []*mat.Dense) []*mat.Dense {
	steps := len(dOut)
	dFw := make([]*mat.Dense, steps)
	dBw := make([]*mat.Dense, steps)
	for t, d := range dOut {
		if d == nil {
			continue
		}
		dFw[t] = mat.DenseCopyOf(denseView(d, 0, l.Hidden))
		dBw[t] = mat.DenseCopyOf(denseView(d, l.Hidden, 2*l.Hidden))
	}

	dXfw := l.fw.backward(dFw)
	dXbw := l.bw.backward(dBw)

	dXs := make([]*mat.Dense, steps)
	for t := range dXs {
		dXs[t] = dXfw[t]
		dXs[t].Add(dXs[t], dXbw[t])
	}
	return dXs
}
