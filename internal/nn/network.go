package nn

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"wattsplit/internal/model"
)

const (
	convChannels = 16
	convKernel   = 4
	convPad      = 2
	lstm1Hidden  = 128
	lstm2Hidden  = 256
	headHidden   = 128
	dropoutRate  = 0.1
)

// SeqToPoint maps a normalized mains window to a single normalized power
// estimate: conv (1→16, kernel 4) → biLSTM (128/dir) → dropout →
// biLSTM (256/dir) → last timestep → dense 512→128 + tanh → dropout →
// dense 128→1. Forward is pure apart from dropout masks in training mode;
// the only learned state is the layer weights.
type SeqToPoint struct {
	SeqLen int

	conv  *Conv1D
	lstm1 *BiLSTM
	drop1 *Dropout
	lstm2 *BiLSTM
	fc1   *Dense
	act   *Tanh
	drop2 *Dropout
	fc2   *Dense

	outSteps int
}

func NewSeqToPoint(seqLen int, seed int64) *SeqToPoint {
	rng := rand.New(rand.NewSource(seed))
	return &SeqToPoint{
		SeqLen: seqLen,
		conv:   NewConv1D("conv", 1, convChannels, convKernel, convPad, rng),
		lstm1:  NewBiLSTM("lstm1", convChannels, lstm1Hidden, rng),
		drop1:  NewDropout(dropoutRate, rng),
		lstm2:  NewBiLSTM("lstm2", 2*lstm1Hidden, lstm2Hidden, rng),
		fc1:    NewDense("fc1", 2*lstm2Hidden, headHidden, rng),
		act:    &Tanh{},
		drop2:  NewDropout(dropoutRate, rng),
		fc2:    NewDense("fc2", headHidden, 1, rng),
	}
}

func (s *SeqToPoint) Params() []*Param {
	params := s.conv.Params()
	params = append(params, s.lstm1.Params()...)
	params = append(params, s.lstm2.Params()...)
	params = append(params, s.fc1.Params()...)
	params = append(params, s.fc2.Params()...)
	return params
}

func (s *SeqToPoint) ZeroGrad() {
	for _, p := range s.Params() {
		p.ZeroGrad()
	}
}

// Forward maps a batch of windows (n×SeqLen) to estimates (n×1). Dropout is
// active only when train is true.
func (s *SeqToPoint) Forward(windows *mat.Dense, train bool) *mat.Dense {
	n, cols := windows.Dims()

	xs := make([]*mat.Dense, cols)
	for t := 0; t < cols; t++ {
		x := mat.NewDense(n, 1, nil)
		for i := 0; i < n; i++ {
			x.Set(i, 0, windows.At(i, t))
		}
		xs[t] = x
	}

	convOut := s.conv.Forward(xs)
	h1 := s.lstm1.Forward(convOut)
	d1 := s.drop1.ForwardSeq(h1, train)
	h2 := s.lstm2.Forward(d1)
	s.outSteps = len(h2)

	last := h2[len(h2)-1]
	z := s.fc1.Forward(last)
	a := s.act.Forward(z)
	d2 := s.drop2.Forward(a, train)
	return s.fc2.Forward(d2)
}

// Backward propagates the output gradient through the cached forward pass,
// accumulating into each parameter's Grad.
func (s *SeqToPoint) Backward(dOut *mat.Dense) {
	dD2 := s.fc2.Backward(dOut)
	dA := s.drop2.Backward(dD2)
	dZ := s.act.Backward(dA)
	dLast := s.fc1.Backward(dZ)

	dH2 := make([]*mat.Dense, s.outSteps)
	dH2[s.outSteps-1] = dLast

	dD1 := s.lstm2.Backward(dH2)
	dH1 := s.drop1.BackwardSeq(dD1)
	dConv := s.lstm1.Backward(dH1)
	s.conv.Backward(dConv)
}

// Snapshot copies every learned parameter into a serializable state.
func (s *SeqToPoint) Snapshot() model.Snapshot {
	params := s.Params()
	snap := model.Snapshot{Params: make([]model.ParamState, len(params))}
	for i, p := range params {
		rows, cols := p.W.Dims()
		snap.Params[i] = model.ParamState{
			Name: p.Name,
			Rows: rows,
			Cols: cols,
			Data: append([]float64(nil), p.W.RawMatrix().Data...),
		}
	}
	return snap
}

// Restore loads a snapshot into the live parameters, matching by name.
func (s *SeqToPoint) Restore(snap model.Snapshot) error {
	states := make(map[string]model.ParamState, len(snap.Params))
	for _, st := range snap.Params {
		states[st.Name] = st
	}
	for _, p := range s.Params() {
		st, ok := states[p.Name]
		if !ok {
			return fmt.Errorf("snapshot missing parameter %s", p.Name)
		}
		rows, cols := p.W.Dims()
		if st.Rows != rows || st.Cols != cols || len(st.Data) != rows*cols {
			return fmt.Errorf("snapshot parameter %s has shape %dx%d, want %dx%d",
				p.Name, st.Rows, st.Cols, rows, cols)
		}
		copy(p.W.RawMatrix().Data, st.Data)
	}
	return nil
}
