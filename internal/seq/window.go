// Package seq turns raw mains and appliance power series into the fixed-width
// normalized tensors the sequence-to-point network consumes.
package seq

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"wattsplit/internal/model"
)

var (
	ErrEvenSequenceLength        = errors.New("sequence length must be odd")
	ErrNonPositiveSequenceLength = errors.New("sequence length must be positive")
	ErrUnknownAppliance          = errors.New("appliance parameters not found")
	ErrShapeMismatch             = errors.New("window and target counts differ")
)

// ApplianceSeries is the raw training input for one appliance: its name and
// the per-chunk power readings aligned with the mains chunks.
type ApplianceSeries struct {
	Name   string
	Chunks [][]float64
}

// ApplianceTargets is one normalized scalar target per original mains
// reading, concatenated across chunks in chunk order.
type ApplianceTargets struct {
	Name   string
	Values []float64
}

// Preprocessor windows and normalizes raw series. MainsMean and MainsStd are
// fixed global constants supplied at construction; they are never recomputed
// from data, so identical input always yields identical tensors.
type Preprocessor struct {
	SeqLen    int
	MainsMean float64
	MainsStd  float64
}

func NewPreprocessor(seqLen int, mainsMean, mainsStd float64) (*Preprocessor, error) {
	if seqLen < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrNonPositiveSequenceLength, seqLen)
	}
	if seqLen%2 == 0 {
		return nil, fmt.Errorf("%w: got %d", ErrEvenSequenceLength, seqLen)
	}
	return &Preprocessor{SeqLen: seqLen, MainsMean: mainsMean, MainsStd: mainsStd}, nil
}

// MainsWindows pads one mains chunk with seqLen/2 zeros on each side, slides
// a window of seqLen over it with stride 1, and z-score normalizes every
// sample. The padding exactly compensates the window width, so a chunk of
// length L yields L windows.
func (p *Preprocessor) MainsWindows(chunk []float64) *mat.Dense {
	if len(chunk) == 0 {
		return nil
	}
	pad := p.SeqLen / 2
	padded := make([]float64, len(chunk)+2*pad)
	copy(padded[pad:], chunk)

	windows := mat.NewDense(len(chunk), p.SeqLen, nil)
	for i := 0; i < len(chunk); i++ {
		for j := 0; j < p.SeqLen; j++ {
			windows.Set(i, j, (padded[i+j]-p.MainsMean)/p.MainsStd)
		}
	}
	return windows
}

// TrainingTensors builds the stacked window matrix for all mains chunks and
// the per-appliance normalized target vectors. Appliance stats are validated
// up front: a single missing appliance aborts the call before any tensor is
// built.
func (p *Preprocessor) TrainingTensors(mains [][]float64, appliances []ApplianceSeries, params *ParamStore) (*mat.Dense, []ApplianceTargets, error) {
	for _, app := range appliances {
		if _, ok := params.Get(app.Name); !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrUnknownAppliance, app.Name)
		}
	}

	total := 0
	for _, chunk := range mains {
		total += len(chunk)
	}
	if total == 0 {
		return nil, nil, nil
	}

	windows := mat.NewDense(total, p.SeqLen, nil)
	row := 0
	for _, chunk := range mains {
		if len(chunk) == 0 {
			continue
		}
		chunkWindows := p.MainsWindows(chunk)
		for i := 0; i < len(chunk); i++ {
			windows.SetRow(row, chunkWindows.RawRowView(i))
			row++
		}
	}

	targets := make([]ApplianceTargets, 0, len(appliances))
	for _, app := range appliances {
		stats, _ := params.Get(app.Name)
		values := make([]float64, 0, total)
		for _, chunk := range app.Chunks {
			for _, v := range chunk {
				values = append(values, Normalize(v, stats))
			}
		}
		if len(values) != total {
			return nil, nil, fmt.Errorf("%w: appliance %s has %d readings for %d windows",
				ErrShapeMismatch, app.Name, len(values), total)
		}
		targets = append(targets, ApplianceTargets{Name: app.Name, Values: values})
	}

	return windows, targets, nil
}

// InferenceTensors builds one window matrix per mains chunk, preserving
// chunk order.
func (p *Preprocessor) InferenceTensors(mains [][]float64) []*mat.Dense {
	tensors := make([]*mat.Dense, 0, len(mains))
	for _, chunk := range mains {
		tensors = append(tensors, p.MainsWindows(chunk))
	}
	return tensors
}

// Normalize applies the z-score transform for one appliance reading.
func Normalize(v float64, stats model.ApplianceStats) float64 {
	return (v - stats.Mean) / stats.Std
}

// Denormalize inverts Normalize, mapping a network output back to watts.
func Denormalize(v float64, stats model.ApplianceStats) float64 {
	return v*stats.Std + stats.Mean
}
