// Package trainer runs the per-appliance train/validate loop with
// best-checkpoint selection: track the minimum validation loss, persist a
// parameter snapshot the moment a new minimum appears, and restore that
// snapshot into the live model once all epochs finish.
package trainer

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"wattsplit/internal/model"
	"wattsplit/internal/nn"
	"wattsplit/internal/storage"
)

// MinWindows is the smallest training set worth fitting; anything smaller
// silently skips the appliance's round.
const MinWindows = 11

const validationFraction = 0.15

// History records one fit call for artifact reporting.
type History struct {
	RunID          string    `json:"run_id"`
	Appliance      string    `json:"appliance"`
	Round          int       `json:"round"`
	Skipped        bool      `json:"skipped"`
	TrainLoss      []float64 `json:"train_loss"`
	ValidationLoss []float64 `json:"validation_loss"`
	BestValidation float64   `json:"best_validation"`
}

type Trainer struct {
	Epochs       int
	BatchSize    int
	LearningRate float64
	SplitSeed    int64
	Store        storage.Store

	// Progress receives informational messages; nil disables reporting.
	Progress func(format string, args ...any)
}

// bestState tracks the minimum validation loss and the snapshot taken at it.
type bestState struct {
	loss     float64
	snapshot model.Snapshot
	found    bool
}

func (b *bestState) observe(loss float64, snapshot func() model.Snapshot) bool {
	if b.found && loss >= b.loss {
		return false
	}
	b.loss = loss
	b.snapshot = snapshot()
	b.found = true
	return true
}

// Fit trains net on the given windows and targets, mutating its weights in
// place. Windows are split 85/15 into train/validation once per call with a
// seeded shuffle. The best validation snapshot is persisted under
// (appliance, round) immediately on improvement and loaded back into net
// after the final epoch.
func (t *Trainer) Fit(ctx context.Context, net *nn.SeqToPoint, windows *mat.Dense, targets []float64, appliance string, round int) (History, error) {
	hist := History{
		RunID:     uuid.NewString(),
		Appliance: appliance,
		Round:     round,
	}

	n, _ := windows.Dims()
	if n < MinWindows {
		hist.Skipped = true
		t.logf("skipping %s round %d: only %d windows", appliance, round, n)
		return hist, nil
	}
	if len(targets) != n {
		return hist, fmt.Errorf("%d targets for %d windows", len(targets), n)
	}

	rng := rand.New(rand.NewSource(t.SplitSeed))
	perm := rng.Perm(n)
	valCount := int(float64(n) * validationFraction)
	if valCount == 0 {
		valCount = 1
	}
	valIdx := perm[:valCount]
	trainIdx := perm[valCount:]

	valWindows := takeRows(windows, valIdx)
	valTargets := takeTargets(targets, valIdx)

	optimizer := nn.NewAdam(t.LearningRate)
	best := &bestState{}

	for epoch := 0; epoch < t.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return hist, err
		}

		rng.Shuffle(len(trainIdx), func(i, j int) {
			trainIdx[i], trainIdx[j] = trainIdx[j], trainIdx[i]
		})

		trainLoss := 0.0
		trainBatches := 0
		for start := 0; start < len(trainIdx); start += t.BatchSize {
			end := min(start+t.BatchSize, len(trainIdx))
			batch := trainIdx[start:end]

			net.ZeroGrad()
			pred := net.Forward(takeRows(windows, batch), true)
			loss, dOut := mseWithGrad(pred, takeTargets(targets, batch))
			net.Backward(dOut)
			optimizer.Step(net.Params())

			trainLoss += loss
			trainBatches++
		}

		valLoss := t.validate(net, valWindows, valTargets)

		hist.TrainLoss = append(hist.TrainLoss, trainLoss/float64(trainBatches))
		hist.ValidationLoss = append(hist.ValidationLoss, valLoss)
		t.logf("%s round %d epoch %d: train=%.6f val=%.6f", appliance, round, epoch+1,
			trainLoss/float64(trainBatches), valLoss)

		if best.observe(valLoss, net.Snapshot) {
			record := model.CheckpointRecord{
				Appliance:      appliance,
				Round:          round,
				RunID:          hist.RunID,
				ValidationLoss: valLoss,
				CreatedAtUTC:   time.Now().UTC().Format(time.RFC3339),
				Snapshot:       best.snapshot,
			}
			storage.Stamp(&record)
			if err := t.Store.SaveCheckpoint(ctx, record); err != nil {
				return hist, fmt.Errorf("persist checkpoint %s: %w",
					model.CheckpointKey(appliance, round), err)
			}
			t.logf("%s round %d: new best val=%.6f", appliance, round, valLoss)
		}
	}

	if best.found {
		if err := net.Restore(best.snapshot); err != nil {
			return hist, fmt.Errorf("restore best snapshot for %s: %w", appliance, err)
		}
		hist.BestValidation = best.loss
	} else {
		hist.BestValidation = math.Inf(1)
	}
	return hist, nil
}

// validate computes the mean per-batch MSE without touching gradients.
func (t *Trainer) validate(net *nn.SeqToPoint, windows, targets *mat.Dense) float64 {
	n, _ := windows.Dims()
	total := 0.0
	batches := 0
	for start := 0; start < n; start += t.BatchSize {
		end := min(start+t.BatchSize, n)
		_, cols := windows.Dims()
		batch := windows.Slice(start, end, 0, cols).(*mat.Dense)
		pred := net.Forward(batch, false)
		loss, _ := mseWithGrad(pred, targets.Slice(start, end, 0, 1).(*mat.Dense))
		total += loss
		batches++
	}
	return total / float64(batches)
}

func (t *Trainer) logf(format string, args ...any) {
	if t.Progress != nil {
		t.Progress(format, args...)
	}
}

// mseWithGrad returns the mean squared error and its gradient with respect
// to the predictions.
func mseWithGrad(pred, target *mat.Dense) (float64, *mat.Dense) {
	n, _ := pred.Dims()
	grad := mat.NewDense(n, 1, nil)
	loss := 0.0
	for i := 0; i < n; i++ {
		diff := pred.At(i, 0) - target.At(i, 0)
		loss += diff * diff
		grad.Set(i, 0, 2*diff/float64(n))
	}
	return loss / float64(n), grad
}

func takeRows(m *mat.Dense, idx []int) *mat.Dense {
	_, cols := m.Dims()
	out := mat.NewDense(len(idx), cols, nil)
	for i, row := range idx {
		out.SetRow(i, m.RawRowView(row))
	}
	return out
}

func takeTargets(targets []float64, idx []int) *mat.Dense {
	out := mat.NewDense(len(idx), 1, nil)
	for i, row := range idx {
		out.Set(i, 0, targets[row])
	}
	return out
}
