// Package wattsplit disaggregates a whole-home aggregate power signal into
// per-appliance estimates with one sequence-to-point recurrent network per
// appliance.
package wattsplit

import (
	"context"
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"

	"wattsplit/internal/model"
	"wattsplit/internal/nn"
	"wattsplit/internal/seq"
	"wattsplit/internal/stats"
	"wattsplit/internal/storage"
	"wattsplit/internal/trainer"
)

const (
	defaultSequenceLength = 19
	defaultEpochs         = 10
	defaultBatchSize      = 512
	defaultMainsMean      = 1800
	defaultMainsStd       = 600
	defaultLearningRate   = 0.001
	defaultSplitSeed      = 42
	defaultInitSeed       = 10
	defaultDBPath         = "wattsplit.db"
)

// Aliases so callers outside the module can name the types the facade
// exchanges.
type (
	ApplianceStats   = model.ApplianceStats
	ApplianceSeries  = seq.ApplianceSeries
	CheckpointRecord = model.CheckpointRecord
	Model            = nn.SeqToPoint
)

type Options struct {
	// SequenceLength is the mains window width; it must be odd.
	SequenceLength int
	Epochs         int
	BatchSize      int

	// MainsMean and MainsStd are fixed global normalization constants for
	// the aggregate signal; they are never recomputed from data. Nil means
	// "use the default"; an explicit zero mean is kept as supplied.
	MainsMean *float64
	MainsStd  *float64

	LearningRate float64
	SplitSeed    int64
	InitSeed     int64

	// ApplianceParams pre-seeds per-appliance stats; when empty the stats
	// are computed from the first training call.
	ApplianceParams map[string]ApplianceStats

	// ChunkWiseTraining is consumed by the host orchestrator; the core only
	// records it.
	ChunkWiseTraining bool

	StoreKind    string // "memory" (default) or "sqlite"
	DBPath       string
	ArtifactsDir string // when set, fit loss histories are written here

	Progress func(format string, args ...any)
}

func (o Options) withDefaults() Options {
	if o.SequenceLength == 0 {
		o.SequenceLength = defaultSequenceLength
	}
	if o.Epochs == 0 {
		o.Epochs = defaultEpochs
	}
	if o.BatchSize == 0 {
		o.BatchSize = defaultBatchSize
	}
	if o.MainsMean == nil {
		mean := float64(defaultMainsMean)
		o.MainsMean = &mean
	}
	if o.MainsStd == nil {
		std := float64(defaultMainsStd)
		o.MainsStd = &std
	}
	if o.LearningRate == 0 {
		o.LearningRate = defaultLearningRate
	}
	if o.SplitSeed == 0 {
		o.SplitSeed = defaultSplitSeed
	}
	if o.InitSeed == 0 {
		o.InitSeed = defaultInitSeed
	}
	if o.StoreKind == "sqlite" && o.DBPath == "" {
		o.DBPath = defaultDBPath
	}
	return o
}

// ResultTable is the disaggregation output for one mains chunk: one series
// per known appliance, row-aligned to the chunk's readings, in watts,
// non-negative.
type ResultTable struct {
	Appliances []string
	Series     map[string][]float64
}

// Disaggregator owns the per-appliance models and runs training and
// inference. A given appliance's model must not be trained and queried
// concurrently; appliances are always trained strictly sequentially.
type Disaggregator struct {
	opts     Options
	pre      *seq.Preprocessor
	params   *seq.ParamStore
	registry *nn.Registry
	trainer  *trainer.Trainer
	store    storage.Store

	initSeed int64
}

// New validates the options and assembles a disaggregator. An invalid
// sequence length or a non-positive mains std is a configuration error.
func New(ctx context.Context, opts Options) (*Disaggregator, error) {
	opts = opts.withDefaults()

	if *opts.MainsStd <= 0 {
		return nil, fmt.Errorf("mains std must be positive: got %g", *opts.MainsStd)
	}
	pre, err := seq.NewPreprocessor(opts.SequenceLength, *opts.MainsMean, *opts.MainsStd)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewStore(opts.StoreKind, opts.DBPath)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, err
	}

	return &Disaggregator{
		opts:     opts,
		pre:      pre,
		params:   seq.NewParamStore(opts.ApplianceParams),
		registry: nn.NewRegistry(),
		trainer: &trainer.Trainer{
			Epochs:       opts.Epochs,
			BatchSize:    opts.BatchSize,
			LearningRate: opts.LearningRate,
			SplitSeed:    opts.SplitSeed,
			Store:        store,
			Progress:     opts.Progress,
		},
		store:    store,
		initSeed: opts.InitSeed,
	}, nil
}

// Close releases the checkpoint store if the backend holds resources.
func (d *Disaggregator) Close() error {
	return storage.CloseIfSupported(d.store)
}

func (d *Disaggregator) newModel() *nn.SeqToPoint {
	return nn.NewSeqToPoint(d.opts.SequenceLength, d.initSeed)
}

// PartialFit trains one model per appliance on the given chunks, creating
// models on first sight and retraining existing ones in place. The round
// index keys the persisted checkpoints. With fewer than the minimum number
// of windows the call logs and returns without training or creating models.
func (d *Disaggregator) PartialFit(ctx context.Context, mains [][]float64, appliances []ApplianceSeries, round int) error {
	d.params.EnsureStats(appliances)

	windows, targets, err := d.pre.TrainingTensors(mains, appliances, d.params)
	if err != nil {
		return err
	}
	if windows == nil {
		d.logf("skipping round %d: no mains readings", round)
		return nil
	}

	n, _ := windows.Dims()
	if n < trainer.MinWindows {
		d.logf("skipping round %d: only %d windows", round, n)
		return nil
	}

	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			return err
		}

		net, existed := d.registry.GetOrCreate(target.Name, d.newModel)
		if existed {
			d.logf("retraining model for %s", target.Name)
		} else {
			d.logf("first model training for %s", target.Name)
		}

		hist, err := d.trainer.Fit(ctx, net, windows, target.Values, target.Name, round)
		if err != nil {
			return err
		}
		if err := d.writeArtifacts(hist); err != nil {
			return err
		}
	}
	return nil
}

func (d *Disaggregator) writeArtifacts(hist trainer.History) error {
	if d.opts.ArtifactsDir == "" {
		return nil
	}
	if _, err := stats.WriteFitArtifacts(d.opts.ArtifactsDir, hist); err != nil {
		return err
	}
	return stats.AppendRunIndex(d.opts.ArtifactsDir, stats.RunIndexEntry{
		RunID:          hist.RunID,
		Appliance:      hist.Appliance,
		Round:          hist.Round,
		Epochs:         len(hist.TrainLoss),
		Skipped:        hist.Skipped,
		BestValidation: hist.BestValidation,
		CreatedAtUTC:   time.Now().UTC().Format(time.RFC3339),
	})
}

// Disaggregate estimates each known appliance's power draw for every mains
// chunk. Output preserves chunk order and model-registry appliance order;
// negative estimates are clamped to zero.
func (d *Disaggregator) Disaggregate(ctx context.Context, mains [][]float64) ([]ResultTable, error) {
	tensors := d.pre.InferenceTensors(mains)
	names := d.registry.Names()

	results := make([]ResultTable, 0, len(tensors))
	for _, tensor := range tensors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		table := ResultTable{
			Appliances: append([]string(nil), names...),
			Series:     make(map[string][]float64, len(names)),
		}
		for _, name := range names {
			stats, ok := d.params.Get(name)
			if !ok {
				return nil, fmt.Errorf("%w: %s", seq.ErrUnknownAppliance, name)
			}
			net, _ := d.registry.Get(name)
			table.Series[name] = d.predictSeries(net, tensor, stats)
		}
		results = append(results, table)
	}
	return results, nil
}

// predictSeries runs batched evaluation-mode forward passes over the chunk's
// windows in order, then denormalizes and clamps.
func (d *Disaggregator) predictSeries(net *nn.SeqToPoint, windows *mat.Dense, st ApplianceStats) []float64 {
	if windows == nil {
		return nil
	}
	n, cols := windows.Dims()
	out := make([]float64, 0, n)
	for start := 0; start < n; start += d.opts.BatchSize {
		end := min(start+d.opts.BatchSize, n)
		batch := windows.Slice(start, end, 0, cols).(*mat.Dense)
		pred := net.Forward(batch, false)
		for i := 0; i < end-start; i++ {
			v := seq.Denormalize(pred.At(i, 0), st)
			if v < 0 {
				v = 0
			}
			out = append(out, v)
		}
	}
	return out
}

// ReplaceModels bulk-swaps the registry with externally supplied models
// before inference.
func (d *Disaggregator) ReplaceModels(order []string, models map[string]*Model) error {
	return d.registry.ReplaceAll(order, models)
}

// Model returns the trained network for an appliance, if one exists.
func (d *Disaggregator) Model(name string) (*Model, bool) {
	return d.registry.Get(name)
}

// LoadCheckpoint restores an appliance's model from the checkpoint persisted
// at the given round, creating the model if the appliance is unseen.
func (d *Disaggregator) LoadCheckpoint(ctx context.Context, appliance string, round int) error {
	record, ok, err := d.store.GetCheckpoint(ctx, appliance, round)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no checkpoint for %s", model.CheckpointKey(appliance, round))
	}
	net, _ := d.registry.GetOrCreate(appliance, d.newModel)
	return net.Restore(record.Snapshot)
}

// Checkpoints lists every persisted checkpoint.
func (d *Disaggregator) Checkpoints(ctx context.Context) ([]CheckpointRecord, error) {
	return d.store.ListCheckpoints(ctx)
}

// EnsureApplianceParams computes stats from the given series if none are
// stored yet; it is the same first-call computation PartialFit performs.
func (d *Disaggregator) EnsureApplianceParams(appliances []ApplianceSeries) {
	d.params.EnsureStats(appliances)
}

// ApplianceParams returns a copy of the stored normalization stats.
func (d *Disaggregator) ApplianceParams() map[string]ApplianceStats {
	return d.params.All()
}

// ResetApplianceParams clears the stats so the next training call recomputes
// them from its first chunk.
func (d *Disaggregator) ResetApplianceParams() {
	d.params.Reset()
}

func (d *Disaggregator) logf(format string, args ...any) {
	if d.opts.Progress != nil {
		d.opts.Progress(format, args...)
	}
}
