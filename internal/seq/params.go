package seq

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"wattsplit/internal/model"
)

// stdFloor replaces a near-zero appliance std so denormalization cannot blow
// up on an almost-constant series.
const stdFloor = 100

// ParamStore maps appliance names to their normalization statistics. Stats
// are computed once from the first training call and are immutable until the
// caller explicitly resets the store.
type ParamStore struct {
	names []string
	stats map[string]model.ApplianceStats
}

// NewParamStore builds a store, optionally pre-seeded with externally
// supplied stats. Seeded names are recorded in sorted order for determinism.
func NewParamStore(seed map[string]model.ApplianceStats) *ParamStore {
	s := &ParamStore{stats: make(map[string]model.ApplianceStats)}
	for _, name := range sortedKeys(seed) {
		s.names = append(s.names, name)
		s.stats[name] = seed[name]
	}
	return s
}

// EnsureStats populates the store from the concatenated raw readings of each
// appliance. If the store already holds any stats the call is a no-op; a
// caller wanting fresh stats must Reset first.
func (s *ParamStore) EnsureStats(appliances []ApplianceSeries) {
	if len(s.stats) > 0 {
		return
	}
	for _, app := range appliances {
		var all []float64
		for _, chunk := range app.Chunks {
			all = append(all, chunk...)
		}
		mean := stat.Mean(all, nil)
		std := stat.PopStdDev(all, nil)
		if std < 1 {
			std = stdFloor
		}
		s.names = append(s.names, app.Name)
		s.stats[app.Name] = model.ApplianceStats{Mean: mean, Std: std}
	}
}

func (s *ParamStore) Get(name string) (model.ApplianceStats, bool) {
	stats, ok := s.stats[name]
	return stats, ok
}

// Names returns the appliance names in the order they were recorded.
func (s *ParamStore) Names() []string {
	return append([]string(nil), s.names...)
}

func (s *ParamStore) Len() int {
	return len(s.stats)
}

// All returns a copy of the stored stats.
func (s *ParamStore) All() map[string]model.ApplianceStats {
	out := make(map[string]model.ApplianceStats, len(s.stats))
	for name, stats := range s.stats {
		out[name] = stats
	}
	return out
}

// Reset clears the store so the next EnsureStats call recomputes everything.
func (s *ParamStore) Reset() {
	s.names = nil
	s.stats = make(map[string]model.ApplianceStats)
}

func sortedKeys(m map[string]model.ApplianceStats) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
