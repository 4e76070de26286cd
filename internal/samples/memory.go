package samples

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/23skdu/longbow-cgen/internal/codegen"
)

// MemoryStore keeps sample sets in process. It backs Service and stands in
// for a FlightClient in tests.
type MemoryStore struct {
	mu   sync.RWMutex
	sets map[string]codegen.SampleSet
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sets: make(map[string]codegen.SampleSet)}
}

// PutSamples stores a deep copy of s under name, replacing any previous set.
func (m *MemoryStore) PutSamples(ctx context.Context, name string, s codegen.SampleSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, _, err := widths(s); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets[name] = clone(s)
	return nil
}

// FetchSamples returns a copy of the set stored under name.
func (m *MemoryStore) FetchSamples(ctx context.Context, name string) (codegen.SampleSet, error) {
	if err := ctx.Err(); err != nil {
		return codegen.SampleSet{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sets[name]
	if !ok {
		return codegen.SampleSet{}, fmt.Errorf("sample set %q not found", name)
	}
	return clone(s), nil
}

// Names lists the stored sets in sorted order.
func (m *MemoryStore) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.sets))
	for k := range m.sets {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Reset clears all stored data.
func (m *MemoryStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets = make(map[string]codegen.SampleSet)
}

func clone(s codegen.SampleSet) codegen.SampleSet {
	out := codegen.SampleSet{InputWidth: s.InputWidth, OutputWidth: s.OutputWidth}
	out.Inputs = cloneRows(s.Inputs)
	out.Outputs = cloneRows(s.Outputs)
	return out
}

func cloneRows(rows [][]float32) [][]float32 {
	if rows == nil {
		return nil
	}
	out := make([][]float32, len(rows))
	for i, r := range rows {
		out[i] = append([]float32(nil), r...)
	}
	return out
}
