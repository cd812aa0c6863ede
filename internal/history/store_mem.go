package history

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/flemzord/dashbot/internal/report"
)

// InMemoryStore is a thread-safe, in-memory Store. Its contents are lost on
// restart; it backs tests and the one-shot generate command.
type InMemoryStore struct {
	mu      sync.RWMutex
	staff   []report.StaffRecord
	metrics []report.MetricsRecord
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// Compile-time interface check.
var _ Store = (*InMemoryStore)(nil)

// SaveStaff implements Store.
func (s *InMemoryStore) SaveStaff(_ context.Context, date time.Time, records []report.StaffRecord) error {
	if len(records) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staff = replaceStaff(s.staff, date, records)
	return nil
}

// SaveMetrics implements Store.
func (s *InMemoryStore) SaveMetrics(_ context.Context, rec report.MetricsRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = replaceMetrics(s.metrics, rec)
	return nil
}

// Staff implements Store.
func (s *InMemoryStore) Staff(_ context.Context) ([]report.StaffRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.staff), nil
}

// Metrics implements Store.
func (s *InMemoryStore) Metrics(_ context.Context) ([]report.MetricsRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.metrics), nil
}

// Close implements Store.
func (s *InMemoryStore) Close() error { return nil }
