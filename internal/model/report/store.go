package report

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound 报告不存在。
var ErrNotFound = errors.New("report not found")

// Store 报告存储。Save 总是分配新的 ID 与 CreatedAt，忽略调用方传入的值。
type Store interface {
	Save(ctx context.Context, r Report) (Report, error)
	Get(ctx context.Context, id string) (Report, error)
	Delete(ctx context.Context, id string) error
	// List returns all reports ordered by CreatedAt, newest first.
	List(ctx context.Context) ([]Report, error)
}

// clockStep 时钟回拨或重复时 CreatedAt 的最小递增量（postgres 精度为微秒）。
const clockStep = time.Microsecond

// MemoryStore implements Store in memory; used when no database is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	items   map[string]Report
	lastAt  time.Time
	nowFunc func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:   make(map[string]Report),
		nowFunc: time.Now,
	}
}

// Save inserts a copy of r with a fresh id and creation timestamp.
func (s *MemoryStore) Save(_ context.Context, r Report) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := r.Clone()
	record.ID = uuid.NewString()
	record.CreatedAt = s.nextTimestamp()
	record.Tags = NormalizeTags(record.Tags)

	s.items[record.ID] = record
	return record.Clone(), nil
}

// nextTimestamp keeps CreatedAt strictly increasing even if the wall clock
// steps back; same step as the postgres store.
func (s *MemoryStore) nextTimestamp() time.Time {
	now := s.nowFunc().UTC()
	if !now.After(s.lastAt) {
		now = s.lastAt.Add(clockStep)
	}
	s.lastAt = now
	return now
}

// Get looks up a report by identifier.
func (s *MemoryStore) Get(_ context.Context, id string) (Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.items[id]
	if !ok {
		return Report{}, ErrNotFound
	}
	return record.Clone(), nil
}

// Delete permanently removes a report.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return ErrNotFound
	}
	delete(s.items, id)
	return nil
}

// List returns copies of all reports, newest first.
func (s *MemoryStore) List(_ context.Context) ([]Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Report, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, item.Clone())
	}
	SortNewestFirst(out)
	return out, nil
}

// SortNewestFirst orders reports by CreatedAt descending; ties fall back to id
// so the order is deterministic.
func SortNewestFirst(reports []Report) {
	sort.SliceStable(reports, func(i, j int) bool {
		if reports[i].CreatedAt.Equal(reports[j].CreatedAt) {
			return reports[i].ID > reports[j].ID
		}
		return reports[i].CreatedAt.After(reports[j].CreatedAt)
	})
}
