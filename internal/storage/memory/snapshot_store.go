package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/ordering/internal/domain"
)

// snapshotRecord хранит снимок агрегата и его сохранённую версию.
type snapshotRecord[S any] struct {
	snapshot S
	version  int64
}

// snapshotStore — общее in-memory хранилище снимков с optimistic locking.
// Агрегаты не хранятся напрямую: каждый Load восстанавливает новый экземпляр,
// поэтому изменения вне Save не попадают в хранилище.
type snapshotStore[K comparable, S any] struct {
	mu       sync.RWMutex
	records  map[K]snapshotRecord[S]
	order    []K
	notFound error
}

// newSnapshotStore создаёт хранилище; notFound возвращается при сохранении
// ненулевой версии отсутствующей записи.
func newSnapshotStore[K comparable, S any](notFound error) *snapshotStore[K, S] {
	return &snapshotStore[K, S]{records: make(map[K]snapshotRecord[S]), notFound: notFound}
}

func (s *snapshotStore[K, S]) get(id K) (S, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	return rec.snapshot, ok
}

func (s *snapshotStore[K, S]) exists(id K) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.records[id]
	return ok
}

func (s *snapshotStore[K, S]) count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}

// put сохраняет снимок, если expected совпадает с сохранённой версией
// (0 для отсутствующей записи). Сохранённая версия становится expected+1.
// Ненулевая версия без записи даёт notFound.
func (s *snapshotStore[K, S]) put(id K, expected int64, snapshot S) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.records[id]
	switch {
	case !ok && expected != 0:
		return s.notFound
	case ok && current.version != expected:
		return domain.ErrVersionConflict
	}
	if !ok {
		s.order = append(s.order, id)
	}
	s.records[id] = snapshotRecord[S]{snapshot: snapshot, version: expected + 1}
	return nil
}

// filter возвращает снимки в порядке первого сохранения.
func (s *snapshotStore[K, S]) filter(match func(S) bool) []S {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]S, 0)
	for _, id := range s.order {
		snapshot := s.records[id].snapshot
		if match(snapshot) {
			result = append(result, snapshot)
		}
	}
	return result
}
