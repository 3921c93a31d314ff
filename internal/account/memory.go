package account

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

type memRow struct {
	name   string
	fields map[string]int64
}

// MemoryStore is a map-backed Store for tests and throwaway local runs.
// State is lost on restart.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[string]*memRow
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]*memRow)}
}

func (s *MemoryStore) CreateAccount(ctx context.Context, id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; ok {
		return nil
	}
	fields := make(map[string]int64, len(knownFields))
	fields[FieldCreatedAt] = time.Now().Unix()
	s.rows[id] = &memRow{name: name, fields: fields}
	return nil
}

func (s *MemoryStore) row(id string) (*memRow, error) {
	r, ok := s.rows[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoAccount, id)
	}
	return r, nil
}

func (s *MemoryStore) GetField(ctx context.Context, id, field string) (int64, error) {
	if err := checkField(field); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.row(id)
	if err != nil {
		return 0, err
	}
	return r.fields[field], nil
}

func (s *MemoryStore) SetField(ctx context.Context, id, field string, value int64) error {
	if err := checkField(field); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.row(id)
	if err != nil {
		return err
	}
	r.fields[field] = value
	return nil
}

func (s *MemoryStore) IncrementField(ctx context.Context, id, field string, delta int64) error {
	if err := checkField(field); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.row(id)
	if err != nil {
		return err
	}
	r.fields[field] += delta
	return nil
}

func (s *MemoryStore) DecrementField(ctx context.Context, id, field string, delta int64) error {
	if err := checkField(field); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.row(id)
	if err != nil {
		return err
	}
	next := r.fields[field] - delta
	if next < 0 {
		next = 0
	}
	r.fields[field] = next
	return nil
}

func (s *MemoryStore) GetColumn(ctx context.Context, field string) (map[string]int64, error) {
	if err := checkField(field); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.rows))
	for id, r := range s.rows {
		out[id] = r.fields[field]
	}
	return out, nil
}

func (s *MemoryStore) GetTopByColumn(ctx context.Context, column, orderColumn string, limit int, excludeID string) ([]TopEntry, error) {
	if err := checkField(column); err != nil {
		return nil, err
	}
	if err := checkField(orderColumn); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	type pair struct {
		entry TopEntry
		order int64
	}
	var all []pair
	for id, r := range s.rows {
		if id == excludeID {
			continue
		}
		all = append(all, pair{
			entry: TopEntry{UserID: id, Name: r.name, Value: r.fields[column]},
			order: r.fields[orderColumn],
		})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].order > all[j].order })
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	out := make([]TopEntry, 0, len(all))
	for _, p := range all {
		out = append(out, p.entry)
	}
	return out, nil
}

func (s *MemoryStore) ListIDs(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.rows))
	for id := range s.rows {
		out = append(out, id)
	}
	return out, nil
}
