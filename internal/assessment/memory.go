package assessment

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemory implements Store with in-process concurrency safety. Used in
// tests and DSN-less development runs; production uses the Postgres store.
type InMemory struct {
	mu          sync.RWMutex
	assessments map[string]*Assessment
	items       map[string]*Item           // item id -> item
	byAssess    map[string][]string        // assessment id -> ordered item ids
	progress    map[string][]ProgressRecord
}

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{
		assessments: make(map[string]*Assessment),
		items:       make(map[string]*Item),
		byAssess:    make(map[string][]string),
		progress:    make(map[string][]ProgressRecord),
	}
}

func (s *InMemory) CreateAssessment(ctx context.Context, a Assessment, items []Item, progress []ProgressRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertLocked(a, items, progress)
	return nil
}

func (s *InMemory) CreateClone(ctx context.Context, clone Assessment, items []Item, progress []ProgressRecord, sourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	src, ok := s.assessments[sourceID]
	if !ok {
		return ErrNotFound
	}
	clone.LinkedAssessmentID = sourceID
	s.insertLocked(clone, items, progress)
	src.LinkedAssessmentID = clone.ID
	return nil
}

func (s *InMemory) insertLocked(a Assessment, items []Item, progress []ProgressRecord) {
	cp := a
	s.assessments[a.ID] = &cp
	ids := make([]string, 0, len(items))
	for _, it := range items {
		itc := it
		s.items[it.ID] = &itc
		ids = append(ids, it.ID)
	}
	s.byAssess[a.ID] = ids
	recs := make([]ProgressRecord, len(progress))
	copy(recs, progress)
	s.progress[a.ID] = recs
}

func (s *InMemory) GetAssessment(ctx context.Context, id string) (Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assessments[id]
	if !ok {
		return Assessment{}, ErrNotFound
	}
	return *a, nil
}

func (s *InMemory) ListAssessments(ctx context.Context, organizationID string) ([]Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Assessment
	for _, a := range s.assessments {
		if a.OrganizationID == organizationID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemory) SetAssessmentStatus(ctx context.Context, id string, status Status, completedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assessments[id]
	if !ok {
		return ErrNotFound
	}
	a.Status = status
	a.UpdatedAt = time.Now().UTC()
	if completedAt != nil {
		at := *completedAt
		a.CompletedAt = &at
	}
	return nil
}

func (s *InMemory) SetScore(ctx context.Context, id string, score float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assessments[id]
	if !ok {
		return ErrNotFound
	}
	a.Score = score
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemory) ListItems(ctx context.Context, assessmentID string) ([]Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.assessments[assessmentID]; !ok {
		return nil, ErrNotFound
	}
	ids := s.byAssess[assessmentID]
	out := make([]Item, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.items[id])
	}
	return out, nil
}

func (s *InMemory) GetItem(ctx context.Context, itemID string) (Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[itemID]
	if !ok {
		return Item{}, ErrItemNotFound
	}
	return *it, nil
}

func (s *InMemory) UpdateItem(ctx context.Context, itemID string, upd ItemUpdate) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[itemID]
	if !ok {
		return Item{}, ErrItemNotFound
	}
	if upd.Status != nil {
		it.Status = *upd.Status
	}
	if upd.Notes != nil {
		it.Notes = *upd.Notes
	}
	if upd.Evidence != nil {
		it.Evidence = *upd.Evidence
	}
	it.UpdatedAt = time.Now().UTC()
	return *it, nil
}

func (s *InMemory) ListProgress(ctx context.Context, assessmentID string) ([]ProgressRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.assessments[assessmentID]; !ok {
		return nil, ErrNotFound
	}
	recs := s.progress[assessmentID]
	out := make([]ProgressRecord, len(recs))
	copy(out, recs)
	return out, nil
}
