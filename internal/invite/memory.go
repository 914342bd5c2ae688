package invite

import (
	"context"
	"sync"
	"time"
)

// InMemory implements Store with in-process concurrency safety.
type InMemory struct {
	mu    sync.RWMutex
	byID  map[string]*Invitation
	order []string // insertion order, used for latest-wins lookup
}

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{byID: make(map[string]*Invitation)}
}

func (s *InMemory) InsertInvitation(ctx context.Context, inv Invitation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := inv
	s.byID[inv.ID] = &cp
	s.order = append(s.order, inv.ID)
	return nil
}

func (s *InMemory) GetInvitation(ctx context.Context, id string) (Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.byID[id]
	if !ok {
		return Invitation{}, ErrNotFound
	}
	return *inv, nil
}

func (s *InMemory) GetInvitationByAssessment(ctx context.Context, orgAssessmentID string) (Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.order) - 1; i >= 0; i-- {
		inv := s.byID[s.order[i]]
		if inv.OrgAssessmentID == orgAssessmentID {
			return *inv, nil
		}
	}
	return Invitation{}, ErrNotFound
}

func (s *InMemory) MarkAccessed(ctx context.Context, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.byID[id]
	if !ok {
		return false, ErrNotFound
	}
	if inv.Status != StatusPending {
		return false, nil
	}
	inv.Status = StatusAccessed
	t := at
	inv.AccessedAt = &t
	return true, nil
}

func (s *InMemory) TouchLastAccessed(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	if inv.LastAccessedAt == nil || at.After(*inv.LastAccessedAt) {
		t := at
		inv.LastAccessedAt = &t
	}
	return nil
}

func (s *InMemory) MarkInvitationCompleted(ctx context.Context, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.byID[id]
	if !ok {
		return false, ErrNotFound
	}
	if inv.Status == StatusRevoked {
		return false, nil
	}
	inv.Status = StatusCompleted
	t := at
	inv.CompletedAt = &t
	return true, nil
}

func (s *InMemory) RevokeInvitation(ctx context.Context, id string, at time.Time, revokedBy string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.byID[id]
	if !ok {
		return false, ErrNotFound
	}
	if inv.Status != StatusPending && inv.Status != StatusAccessed {
		return false, nil
	}
	inv.Status = StatusRevoked
	t := at
	inv.RevokedAt = &t
	inv.RevokedBy = revokedBy
	return true, nil
}
