package memorystore

import (
	"context"
	"sync"
	"time"

	"github.com/roomhive/identitykit/core"
)

// AttemptStore keeps verification attempts in a map.
type AttemptStore struct {
	mu    sync.Mutex
	items map[string]core.VerificationAttempt
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{items: make(map[string]core.VerificationAttempt)}
}

func (s *AttemptStore) Insert(ctx context.Context, a *core.VerificationAttempt) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[a.ID] = *a
	return nil
}

func (s *AttemptStore) LatestByPhone(ctx context.Context, phone string) (*core.VerificationAttempt, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *core.VerificationAttempt
	for id := range s.items {
		a := s.items[id]
		if a.Phone != phone {
			continue
		}
		if latest == nil || a.CreatedAt.After(latest.CreatedAt) {
			cp := a
			latest = &cp
		}
	}
	if latest == nil {
		return nil, core.ErrNotFound
	}
	return latest, nil
}

func (s *AttemptStore) CountSentSince(ctx context.Context, phone string, since time.Time) (int, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, a := range s.items {
		if a.Phone == phone && !a.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (s *AttemptStore) OldestSentSince(ctx context.Context, phone string, since time.Time) (*core.VerificationAttempt, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	var oldest *core.VerificationAttempt
	for id := range s.items {
		a := s.items[id]
		if a.Phone != phone || a.CreatedAt.Before(since) {
			continue
		}
		if oldest == nil || a.CreatedAt.Before(oldest.CreatedAt) {
			cp := a
			oldest = &cp
		}
	}
	if oldest == nil {
		return nil, core.ErrNotFound
	}
	return oldest, nil
}

func (s *AttemptStore) RecordFailure(ctx context.Context, id string) (int, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.items[id]
	if !ok {
		return 0, core.ErrNotFound
	}
	a.Failures++
	s.items[id] = a
	return a.Failures, nil
}

func (s *AttemptStore) Delete(ctx context.Context, id string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}

func (s *AttemptStore) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, a := range s.items {
		if a.ExpiresAt.Before(cutoff) {
			delete(s.items, id)
			n++
		}
	}
	return n, nil
}
