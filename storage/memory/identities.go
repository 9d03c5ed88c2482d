// Package memorystore holds in-memory implementations of the storage
// surfaces. Single-process only; used for local development and tests.
package memorystore

import (
	"context"
	"sync"

	"github.com/roomhive/identitykit/core"
)

// IdentityStore keeps identities in a map and enforces the same uniqueness
// rules a real database index would: one account per email, one per phone.
type IdentityStore struct {
	mu    sync.RWMutex
	items map[string]core.Identity // by id
}

func NewIdentityStore() *IdentityStore {
	return &IdentityStore{items: make(map[string]core.Identity)}
}

func (s *IdentityStore) Find(ctx context.Context, q core.IdentityQuery) ([]core.Identity, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Identity
	for _, it := range s.items {
		if matches(&it, q) {
			out = append(out, it)
		}
	}
	return out, nil
}

func matches(it *core.Identity, q core.IdentityQuery) bool {
	if q.ID != "" && it.ID == q.ID {
		return true
	}
	if q.Email != "" && it.Email != nil && *it.Email == q.Email {
		return true
	}
	if it.Phone != nil {
		for _, v := range q.PhoneVariants {
			if *it.Phone == v {
				return true
			}
		}
	}
	return false
}

func (s *IdentityStore) Insert(ctx context.Context, ident *core.Identity) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[ident.ID]; ok {
		return &core.DuplicateKeyError{Field: "id"}
	}
	for _, it := range s.items {
		if ident.Email != nil && it.Email != nil && *it.Email == *ident.Email {
			return &core.DuplicateKeyError{Field: "email"}
		}
		if ident.Phone != nil && it.Phone != nil && *it.Phone == *ident.Phone {
			return &core.DuplicateKeyError{Field: "phone"}
		}
	}
	s.items[ident.ID] = *ident
	return nil
}

func (s *IdentityStore) UpdateOne(ctx context.Context, id string, patch core.IdentityPatch) (*core.Identity, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	for _, other := range s.items {
		if other.ID == id {
			continue
		}
		if patch.Email != nil && other.Email != nil && *other.Email == *patch.Email {
			return nil, &core.DuplicateKeyError{Field: "email"}
		}
		if patch.Phone != nil && other.Phone != nil && *other.Phone == *patch.Phone {
			return nil, &core.DuplicateKeyError{Field: "phone"}
		}
	}
	applyPatch(&it, patch)
	s.items[id] = it
	return &it, nil
}

func applyPatch(it *core.Identity, p core.IdentityPatch) {
	if p.Email != nil {
		it.Email = p.Email
	}
	if p.Phone != nil {
		it.Phone = p.Phone
	}
	if p.PasswordHash != nil {
		it.PasswordHash = p.PasswordHash
	}
	if p.Name != nil {
		it.Name = p.Name
	}
	if p.Bio != nil {
		it.Bio = p.Bio
	}
	if p.Role != nil {
		it.Role = *p.Role
	}
	if p.RegistrationMethod != nil {
		it.RegistrationMethod = *p.RegistrationMethod
	}
	if p.AccountType != nil {
		it.AccountType = *p.AccountType
	}
	if p.PhoneVerified != nil {
		it.PhoneVerified = *p.PhoneVerified
	}
	if p.EmailVerified != nil {
		it.EmailVerified = *p.EmailVerified
	}
	if p.CanLinkEmail != nil {
		it.CanLinkEmail = *p.CanLinkEmail
	}
	if p.ProfileCompleted != nil {
		it.ProfileCompleted = *p.ProfileCompleted
	}
	if p.PasswordChangedAt != nil {
		it.PasswordChangedAt = p.PasswordChangedAt
	}
	if p.LastLogin != nil {
		it.LastLogin = p.LastLogin
	}
}

func (s *IdentityStore) Delete(ctx context.Context, id string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.items, id)
	return nil
}
