package core_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roomhive/identitykit/core"
	jwtkit "github.com/roomhive/identitykit/jwt"
	memorystore "github.com/roomhive/identitykit/storage/memory"
)

type fixture struct {
	svc        *core.Service
	identities *hookedStore
	attempts   *memorystore.AttemptStore
	signer     jwtkit.Signer
	now        time.Time
	mu         sync.Mutex
}

// hookedStore wraps the memory identity store so tests can inject a
// competing write between a resolver miss and the optimistic insert, or fail
// a single update. Both hooks are one-shot and clear themselves.
type hookedStore struct {
	inner        *memorystore.IdentityStore
	beforeInsert func(ctx context.Context)
	updateErr    error
}

func (h *hookedStore) Find(ctx context.Context, q core.IdentityQuery) ([]core.Identity, error) {
	return h.inner.Find(ctx, q)
}

func (h *hookedStore) Insert(ctx context.Context, ident *core.Identity) error {
	if h.beforeInsert != nil {
		fn := h.beforeInsert
		h.beforeInsert = nil
		fn(ctx)
	}
	return h.inner.Insert(ctx, ident)
}

func (h *hookedStore) UpdateOne(ctx context.Context, id string, patch core.IdentityPatch) (*core.Identity, error) {
	if h.updateErr != nil {
		err := h.updateErr
		h.updateErr = nil
		return nil, err
	}
	return h.inner.UpdateOne(ctx, id, patch)
}

func (h *hookedStore) Delete(ctx context.Context, id string) error {
	return h.inner.Delete(ctx, id)
}

func newFixture(t *testing.T, cfg core.Config) *fixture {
	t.Helper()
	f := &fixture{
		identities: &hookedStore{inner: memorystore.NewIdentityStore()},
		attempts:   memorystore.NewAttemptStore(),
		now:        time.Now().Truncate(time.Second),
	}
	f.signer = jwtkit.NewHMACSigner("hs-test", []byte("test-secret-test-secret-test-1234"))
	if cfg.Issuer == "" {
		cfg.Issuer = "http://identity.test"
	}
	if cfg.Audience == "" {
		cfg.Audience = "roomhive-test"
	}
	f.svc = core.NewService(cfg, f.identities, f.attempts, f.signer).
		WithClock(func() time.Time {
			f.mu.Lock()
			defer f.mu.Unlock()
			return f.now
		})
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func (f *fixture) register(t *testing.T, email, pass, phone string) *core.AuthResult {
	t.Helper()
	res, err := f.svc.RegisterOrLink(context.Background(), core.RegisterInput{
		Name:     "Test User",
		Email:    email,
		Password: pass,
		Phone:    phone,
	})
	require.NoError(t, err)
	return res
}

// Fake delivery strategies.

type fakeRemote struct {
	name       string
	configured bool
	sendErr    error
	sent       []string
	validCode  string
	checkErr   error
}

func (f *fakeRemote) Name() string       { return f.name }
func (f *fakeRemote) IsConfigured() bool { return f.configured }

func (f *fakeRemote) Send(_ context.Context, phoneNumber string) (string, error) {
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sent = append(f.sent, phoneNumber)
	return fmt.Sprintf("ref-%d", len(f.sent)), nil
}

func (f *fakeRemote) Check(_ context.Context, _, code string) (bool, error) {
	if f.checkErr != nil {
		return false, f.checkErr
	}
	return code == f.validCode, nil
}

type fakeDirect struct {
	name       string
	configured bool
	sendErr    error
	lastCode   string
	sent       int
}

func (f *fakeDirect) Name() string       { return f.name }
func (f *fakeDirect) IsConfigured() bool { return f.configured }

func (f *fakeDirect) Send(_ context.Context, _, code string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent++
	f.lastCode = code
	return nil
}

type fakeFixed struct {
	fakeDirect
	code string
}

func (f *fakeFixed) FixedCode() string { return f.code }
