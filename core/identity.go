package core

import (
	"context"
	"time"
)

type RegistrationMethod string

const (
	MethodPassword    RegistrationMethod = "password"
	MethodOneTimeCode RegistrationMethod = "one_time_code"
	MethodSocial      RegistrationMethod = "social"
	MethodUnified     RegistrationMethod = "unified"
)

type AccountType string

const (
	// AccountCodeOnly covers every passwordless account: created via a
	// one-time code, or via social login (no local password either way).
	AccountCodeOnly     AccountType = "code_only"
	AccountPasswordOnly AccountType = "password_only"
	AccountUnified      AccountType = "unified"
)

// Identity is the durable account record representing one person.
// At least one of Email/Phone is always present; each is globally unique.
type Identity struct {
	ID           string
	Email        *string // lowercased, nullable
	Phone        *string // canonical form, nullable
	PasswordHash *string
	Name         *string
	Bio          *string
	Role         string

	RegistrationMethod RegistrationMethod
	AccountType        AccountType

	PhoneVerified    bool
	EmailVerified    bool
	CanLinkEmail     bool
	ProfileCompleted bool

	PasswordChangedAt *time.Time
	CreatedAt         time.Time
	LastLogin         *time.Time
}

// Unified reports whether the identity completed the one-way transition to a
// fully unified account. Unified accounts are never linking targets again.
func (i *Identity) Unified() bool { return i.AccountType == AccountUnified }

// IdentityQuery selects at most one identity: by id, by lowercased email, or
// by any stored phone variant. Exactly one selector should be set.
type IdentityQuery struct {
	ID            string
	Email         string
	PhoneVariants []string
}

// IdentityPatch is an atomic single-document update; nil fields are left
// untouched. Nulling a field out would need pointer-to-pointer, which this
// subsystem never does: merges only fill gaps.
type IdentityPatch struct {
	Email        *string
	Phone        *string
	PasswordHash *string
	Name         *string
	Bio          *string
	Role         *string

	RegistrationMethod *RegistrationMethod
	AccountType        *AccountType

	PhoneVerified    *bool
	EmailVerified    *bool
	CanLinkEmail     *bool
	ProfileCompleted *bool

	PasswordChangedAt *time.Time
	LastLogin         *time.Time
}

// IdentityStore is the persistence surface this core needs: single-document
// reads, inserts that surface uniqueness violations as *DuplicateKeyError, and
// atomic patches. The store enforces global uniqueness on email and phone.
type IdentityStore interface {
	// Find returns every identity matching the query. More than one row for a
	// unique selector is a data-integrity fault the resolver surfaces.
	Find(ctx context.Context, q IdentityQuery) ([]Identity, error)
	Insert(ctx context.Context, ident *Identity) error
	UpdateOne(ctx context.Context, id string, patch IdentityPatch) (*Identity, error)
	Delete(ctx context.Context, id string) error
}

// CodeProof records how an outstanding verification attempt is validated.
// Exactly two shapes exist; verification switches exhaustively over them.
type CodeProof interface{ isCodeProof() }

// RemoteValidated means the primary provider manages the code; this system
// never sees its value and delegates checking to the provider.
type RemoteValidated struct {
	Reference string
}

// LocallyHashed means this system generated the code and stores its digest.
type LocallyHashed struct {
	Digest string
}

func (RemoteValidated) isCodeProof() {}
func (LocallyHashed) isCodeProof()   {}

// VerificationAttempt tracks one outstanding code challenge for a phone. It
// references a phone, not an identity: the identity may not exist yet.
type VerificationAttempt struct {
	ID        string
	Phone     string // canonical form
	Proof     CodeProof
	Provider  string
	Failures  int
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the attempt is past its validity window, regardless
// of failure count.
func (a *VerificationAttempt) Expired(now time.Time) bool {
	return now.After(a.ExpiresAt)
}

// AttemptStore persists verification attempts. Rate limiting counts persisted
// rows, so it is correct across process instances without shared memory.
type AttemptStore interface {
	Insert(ctx context.Context, a *VerificationAttempt) error
	// LatestByPhone returns the most recent attempt for the phone, or
	// ErrNotFound. Duplicates are tolerated by always selecting the newest.
	LatestByPhone(ctx context.Context, phone string) (*VerificationAttempt, error)
	CountSentSince(ctx context.Context, phone string, since time.Time) (int, error)
	OldestSentSince(ctx context.Context, phone string, since time.Time) (*VerificationAttempt, error)
	// RecordFailure increments the failure counter and returns the new total.
	RecordFailure(ctx context.Context, id string) (int, error)
	Delete(ctx context.Context, id string) error
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
