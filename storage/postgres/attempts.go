package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"github.com/roomhive/identitykit/core"
)

const (
	proofRemote = "remote"
	proofLocal  = "local"
)

type attemptRow struct {
	bun.BaseModel `bun:"table:identity.verification_attempts,alias:va"`

	ID         string    `bun:"id,pk"`
	Phone      string    `bun:"phone,notnull"`
	ProofKind  string    `bun:"proof_kind,notnull"`
	ProofValue string    `bun:"proof_value,notnull"`
	Provider   string    `bun:"provider,notnull"`
	Failures   int       `bun:"failures,notnull,default:0"`
	ExpiresAt  time.Time `bun:"expires_at,notnull"`
	CreatedAt  time.Time `bun:"created_at,notnull"`
}

func toRow(a *core.VerificationAttempt) (*attemptRow, error) {
	row := &attemptRow{
		ID:        a.ID,
		Phone:     a.Phone,
		Provider:  a.Provider,
		Failures:  a.Failures,
		ExpiresAt: a.ExpiresAt,
		CreatedAt: a.CreatedAt,
	}
	switch p := a.Proof.(type) {
	case core.RemoteValidated:
		row.ProofKind, row.ProofValue = proofRemote, p.Reference
	case core.LocallyHashed:
		row.ProofKind, row.ProofValue = proofLocal, p.Digest
	default:
		return nil, fmt.Errorf("pgstore: unknown code proof shape %T", a.Proof)
	}
	return row, nil
}

func (r *attemptRow) toAttempt() *core.VerificationAttempt {
	a := &core.VerificationAttempt{
		ID:        r.ID,
		Phone:     r.Phone,
		Provider:  r.Provider,
		Failures:  r.Failures,
		ExpiresAt: r.ExpiresAt,
		CreatedAt: r.CreatedAt,
	}
	if r.ProofKind == proofRemote {
		a.Proof = core.RemoteValidated{Reference: r.ProofValue}
	} else {
		a.Proof = core.LocallyHashed{Digest: r.ProofValue}
	}
	return a
}

// AttemptStore persists verification attempts through bun on top of the same
// pgx pool the identity store uses.
type AttemptStore struct {
	db *bun.DB
}

func NewAttemptStore(pool *pgxpool.Pool) *AttemptStore {
	sqldb := stdlib.OpenDBFromPool(pool)
	return &AttemptStore{db: bun.NewDB(sqldb, pgdialect.New())}
}

func (s *AttemptStore) Insert(ctx context.Context, a *core.VerificationAttempt) error {
	row, err := toRow(a)
	if err != nil {
		return err
	}
	_, err = s.db.NewInsert().Model(row).Exec(ctx)
	return err
}

func (s *AttemptStore) LatestByPhone(ctx context.Context, phone string) (*core.VerificationAttempt, error) {
	row := new(attemptRow)
	err := s.db.NewSelect().Model(row).
		Where("phone = ?", phone).
		Order("created_at DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toAttempt(), nil
}

func (s *AttemptStore) CountSentSince(ctx context.Context, phone string, since time.Time) (int, error) {
	return s.db.NewSelect().Model((*attemptRow)(nil)).
		Where("phone = ?", phone).
		Where("created_at >= ?", since).
		Count(ctx)
}

func (s *AttemptStore) OldestSentSince(ctx context.Context, phone string, since time.Time) (*core.VerificationAttempt, error) {
	row := new(attemptRow)
	err := s.db.NewSelect().Model(row).
		Where("phone = ?", phone).
		Where("created_at >= ?", since).
		Order("created_at ASC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toAttempt(), nil
}

func (s *AttemptStore) RecordFailure(ctx context.Context, id string) (int, error) {
	var failures int
	err := s.db.NewUpdate().Model((*attemptRow)(nil)).
		Set("failures = failures + 1").
		Where("id = ?", id).
		Returning("failures").
		Scan(ctx, &failures)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, core.ErrNotFound
	}
	return failures, err
}

func (s *AttemptStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.NewDelete().Model((*attemptRow)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (s *AttemptStore) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.NewDelete().Model((*attemptRow)(nil)).
		Where("expires_at < ?", cutoff).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
