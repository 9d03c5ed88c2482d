// Package pgstore holds the Postgres-backed storage surfaces. Identities use
// pgx directly; verification attempts go through bun.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roomhive/identitykit/core"
)

const identityColumns = `id, email, phone, password_hash, name, bio, role,
	registration_method, account_type,
	phone_verified, email_verified, can_link_email, profile_completed,
	password_changed_at, created_at, last_login`

// IdentityStore persists identities in identity.accounts. Uniqueness of email
// and phone is enforced by partial unique indexes; violations surface as
// *core.DuplicateKeyError.
type IdentityStore struct {
	pg *pgxpool.Pool
}

func NewIdentityStore(pool *pgxpool.Pool) *IdentityStore {
	return &IdentityStore{pg: pool}
}

func (s *IdentityStore) Find(ctx context.Context, q core.IdentityQuery) ([]core.Identity, error) {
	var conds []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if q.ID != "" {
		conds = append(conds, "id = "+arg(q.ID))
	}
	if q.Email != "" {
		conds = append(conds, "lower(email) = lower("+arg(q.Email)+")")
	}
	if len(q.PhoneVariants) > 0 {
		conds = append(conds, "phone = ANY("+arg(q.PhoneVariants)+")")
	}
	if len(conds) == 0 {
		return nil, nil
	}

	sql := fmt.Sprintf(`SELECT %s FROM identity.accounts WHERE %s`,
		identityColumns, strings.Join(conds, " OR "))
	rows, err := s.pg.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Identity
	for rows.Next() {
		it, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *it)
	}
	return out, rows.Err()
}

func scanIdentity(row pgx.Row) (*core.Identity, error) {
	var it core.Identity
	err := row.Scan(
		&it.ID, &it.Email, &it.Phone, &it.PasswordHash, &it.Name, &it.Bio, &it.Role,
		&it.RegistrationMethod, &it.AccountType,
		&it.PhoneVerified, &it.EmailVerified, &it.CanLinkEmail, &it.ProfileCompleted,
		&it.PasswordChangedAt, &it.CreatedAt, &it.LastLogin,
	)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (s *IdentityStore) Insert(ctx context.Context, ident *core.Identity) error {
	_, err := s.pg.Exec(ctx, `
		INSERT INTO identity.accounts (
			id, email, phone, password_hash, name, bio, role,
			registration_method, account_type,
			phone_verified, email_verified, can_link_email, profile_completed,
			password_changed_at, created_at, last_login
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		ident.ID, ident.Email, ident.Phone, ident.PasswordHash, ident.Name, ident.Bio, ident.Role,
		ident.RegistrationMethod, ident.AccountType,
		ident.PhoneVerified, ident.EmailVerified, ident.CanLinkEmail, ident.ProfileCompleted,
		ident.PasswordChangedAt, ident.CreatedAt, ident.LastLogin)
	return mapUniqueViolation(err)
}

// mapUniqueViolation converts a 23505 into the duplicate-key error the
// creation race guard understands, naming the colliding field from the
// constraint name.
func mapUniqueViolation(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		field := "unknown"
		switch {
		case strings.Contains(pgErr.ConstraintName, "email"):
			field = "email"
		case strings.Contains(pgErr.ConstraintName, "phone"):
			field = "phone"
		case strings.Contains(pgErr.ConstraintName, "pkey"):
			field = "id"
		}
		return &core.DuplicateKeyError{Field: field}
	}
	return err
}

func (s *IdentityStore) UpdateOne(ctx context.Context, id string, patch core.IdentityPatch) (*core.Identity, error) {
	sets := []string{}
	args := []any{id}
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.Email != nil {
		set("email", *patch.Email)
	}
	if patch.Phone != nil {
		set("phone", *patch.Phone)
	}
	if patch.PasswordHash != nil {
		set("password_hash", *patch.PasswordHash)
	}
	if patch.Name != nil {
		set("name", *patch.Name)
	}
	if patch.Bio != nil {
		set("bio", *patch.Bio)
	}
	if patch.Role != nil {
		set("role", *patch.Role)
	}
	if patch.RegistrationMethod != nil {
		set("registration_method", *patch.RegistrationMethod)
	}
	if patch.AccountType != nil {
		set("account_type", *patch.AccountType)
	}
	if patch.PhoneVerified != nil {
		set("phone_verified", *patch.PhoneVerified)
	}
	if patch.EmailVerified != nil {
		set("email_verified", *patch.EmailVerified)
	}
	if patch.CanLinkEmail != nil {
		set("can_link_email", *patch.CanLinkEmail)
	}
	if patch.ProfileCompleted != nil {
		set("profile_completed", *patch.ProfileCompleted)
	}
	if patch.PasswordChangedAt != nil {
		set("password_changed_at", *patch.PasswordChangedAt)
	}
	if patch.LastLogin != nil {
		set("last_login", *patch.LastLogin)
	}
	if len(sets) == 0 {
		row := s.pg.QueryRow(ctx,
			fmt.Sprintf(`SELECT %s FROM identity.accounts WHERE id=$1`, identityColumns), id)
		it, err := scanIdentity(row)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return it, err
	}

	sql := fmt.Sprintf(`UPDATE identity.accounts SET %s, updated_at=NOW() WHERE id=$1 RETURNING %s`,
		strings.Join(sets, ", "), identityColumns)
	row := s.pg.QueryRow(ctx, sql, args...)
	it, err := scanIdentity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, mapUniqueViolation(err)
	}
	return it, nil
}

func (s *IdentityStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pg.Exec(ctx, `DELETE FROM identity.accounts WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}
