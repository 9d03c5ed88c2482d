package core

import (
	"errors"
	"fmt"
	"time"
)

// Error taxonomy for the identity core. The HTTP adapter maps these to wire
// responses; internal detail never reaches production responses.

// ErrNotFound is returned by stores when no record matches.
var ErrNotFound = errors.New("identitykit: not found")

// ErrInvalidOrExpiredCode covers wrong codes, expired attempts, and exhausted
// attempts. The conditions are deliberately collapsed so responses do not leak
// which one occurred.
var ErrInvalidOrExpiredCode = errors.New("identitykit: invalid or expired code")

// ErrInvalidCredentials covers unknown email, missing password credential, and
// wrong password, collapsed for the same reason.
var ErrInvalidCredentials = errors.New("identitykit: invalid credentials")

// ErrProviderFallback is the sentinel a code-delivery strategy returns when it
// answered with a stub/placeholder response. The orchestrator treats it as a
// chain failure and moves on to the next strategy.
var ErrProviderFallback = errors.New("identitykit: provider requested fallback")

// ValidationError rejects malformed email/phone/code shapes before any
// storage access.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("identitykit: invalid %s: %s", e.Field, e.Reason)
}

// RateLimitError is returned when the per-phone send budget is exhausted.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("identitykit: rate limit exceeded, retry after %s", e.RetryAfter)
}

// LinkingBlockedError means the matched account is already fully unified; the
// caller should log in instead of registering.
type LinkingBlockedError struct {
	Reason string
}

func (e *LinkingBlockedError) Error() string {
	return "identitykit: linking blocked: " + e.Reason
}

// DuplicateAccountError means the supplied phone or email is claimed by a
// different fully-unified account and cannot be merged.
type DuplicateAccountError struct {
	Field string
}

func (e *DuplicateAccountError) Error() string {
	return "identitykit: " + e.Field + " belongs to another account"
}

// DuplicateKeyError is the storage-level uniqueness violation. The creation
// race guard converts it into a successful resolution exactly once.
type DuplicateKeyError struct {
	Field string
}

func (e *DuplicateKeyError) Error() string {
	return "identitykit: duplicate key on " + e.Field
}

// IntegrityFaultError means a supposedly-unique key matched more than one
// record. Fatal: logged, never retried.
type IntegrityFaultError struct {
	Key     string
	Matches int
}

func (e *IntegrityFaultError) Error() string {
	return fmt.Sprintf("identitykit: integrity fault: %d records match unique key %s", e.Matches, e.Key)
}

// ProviderError wraps a single code-delivery provider failure. It never
// bubbles to callers unless the whole chain is exhausted, which the local
// fallback prevents in practice.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return "identitykit: provider " + e.Provider + ": " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error { return e.Err }
