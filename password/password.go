// Package password hashes and verifies account passwords. Argon2id is the
// storage format; bcrypt digests from migrated records verify but are rehashed
// on the next successful login.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	argonSaltLen = 16
)

var ErrTooShort = errors.New("password must be at least 8 characters")

// Validate applies the account password policy.
func Validate(plain string) error {
	if len(plain) < 8 {
		return ErrTooShort
	}
	return nil
}

// HashArgon2id returns a PHC-formatted argon2id digest.
func HashArgon2id(plain string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(plain), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key)), nil
}

// VerifyArgon2id checks plain against a PHC-formatted argon2id digest.
func VerifyArgon2id(digest, plain string) (bool, error) {
	parts := strings.Split(digest, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, errors.New("malformed argon2id digest")
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, err
	}
	var memory, time uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false, err
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, err
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, err
	}
	got := argon2.IDKey([]byte(plain), salt, time, memory, threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// IsBcryptHash reports whether a stored digest is bcrypt-formatted.
func IsBcryptHash(digest string) bool {
	return strings.HasPrefix(digest, "$2a$") || strings.HasPrefix(digest, "$2b$") || strings.HasPrefix(digest, "$2y$")
}

// VerifyBcrypt checks plain against a bcrypt digest.
func VerifyBcrypt(digest, plain string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Verify dispatches on the digest format. Returns rehash=true when the digest
// verified but should be upgraded to argon2id.
func Verify(digest, plain string) (ok bool, rehash bool, err error) {
	if IsBcryptHash(digest) {
		ok, err = VerifyBcrypt(digest, plain)
		return ok, ok, err
	}
	ok, err = VerifyArgon2id(digest, plain)
	return ok, false, err
}
