// Package auth implements the optional confirmation-passphrase gate on
// destructive config operations (config reset, set-level full_access
// --system): an Argon2id hash is stored in DaemonConfig and verified by
// constant-time compare before the operation proceeds.
package auth

import (
	"errors"
	"fmt"

	"github.com/alexedwards/argon2id"
)

// ErrInvalidPassphrase is returned when a passphrase does not match the
// stored hash.
var ErrInvalidPassphrase = errors.New("invalid passphrase")

// argon2idParams defines OWASP minimum parameters for Argon2id.
// Memory: 47 MiB, Iterations: 1, Parallelism: 1.
var argon2idParams = &argon2id.Params{
	Memory:      47 * 1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// HashPassphrase returns an Argon2id hash of raw in PHC format, suitable
// for storing in DaemonConfig.
func HashPassphrase(raw string) (string, error) {
	return argon2id.CreateHash(raw, argon2idParams)
}

// VerifyPassphrase checks raw against a stored Argon2id PHC-format hash.
// Returns ErrInvalidPassphrase on mismatch or a malformed hash.
func VerifyPassphrase(raw, storedHash string) error {
	match, err := safeArgon2idCompare(raw, storedHash)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPassphrase, err)
	}
	if !match {
		return ErrInvalidPassphrase
	}
	return nil
}

// safeArgon2idCompare wraps argon2id.ComparePasswordAndHash with panic
// recovery: the underlying library panics on malformed hashes with
// invalid parameters (e.g. t=0 rounds), so this converts that into an
// error instead of crashing the config tool.
func safeArgon2idCompare(rawKey, storedHash string) (match bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			match = false
			err = fmt.Errorf("invalid argon2id hash parameters: %v", r)
		}
	}()
	return argon2id.ComparePasswordAndHash(rawKey, storedHash)
}
