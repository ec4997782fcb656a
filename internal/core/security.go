// AngelaMos | 2026
// security.go

package core

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const (
	MaxPasswordLength = 128

	saltLength = 16
)

var ErrMalformedHash = errors.New("malformed password hash")

// argonParams are the Argon2id cost settings encoded into every hash, in
// the PHC string form $argon2id$v=19$m=..,t=..,p=..$salt$key.
type argonParams struct {
	memory  uint32
	time    uint32
	threads uint8
	keyLen  uint32
}

var currentArgon = argonParams{
	memory:  64 * 1024,
	time:    1,
	threads: 4,
	keyLen:  32,
}

func (p argonParams) derive(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, p.time, p.memory, p.threads, p.keyLen)
}

func (p argonParams) encode(salt, key []byte) string {
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.memory,
		p.time,
		p.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
}

func parseArgonHash(encoded string) (argonParams, []byte, []byte, error) {
	var p argonParams

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return p, nil, nil, fmt.Errorf("%w: not an argon2id hash", ErrMalformedHash)
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return p, nil, nil, fmt.Errorf("%w: unsupported version %q", ErrMalformedHash, parts[2])
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil {
		return p, nil, nil, fmt.Errorf("%w: params: %v", ErrMalformedHash, err)
	}
	if p.time < 1 || p.threads < 1 {
		return p, nil, nil, fmt.Errorf("%w: params out of range", ErrMalformedHash)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return p, nil, nil, fmt.Errorf("%w: salt: %v", ErrMalformedHash, err)
	}

	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return p, nil, nil, fmt.Errorf("%w: key", ErrMalformedHash)
	}

	//nolint:gosec // G115: argon2id keys are a few dozen bytes
	p.keyLen = uint32(len(key))

	return p, salt, key, nil
}

func HashPassword(password string) (string, error) {
	if password == "" || len(password) > MaxPasswordLength {
		return "", fmt.Errorf("hash password: length out of range: %w", ErrInvalidInput)
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	return currentArgon.encode(salt, currentArgon.derive(password, salt)), nil
}

// VerifyPassword reports whether password matches encoded. A mismatch is
// never an error; only an unparseable hash is.
func VerifyPassword(password, encoded string) (bool, error) {
	if isBcryptHash(encoded) {
		err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password))
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return false, nil
		default:
			return false, fmt.Errorf("%w: %v", ErrMalformedHash, err)
		}
	}

	params, salt, key, err := parseArgonHash(encoded)
	if err != nil {
		return false, err
	}

	return subtle.ConstantTimeCompare(key, params.derive(password, salt)) == 1, nil
}

// CheckPassword verifies password and, when the stored hash is bcrypt or
// uses outdated Argon2id costs, also returns a fresh hash to persist.
func CheckPassword(password, encoded string) (bool, string, error) {
	valid, err := VerifyPassword(password, encoded)
	if err != nil || !valid {
		return false, "", err
	}

	if !needsRehash(encoded) {
		return true, "", nil
	}

	upgraded, err := HashPassword(password)
	if err != nil {
		// The password is correct; the upgrade can wait for the next login.
		return true, "", nil //nolint:nilerr // rehash failure must not block login
	}
	return true, upgraded, nil
}

var dummyHash = sync.OnceValue(func() string {
	hash, err := HashPassword("insighta-login-timing-equaliser")
	if err != nil {
		panic(fmt.Sprintf("security: build dummy hash: %v", err))
	}
	return hash
})

// VerifyPasswordTimingSafe runs a full Argon2id verification even when the
// account has no hash (unknown email), so both paths cost the same.
func VerifyPasswordTimingSafe(password, encoded string) (bool, string, error) {
	if encoded == "" {
		//nolint:errcheck // result discarded, only the cost matters
		_, _ = VerifyPassword(password, dummyHash())
		return false, "", nil
	}

	return CheckPassword(password, encoded)
}

// Hashes carried over from the previous deployment are bcrypt.
func isBcryptHash(encoded string) bool {
	return strings.HasPrefix(encoded, "$2a$") ||
		strings.HasPrefix(encoded, "$2b$") ||
		strings.HasPrefix(encoded, "$2y$")
}

func needsRehash(encoded string) bool {
	if isBcryptHash(encoded) {
		return true
	}

	params, _, _, err := parseArgonHash(encoded)
	return err != nil || params != currentArgon
}

// GenerateNumericCode returns a uniformly random decimal code of the given
// length, leading zeros included.
func GenerateNumericCode(length int) (string, error) {
	if length <= 0 {
		length = 6
	}

	var b strings.Builder
	b.Grow(length)

	ten := big.NewInt(10)
	for range length {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("generate code digit: %w", err)
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	return b.String(), nil
}

// HashToken is the at-rest form of one-time secrets such as reset tokens.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func CompareTokenHash(token, hash string) bool {
	return ConstantTimeEqual(HashToken(token), hash)
}

func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
