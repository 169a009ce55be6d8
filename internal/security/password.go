package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

var ErrMalformedHash = errors.New("malformed password hash")

type Argon2Params struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	KeyLen  uint32
	SaltLen uint32
}

var DefaultParams = Argon2Params{
	Time:    3,
	Memory:  64 * 1024,
	Threads: 2,
	KeyLen:  32,
	SaltLen: 16,
}

// FastParams keep seeding and tests quick. Not for production.
var FastParams = Argon2Params{
	Time:    1,
	Memory:  8 * 1024,
	Threads: 1,
	KeyLen:  32,
	SaltLen: 16,
}

// PasswordHasher produces and checks argon2id hashes in the PHC string
// format. The parameters are stored in the hash, so hashes made with
// different params verify alike.
type PasswordHasher struct {
	params Argon2Params
}

func NewPasswordHasher(params Argon2Params) *PasswordHasher {
	return &PasswordHasher{params: params}
}

func (h *PasswordHasher) Hash(password string) ([]byte, error) {
	p := h.params
	salt := make([]byte, p.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, p.KeyLen)
	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Time, p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key))
	return []byte(encoded), nil
}

func (h *PasswordHasher) Verify(password string, encoded []byte) (bool, error) {
	var (
		version int
		memory  uint32
		time    uint32
		threads uint8
		salt64  string
		key64   string
	)

	parts := splitPHC(string(encoded))
	if len(parts) != 5 || parts[0] != "argon2id" {
		return false, ErrMalformedHash
	}
	if _, err := fmt.Sscanf(parts[1], "v=%d", &version); err != nil || version != argon2.Version {
		return false, ErrMalformedHash
	}
	if _, err := fmt.Sscanf(parts[2], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false, ErrMalformedHash
	}
	salt64, key64 = parts[3], parts[4]

	salt, err := base64.RawStdEncoding.DecodeString(salt64)
	if err != nil {
		return false, fmt.Errorf("%w: salt: %v", ErrMalformedHash, err)
	}
	key, err := base64.RawStdEncoding.DecodeString(key64)
	if err != nil {
		return false, fmt.Errorf("%w: key: %v", ErrMalformedHash, err)
	}

	computed := argon2.IDKey([]byte(password), salt, time, memory, threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(key, computed) == 1, nil
}

// splitPHC splits "$a$b$c" into [a b c].
func splitPHC(s string) []string {
	if len(s) == 0 || s[0] != '$' {
		return nil
	}
	var parts []string
	start := 1
	for i := 1; i <= len(s); i++ {
		if i == len(s) || s[i] == '$' {
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return parts
}
