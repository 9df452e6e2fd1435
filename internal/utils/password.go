package utils

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/scrypt"
)

// scrypt 参数, 与旧版服务写入的哈希保持兼容
const (
	scryptN      = 16384
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 64
	saltLen      = 16
)

// ErrEmptyPassword is returned when hashing an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")

// PasswordHasher hashes passwords as hex(key) + "." + hex(salt).
// The hex salt string itself is the KDF salt.
type PasswordHasher struct {
	n int
}

// NewPasswordHasher returns a hasher with production cost.
func NewPasswordHasher() *PasswordHasher {
	return &PasswordHasher{n: scryptN}
}

// NewPasswordHasherForTest returns a hasher with a tiny work factor.
// Hashes it produces do not verify under the production hasher.
func NewPasswordHasherForTest() *PasswordHasher {
	return &PasswordHasher{n: 16}
}

func (h *PasswordHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}
	saltHex := hex.EncodeToString(salt)

	key, err := h.derive(password, saltHex)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(key) + "." + saltHex, nil
}

// Verify reports whether password matches encoded. Malformed encodings
// never match.
func (h *PasswordHasher) Verify(password, encoded string) bool {
	keyHex, saltHex, ok := strings.Cut(encoded, ".")
	if !ok || saltHex == "" || strings.Contains(saltHex, ".") {
		return false
	}
	if _, err := hex.DecodeString(saltHex); err != nil {
		return false
	}
	stored, err := hex.DecodeString(keyHex)
	if err != nil || len(stored) != scryptKeyLen {
		return false
	}

	supplied, err := h.derive(password, saltHex)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(stored, supplied) == 1
}

func (h *PasswordHasher) derive(password, saltHex string) ([]byte, error) {
	key, err := scrypt.Key([]byte(password), []byte(saltHex), h.n, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, oops.Code("AUTH_KDF_FAILED").Wrap(err)
	}
	return key, nil
}

var defaultHasher = NewPasswordHasher()

func HashPassword(password string) (string, error) {
	return defaultHasher.Hash(password)
}

func CheckPasswordHash(password, hash string) bool {
	return defaultHasher.Verify(password, hash)
}
