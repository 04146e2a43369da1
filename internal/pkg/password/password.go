package password

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// MaxLength is the number of bytes bcrypt actually consumes.
const MaxLength = 72

var (
	ErrEmptyPassword   = errors.New("password is empty")
	ErrPasswordTooLong = errors.New("password exceeds 72 bytes")
)

// Hasher hashes and verifies passwords. Digests are self-describing so that
// Verify keeps working after the configured cost changes.
type Hasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) bool
	VerifyDummy(plain string)
}

type BcryptHasher struct {
	cost int

	dummyOnce   sync.Once
	dummyDigest []byte
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Cost() int {
	return h.cost
}

func (h *BcryptHasher) Hash(plain string) (string, error) {
	if plain == "" {
		return "", ErrEmptyPassword
	}
	if len(plain) > MaxLength {
		return "", ErrPasswordTooLong
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password failed: %w", err)
	}
	return string(digest), nil
}

// Verify never fails loudly: an unknown scheme or a corrupt digest is a mismatch.
func (h *BcryptHasher) Verify(plain, digest string) bool {
	switch Scheme(digest) {
	case "2a", "2b", "2y":
		return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
	default:
		return false
	}
}

// VerifyDummy spends the same work as a real comparison and discards the result.
// Login calls it when the email is unknown.
func (h *BcryptHasher) VerifyDummy(plain string) {
	h.dummyOnce.Do(func() {
		digest, err := bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), h.cost)
		if err == nil {
			h.dummyDigest = digest
		}
	})
	if h.dummyDigest == nil {
		return
	}
	_ = bcrypt.CompareHashAndPassword(h.dummyDigest, []byte(plain))
}

// Scheme extracts the identifier between the first two '$' of a modular-crypt digest.
func Scheme(digest string) string {
	if !strings.HasPrefix(digest, "$") {
		return ""
	}
	rest := digest[1:]
	end := strings.IndexByte(rest, '$')
	if end <= 0 {
		return ""
	}
	return rest[:end]
}
