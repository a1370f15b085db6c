package security

import (
	"sync" // Lazy dummy hash

	"golang.org/x/crypto/bcrypt" // Password hashing
)

// Hasher hashes and verifies passwords with bcrypt. Salts are generated per hash.
type Hasher struct {
	Cost int // bcrypt cost factor

	dummyOnce sync.Once // Guards dummy
	dummy     []byte    // Hash compared against when the user does not exist
}

// NewHasher returns a Hasher with cost clamped to bcrypt's accepted range
func NewHasher(cost int) *Hasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{Cost: cost}
}

// Hash produces a salted bcrypt hash of password suitable for storage
func (h *Hasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare reports whether password matches the stored hash.
// bcrypt compares the derived keys in constant time.
func (h *Hasher) Compare(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// CompareDummy burns the same work as Compare for a user that does not exist,
// so signin latency does not reveal whether a username is registered.
func (h *Hasher) CompareDummy(password string) {
	h.dummyOnce.Do(func() {
		h.dummy, _ = bcrypt.GenerateFromPassword([]byte("paywallet-dummy-password"), h.Cost)
	})
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(password))
}
