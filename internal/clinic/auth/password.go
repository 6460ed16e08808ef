// Package auth holds credential hashing and the Actor, the explicit
// logged-in-user object handed to every operation that needs to know who is
// acting.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// Hasher creates and verifies password hashes.
//
// New hashes are bcrypt. Hashes written by the legacy application are
// unsalted SHA-256 hex digests; they still verify, and Verify reports that
// they should be upgraded. With Legacy set, Hash keeps producing SHA-256 so
// the file stays readable by the old application.
type Hasher struct {
	Cost   int
	Legacy bool

	dummyOnce sync.Once
	dummy     []byte
}

// NewHasher returns a Hasher using bcrypt.DefaultCost.
func NewHasher(legacy bool) *Hasher {
	return &Hasher{Cost: bcrypt.DefaultCost, Legacy: legacy}
}

// Hash returns the stored form of password.
func (h *Hasher) Hash(password string) (string, error) {
	if h.Legacy {
		return LegacyHash(password), nil
	}
	out, err := bcrypt.GenerateFromPassword([]byte(password), h.cost())
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(out), nil
}

// Verify reports whether password matches stored, and whether stored uses
// an outdated scheme and should be rewritten with Hash.
func (h *Hasher) Verify(stored, password string) (ok bool, upgrade bool) {
	if IsLegacyHash(stored) {
		want := LegacyHash(password)
		ok = subtle.ConstantTimeCompare([]byte(stored), []byte(want)) == 1
		return ok, ok && !h.Legacy
	}
	err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(password))
	return err == nil, false
}

// legacyDummy is compared against when the username is unknown in legacy mode.
var legacyDummy = LegacyHash("clinic-dummy-password")

// VerifyNothing burns the same time as a comparison against a stored hash of
// the configured scheme. It is used when the username is unknown so that a
// failed lookup costs as much as a wrong password.
func (h *Hasher) VerifyNothing(password string) {
	if h.Legacy {
		_ = subtle.ConstantTimeCompare([]byte(legacyDummy), []byte(LegacyHash(password)))
		return
	}
	h.dummyOnce.Do(func() {
		h.dummy, _ = bcrypt.GenerateFromPassword([]byte("clinic-dummy-password"), h.cost())
	})
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(password))
}

func (h *Hasher) cost() int {
	if h.Cost == 0 {
		return bcrypt.DefaultCost
	}
	return h.Cost
}

// LegacyHash is the unsalted SHA-256 hex digest used by the legacy
// application. It is kept only for compatibility.
func LegacyHash(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// IsLegacyHash reports whether stored looks like a LegacyHash digest.
func IsLegacyHash(stored string) bool {
	if len(stored) != sha256.Size*2 {
		return false
	}
	return strings.Trim(stored, "0123456789abcdef") == ""
}
