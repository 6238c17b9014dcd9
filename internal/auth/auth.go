// Package auth hashes passwords and checks login credentials.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/VanDeGall/EduTestor/internal/storage"
	"github.com/VanDeGall/EduTestor/internal/types"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials covers both an unknown email and a wrong
// password, so callers cannot tell which accounts exist.
var ErrInvalidCredentials = errors.New("incorrect email or password")

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// ErrPasswordTooLong is returned by Hash for passwords over
// MaxPasswordBytes bytes.
var ErrPasswordTooLong = fmt.Errorf("password must be at most %d bytes", MaxPasswordBytes)

// Hasher wraps bcrypt with a configurable cost.
type Hasher struct {
	cost int
	// dummy is compared against when the email is unknown, so both
	// failure paths cost one bcrypt comparison.
	dummy []byte
}

// NewHasher returns a Hasher; cost 0 selects bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("edutestor-dummy-password"), cost)
	if err != nil {
		// only an out-of-range cost fails; fall back so Hash reports it
		dummy, _ = bcrypt.GenerateFromPassword([]byte("edutestor-dummy-password"), bcrypt.DefaultCost)
	}
	return &Hasher{cost: cost, dummy: dummy}
}

// Hash returns a salted bcrypt hash of password.
func (h *Hasher) Hash(password string) (string, error) {
	if len(password) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrPasswordTooLong
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether password matches hash in constant time.
func (h *Hasher) Verify(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Authenticate looks up email and verifies password. Any mismatch
// returns ErrInvalidCredentials; only store failures surface otherwise.
func (h *Hasher) Authenticate(ctx context.Context, users storage.UserStore, email, password string) (types.User, error) {
	user, err := users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(password))
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, fmt.Errorf("authenticate: %w", err)
	}

	if !h.Verify(user.PasswordHash, password) {
		return types.User{}, ErrInvalidCredentials
	}

	return user, nil
}
