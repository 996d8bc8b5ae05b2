package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var ErrUnauthorized = errors.New("unauthorized")

// Authorizer validates bearer tokens for privileged endpoints.
type Authorizer interface {
	Authorize(token string) error
}

// BcryptAuthorizer keeps only a bcrypt digest of the configured admin token
// and compares presented tokens against it. An empty configuration disables
// admin access entirely.
type BcryptAuthorizer struct {
	hash []byte
}

// NewBcryptAuthorizer hashes the configured token once at construction.
func NewBcryptAuthorizer(token string) (*BcryptAuthorizer, error) {
	if token == "" {
		return &BcryptAuthorizer{}, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &BcryptAuthorizer{hash: hash}, nil
}

// Authorize checks the presented token against the configured digest.
func (a *BcryptAuthorizer) Authorize(token string) error {
	if len(a.hash) == 0 || token == "" {
		return ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(token)); err != nil {
		return ErrUnauthorized
	}
	return nil
}
