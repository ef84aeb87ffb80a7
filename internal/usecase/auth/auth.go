// Package auth checks explicit login submissions against the configured
// credential table.
package auth

import (
	"crypto/subtle"
	"fmt"

	"github.com/lotusmind/yogachat/internal/domain"
)

// Service validates username/secret pairs. A failed login changes nothing:
// no state, no quota effect.
type Service struct {
	users map[string]string
}

// New creates an auth service from a username -> secret table.
func New(users map[string]string) *Service {
	return &Service{users: users}
}

// Login returns the authenticated identity for valid credentials and
// domain.ErrInvalidCredentials otherwise. Comparison is constant-time.
func (s *Service) Login(username, secret string) (domain.Identity, error) {
	want, ok := s.users[username]
	// Compare even for unknown users to keep timing uniform.
	if !ok {
		want = ""
	}
	match := subtle.ConstantTimeCompare([]byte(want), []byte(secret)) == 1
	if !ok || !match || secret == "" {
		return domain.Identity{}, fmt.Errorf("login %q: %w", username, domain.ErrInvalidCredentials)
	}
	return domain.AuthenticatedIdentity(username), nil
}
