package rbac

import (
	"errors"

	sessiondomain "inventory-mobile/client/internal/session/domain"
	userdomain "inventory-mobile/client/internal/user/domain"
)

var (
	ErrNotAuthenticated = errors.New("sign in required")
	ErrMasterRequired   = errors.New("master role required")
)

// SessionReader returns the current session. session.State satisfies it.
type SessionReader interface {
	Snapshot() sessiondomain.Session
}

// RequireMaster ensures the current session is signed in with the privileged role.
// Returns the user on success. The backend remains the authority; this only keeps the client
// from offering calls it knows will be refused.
func RequireMaster(s SessionReader) (*userdomain.User, error) {
	snap := s.Snapshot()
	if !snap.Authenticated() {
		return nil, ErrNotAuthenticated
	}
	if !snap.User.Role.Privileged() {
		return nil, ErrMasterRequired
	}
	return snap.User, nil
}

// RequireUser ensures a signed-in session and returns its user.
func RequireUser(s SessionReader) (*userdomain.User, error) {
	snap := s.Snapshot()
	if !snap.Authenticated() {
		return nil, ErrNotAuthenticated
	}
	return snap.User, nil
}
