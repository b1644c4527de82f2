package domain

import (
	userdomain "inventory-mobile/client/internal/user/domain"
)

// Session is the client's view of the signed-in user. User is non-nil exactly when AccessToken is set.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         *userdomain.User
	Loading      bool
	Error        string // last operation error; empty when none
}

// Authenticated reports whether the session carries an access token and a user.
func (s Session) Authenticated() bool {
	return s.AccessToken != "" && s.User != nil
}

// Clone returns a copy that shares no pointers with s.
func (s Session) Clone() Session {
	if s.User != nil {
		u := *s.User
		if u.CreatedAt != nil {
			t := *u.CreatedAt
			u.CreatedAt = &t
		}
		s.User = &u
	}
	return s
}
