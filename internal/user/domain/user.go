package domain

import (
	"errors"
	"strings"
	"time"
)

// User is the authenticated account as the client sees it.
type User struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	Name      string     `json:"name"`
	Email     string     `json:"email,omitempty"`
	Role      Role       `json:"role"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

type Role string

const (
	RoleMaster   Role = "MASTER"
	RoleEmployee Role = "EMPLOYEE"
)

// Privileged reports whether the role has unrestricted visibility (audit records, user administration).
func (r Role) Privileged() bool {
	return r == RoleMaster
}

// RoleFromMaster maps the token's is_master flag to a Role.
func RoleFromMaster(isMaster bool) Role {
	if isMaster {
		return RoleMaster
	}
	return RoleEmployee
}

// Input is the payload for creating or updating a user. Password is only sent when non-empty.
type Input struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
	IsMaster bool   `json:"is_master"`
}

// Validate returns an error describing the first validation failure. requirePassword is true on create.
func (in *Input) Validate(requirePassword bool) error {
	in.Username = strings.TrimSpace(in.Username)
	in.Name = strings.TrimSpace(in.Name)
	if in.Username == "" {
		return errors.New("username is required")
	}
	if in.Name == "" {
		return errors.New("name is required")
	}
	if requirePassword && in.Password == "" {
		return errors.New("password is required")
	}
	return nil
}
