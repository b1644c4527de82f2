package service

import (
	"context"

	"inventory-mobile/client/internal/platform/rbac"
	userdomain "inventory-mobile/client/internal/user/domain"
)

// UserBackend is the user-administration part of the REST client.
type UserBackend interface {
	ListUsers(ctx context.Context) ([]userdomain.User, error)
	CreateUser(ctx context.Context, in userdomain.Input) (*userdomain.User, error)
	UpdateUser(ctx context.Context, id int64, in userdomain.Input) (*userdomain.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

// AdminService runs user administration for master users only.
type AdminService struct {
	backend UserBackend
	session rbac.SessionReader
}

func NewAdminService(backend UserBackend, session rbac.SessionReader) *AdminService {
	return &AdminService{backend: backend, session: session}
}

func (s *AdminService) ListUsers(ctx context.Context) ([]userdomain.User, error) {
	if _, err := rbac.RequireMaster(s.session); err != nil {
		return nil, err
	}
	return s.backend.ListUsers(ctx)
}

func (s *AdminService) CreateUser(ctx context.Context, in userdomain.Input) (*userdomain.User, error) {
	if _, err := rbac.RequireMaster(s.session); err != nil {
		return nil, err
	}
	return s.backend.CreateUser(ctx, in)
}

func (s *AdminService) UpdateUser(ctx context.Context, id int64, in userdomain.Input) (*userdomain.User, error) {
	if _, err := rbac.RequireMaster(s.session); err != nil {
		return nil, err
	}
	return s.backend.UpdateUser(ctx, id, in)
}

// DeleteUser removes a user. A master cannot delete their own account from the client.
func (s *AdminService) DeleteUser(ctx context.Context, id int64) error {
	me, err := rbac.RequireMaster(s.session)
	if err != nil {
		return err
	}
	if me.ID == id {
		return ErrDeleteSelf
	}
	return s.backend.DeleteUser(ctx, id)
}
