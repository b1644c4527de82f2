package service

import (
	"context"
	"errors"
	"testing"

	"inventory-mobile/client/internal/platform/rbac"
	sessiondomain "inventory-mobile/client/internal/session/domain"
	userdomain "inventory-mobile/client/internal/user/domain"
)

type mockUsers struct {
	calls   int
	deleted []int64
}

func (m *mockUsers) ListUsers(ctx context.Context) ([]userdomain.User, error) {
	m.calls++
	return []userdomain.User{{ID: 1}}, nil
}

func (m *mockUsers) CreateUser(ctx context.Context, in userdomain.Input) (*userdomain.User, error) {
	m.calls++
	return &userdomain.User{ID: 3, Username: in.Username}, nil
}

func (m *mockUsers) UpdateUser(ctx context.Context, id int64, in userdomain.Input) (*userdomain.User, error) {
	m.calls++
	return &userdomain.User{ID: id}, nil
}

func (m *mockUsers) DeleteUser(ctx context.Context, id int64) error {
	m.calls++
	m.deleted = append(m.deleted, id)
	return nil
}

type fixedSession struct{ s sessiondomain.Session }

func (f fixedSession) Snapshot() sessiondomain.Session { return f.s }

func as(role userdomain.Role) fixedSession {
	return fixedSession{sessiondomain.Session{AccessToken: "tok", User: &userdomain.User{ID: 1, Username: "me", Role: role}}}
}

func TestAdminService_MasterAllowed(t *testing.T) {
	users := &mockUsers{}
	svc := NewAdminService(users, as(userdomain.RoleMaster))
	ctx := context.Background()

	if _, err := svc.ListUsers(ctx); err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if _, err := svc.CreateUser(ctx, userdomain.Input{Username: "new"}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := svc.UpdateUser(ctx, 2, userdomain.Input{}); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if err := svc.DeleteUser(ctx, 2); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if users.calls != 4 {
		t.Errorf("backend calls = %d, want 4", users.calls)
	}
}

func TestAdminService_EmployeeDenied(t *testing.T) {
	users := &mockUsers{}
	svc := NewAdminService(users, as(userdomain.RoleEmployee))
	ctx := context.Background()

	if _, err := svc.ListUsers(ctx); !errors.Is(err, rbac.ErrMasterRequired) {
		t.Errorf("ListUsers err = %v, want ErrMasterRequired", err)
	}
	if err := svc.DeleteUser(ctx, 2); !errors.Is(err, rbac.ErrMasterRequired) {
		t.Errorf("DeleteUser err = %v, want ErrMasterRequired", err)
	}
	if users.calls != 0 {
		t.Errorf("backend calls = %d, want 0", users.calls)
	}
}

func TestAdminService_SignedOut(t *testing.T) {
	svc := NewAdminService(&mockUsers{}, fixedSession{})
	if _, err := svc.ListUsers(context.Background()); !errors.Is(err, rbac.ErrNotAuthenticated) {
		t.Errorf("err = %v, want ErrNotAuthenticated", err)
	}
}

func TestAdminService_CannotDeleteSelf(t *testing.T) {
	users := &mockUsers{}
	svc := NewAdminService(users, as(userdomain.RoleMaster))
	if err := svc.DeleteUser(context.Background(), 1); !errors.Is(err, ErrDeleteSelf) {
		t.Errorf("err = %v, want ErrDeleteSelf", err)
	}
	if len(users.deleted) != 0 {
		t.Errorf("deleted = %v, want none", users.deleted)
	}
}
