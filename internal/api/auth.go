package api

import (
	"context"
	"net/http"
	"time"

	userdomain "inventory-mobile/client/internal/user/domain"
)

// wireUser is the backend's user shape; the role is carried as is_master.
type wireUser struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	Name      string     `json:"name"`
	Email     string     `json:"email,omitempty"`
	IsMaster  bool       `json:"is_master"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

func (w *wireUser) toDomain() *userdomain.User {
	return &userdomain.User{
		ID:        w.ID,
		Username:  w.Username,
		Name:      w.Name,
		Email:     w.Email,
		Role:      userdomain.RoleFromMaster(w.IsMaster),
		CreatedAt: w.CreatedAt,
	}
}

// LoginResult is the token pair issued on login. User is nil when the backend omits it.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	User         *userdomain.User
}

type tokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	User         *wireUser `json:"user,omitempty"`
}

// Login exchanges credentials for a token pair.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	var out tokenPair
	in := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, in, &out); err != nil {
		return nil, err
	}
	res := &LoginResult{AccessToken: out.AccessToken, RefreshToken: out.RefreshToken}
	if out.User != nil {
		res.User = out.User.toDomain()
	}
	return res, nil
}

// Refresh mints a new access token. The returned refresh token is empty when the backend does not rotate it.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (access, refresh string, err error) {
	var out tokenPair
	in := map[string]string{"refresh_token": refreshToken}
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", nil, in, &out); err != nil {
		return "", "", err
	}
	return out.AccessToken, out.RefreshToken, nil
}

// NotifyLogout tells the backend to revoke refreshToken. The request carries accessToken as its
// bearer so the transport does not attach whatever session is current when it goes out.
func (c *Client) NotifyLogout(ctx context.Context, accessToken, refreshToken string) error {
	var header http.Header
	if accessToken != "" {
		header = http.Header{"Authorization": {"Bearer " + accessToken}}
	}
	return c.send(ctx, http.MethodPost, "/auth/logout", nil, header, map[string]string{"refresh_token": refreshToken}, nil)
}
