package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"inventory-mobile/client/internal/api"
	"inventory-mobile/client/internal/logging"
	"inventory-mobile/client/internal/security"
	sessiondomain "inventory-mobile/client/internal/session/domain"
	"inventory-mobile/client/internal/telemetry"
	userdomain "inventory-mobile/client/internal/user/domain"
)

// Sentinel errors for the auth service.
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrNoRefreshToken     = errors.New("no refresh token")
	ErrRefreshRejected    = errors.New("refresh token rejected")
	ErrSessionEnded       = errors.New("session ended before refresh completed")
	ErrDeleteSelf         = errors.New("cannot delete the signed-in account")
)

// Backend is the part of the REST client the auth flows use.
type Backend interface {
	Login(ctx context.Context, username, password string) (*api.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (access, refresh string, err error)
	NotifyLogout(ctx context.Context, accessToken, refreshToken string) error
}

// SessionState is the part of session.State the auth flows drive.
type SessionState interface {
	Snapshot() sessiondomain.Session
	SetLoading()
	SetError(err error)
	LoginSucceeded(ctx context.Context, access, refresh string, user *userdomain.User)
	RefreshSucceeded(ctx context.Context, access, refresh string) bool
}

// AuthService implements login, token refresh and backend logout notification.
type AuthService struct {
	backend Backend
	session SessionState
	events  telemetry.EventEmitter
	logger  *zap.Logger
}

// NewAuthService returns an AuthService. session may be nil until SetSession is called;
// the composition root needs the service before the state exists to wire the logout notifier.
func NewAuthService(backend Backend, session SessionState, events telemetry.EventEmitter, logger *zap.Logger) *AuthService {
	return &AuthService{backend: backend, session: session, events: events, logger: logging.OrNop(logger)}
}

// SetSession sets the state Login and Refresh drive. Call before any flow runs.
func (s *AuthService) SetSession(session SessionState) {
	s.session = session
}

// Login authenticates and installs the session. The user comes from the access token's claims,
// overridden by whatever the backend returns alongside the tokens.
func (s *AuthService) Login(ctx context.Context, username, password string) (*userdomain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		s.session.SetError(ErrInvalidCredentials)
		return nil, ErrInvalidCredentials
	}
	s.session.SetLoading()

	res, err := s.backend.Login(ctx, username, password)
	if err != nil {
		err = loginError(err)
		s.loginFailed(ctx, err)
		return nil, err
	}
	claims, err := security.Decode(res.AccessToken)
	if err != nil {
		err = fmt.Errorf("login: %w", err)
		s.loginFailed(ctx, err)
		return nil, err
	}
	user := mergeUser(claims.User(), res.User)
	s.session.LoginSucceeded(ctx, res.AccessToken, res.RefreshToken, user)
	return user, nil
}

func (s *AuthService) loginFailed(ctx context.Context, err error) {
	s.session.SetError(err)
	s.logger.Info("auth: login failed", zap.Error(err))
	telemetry.EmitAsync(s.events, ctx, &telemetry.Event{Type: telemetry.EventLoginFailed, Reason: err.Error()})
}

func loginError(err error) error {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusBadRequest) {
		return fmt.Errorf("%w: %s", ErrInvalidCredentials, apiErr.Message)
	}
	return fmt.Errorf("login: %w", err)
}

// mergeUser overlays the non-empty fields of fromBackend on fromClaims.
func mergeUser(fromClaims, fromBackend *userdomain.User) *userdomain.User {
	if fromBackend == nil {
		return fromClaims
	}
	u := *fromClaims
	if fromBackend.ID != 0 {
		u.ID = fromBackend.ID
	}
	if fromBackend.Username != "" {
		u.Username = fromBackend.Username
	}
	if fromBackend.Name != "" {
		u.Name = fromBackend.Name
	}
	if fromBackend.Email != "" {
		u.Email = fromBackend.Email
	}
	if fromBackend.Role != "" {
		u.Role = fromBackend.Role
	}
	if fromBackend.CreatedAt != nil {
		u.CreatedAt = fromBackend.CreatedAt
	}
	return &u
}

// Refresh renews the access token with the stored refresh token and applies the result.
// Without a refresh token it fails with ErrNoRefreshToken and makes no request.
func (s *AuthService) Refresh(ctx context.Context) error {
	refresh := s.session.Snapshot().RefreshToken
	if refresh == "" {
		return ErrNoRefreshToken
	}
	access, rotated, err := s.backend.Refresh(ctx, refresh)
	if err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
			return fmt.Errorf("%w: %s", ErrRefreshRejected, apiErr.Message)
		}
		return fmt.Errorf("refresh: %w", err)
	}
	if access == "" {
		return fmt.Errorf("%w: no access token in response", ErrRefreshRejected)
	}
	if _, err := security.Decode(access); err != nil {
		return fmt.Errorf("%w: %v", ErrRefreshRejected, err)
	}
	if !s.session.RefreshSucceeded(ctx, access, rotated) {
		return ErrSessionEnded
	}
	return nil
}

// NotifyLogout tells the backend the refresh token is no longer in use. The request is
// authorized with the ended session's access token, never the current one.
func (s *AuthService) NotifyLogout(ctx context.Context, accessToken, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.backend.NotifyLogout(ctx, accessToken, refreshToken); err != nil {
		return fmt.Errorf("notify logout: %w", err)
	}
	return nil
}
