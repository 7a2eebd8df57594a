package facility

import (
	"context"
	"fmt"
	"net/http"

	"facility/internal/transport"
	"facility/internal/wire"
)

// AuthService covers login, registration and the current-officer lookup.
type AuthService struct {
	t *transport.Client
}

// Login exchanges credentials for a bearer token and stores it in the
// transport's session, so later calls are authenticated. The form fields are
// sent in the order username, password.
func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResponse, error) {
	body := wire.Form([]wire.Field{
		{Name: "username", Value: username},
		{Name: "password", Value: password},
	})
	out, err := send[AuthResponse](ctx, s.t, transport.Request{
		Op:      "auth.login",
		Method:  http.MethodPost,
		Path:    "/auth/login",
		Payload: body,
	})
	if err != nil {
		return nil, fmt.Errorf("facility.Auth.Login: %w", err)
	}
	if sess := s.t.Session(); sess != nil && out.Token != "" {
		if err := sess.Save(ctx, out.Token); err != nil {
			return nil, fmt.Errorf("facility.Auth.Login: %w", err)
		}
	}
	return &out, nil
}

// Register creates an officer account.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	body, err := wire.JSON(req)
	if err != nil {
		return nil, fmt.Errorf("facility.Auth.Register: %w", err)
	}
	out, err := send[User](ctx, s.t, transport.Request{
		Op:      "auth.register",
		Method:  http.MethodPost,
		Path:    "/auth/register",
		Payload: body,
	})
	if err != nil {
		return nil, fmt.Errorf("facility.Auth.Register: %w", err)
	}
	return &out, nil
}

// Me returns the officer the current token belongs to.
func (s *AuthService) Me(ctx context.Context) (*User, error) {
	out, err := send[User](ctx, s.t, transport.Request{Op: "auth.me", Method: http.MethodGet, Path: "/auth/me"})
	if err != nil {
		return nil, fmt.Errorf("facility.Auth.Me: %w", err)
	}
	return &out, nil
}

// Logout forgets the stored token. The server keeps no session state, so
// nothing is sent.
func (s *AuthService) Logout(ctx context.Context) error {
	sess := s.t.Session()
	if sess == nil {
		return nil
	}
	if err := sess.Clear(ctx); err != nil {
		return fmt.Errorf("facility.Auth.Logout: %w", err)
	}
	return nil
}
