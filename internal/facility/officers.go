package facility

import (
	"context"
	"fmt"
	"net/http"

	"facility/internal/transport"
	"facility/internal/wire"
)

// OfficersService manages officer accounts.
type OfficersService struct {
	t *transport.Client
}

func (s *OfficersService) List(ctx context.Context) ([]User, error) {
	out, err := send[[]User](ctx, s.t, transport.Request{Op: "officers.list", Method: http.MethodGet, Path: "/officers/"})
	if err != nil {
		return nil, fmt.Errorf("facility.Officers.List: %w", err)
	}
	return out, nil
}

func (s *OfficersService) Get(ctx context.Context, id string) (*User, error) {
	out, err := send[User](ctx, s.t, transport.Request{Op: "officers.get", Method: http.MethodGet, Path: "/officers" + pathID(id)})
	if err != nil {
		return nil, fmt.Errorf("facility.Officers.Get: %w", err)
	}
	return &out, nil
}

func (s *OfficersService) Create(ctx context.Context, req RegisterRequest) (*User, error) {
	body, err := wire.JSON(req)
	if err != nil {
		return nil, fmt.Errorf("facility.Officers.Create: %w", err)
	}
	out, err := send[User](ctx, s.t, transport.Request{Op: "officers.create", Method: http.MethodPost, Path: "/officers/", Payload: body})
	if err != nil {
		return nil, fmt.Errorf("facility.Officers.Create: %w", err)
	}
	return &out, nil
}

// Update replaces the non-nil fields of an officer.
func (s *OfficersService) Update(ctx context.Context, id string, req OfficerUpdate) (*User, error) {
	body, err := wire.JSON(req)
	if err != nil {
		return nil, fmt.Errorf("facility.Officers.Update: %w", err)
	}
	out, err := send[User](ctx, s.t, transport.Request{Op: "officers.update", Method: http.MethodPut, Path: "/officers" + pathID(id), Payload: body})
	if err != nil {
		return nil, fmt.Errorf("facility.Officers.Update: %w", err)
	}
	return &out, nil
}

func (s *OfficersService) Delete(ctx context.Context, id string) error {
	if _, err := s.t.Do(ctx, transport.Request{Op: "officers.delete", Method: http.MethodDelete, Path: "/officers" + pathID(id)}); err != nil {
		return fmt.Errorf("facility.Officers.Delete: %w", err)
	}
	return nil
}

// Count returns the number of registered officers.
func (s *OfficersService) Count(ctx context.Context) (int, error) {
	n, err := send[int](ctx, s.t, transport.Request{Op: "officers.count", Method: http.MethodGet, Path: "/officers/count"})
	if err != nil {
		return 0, fmt.Errorf("facility.Officers.Count: %w", err)
	}
	return n, nil
}

// RecognitionsToday sums today's recognitions across all officers.
func (s *OfficersService) RecognitionsToday(ctx context.Context) (int, error) {
	n, err := send[int](ctx, s.t, transport.Request{Op: "officers.recognitions_today", Method: http.MethodGet, Path: "/officers/recognitions/today"})
	if err != nil {
		return 0, fmt.Errorf("facility.Officers.RecognitionsToday: %w", err)
	}
	return n, nil
}
