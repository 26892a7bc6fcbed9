// Package admin wraps the staff-only user management endpoints.
package admin

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jrsteele09/weeb-client/apimodel"
	"github.com/jrsteele09/weeb-client/client"
	"github.com/jrsteele09/weeb-client/content"
	"github.com/jrsteele09/weeb-client/internal/errors"
	"github.com/jrsteele09/weeb-client/users"
)

// Sender is the request pipeline the service calls through.
type Sender interface {
	Do(ctx context.Context, req *client.Request, out any) error
}

// Service lists and reads accounts. The API answers 403 unless the signed-in user is staff.
type Service struct {
	api Sender
}

func NewService(api Sender) *Service {
	return &Service{api: api}
}

// ListUsers returns every account. An empty list comes back from the API as 404 and is
// reported as no users.
func (s *Service) ListUsers(ctx context.Context) ([]users.Profile, error) {
	var env content.Envelope[[]users.Profile]
	err := s.api.Do(ctx, client.NewRequest(http.MethodGet, apimodel.RouteUsers, nil), &env)
	if errors.Is(err, errors.ErrNotFound) {
		return []users.Profile{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "list users")
	}
	return env.Results, nil
}

// GetUser returns the account with id. An unknown id is an error wrapping errors.ErrNotFound.
func (s *Service) GetUser(ctx context.Context, id int64) (*users.Profile, error) {
	var env content.Envelope[*users.Profile]
	path := fmt.Sprintf("%s%d/", apimodel.RouteUsers, id)
	if err := s.api.Do(ctx, client.NewRequest(http.MethodGet, path, nil), &env); err != nil {
		return nil, errors.Wrapf(err, "get user %d", id)
	}
	return env.Results, nil
}
