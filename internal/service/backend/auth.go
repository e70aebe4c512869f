package backend

import (
	"context"
	"net/http"

	"LeoneAI/internal/domain/models"
	pkghttp "LeoneAI/pkg/http"
)

// Login posts form-encoded credentials. The call is unauthenticated so a 401
// surfaces as InvalidCredentials and never triggers a token refresh.
func (s *Service) Login(ctx context.Context, creds models.Credentials) (*models.LoginResponse, error) {
	if err := s.validate(ctx, &creds); err != nil {
		return nil, err
	}
	var out models.LoginResponse
	err := s.http.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method:   pkghttp.MethodPost,
		URL:      "/auth/login",
		Headers:  map[string]string{"Content-Type": pkghttp.ContentTypeForm},
		Body:     map[string]string{"username": creds.Username, "password": creds.Password},
		SkipAuth: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, pkghttp.ServerError(http.StatusBadGateway, "login response carries no access token")
	}
	return &out, nil
}

// Register creates an account. It never logs in.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	if err := s.validate(ctx, &req); err != nil {
		return nil, err
	}
	var out models.User
	err := s.http.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method:   pkghttp.MethodPost,
		URL:      "/auth/register",
		Body:     req,
		SkipAuth: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Me fetches the current user record.
func (s *Service) Me(ctx context.Context) (*models.User, error) {
	var out models.User
	if err := s.get(ctx, "/users/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MeWithToken fetches the current user with an explicit bearer, used right
// after login before the token has been committed to the session.
func (s *Service) MeWithToken(ctx context.Context, token string) (*models.User, error) {
	resp, err := s.http.SendRequest(ctx, &pkghttp.RequestOptions{
		Method: pkghttp.MethodGet,
		URL:    "/users/me",
	}, nil, token)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, pkghttp.ClassifyResponse(resp, true)
	}
	var out models.User
	if err := decodeBody(resp.Body, &out); err != nil {
		return nil, err
	}
	if out.ID == 0 && out.Username == "" {
		return nil, pkghttp.ServerError(http.StatusBadGateway, "empty user record")
	}
	return &out, nil
}

// UpdatePreferences pushes notification and language preferences as query parameters.
func (s *Service) UpdatePreferences(ctx context.Context, settings models.Settings) error {
	return s.http.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method:      pkghttp.MethodPut,
		URL:         "/users/preferences",
		QueryParams: settings.PreferenceQuery(),
	}, nil)
}
