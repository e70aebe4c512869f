package backend

import (
	"context"
	"strconv"

	"LeoneAI/internal/domain/models"
	pkghttp "LeoneAI/pkg/http"
)

// Subscription fetches the user's plan.
func (s *Service) Subscription(ctx context.Context) (*models.Subscription, error) {
	var out models.Subscription
	if err := s.get(ctx, "/subscription/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Upgrade moves the user onto a paid plan.
func (s *Service) Upgrade(ctx context.Context, req models.UpgradeRequest) (*models.Subscription, error) {
	if err := s.validate(ctx, &req); err != nil {
		return nil, err
	}
	var out models.Subscription
	if err := s.send(ctx, pkghttp.MethodPost, "/subscription/upgrade", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CancelSubscription reverts the user to FREE.
func (s *Service) CancelSubscription(ctx context.Context) (*StatusMessage, error) {
	var out StatusMessage
	if err := s.send(ctx, pkghttp.MethodPost, "/subscription/cancel", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AdminDashboard fetches operator statistics.
func (s *Service) AdminDashboard(ctx context.Context) (*models.AdminDashboard, error) {
	var out models.AdminDashboard
	if err := s.get(ctx, "/admin/dashboard", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AdminUsers lists accounts.
func (s *Service) AdminUsers(ctx context.Context, page models.Page) ([]*models.User, error) {
	if err := s.validate(ctx, &page); err != nil {
		return nil, err
	}
	var out []*models.User
	if err := s.get(ctx, "/admin/users", pageQuery(page), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AdminCreateUser creates an account.
func (s *Service) AdminCreateUser(ctx context.Context, req models.AdminUserCreate) (*models.User, error) {
	if err := s.validate(ctx, &req); err != nil {
		return nil, err
	}
	var out models.User
	if err := s.send(ctx, pkghttp.MethodPost, "/admin/users", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AdminUpdateUser changes account flags.
func (s *Service) AdminUpdateUser(ctx context.Context, id int64, req models.AdminUserUpdate) (*models.User, error) {
	if err := s.validate(ctx, &req); err != nil {
		return nil, err
	}
	var out models.User
	if err := s.send(ctx, pkghttp.MethodPut, "/admin/users/"+strconv.FormatInt(id, 10), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AdminDeleteUser removes an account.
func (s *Service) AdminDeleteUser(ctx context.Context, id int64) error {
	return s.send(ctx, pkghttp.MethodDelete, "/admin/users/"+strconv.FormatInt(id, 10), nil, nil)
}

// AdminTrades lists recent trades across users.
func (s *Service) AdminTrades(ctx context.Context, page models.Page) ([]*models.AdminTrade, error) {
	if err := s.validate(ctx, &page); err != nil {
		return nil, err
	}
	var out []*models.AdminTrade
	if err := s.get(ctx, "/admin/trades", pageQuery(page), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func pageQuery(p models.Page) map[string][]string {
	return map[string][]string{"skip": intQuery(p.Skip), "limit": intQuery(p.Limit)}
}
