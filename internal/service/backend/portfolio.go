package backend

import (
	"context"
	"net/http"

	"LeoneAI/internal/domain/models"
	pkghttp "LeoneAI/pkg/http"
)

// Portfolio fetches the full snapshot.
func (s *Service) Portfolio(ctx context.Context) (*models.PortfolioSnapshot, error) {
	var out models.PortfolioSnapshot
	if err := s.get(ctx, "/portfolio", nil, &out); err != nil {
		return nil, err
	}
	if err := out.Check(); err != nil {
		return nil, pkghttp.ServerError(http.StatusBadGateway, err.Error())
	}
	return &out, nil
}

// Holdings fetches positions only.
func (s *Service) Holdings(ctx context.Context) ([]*models.Holding, error) {
	var out []*models.Holding
	if err := s.get(ctx, "/portfolio/holdings", nil, &out); err != nil {
		return nil, err
	}
	return compact(out), nil
}

// Stats fetches the dashboard summary numbers.
func (s *Service) Stats(ctx context.Context) (*models.PortfolioStats, error) {
	var out models.PortfolioStats
	if err := s.get(ctx, "/portfolio/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Trade validates and submits an order.
func (s *Service) Trade(ctx context.Context, req models.TradeRequest) (*models.TradeResult, error) {
	if err := s.validate(ctx, &req); err != nil {
		return nil, err
	}
	var out models.TradeResult
	if err := s.send(ctx, pkghttp.MethodPost, "/portfolio/trade", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Deposit validates and submits a deposit in Leones.
func (s *Service) Deposit(ctx context.Context, req models.DepositRequest) (*models.Transaction, error) {
	if err := s.validate(ctx, &req); err != nil {
		return nil, err
	}
	var out models.Transaction
	if err := s.send(ctx, pkghttp.MethodPost, "/portfolio/deposit", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Withdraw validates and submits a withdrawal in Leones.
func (s *Service) Withdraw(ctx context.Context, req models.WithdrawRequest) (*models.Transaction, error) {
	if err := s.validate(ctx, &req); err != nil {
		return nil, err
	}
	var out models.Transaction
	if err := s.send(ctx, pkghttp.MethodPost, "/portfolio/withdraw", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
