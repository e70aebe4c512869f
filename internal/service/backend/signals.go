package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"LeoneAI/internal/domain/models"
	pkghttp "LeoneAI/pkg/http"
)

// Signals lists signals filtered by symbol and limit.
func (s *Service) Signals(ctx context.Context, f models.SignalFilter) (*models.SignalList, error) {
	if err := s.validate(ctx, &f); err != nil {
		return nil, err
	}
	q := map[string][]string{"limit": intQuery(f.Limit)}
	if f.Symbol != "" {
		q["symbol"] = []string{f.Symbol}
	}
	var raw json.RawMessage
	if err := s.get(ctx, "/signals", q, &raw); err != nil {
		return nil, err
	}
	var list []*models.Signal
	if err := decodeList(raw, "signals", &list); err != nil {
		return nil, pkghttp.ServerError(http.StatusBadGateway, "malformed signal list").WithError(err)
	}
	list = compact(list)
	return &models.SignalList{Count: len(list), Signals: list}, nil
}

// RecentSignals lists the newest signals.
func (s *Service) RecentSignals(ctx context.Context, limit int) ([]*models.Signal, error) {
	if limit <= 0 {
		limit = 20
	}
	var raw json.RawMessage
	if err := s.get(ctx, "/signals/recent", map[string][]string{"limit": intQuery(limit)}, &raw); err != nil {
		return nil, err
	}
	var list []*models.Signal
	if err := decodeList(raw, "signals", &list); err != nil {
		return nil, pkghttp.ServerError(http.StatusBadGateway, "malformed signal list").WithError(err)
	}
	return compact(list), nil
}

// Signal fetches a single signal.
func (s *Service) Signal(ctx context.Context, id int64) (*models.Signal, error) {
	var out models.Signal
	if err := s.get(ctx, "/signals/"+strconv.FormatInt(id, 10), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FollowSignal asks the backend to copy a signal.
func (s *Service) FollowSignal(ctx context.Context, id int64) (*StatusMessage, error) {
	var out StatusMessage
	if err := s.send(ctx, pkghttp.MethodPost, "/signals/"+strconv.FormatInt(id, 10)+"/follow", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
