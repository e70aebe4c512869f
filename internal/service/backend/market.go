package backend

import (
	"context"
	"net/url"

	"LeoneAI/internal/domain/models"
	pkghttp "LeoneAI/pkg/http"
	"LeoneAI/pkg/util"
)

// Price fetches the latest quote. Lookup failures reported in the body are
// mapped to ValidationError even though the status is 200.
func (s *Service) Price(ctx context.Context, symbol string) (*models.PriceQuote, error) {
	symbol = util.NormalizeSymbol(symbol)
	var out models.PriceQuote
	if err := s.get(ctx, "/market/prices/"+url.PathEscape(symbol), nil, &out); err != nil {
		return nil, err
	}
	if out.Error != "" {
		return nil, pkghttp.ValidationFailedError("symbol", out.Error, 404)
	}
	if out.Symbol == "" {
		out.Symbol = symbol
	}
	return &out, nil
}

// History fetches OHLCV bars.
func (s *Service) History(ctx context.Context, req models.HistoryRequest) (*models.PriceHistory, error) {
	req.Symbol = util.NormalizeSymbol(req.Symbol)
	if err := s.validate(ctx, &req); err != nil {
		return nil, err
	}
	var out models.PriceHistory
	q := map[string][]string{"interval": {req.Interval}, "period": {req.Period}}
	if err := s.get(ctx, "/market/history/"+url.PathEscape(req.Symbol), q, &out); err != nil {
		return nil, err
	}
	if out.Error != "" {
		return nil, pkghttp.ValidationFailedError("symbol", out.Error, 404)
	}
	return &out, nil
}
