package feed

import (
	"context"
	"encoding/json"

	"LeoneAI/internal/domain/models"
)

// Subscription is a live tick stream for one symbol or a multiplexed set.
type Subscription struct {
	*stream[*models.MarketTick]
}

// Ticks delivers parsed ticks. The channel is closed by Close.
func (s *Subscription) Ticks() <-chan *models.MarketTick {
	return s.out
}

// Channel names the subscription: the symbol, or "multiplex".
func (s *Subscription) Channel() string {
	return s.channel
}

func (c *Client) newSubscription(channel, u string, decode func([]byte) ([]*models.MarketTick, error), hello interface{}) *Subscription {
	observed := func(b []byte) ([]*models.MarketTick, error) {
		ticks, err := decode(b)
		if c.observer != nil {
			for _, t := range ticks {
				c.observer.ObserveTick(t.Symbol)
			}
		}
		return ticks, err
	}
	return &Subscription{newStream(c, channel, u, observed, hello, true)}
}

// PortfolioStream carries pushed portfolio snapshots. It does not reconnect:
// a close ends the stream and callers fall back to polling.
type PortfolioStream struct {
	*stream[*models.PortfolioSnapshot]
}

// Updates delivers whole snapshots. The channel is closed by Close.
func (p *PortfolioStream) Updates() <-chan *models.PortfolioSnapshot {
	return p.out
}

// Portfolio opens /ws/portfolio under the API prefix.
func (c *Client) Portfolio(ctx context.Context) *PortfolioStream {
	p := &PortfolioStream{newStream(c, "portfolio", c.baseURL+c.prefix+"/ws/portfolio", decodePortfolioFrame, nil, false)}
	p.start(ctx)
	return p
}

func decodePortfolioFrame(b []byte) ([]*models.PortfolioSnapshot, error) {
	var snap models.PortfolioSnapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, &ParseError{Symbol: "portfolio", Frame: truncate(b), Err: err}
	}
	if err := snap.Check(); err != nil {
		return nil, &ParseError{Symbol: "portfolio", Frame: truncate(b), Err: err}
	}
	return []*models.PortfolioSnapshot{&snap}, nil
}
