package usecase

import (
	"context"
	"errors"
	"sync"

	"LeoneAI/internal/domain/models"
	drepo "LeoneAI/internal/domain/repository"
	mid "LeoneAI/internal/middleware"
	"LeoneAI/internal/service/feed"
	applogger "LeoneAI/pkg/logger"
)

// TickSource opens live tick subscriptions; *feed.Client satisfies it.
type TickSource interface {
	Subscribe(ctx context.Context, symbol string) *feed.Subscription
	SubscribeMany(ctx context.Context, symbols []string) *feed.Subscription
}

// TickCollector keeps the live feed for the watched symbols running, stores
// every tick locally and forwards it through the sink pipeline.
type TickCollector struct {
	source    TickSource
	symbols   []string
	multiplex bool
	local     drepo.TickStorage
	pipe      *mid.RealtimePipeline
	log       *applogger.Logger

	mu      sync.Mutex
	subs    []*feed.Subscription
	started bool
	wg      sync.WaitGroup
}

// NewTickCollector creates a collector. pipe may be nil when no sink is configured.
func NewTickCollector(source TickSource, symbols []string, multiplex bool, local drepo.TickStorage, pipe *mid.RealtimePipeline, l *applogger.Logger) *TickCollector {
	if l == nil {
		l = applogger.Nop()
	}
	return &TickCollector{
		source:    source,
		symbols:   symbols,
		multiplex: multiplex,
		local:     local,
		pipe:      pipe,
		log:       l.Named("collector"),
	}
}

// Start opens the subscriptions. A collector with no symbols does nothing.
func (c *TickCollector) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return errors.New("collector already started")
	}
	c.started = true
	if len(c.symbols) == 0 {
		return nil
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}

	if c.multiplex {
		c.subs = append(c.subs, c.source.SubscribeMany(ctx, c.symbols))
	} else {
		for _, s := range c.symbols {
			c.subs = append(c.subs, c.source.Subscribe(ctx, s))
		}
	}
	for _, sub := range c.subs {
		c.wg.Add(1)
		go c.consume(ctx, sub)
	}
	c.log.Info("collector started", applogger.Strings("symbols", c.symbols), applogger.Bool("multiplex", c.multiplex))
	return nil
}

func (c *TickCollector) consume(ctx context.Context, sub *feed.Subscription) {
	defer c.wg.Done()
	ticks, errs := sub.Ticks(), sub.Errors()
	for ticks != nil {
		select {
		case t, ok := <-ticks:
			if !ok {
				ticks = nil
				continue
			}
			c.handle(ctx, t)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			c.log.Debug("feed error", applogger.String("channel", sub.Channel()), applogger.Error(err))
		}
	}
}

func (c *TickCollector) handle(ctx context.Context, t *models.MarketTick) {
	if err := c.local.Store(ctx, t); err != nil {
		c.log.Warn("store tick", applogger.String("symbol", t.Symbol), applogger.Error(err))
	}
	if c.pipe != nil {
		if err := c.pipe.Process(ctx, t); err != nil {
			c.log.Debug("sink rejected tick", applogger.String("symbol", t.Symbol), applogger.Error(err))
		}
	}
}

// IsConnected reports whether any subscription is connected.
func (c *TickCollector) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.subs {
		if s.State() == feed.Connected {
			return true
		}
	}
	return false
}

// States maps each channel to its connection state.
func (c *TickCollector) States() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.subs))
	for _, s := range c.subs {
		out[s.Channel()] = s.State().String()
	}
	return out
}

// Stop closes every subscription and the pipeline. Safe to call more than once.
func (c *TickCollector) Stop() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, s := range subs {
		_ = s.Close()
	}
	c.wg.Wait()
	if c.pipe != nil {
		c.pipe.Stop()
	}
}
