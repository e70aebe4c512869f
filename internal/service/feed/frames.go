package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"LeoneAI/internal/domain/models"

	"github.com/shopspring/decimal"
)

// ErrServerFrame marks an {"error": ...} frame sent by the backend.
var ErrServerFrame = errors.New("feed: server reported error")

// ParseError is surfaced for frames that could not be decoded. The
// connection stays open.
type ParseError struct {
	Symbol string
	Frame  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("feed %s: malformed frame: %v", e.Symbol, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

type tickFrame struct {
	Symbol        string           `json:"symbol"`
	Price         *decimal.Decimal `json:"price"`
	Change        decimal.Decimal  `json:"change"`
	ChangePercent *float64         `json:"change_percent"`
	Volume        float64          `json:"volume"`
	Timestamp     models.Timestamp `json:"timestamp"`
	Error         string           `json:"error"`
}

type envelope struct {
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func (f *tickFrame) tick(fallbackSymbol string) (*models.MarketTick, error) {
	if f.Price == nil {
		return nil, errors.New("missing price")
	}
	if f.Price.IsNegative() {
		return nil, fmt.Errorf("negative price %s", f.Price)
	}
	symbol := strings.ToUpper(f.Symbol)
	if symbol == "" {
		symbol = fallbackSymbol
	}
	if symbol == "" {
		return nil, errors.New("missing symbol")
	}
	t := &models.MarketTick{
		Symbol:    symbol,
		Price:     *f.Price,
		Change:    f.Change,
		Volume:    f.Volume,
		Timestamp: f.Timestamp.Time,
	}
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now().UTC()
	}
	switch {
	case f.ChangePercent != nil:
		t.ChangePercent = *f.ChangePercent
	case !f.Change.IsZero():
		if prev := f.Price.Sub(f.Change); !prev.IsZero() {
			t.ChangePercent, _ = f.Change.Div(prev).Mul(decimal.NewFromInt(100)).Round(4).Float64()
		}
	}
	return t, nil
}

// decodeSymbolFrame parses one frame of the per-symbol channel.
func decodeSymbolFrame(symbol string, b []byte) (*models.MarketTick, error) {
	var f tickFrame
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, &ParseError{Symbol: symbol, Frame: truncate(b), Err: err}
	}
	if f.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrServerFrame, f.Error)
	}
	t, err := f.tick(symbol)
	if err != nil {
		return nil, &ParseError{Symbol: symbol, Frame: truncate(b), Err: err}
	}
	return t, nil
}

// decodeMultiplexFrame parses a market_update frame into ticks for the
// requested symbols. Other frame types yield no ticks.
func decodeMultiplexFrame(want map[string]bool, b []byte) ([]*models.MarketTick, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, &ParseError{Symbol: "*", Frame: truncate(b), Err: err}
	}
	if env.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrServerFrame, env.Error)
	}
	if env.Type != "market_update" {
		return nil, nil
	}
	var frames []tickFrame
	if err := json.Unmarshal(env.Data, &frames); err != nil {
		return nil, &ParseError{Symbol: "*", Frame: truncate(b), Err: err}
	}
	out := make([]*models.MarketTick, 0, len(frames))
	var (
		bad  []string
		errs []error
	)
	for i := range frames {
		symbol := strings.ToUpper(frames[i].Symbol)
		if len(want) > 0 && symbol != "" && !want[symbol] {
			continue
		}
		t, err := frames[i].tick("")
		if err != nil {
			bad = append(bad, symbol)
			errs = append(errs, fmt.Errorf("%s: %w", symbol, err))
			continue
		}
		if len(want) > 0 && !want[t.Symbol] {
			continue
		}
		out = append(out, t)
	}
	if len(errs) > 0 {
		return out, &ParseError{Symbol: strings.Join(bad, ","), Frame: truncate(b), Err: errors.Join(errs...)}
	}
	return out, nil
}

// truncate shortens a frame for logs without splitting a UTF-8 sequence.
func truncate(b []byte) string {
	const max = 256
	if len(b) <= max {
		return string(b)
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(b[cut]) {
		cut--
	}
	return string(b[:cut]) + "..."
}
