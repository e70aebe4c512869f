package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type SignalAction string

const (
	ActionBuy  SignalAction = "BUY"
	ActionSell SignalAction = "SELL"
	ActionHold SignalAction = "HOLD"
)

// ParseSignalAction normalises and validates an action; only BUY, SELL and HOLD exist.
func ParseSignalAction(s string) (SignalAction, error) {
	switch a := SignalAction(strings.ToUpper(strings.TrimSpace(s))); a {
	case ActionBuy, ActionSell, ActionHold:
		return a, nil
	default:
		return "", fmt.Errorf("unknown signal action %q", s)
	}
}

func (a *SignalAction) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseSignalAction(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Signal is an AI trading recommendation. Read-only apart from Followed.
type Signal struct {
	ID          int64            `json:"id"`
	Symbol      string           `json:"symbol"`
	Action      SignalAction     `json:"action"`
	Confidence  float64          `json:"confidence"` // 0..100
	Strategy    string           `json:"strategy"`
	Reason      string           `json:"reason,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	TargetPrice *decimal.Decimal `json:"target_price,omitempty"`
	StopLoss    *decimal.Decimal `json:"stop_loss,omitempty"`
	IsActive    bool             `json:"is_active"`
	Timestamp   Timestamp        `json:"timestamp"`
	Followed    bool             `json:"followed"`
}

func (s *Signal) UnmarshalJSON(b []byte) error {
	type alias Signal
	var raw alias
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*s = Signal(raw)
	s.Confidence = ClampConfidence(s.Confidence)
	return nil
}

// ClampConfidence bounds a confidence score to [0, 100].
func ClampConfidence(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

// SignalList is the /signals envelope.
type SignalList struct {
	Count   int       `json:"count"`
	Signals []*Signal `json:"signals"`
}

// SignalFilter narrows a signal listing.
type SignalFilter struct {
	Symbol string `query:"symbol" json:"symbol,omitempty"`
	Limit  int    `query:"limit" json:"limit" default:"20" validate:"gte=1,lte=100"`
}
