package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Holding is one position inside a portfolio snapshot.
type Holding struct {
	Symbol          string          `json:"symbol"`
	Name            string          `json:"name"`
	Quantity        decimal.Decimal `json:"quantity"`
	AvgPriceUSD     decimal.Decimal `json:"avg_price_usd"`
	CurrentPriceUSD decimal.Decimal `json:"current_price_usd"`
	CurrentValueUSD decimal.Decimal `json:"current_value_usd"`
	CurrentValueSLL decimal.Decimal `json:"current_value_sll"`
	PnLPercent      float64         `json:"pnl_percent"`
	PnLUSD          decimal.Decimal `json:"pnl_usd"`
	PnLSLL          decimal.Decimal `json:"pnl_sll"`
}

// PortfolioSnapshot is always replaced wholesale, never patched.
type PortfolioSnapshot struct {
	UserID             int64           `json:"user_id"`
	TotalValueUSD      decimal.Decimal `json:"total_value_usd"`
	TotalValueSLL      decimal.Decimal `json:"total_value_sll"`
	DailyChangePercent float64         `json:"daily_change_percent"`
	TotalProfitUSD     decimal.Decimal `json:"total_profit_usd"`
	TotalProfitSLL     decimal.Decimal `json:"total_profit_sll"`
	CashBalanceUSD     decimal.Decimal `json:"cash_balance_usd"`
	CashBalanceSLL     decimal.Decimal `json:"cash_balance_sll"`
	Holdings           []*Holding      `json:"holdings"`
}

// Check rejects negative money amounts; only P&L fields may be negative.
func (p *PortfolioSnapshot) Check() error {
	for name, v := range map[string]decimal.Decimal{
		"total_value_usd":  p.TotalValueUSD,
		"total_value_sll":  p.TotalValueSLL,
		"cash_balance_usd": p.CashBalanceUSD,
		"cash_balance_sll": p.CashBalanceSLL,
	} {
		if v.IsNegative() {
			return fmt.Errorf("%s is negative: %s", name, v)
		}
	}
	for i, h := range p.Holdings {
		if h == nil {
			return fmt.Errorf("holding %d is null", i)
		}
		if h.Quantity.IsNegative() || h.CurrentValueUSD.IsNegative() || h.AvgPriceUSD.IsNegative() {
			return fmt.Errorf("holding %s carries a negative amount", h.Symbol)
		}
	}
	return nil
}

// PortfolioStats is the /portfolio/stats response.
type PortfolioStats struct {
	TotalValue    decimal.Decimal `json:"total_value"`
	DailyChange   float64         `json:"daily_change"`
	TotalProfit   decimal.Decimal `json:"total_profit"`
	ProfitPercent float64         `json:"profit_percent"`
}

type OrderType string

const (
	OrderMarket OrderType = "MARKET"
	OrderLimit  OrderType = "LIMIT"
)

// TradeRequest is the /portfolio/trade payload.
type TradeRequest struct {
	Symbol     string           `json:"symbol" validate:"required,min=3,max=20,symbol"`
	Action     string           `json:"action" validate:"required,oneof=BUY SELL"`
	Quantity   decimal.Decimal  `json:"quantity" validate:"gt=0,lte=1000000"`
	OrderType  OrderType        `json:"order_type" default:"MARKET" validate:"oneof=MARKET LIMIT"`
	LimitPrice *decimal.Decimal `json:"limit_price,omitempty" validate:"required_if=OrderType LIMIT"`
}

// TradeResult is the executed trade echoed by the backend.
type TradeResult struct {
	ID           int64           `json:"id"`
	UserID       int64           `json:"user_id"`
	Symbol       string          `json:"symbol"`
	Action       string          `json:"action"`
	Quantity     decimal.Decimal `json:"quantity"`
	PriceUSD     decimal.Decimal `json:"price_usd"`
	PriceSLL     decimal.Decimal `json:"price_sll"`
	TotalCostUSD decimal.Decimal `json:"total_cost_usd"`
	TotalCostSLL decimal.Decimal `json:"total_cost_sll"`
	Status       string          `json:"status"`
	CreatedAt    Timestamp       `json:"created_at"`
}

// Payment methods accepted for deposits and withdrawals.
var PaymentMethods = []string{
	"Orange Money",
	"Afrimoney",
	"Bank Transfer",
	"PayPal",
	"Stripe",
	"Visa/Mastercard",
}

// DepositRequest is the /portfolio/deposit payload.
type DepositRequest struct {
	AmountSLL     decimal.Decimal `json:"amount_sll" validate:"gt=0"`
	PaymentMethod string          `json:"payment_method" validate:"required,payment_method"`
	PhoneNumber   string          `json:"phone_number,omitempty"`
	Email         string          `json:"email,omitempty" validate:"omitempty,email"`
	CardLast4     string          `json:"card_last4,omitempty" validate:"omitempty,len=4,numeric"`
}

// WithdrawRequest is the /portfolio/withdraw payload.
type WithdrawRequest struct {
	AmountSLL      decimal.Decimal `json:"amount_sll" validate:"gt=0"`
	PaymentMethod  string          `json:"payment_method" validate:"required,payment_method"`
	AccountDetails string          `json:"account_details" validate:"required"`
}

// Transaction is the deposit/withdraw receipt.
type Transaction struct {
	Success       bool            `json:"success"`
	TransactionID string          `json:"transaction_id,omitempty"`
	Status        string          `json:"status,omitempty"`
	Message       string          `json:"message,omitempty"`
	PaymentMethod string          `json:"payment_method"`
	AmountSLL     decimal.Decimal `json:"amount_sll"`
	AmountUSD     decimal.Decimal `json:"amount_usd"`
	NewBalanceSLL decimal.Decimal `json:"new_balance_sll"`
}
