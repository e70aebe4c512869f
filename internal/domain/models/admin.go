package models

import "github.com/shopspring/decimal"

type SystemStats struct {
	TotalUsers     int             `json:"total_users"`
	ActiveUsers24h int             `json:"active_users_24h"`
	TotalTrades24h int             `json:"total_trades_24h"`
	TotalVolume24h decimal.Decimal `json:"total_volume_24h"`
	SystemHealth   string          `json:"system_health"`
}

type AdminTrade struct {
	TradeID   int64           `json:"trade_id"`
	UserEmail string          `json:"user_email"`
	Symbol    string          `json:"symbol"`
	Action    string          `json:"action"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
	Timestamp Timestamp       `json:"timestamp"`
}

type AdminDashboard struct {
	Stats        SystemStats   `json:"stats"`
	RecentUsers  []*User       `json:"recent_users"`
	RecentTrades []*AdminTrade `json:"recent_trades"`
}

// AdminUserCreate creates an account on behalf of an operator.
type AdminUserCreate struct {
	Username    string `json:"username" validate:"required,min=3,max=50"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	FullName    string `json:"full_name,omitempty"`
	IsSuperuser bool   `json:"is_superuser"`
}

// AdminUserUpdate carries optional flag changes.
type AdminUserUpdate struct {
	IsActive      *bool   `json:"is_active,omitempty"`
	IsSuperuser   *bool   `json:"is_superuser,omitempty"`
	RiskTolerance *string `json:"risk_tolerance,omitempty" validate:"omitempty,oneof=low medium high"`
}

// Page is a skip/limit window for admin listings.
type Page struct {
	Skip  int `query:"skip" json:"skip" validate:"gte=0"`
	Limit int `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
}
