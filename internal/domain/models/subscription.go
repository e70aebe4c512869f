package models

// Subscription is the user's plan record.
type Subscription struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	PlanType      PlanType  `json:"plan_type"`
	IsActive      bool      `json:"is_active"`
	AutoRenew     bool      `json:"auto_renew"`
	PaymentMethod string    `json:"payment_method,omitempty"`
	StartDate     Timestamp `json:"start_date"`
	EndDate       Timestamp `json:"end_date"`
}

// UpgradeRequest is the /subscription/upgrade payload.
type UpgradeRequest struct {
	PlanType PlanType `json:"plan_type" validate:"required,oneof=PRO PREMIUM"`
}
