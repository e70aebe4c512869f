package models

import "strings"

type PlanType string

const (
	PlanFree    PlanType = "FREE"
	PlanPro     PlanType = "PRO"
	PlanPremium PlanType = "PREMIUM"
)

// User is the authenticated account as reported by the backend.
type User struct {
	ID          int64                  `json:"id"`
	Username    string                 `json:"username"`
	Email       string                 `json:"email"`
	FullName    string                 `json:"full_name,omitempty"`
	IsActive    bool                   `json:"is_active"`
	IsSuperuser bool                   `json:"is_superuser"`
	PlanType    PlanType               `json:"plan_type,omitempty"`
	Preferences map[string]interface{} `json:"preferences,omitempty"`
}

// IsPremium reports a paid plan; an empty plan counts as FREE.
func (u *User) IsPremium() bool {
	if u == nil {
		return false
	}
	plan := PlanType(strings.ToUpper(string(u.PlanType)))
	return plan != "" && plan != PlanFree
}

// Clone returns a deep copy safe to hand to callers.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.Preferences != nil {
		c.Preferences = make(map[string]interface{}, len(u.Preferences))
		for k, v := range u.Preferences {
			c.Preferences[k] = v
		}
	}
	return &c
}

// UserPatch is a partial user update; nil fields are left untouched.
type UserPatch struct {
	Username    *string                `json:"username,omitempty"`
	Email       *string                `json:"email,omitempty" validate:"omitempty,email"`
	FullName    *string                `json:"full_name,omitempty"`
	IsActive    *bool                  `json:"is_active,omitempty"`
	IsSuperuser *bool                  `json:"is_superuser,omitempty"`
	PlanType    *PlanType              `json:"plan_type,omitempty" validate:"omitempty,oneof=FREE PRO PREMIUM"`
	Preferences map[string]interface{} `json:"preferences,omitempty"`
}

// Apply merges the patch into u.
func (p UserPatch) Apply(u *User) {
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.FullName != nil {
		u.FullName = *p.FullName
	}
	if p.IsActive != nil {
		u.IsActive = *p.IsActive
	}
	if p.IsSuperuser != nil {
		u.IsSuperuser = *p.IsSuperuser
	}
	if p.PlanType != nil {
		u.PlanType = *p.PlanType
	}
	if len(p.Preferences) > 0 {
		if u.Preferences == nil {
			u.Preferences = make(map[string]interface{}, len(p.Preferences))
		}
		for k, v := range p.Preferences {
			u.Preferences[k] = v
		}
	}
}

// Session is the client-held authentication state.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	User         *User  `json:"user,omitempty"`
}

// LoginResponse is returned by /auth/login; refresh_token and user are optional.
type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	User         *User  `json:"user,omitempty"`
}

// Credentials are the login form fields.
type Credentials struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

// RegisterRequest is the /auth/register payload.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name,omitempty"`
}
