package http

// APIResponse represents standard API response.
type APIResponse struct {
	Status   int         `json:"status" example:"200"`
	Message  string      `json:"message" example:"OK"`
	Data     interface{} `json:"data,omitempty"`
	Banners  []*AppError `json:"banners,omitempty"`
	Redirect string      `json:"redirect,omitempty" example:"/login"`
}

// ValidationError represents validation error detail.
type ValidationError struct {
	Code    string                 `json:"code,omitempty" example:"ERR_REQUIRED"`
	Field   string                 `json:"field,omitempty" example:"name"`
	Message string                 `json:"message,omitempty" example:"Name is required"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// ListDataResponse represents paginated list response.
type ListDataResponse struct {
	Rows  interface{} `json:"rows"`
	Total int64       `json:"total"`
}
