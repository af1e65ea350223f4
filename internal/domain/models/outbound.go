package models

// OutboundMessageRequest represents requests to send a message manually via the API.
type OutboundMessageRequest struct {
	To         string `json:"to" binding:"required"`
	Message    string `json:"message" binding:"required"`
	PreviewURL bool   `json:"preview_url"`
}

// ResponseConfigUpdate is the operator request that replaces the stored
// auto-reply configuration.
type ResponseConfigUpdate struct {
	Enabled         *bool  `json:"enabled" binding:"required"`
	TemplateMessage string `json:"template_message" binding:"required"`
	TimeWindowHours int    `json:"time_window_hours"`
}
