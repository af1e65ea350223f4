package models

// ResponseConfig controls the automatic reply sent for qualifying inbound
// messages. Exactly one document exists; operators update it out-of-band and
// the service reads it through a TTL cache.
type ResponseConfig struct {
	Enabled         bool   `bson:"enabled" json:"enabled"`
	TemplateMessage string `bson:"template_message" json:"template_message"`
	TimeWindowHours int    `bson:"time_window_hours,omitempty" json:"time_window_hours,omitempty"`
}

// OutboundSendResult captures the outcome of one vendor API send attempt.
// It is transient; callers decide whether to log or persist it.
type OutboundSendResult struct {
	Success           bool    `json:"success"`
	ProviderMessageID *string `json:"provider_message_id"`
	Error             *string `json:"error"`
}
