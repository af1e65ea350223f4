package models

import "encoding/json"

// WebhookPayload mirrors the structure sent by Meta's WhatsApp Cloud API webhook callbacks.
type WebhookPayload struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

// WebhookEntry represents one entry payload within the webhook body.
type WebhookEntry struct {
	ID      string          `json:"id"`
	Changes []WebhookChange `json:"changes"`
}

// WebhookChange captures the actual notification contents.
type WebhookChange struct {
	Value WebhookValue `json:"value"`
	Field string       `json:"field"`
}

// WebhookValue contains message metadata, contacts and message events sent by users.
// Keys outside the known Cloud API set are retained in Extra so that newly
// introduced upstream arrays are still captured instead of silently dropped.
type WebhookValue struct {
	MessagingProduct string                     `json:"messaging_product"`
	Metadata         Metadata                   `json:"metadata"`
	Contacts         []Contact                  `json:"contacts"`
	Messages         []InboundMessage           `json:"messages"`
	Statuses         []MessageStatus            `json:"statuses"`
	Extra            map[string]json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes each known field individually and keeps every
// remaining key as a raw sub-document in Extra. A known key whose shape has
// drifted upstream also stays in Extra instead of failing the whole delivery.
func (v *WebhookValue) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var decoded WebhookValue
	decodeField := func(key string, dst any) {
		raw, ok := fields[key]
		if !ok {
			return
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return
		}
		delete(fields, key)
	}

	decodeField("messaging_product", &decoded.MessagingProduct)
	decodeField("metadata", &decoded.Metadata)
	decodeField("contacts", &decoded.Contacts)
	decodeField("messages", &decoded.Messages)
	decodeField("statuses", &decoded.Statuses)

	if len(fields) > 0 {
		decoded.Extra = fields
	}

	*v = decoded
	return nil
}

// Metadata contains WhatsApp phone identifiers for the business account.
type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

// Contact represents the WhatsApp user initiating the conversation.
type Contact struct {
	Profile ContactProfile `json:"profile"`
	WaID    string         `json:"wa_id"`
}

// ContactProfile contains the human-friendly contact name.
type ContactProfile struct {
	Name string `json:"name"`
}

// InboundMessage aggregates all supported inbound WhatsApp message shapes we care about.
type InboundMessage struct {
	From        string              `json:"from"`
	ID          string              `json:"id"`
	Timestamp   string              `json:"timestamp"`
	Type        string              `json:"type"`
	Text        *TextContent        `json:"text,omitempty"`
	Interactive *InteractiveContent `json:"interactive,omitempty"`
	Image       *MediaContent       `json:"image,omitempty"`
	Audio       *MediaContent       `json:"audio,omitempty"`
	Video       *MediaContent       `json:"video,omitempty"`
	Document    *MediaContent       `json:"document,omitempty"`
	Location    *LocationContent    `json:"location,omitempty"`
}

// TextContent contains text messages body.
type TextContent struct {
	Body string `json:"body"`
}

// InteractiveContent represents button, list and call-to-action replies.
// Meta has shipped the CTA click under two different keys, so both are mapped.
type InteractiveContent struct {
	Type        string       `json:"type"`
	ButtonReply *ButtonReply `json:"button_reply,omitempty"`
	ListReply   *ListReply   `json:"list_reply,omitempty"`
	CTAURLReply *CTAReply    `json:"cta_url_reply,omitempty"`
	CTAReply    *CTAReply    `json:"cta_reply,omitempty"`
}

// ButtonReply models a pressed button payload.
type ButtonReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ListReply models a selected list item payload.
type ListReply struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// CTAReply models a call-to-action URL button click.
type CTAReply struct {
	Title   string `json:"title"`
	Payload string `json:"payload"`
}

// MediaContent represents media attachments minimal metadata.
type MediaContent struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
	Sha256   string `json:"sha256"`
	Filename string `json:"filename"`
	Caption  string `json:"caption"`
}

// LocationContent represents a shared location pin.
type LocationContent struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name"`
	Address   string  `json:"address"`
}

// MessageStatus represents delivery/read receipts coming from WhatsApp.
type MessageStatus struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	RecipientID string `json:"recipient_id"`
}
