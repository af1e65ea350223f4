package ingest

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/kdialloh/waresponder/internal/domain/models"
)

// senderKeys are the candidate keys probed for a sender identifier inside
// unrecognized payload fragments.
var senderKeys = []string{"from", "recipient_id", "wa_id"}

// Normalize flattens one webhook delivery into an ordered list of event
// records. Nothing is dropped: messages and delivery statuses map to typed
// events, and every unrecognized change-value field is captured as one event
// per element with the field name as the kind. Absent or malformed nested
// fields never abort normalization; a payload with no entries yields an empty
// list. All returned events share the verbatim request body in Raw.
func Normalize(payload models.WebhookPayload, raw []byte) []models.InboundEvent {
	rawBody := string(raw)
	var events []models.InboundEvent

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			recipient := change.Value.Metadata.PhoneNumberID

			for _, msg := range change.Value.Messages {
				events = append(events, models.InboundEvent{
					EventID:    compositeID(msg.ID, msg.Type, msg.Timestamp),
					Sender:     msg.From,
					Recipient:  recipient,
					OccurredAt: parseEpoch(msg.Timestamp),
					Kind:       msg.Type,
					Summary:    summarizeMessage(msg),
					Raw:        rawBody,
				})
			}

			for _, status := range change.Value.Statuses {
				events = append(events, models.InboundEvent{
					EventID:    compositeID(status.ID, status.Status, status.Timestamp),
					Sender:     status.RecipientID,
					Recipient:  recipient,
					OccurredAt: parseEpoch(status.Timestamp),
					Kind:       status.Status,
					Raw:        rawBody,
				})
			}

			events = append(events, normalizeExtra(change.Value.Extra, recipient, rawBody)...)
		}
	}

	return events
}

// normalizeExtra synthesizes events for change-value fields outside the known
// Cloud API set. Keys are visited in sorted order since JSON object order is
// not preserved by the decoder.
func normalizeExtra(extra map[string]json.RawMessage, recipient, rawBody string) []models.InboundEvent {
	if len(extra) == 0 {
		return nil
	}

	keys := make([]string, 0, len(extra))
	for key := range extra {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var events []models.InboundEvent
	for _, key := range keys {
		for _, element := range splitElements(extra[key]) {
			var fields map[string]json.RawMessage
			_ = json.Unmarshal(element, &fields)

			id := stringField(fields, "id")
			timestamp := stringField(fields, "timestamp")

			sender := models.SenderUnknown
			for _, candidate := range senderKeys {
				if value := stringField(fields, candidate); value != "" {
					sender = value
					break
				}
			}

			eventID := uuid.NewString()
			if id != "" {
				eventID = compositeID(id, key, timestamp)
			}

			events = append(events, models.InboundEvent{
				EventID:    eventID,
				Sender:     sender,
				Recipient:  recipient,
				OccurredAt: parseEpoch(timestamp),
				Kind:       key,
				Raw:        rawBody,
			})
		}
	}

	return events
}

// splitElements returns the elements of a JSON array, or the value itself as
// a single element when it is not an array.
func splitElements(raw json.RawMessage) []json.RawMessage {
	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		return []json.RawMessage{raw}
	}
	return elements
}

func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		// Non-string scalars (numeric ids) are kept as their literal text.
		text := strings.TrimSpace(string(raw))
		if text == "" || text == "null" || strings.HasPrefix(text, "{") || strings.HasPrefix(text, "[") {
			return ""
		}
		return text
	}
	return value
}

func summarizeMessage(msg models.InboundMessage) *string {
	switch msg.Type {
	case "text":
		if msg.Text == nil {
			return nil
		}
		return ptr(msg.Text.Body)
	case "image":
		return captionOf(msg.Image)
	case "video":
		return captionOf(msg.Video)
	case "document":
		return captionOf(msg.Document)
	case "location":
		return summarizeLocation(msg.Location)
	case "interactive":
		return summarizeInteractive(msg.Interactive)
	}
	return nil
}

func captionOf(media *models.MediaContent) *string {
	if media == nil || media.Caption == "" {
		return nil
	}
	return ptr(media.Caption)
}

func summarizeLocation(loc *models.LocationContent) *string {
	if loc == nil {
		return nil
	}
	summary := fmt.Sprintf("%s, %s",
		strconv.FormatFloat(loc.Latitude, 'f', -1, 64),
		strconv.FormatFloat(loc.Longitude, 'f', -1, 64))
	if loc.Name != "" {
		summary += " - " + loc.Name
	}
	return ptr(summary)
}

func summarizeInteractive(interactive *models.InteractiveContent) *string {
	if interactive == nil {
		return nil
	}

	switch {
	case interactive.ButtonReply != nil:
		return ptr(fmt.Sprintf("%s (%s)", interactive.ButtonReply.Title, interactive.ButtonReply.ID))
	case interactive.CTAURLReply != nil:
		return ptr(fmt.Sprintf("%s (%s)", interactive.CTAURLReply.Title, interactive.CTAURLReply.Payload))
	case interactive.CTAReply != nil:
		return ptr(fmt.Sprintf("%s (%s)", interactive.CTAReply.Title, interactive.CTAReply.Payload))
	case interactive.ListReply != nil:
		return ptr(fmt.Sprintf("%s (%s)", interactive.ListReply.Title, interactive.ListReply.ID))
	}

	return ptr(fmt.Sprintf("interaction of kind %s", interactive.Type))
}

func compositeID(id, kind, timestamp string) string {
	if id == "" {
		return uuid.NewString()
	}
	return fmt.Sprintf("%s:%s:%s", id, kind, timestamp)
}

func parseEpoch(timestamp string) int64 {
	seconds, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return 0
	}
	return seconds
}

func ptr(s string) *string {
	return &s
}
