package ingest

import (
	"strings"

	"github.com/supportbase/keel/internal/domain"
)

// EventKind classifies an inbound telephony event.
type EventKind string

const (
	KindCall    EventKind = "call"
	KindText    EventKind = "text"
	KindUnknown EventKind = "unknown"
)

// WebhookPayload tolerates the payload shapes the telephony provider has
// shipped over time. Fields the current shape does not use stay empty.
type WebhookPayload struct {
	Type         string        `json:"type"`
	Event        string        `json:"event"`
	From         string        `json:"from"`
	Body         string        `json:"body"`
	Data         WebhookData   `json:"data"`
	Participants []Participant `json:"participants"`
}

// WebhookData is the envelope of the v3 payload shape.
type WebhookData struct {
	Object WebhookObject `json:"object"`
}

// WebhookObject is the event object of the v3 payload shape.
type WebhookObject struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Direction string `json:"direction"`
	Status    string `json:"status"`
	Body      string `json:"body"`
	Text      string `json:"text"`
}

// Participant is one leg of a call in the participants-array payload shape.
type Participant struct {
	Type      string `json:"type"`
	Direction string `json:"direction"`
	Number    string `json:"number"`
	Phone     string `json:"phone"`
}

// InboundEvent is the canonical normalized form of a webhook delivery.
type InboundEvent struct {
	Channel domain.TicketChannel
	Phone   string
	Kind    EventKind
	Body    string
}

var callMarkers = map[string]struct{}{
	"call.ringing":  {},
	"call.started":  {},
	"call.answered": {},
}

// Normalize extracts the canonical inbound event from a webhook payload.
// The second return value is false when no phone number is resolvable,
// a non-fatal condition: the webhook must still be acknowledged.
func Normalize(payload WebhookPayload) (InboundEvent, bool) {
	phone := extractPhone(payload)
	if phone == "" {
		return InboundEvent{}, false
	}

	eventType := payload.Type
	if eventType == "" {
		eventType = payload.Event
	}

	event := InboundEvent{
		Phone: NormalizePhone(phone),
		Kind:  classify(eventType),
	}

	switch event.Kind {
	case KindCall:
		event.Channel = domain.ChannelPhone
	case KindText:
		event.Channel = domain.ChannelText
		event.Body = extractBody(payload)
	}
	return event, true
}

func classify(eventType string) EventKind {
	if _, ok := callMarkers[eventType]; ok {
		return KindCall
	}
	if eventType == "message.received" {
		return KindText
	}
	return KindUnknown
}

// extractPhone walks the ordered fallback chain; first match wins.
func extractPhone(payload WebhookPayload) string {
	if payload.Data.Object.From != "" {
		return payload.Data.Object.From
	}
	if payload.From != "" {
		return payload.From
	}
	for _, p := range payload.Participants {
		if p.Type == "external" || p.Direction == "inbound" {
			if p.Number != "" {
				return p.Number
			}
			if p.Phone != "" {
				return p.Phone
			}
		}
	}
	if len(payload.Participants) > 0 {
		if payload.Participants[0].Number != "" {
			return payload.Participants[0].Number
		}
		return payload.Participants[0].Phone
	}
	return ""
}

func extractBody(payload WebhookPayload) string {
	if payload.Data.Object.Body != "" {
		return payload.Data.Object.Body
	}
	if payload.Data.Object.Text != "" {
		return payload.Data.Object.Text
	}
	return payload.Body
}

// NormalizePhone strips everything except digits and a leading plus sign.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else if r == '+' && b.Len() == 0 {
			b.WriteRune(r)
		}
	}
	return b.String()
}
