package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supportbase/keel/internal/domain"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"e164 passthrough", "+15551234567", "+15551234567"},
		{"formatted us number", "(555) 123-4567", "5551234567"},
		{"dashes and spaces", "555 123-4567", "5551234567"},
		{"plus only leading", "555+123+4567", "5551234567"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePhone(tt.in))
		})
	}
}

func TestNormalizeCallEvent(t *testing.T) {
	for _, eventType := range []string{"call.ringing", "call.started", "call.answered"} {
		t.Run(eventType, func(t *testing.T) {
			event, ok := Normalize(WebhookPayload{
				Type: eventType,
				Data: WebhookData{Object: WebhookObject{From: "+15551234567"}},
			})
			require.True(t, ok)
			assert.Equal(t, KindCall, event.Kind)
			assert.Equal(t, domain.ChannelPhone, event.Channel)
			assert.Equal(t, "+15551234567", event.Phone)
			assert.Empty(t, event.Body)
		})
	}
}

func TestNormalizeTextEvent(t *testing.T) {
	event, ok := Normalize(WebhookPayload{
		Type: "message.received",
		Data: WebhookData{Object: WebhookObject{From: "+15551234567", Body: "Where is my order?"}},
	})
	require.True(t, ok)
	assert.Equal(t, KindText, event.Kind)
	assert.Equal(t, domain.ChannelText, event.Channel)
	assert.Equal(t, "Where is my order?", event.Body)
}

func TestNormalizeTextBodyFallback(t *testing.T) {
	event, ok := Normalize(WebhookPayload{
		Type: "message.received",
		Data: WebhookData{Object: WebhookObject{From: "+15551234567", Text: "via text field"}},
	})
	require.True(t, ok)
	assert.Equal(t, "via text field", event.Body)

	event, ok = Normalize(WebhookPayload{
		Type: "message.received",
		From: "+15551234567",
		Body: "via top level",
	})
	require.True(t, ok)
	assert.Equal(t, "via top level", event.Body)
}

func TestNormalizeUnknownEventKind(t *testing.T) {
	event, ok := Normalize(WebhookPayload{
		Type: "call.completed",
		Data: WebhookData{Object: WebhookObject{From: "+15551234567"}},
	})
	require.True(t, ok)
	assert.Equal(t, KindUnknown, event.Kind)
}

func TestExtractPhoneFallbackChain(t *testing.T) {
	tests := []struct {
		name    string
		payload WebhookPayload
		want    string
	}{
		{
			name: "nested object wins over top level",
			payload: WebhookPayload{
				Type: "call.ringing",
				From: "+10000000000",
				Data: WebhookData{Object: WebhookObject{From: "+15551234567"}},
			},
			want: "+15551234567",
		},
		{
			name:    "top level from",
			payload: WebhookPayload{Type: "call.ringing", From: "+15551234567"},
			want:    "+15551234567",
		},
		{
			name: "external participant number",
			payload: WebhookPayload{
				Type: "call.ringing",
				Participants: []Participant{
					{Type: "internal", Number: "+19999999999"},
					{Type: "external", Number: "+15551234567"},
				},
			},
			want: "+15551234567",
		},
		{
			name: "inbound participant phone field",
			payload: WebhookPayload{
				Type: "call.ringing",
				Participants: []Participant{
					{Direction: "inbound", Phone: "+15551234567"},
				},
			},
			want: "+15551234567",
		},
		{
			name: "first participant as last resort",
			payload: WebhookPayload{
				Type: "call.ringing",
				Participants: []Participant{
					{Type: "internal", Number: "+15551234567"},
				},
			},
			want: "+15551234567",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, ok := Normalize(tt.payload)
			require.True(t, ok)
			assert.Equal(t, tt.want, event.Phone)
		})
	}
}

func TestNormalizeNoPhone(t *testing.T) {
	_, ok := Normalize(WebhookPayload{Type: "call.ringing"})
	assert.False(t, ok)
}
