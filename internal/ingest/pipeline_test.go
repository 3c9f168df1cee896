package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/supportbase/keel/internal/domain"
	"github.com/supportbase/keel/internal/observability"
	"github.com/supportbase/keel/internal/service"
	"github.com/supportbase/keel/internal/shopify"
)

type fakeResolver struct {
	context shopify.CustomerContext
}

func (r *fakeResolver) Resolve(_ context.Context, _ string) shopify.CustomerContext {
	return r.context
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []string
	data   []any
}

func (b *fakeBroadcaster) Broadcast(event string, data any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	b.data = append(b.data, data)
}

type fakeNotifier struct {
	mu     sync.Mutex
	alerts []service.Alert
}

func (n *fakeNotifier) NotifyAvailableAgents(_ context.Context, alert service.Alert) service.FanoutResult {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alert)
	return service.FanoutResult{}
}

type threadCall struct {
	phone   string
	channel domain.TicketChannel
	body    string
	contact service.ContactInfo
}

type fakeThreader struct {
	mu       sync.Mutex
	calls    []threadCall
	err      error
	sweptCh  chan struct{}
	sweepErr error
}

func (f *fakeThreader) Thread(_ context.Context, phone string, channel domain.TicketChannel, body string, contact service.ContactInfo) (*service.ThreadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, threadCall{phone: phone, channel: channel, body: body, contact: contact})
	if f.err != nil {
		return nil, f.err
	}
	return &service.ThreadResult{
		Ticket:  &domain.Ticket{ID: "ticket-1", CustomerPhone: phone, Channel: channel},
		Outcome: service.OutcomeCreated,
	}, nil
}

func (f *fakeThreader) CloseStale(_ context.Context) (int64, error) {
	if f.sweptCh != nil {
		f.sweptCh <- struct{}{}
	}
	return 0, f.sweepErr
}

func newPipelineFixture(resolved shopify.CustomerContext) (*Pipeline, *fakeBroadcaster, *fakeNotifier, *fakeThreader) {
	broadcaster := &fakeBroadcaster{}
	notifier := &fakeNotifier{}
	threader := &fakeThreader{sweptCh: make(chan struct{}, 1)}
	pipeline := NewPipeline(&fakeResolver{context: resolved}, broadcaster, notifier, threader, zap.NewNop(), observability.NewMetrics())
	return pipeline, broadcaster, notifier, threader
}

func waitForSweep(t *testing.T, threader *fakeThreader) {
	t.Helper()
	select {
	case <-threader.sweptCh:
	case <-time.After(2 * time.Second):
		t.Fatal("expected opportunistic sweep to run")
	}
}

func TestProcessMatchedCall(t *testing.T) {
	status := "fulfilled"
	resolved := shopify.CustomerContext{
		Customer: &shopify.Customer{ID: 42, FirstName: "Jane", LastName: "Doe", Email: "jane@example.com", OrdersCount: 5},
		RecentOrders: []shopify.OrderSummary{
			{Name: "#1042", Items: "Dubia Roaches 500ct", FulfillmentStatus: &status},
		},
	}
	pipeline, broadcaster, notifier, threader := newPipelineFixture(resolved)

	matched, err := pipeline.Process(context.Background(), WebhookPayload{
		Type: "call.ringing",
		Data: WebhookData{Object: WebhookObject{From: "+1 (555) 123-4567"}},
	})
	require.NoError(t, err)
	assert.True(t, matched)

	require.Len(t, broadcaster.events, 1)
	assert.Equal(t, "incoming", broadcaster.events[0])
	stream, ok := broadcaster.data[0].(StreamEvent)
	require.True(t, ok)
	assert.Equal(t, "incoming_call", stream.Type)
	assert.Equal(t, "+15551234567", stream.Phone)
	require.NotNil(t, stream.Customer)
	assert.Equal(t, int64(42), stream.Customer.ID)

	require.Len(t, notifier.alerts, 1)
	alert := notifier.alerts[0]
	assert.Equal(t, "📞 Jane Doe", alert.Title)
	assert.Equal(t, "#1042 — Dubia Roaches 500ct (fulfilled)", alert.Body)
	assert.Equal(t, "42", alert.Data["customerId"])

	require.Len(t, threader.calls, 1)
	call := threader.calls[0]
	assert.Equal(t, "+15551234567", call.phone)
	assert.Equal(t, domain.ChannelPhone, call.channel)
	assert.Empty(t, call.body)
	assert.Equal(t, service.ContactInfo{Name: "Jane Doe", Email: "jane@example.com", ShopifyCustomerID: "42"}, call.contact)

	waitForSweep(t, threader)
}

func TestProcessUnmatchedText(t *testing.T) {
	pipeline, broadcaster, notifier, threader := newPipelineFixture(shopify.CustomerContext{RecentOrders: []shopify.OrderSummary{}})

	matched, err := pipeline.Process(context.Background(), WebhookPayload{
		Type: "message.received",
		Data: WebhookData{Object: WebhookObject{From: "+15551234567", Body: "Where is my order?"}},
	})
	require.NoError(t, err)
	assert.False(t, matched)

	require.Len(t, broadcaster.events, 1)
	stream := broadcaster.data[0].(StreamEvent)
	assert.Equal(t, "incoming_text", stream.Type)
	assert.Equal(t, "Where is my order?", stream.MessageBody)
	assert.Nil(t, stream.Customer)

	require.Len(t, notifier.alerts, 1)
	assert.Equal(t, "💬 Unknown Number", notifier.alerts[0].Title)
	assert.Equal(t, "+15551234567", notifier.alerts[0].Body)

	require.Len(t, threader.calls, 1)
	assert.Equal(t, "Where is my order?", threader.calls[0].body)
	assert.Equal(t, service.ContactInfo{}, threader.calls[0].contact)

	waitForSweep(t, threader)
}

func TestProcessIgnoresUnknownEventKind(t *testing.T) {
	pipeline, broadcaster, notifier, threader := newPipelineFixture(shopify.CustomerContext{})

	matched, err := pipeline.Process(context.Background(), WebhookPayload{
		Type: "call.completed",
		Data: WebhookData{Object: WebhookObject{From: "+15551234567"}},
	})
	require.NoError(t, err)
	assert.False(t, matched)
	assert.Empty(t, broadcaster.events)
	assert.Empty(t, notifier.alerts)
	assert.Empty(t, threader.calls)
}

func TestProcessAcknowledgesPayloadWithoutPhone(t *testing.T) {
	pipeline, broadcaster, notifier, threader := newPipelineFixture(shopify.CustomerContext{})

	matched, err := pipeline.Process(context.Background(), WebhookPayload{Type: "call.ringing"})
	require.NoError(t, err)
	assert.False(t, matched)
	assert.Empty(t, broadcaster.events)
	assert.Empty(t, notifier.alerts)
	assert.Empty(t, threader.calls)
}

func TestProcessFanOutPrecedesThreadingFailure(t *testing.T) {
	pipeline, broadcaster, notifier, threader := newPipelineFixture(shopify.CustomerContext{})
	threader.err = errors.New("database unavailable")

	matched, err := pipeline.Process(context.Background(), WebhookPayload{
		Type: "call.ringing",
		Data: WebhookData{Object: WebhookObject{From: "+15551234567"}},
	})
	require.Error(t, err)
	assert.False(t, matched)

	// Operators were still alerted even though persistence failed.
	assert.Len(t, broadcaster.events, 1)
	assert.Len(t, notifier.alerts, 1)
}
