package ingest

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/supportbase/keel/internal/domain"
	"github.com/supportbase/keel/internal/observability"
	"github.com/supportbase/keel/internal/service"
	"github.com/supportbase/keel/internal/shopify"
)

// CustomerResolver attaches commerce context to an inbound event.
type CustomerResolver interface {
	Resolve(ctx context.Context, phone string) shopify.CustomerContext
}

// Broadcaster streams events to connected operator clients.
type Broadcaster interface {
	Broadcast(event string, data any)
}

// Notifier fans an alert out to offline push subscribers.
type Notifier interface {
	NotifyAvailableAgents(ctx context.Context, alert service.Alert) service.FanoutResult
}

// Threader persists inbound events into tickets.
type Threader interface {
	Thread(ctx context.Context, phone string, channel domain.TicketChannel, body string, contact service.ContactInfo) (*service.ThreadResult, error)
	CloseStale(ctx context.Context) (int64, error)
}

// Pipeline processes one webhook delivery end to end: normalize, resolve
// customer context, fan out to the realtime stream and push subscribers,
// then thread the event into a ticket. Fan-out and persistence are
// independent: a failure on one side never blocks the other.
type Pipeline struct {
	resolver    CustomerResolver
	broadcaster Broadcaster
	notifier    Notifier
	threader    Threader
	logger      *zap.Logger
	metrics     *observability.Metrics
}

// NewPipeline constructs the pipeline.
func NewPipeline(resolver CustomerResolver, broadcaster Broadcaster, notifier Notifier, threader Threader, logger *zap.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		resolver:    resolver,
		broadcaster: broadcaster,
		notifier:    notifier,
		threader:    threader,
		logger:      logger,
		metrics:     metrics,
	}
}

// StreamEvent is the payload emitted to realtime subscribers.
type StreamEvent struct {
	Type         string                 `json:"type"`
	Phone        string                 `json:"phone"`
	MessageBody  string                 `json:"messageBody,omitempty"`
	Timestamp    time.Time              `json:"timestamp"`
	Customer     *shopify.Customer      `json:"customer,omitempty"`
	RecentOrders []shopify.OrderSummary `json:"recentOrders"`
}

// Process handles one webhook delivery. The returned matched flag tells
// the upstream sender whether a customer record was found; it is false
// both for unknown numbers and unparseable payloads, never an error.
// A threading failure is returned after fan-out has already settled.
func (p *Pipeline) Process(ctx context.Context, payload WebhookPayload) (matched bool, err error) {
	event, ok := Normalize(payload)
	if !ok {
		p.logger.Info("webhook: no phone number found in payload")
		return false, nil
	}
	if event.Kind == KindUnknown {
		p.logger.Info("webhook: ignoring event type",
			zap.String("type", payload.Type), zap.String("phone", event.Phone))
		return false, nil
	}

	p.logger.Info("webhook event",
		zap.String("kind", string(event.Kind)),
		zap.String("phone", event.Phone))

	customer := p.resolver.Resolve(ctx, event.Phone)

	// Both fan-out channels run concurrently and are awaited before the
	// delivery is considered done; neither is gated on persistence.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		p.broadcaster.Broadcast("incoming", p.streamEvent(event, customer))
	}()
	go func() {
		defer wg.Done()
		p.notifier.NotifyAvailableAgents(ctx, p.alert(event, customer))
	}()
	wg.Wait()

	result, err := p.threader.Thread(ctx, event.Phone, event.Channel, event.Body, contactInfo(customer))
	if err != nil {
		p.metrics.RecordWebhook(string(event.Kind), "error")
		return customer.Customer != nil, err
	}
	p.metrics.RecordWebhook(string(event.Kind), string(result.Outcome))

	// Opportunistic sweep: retire stale resolved tickets without a
	// dedicated scheduler. Detached from the request lifetime.
	go func() {
		sweepCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if _, err := p.threader.CloseStale(sweepCtx); err != nil {
			p.logger.Error("stale ticket sweep failed", zap.Error(err))
		}
	}()

	return customer.Customer != nil, nil
}

func (p *Pipeline) streamEvent(event InboundEvent, customer shopify.CustomerContext) StreamEvent {
	return StreamEvent{
		Type:         incomingType(event.Kind),
		Phone:        event.Phone,
		MessageBody:  event.Body,
		Timestamp:    time.Now().UTC(),
		Customer:     customer.Customer,
		RecentOrders: customer.RecentOrders,
	}
}

func (p *Pipeline) alert(event InboundEvent, customer shopify.CustomerContext) service.Alert {
	data := map[string]any{
		"type":  incomingType(event.Kind),
		"phone": event.Phone,
	}

	if customer.Customer == nil {
		title := "📞 Unknown Caller"
		if event.Kind == KindText {
			title = "💬 Unknown Number"
		}
		data["customerId"] = nil
		data["customerName"] = nil
		return service.Alert{Title: title, Body: event.Phone, Data: data}
	}

	name := customer.DisplayName()
	icon := "📞"
	if event.Kind == KindText {
		icon = "💬"
	}

	body := fmt.Sprintf("%d orders · $%s lifetime", customer.Customer.OrdersCount, lifetimeSpend(customer))
	if len(customer.RecentOrders) > 0 {
		last := customer.RecentOrders[0]
		status := "pending"
		if last.FulfillmentStatus != nil && *last.FulfillmentStatus != "" {
			status = *last.FulfillmentStatus
		}
		body = fmt.Sprintf("%s — %s (%s)", last.Name, last.Items, status)
	}

	data["customerId"] = strconv.FormatInt(customer.Customer.ID, 10)
	data["customerName"] = name
	data["recentOrders"] = customer.RecentOrders
	return service.Alert{Title: icon + " " + name, Body: body, Data: data}
}

func contactInfo(customer shopify.CustomerContext) service.ContactInfo {
	if customer.Customer == nil {
		return service.ContactInfo{}
	}
	return service.ContactInfo{
		Name:              customer.DisplayName(),
		Email:             customer.Customer.Email,
		ShopifyCustomerID: strconv.FormatInt(customer.Customer.ID, 10),
	}
}

func lifetimeSpend(customer shopify.CustomerContext) string {
	if customer.Customer.TotalSpent == "" {
		return "0.00"
	}
	return customer.Customer.TotalSpent
}

func incomingType(kind EventKind) string {
	if kind == KindCall {
		return "incoming_call"
	}
	return "incoming_text"
}
