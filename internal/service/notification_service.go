package service

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/supportbase/keel/internal/domain"
	"github.com/supportbase/keel/internal/observability"
	"github.com/supportbase/keel/internal/repository"
)

// Alert is one logical notification fanned out to all eligible agents.
type Alert struct {
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data"`
}

// DeliveryStats aggregates per-channel delivery outcomes.
type DeliveryStats struct {
	Sent    int `json:"sent"`
	Expired int `json:"expired"`
	Failed  int `json:"failed"`
}

// FanoutResult reports both channels of one fan-out.
type FanoutResult struct {
	Mobile DeliveryStats `json:"mobile"`
	Web    DeliveryStats `json:"web"`
}

// MobilePusher delivers to one mobile device token.
type MobilePusher interface {
	Send(ctx context.Context, token, title, body string, data map[string]any) error
}

// WebPusher delivers to one web-push subscription. The expired return
// signals a terminal failure for that subscription.
type WebPusher interface {
	Send(ctx context.Context, sub domain.WebPushSubscription, payload []byte) (expired bool, err error)
	Enabled() bool
}

// NotificationService dispatches a single alert concurrently across the
// mobile-push and web-push channels with per-recipient failure isolation.
type NotificationService struct {
	agents  repository.AgentRepository
	mobile  MobilePusher
	web     WebPusher
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewNotificationService constructs the service.
func NewNotificationService(agents repository.AgentRepository, mobile MobilePusher, web WebPusher, logger *zap.Logger, metrics *observability.Metrics) *NotificationService {
	return &NotificationService{
		agents:  agents,
		mobile:  mobile,
		web:     web,
		logger:  logger,
		metrics: metrics,
	}
}

// NotifyAvailableAgents sends the alert to every available agent holding
// a token or subscription. Every per-recipient delivery settles
// independently: one failure or timeout never cancels or delays another.
// Partial failure is reported through counts, never as an error.
func (s *NotificationService) NotifyAvailableAgents(ctx context.Context, alert Alert) FanoutResult {
	var result FanoutResult
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		result.Mobile = s.notifyMobile(ctx, alert)
	}()
	go func() {
		defer wg.Done()
		result.Web = s.notifyWeb(ctx, alert)
	}()
	wg.Wait()

	s.metrics.RecordDelivery("mobile", "sent", result.Mobile.Sent)
	s.metrics.RecordDelivery("mobile", "failed", result.Mobile.Failed)
	s.metrics.RecordDelivery("web", "sent", result.Web.Sent)
	s.metrics.RecordDelivery("web", "expired", result.Web.Expired)
	s.metrics.RecordDelivery("web", "failed", result.Web.Failed)

	s.logger.Info("notification fan-out complete",
		zap.String("title", alert.Title),
		zap.Int("mobile_sent", result.Mobile.Sent),
		zap.Int("web_sent", result.Web.Sent),
		zap.Int("web_expired", result.Web.Expired),
		zap.Int("failed", result.Mobile.Failed+result.Web.Failed))
	return result
}

func (s *NotificationService) notifyMobile(ctx context.Context, alert Alert) DeliveryStats {
	var stats DeliveryStats

	agents, err := s.agents.ListAvailableWithPushToken(ctx)
	if err != nil {
		s.logger.Error("list mobile push recipients failed", zap.Error(err))
		return stats
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, agent := range agents {
		if agent.PushToken == nil {
			continue
		}
		wg.Add(1)
		go func(token string) {
			defer wg.Done()
			err := s.mobile.Send(ctx, token, alert.Title, alert.Body, alert.Data)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.Warn("mobile push failed", zap.Error(err))
				stats.Failed++
				return
			}
			stats.Sent++
		}(*agent.PushToken)
	}
	wg.Wait()
	return stats
}

func (s *NotificationService) notifyWeb(ctx context.Context, alert Alert) DeliveryStats {
	var stats DeliveryStats
	if !s.web.Enabled() {
		return stats
	}

	agents, err := s.agents.ListAvailableWithWebPush(ctx)
	if err != nil {
		s.logger.Error("list web push recipients failed", zap.Error(err))
		return stats
	}

	payload, err := json.Marshal(alert)
	if err != nil {
		s.logger.Error("web push payload encode failed", zap.Error(err))
		return stats
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, agent := range agents {
		if agent.WebPushSub == nil {
			continue
		}
		wg.Add(1)
		go func(agent domain.Agent) {
			defer wg.Done()
			expired, err := s.web.Send(ctx, *agent.WebPushSub, payload)

			if expired {
				// Dead subscriptions accumulate failed deliveries forever
				// unless cleared, so pruning is a correctness requirement.
				if clearErr := s.agents.SaveWebPushSub(ctx, agent.ID, nil); clearErr != nil {
					s.logger.Error("clear expired web push subscription failed",
						zap.String("agent_id", agent.ID), zap.Error(clearErr))
				} else {
					s.logger.Info("cleared expired web push subscription",
						zap.String("agent", agent.Name))
				}
			}

			mu.Lock()
			defer mu.Unlock()
			switch {
			case expired:
				stats.Expired++
			case err != nil:
				s.logger.Warn("web push failed", zap.String("agent", agent.Name), zap.Error(err))
				stats.Failed++
			default:
				stats.Sent++
			}
		}(agent)
	}
	wg.Wait()
	return stats
}
