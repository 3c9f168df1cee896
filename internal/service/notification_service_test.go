package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/supportbase/keel/internal/domain"
	"github.com/supportbase/keel/internal/observability"
)

type fakeAgentRepo struct {
	mu     sync.Mutex
	agents map[string]*domain.Agent
}

func newFakeAgentRepo(agents ...domain.Agent) *fakeAgentRepo {
	repo := &fakeAgentRepo{agents: make(map[string]*domain.Agent)}
	for i := range agents {
		agent := agents[i]
		repo.agents[agent.ID] = &agent
	}
	return repo
}

func (r *fakeAgentRepo) GetByID(_ context.Context, id string) (*domain.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	agent, ok := r.agents[id]
	if !ok {
		return nil, errors.New("not found")
	}
	copied := *agent
	return &copied, nil
}

func (r *fakeAgentRepo) GetByEmail(_ context.Context, email string) (*domain.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, agent := range r.agents {
		if agent.Email == email {
			copied := *agent
			return &copied, nil
		}
	}
	return nil, errors.New("not found")
}

func (r *fakeAgentRepo) ListAvailableWithPushToken(_ context.Context) ([]domain.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Agent
	for _, agent := range r.agents {
		if agent.IsAvailable && agent.PushToken != nil {
			out = append(out, *agent)
		}
	}
	return out, nil
}

func (r *fakeAgentRepo) ListAvailableWithWebPush(_ context.Context) ([]domain.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Agent
	for _, agent := range r.agents {
		if agent.IsAvailable && agent.WebPushSub != nil {
			out = append(out, *agent)
		}
	}
	return out, nil
}

func (r *fakeAgentRepo) SavePushToken(_ context.Context, agentID string, token *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if agent, ok := r.agents[agentID]; ok {
		agent.PushToken = token
	}
	return nil
}

func (r *fakeAgentRepo) SaveWebPushSub(_ context.Context, agentID string, sub *domain.WebPushSubscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if agent, ok := r.agents[agentID]; ok {
		agent.WebPushSub = sub
	}
	return nil
}

func (r *fakeAgentRepo) SetAvailability(_ context.Context, agentID string, available bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if agent, ok := r.agents[agentID]; ok {
		agent.IsAvailable = available
	}
	return nil
}

type fakeMobilePusher struct {
	mu      sync.Mutex
	sent    []string
	failFor map[string]error
}

func (p *fakeMobilePusher) Send(_ context.Context, token, _, _ string, _ map[string]any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err, ok := p.failFor[token]; ok {
		return err
	}
	p.sent = append(p.sent, token)
	return nil
}

type fakeWebPusher struct {
	mu         sync.Mutex
	enabled    bool
	sent       []string
	expiredFor map[string]bool
	failFor    map[string]error
}

func (p *fakeWebPusher) Send(_ context.Context, sub domain.WebPushSubscription, _ []byte) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.expiredFor[sub.Endpoint] {
		return true, nil
	}
	if err, ok := p.failFor[sub.Endpoint]; ok {
		return false, err
	}
	p.sent = append(p.sent, sub.Endpoint)
	return false, nil
}

func (p *fakeWebPusher) Enabled() bool { return p.enabled }

func strPtr(s string) *string { return &s }

func webSub(endpoint string) *domain.WebPushSubscription {
	return &domain.WebPushSubscription{
		Endpoint: endpoint,
		Keys:     domain.WebPushKeys{P256dh: "p256dh", Auth: "auth"},
	}
}

func TestNotifyAvailableAgentsSettlesAllDeliveries(t *testing.T) {
	repo := newFakeAgentRepo(
		domain.Agent{ID: "a1", Name: "Ana", IsAvailable: true, PushToken: strPtr("ExponentPushToken[ok]")},
		domain.Agent{ID: "a2", Name: "Ben", IsAvailable: true, PushToken: strPtr("ExponentPushToken[bad]")},
		domain.Agent{ID: "a3", Name: "Cal", IsAvailable: false, PushToken: strPtr("ExponentPushToken[offline]")},
		domain.Agent{ID: "a4", Name: "Dee", IsAvailable: true, WebPushSub: webSub("https://push/ok")},
		domain.Agent{ID: "a5", Name: "Eve", IsAvailable: true, WebPushSub: webSub("https://push/expired")},
		domain.Agent{ID: "a6", Name: "Fox", IsAvailable: true, WebPushSub: webSub("https://push/fail")},
	)
	mobile := &fakeMobilePusher{failFor: map[string]error{
		"ExponentPushToken[bad]": errors.New("DeviceNotRegistered"),
	}}
	web := &fakeWebPusher{
		enabled:    true,
		expiredFor: map[string]bool{"https://push/expired": true},
		failFor:    map[string]error{"https://push/fail": errors.New("503 from push service")},
	}

	svc := NewNotificationService(repo, mobile, web, zap.NewNop(), observability.NewMetrics())
	result := svc.NotifyAvailableAgents(context.Background(), Alert{Title: "📞 Jane Doe", Body: "+15551234567"})

	assert.Equal(t, DeliveryStats{Sent: 1, Failed: 1}, result.Mobile)
	assert.Equal(t, DeliveryStats{Sent: 1, Expired: 1, Failed: 1}, result.Web)
	assert.Equal(t, []string{"ExponentPushToken[ok]"}, mobile.sent)
}

func TestNotifyPrunesExpiredWebSubscription(t *testing.T) {
	repo := newFakeAgentRepo(
		domain.Agent{ID: "a1", Name: "Ana", IsAvailable: true, WebPushSub: webSub("https://push/expired")},
		domain.Agent{ID: "a2", Name: "Ben", IsAvailable: true, WebPushSub: webSub("https://push/fail")},
	)
	web := &fakeWebPusher{
		enabled:    true,
		expiredFor: map[string]bool{"https://push/expired": true},
		failFor:    map[string]error{"https://push/fail": errors.New("network unreachable")},
	}

	svc := NewNotificationService(repo, &fakeMobilePusher{}, web, zap.NewNop(), observability.NewMetrics())
	svc.NotifyAvailableAgents(context.Background(), Alert{Title: "test"})

	expired, err := repo.GetByID(context.Background(), "a1")
	require.NoError(t, err)
	assert.Nil(t, expired.WebPushSub, "expired subscription must be cleared")

	failed, err := repo.GetByID(context.Background(), "a2")
	require.NoError(t, err)
	assert.NotNil(t, failed.WebPushSub, "transient failure must keep the subscription")
}

func TestNotifySkipsWebWhenDisabled(t *testing.T) {
	repo := newFakeAgentRepo(
		domain.Agent{ID: "a1", Name: "Ana", IsAvailable: true, WebPushSub: webSub("https://push/ok")},
	)
	web := &fakeWebPusher{enabled: false}

	svc := NewNotificationService(repo, &fakeMobilePusher{}, web, zap.NewNop(), observability.NewMetrics())
	result := svc.NotifyAvailableAgents(context.Background(), Alert{Title: "test"})

	assert.Zero(t, result.Web)
	assert.Empty(t, web.sent)
}
