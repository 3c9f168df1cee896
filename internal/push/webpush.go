package push

import (
	"context"
	"fmt"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"github.com/supportbase/keel/internal/config"
	"github.com/supportbase/keel/internal/domain"
)

// WebPushClient delivers browser push notifications signed with VAPID keys.
type WebPushClient struct {
	publicKey  string
	privateKey string
	subscriber string
	ttl        int
	logger     *zap.Logger
}

// NewWebPushClient builds a client; with missing VAPID keys it stays
// disabled and reports every send as delivered-nowhere.
func NewWebPushClient(cfg config.PushConfig, logger *zap.Logger) *WebPushClient {
	if cfg.VAPIDPublicKey == "" || cfg.VAPIDPrivateKey == "" {
		logger.Warn("web push: VAPID keys not set, channel disabled")
	} else {
		logger.Info("web push configured with VAPID keys")
	}
	return &WebPushClient{
		publicKey:  cfg.VAPIDPublicKey,
		privateKey: cfg.VAPIDPrivateKey,
		subscriber: cfg.VAPIDSubject,
		ttl:        cfg.TTLSeconds,
		logger:     logger,
	}
}

// Enabled reports whether VAPID keys are configured.
func (c *WebPushClient) Enabled() bool {
	return c.publicKey != "" && c.privateKey != ""
}

// PublicKey returns the VAPID public key handed to browsers.
func (c *WebPushClient) PublicKey() string {
	return c.publicKey
}

// Send pushes a payload to one subscription. The expired return is true
// when the endpoint reports the subscription gone (410) or unknown (404);
// the stored subscription should then be cleared by the caller. Transport
// errors are returned as err and must not be treated as expiry.
func (c *WebPushClient) Send(ctx context.Context, sub domain.WebPushSubscription, payload []byte) (expired bool, err error) {
	if !c.Enabled() {
		return false, nil
	}

	target := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.Keys.P256dh,
			Auth:   sub.Keys.Auth,
		},
	}
	res, err := webpush.SendNotificationWithContext(ctx, payload, target, &webpush.Options{
		TTL:             c.ttl,
		Subscriber:      c.subscriber,
		VAPIDPublicKey:  c.publicKey,
		VAPIDPrivateKey: c.privateKey,
	})
	if err != nil {
		return false, err
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusGone || res.StatusCode == http.StatusNotFound:
		return true, nil
	case res.StatusCode >= 400:
		return false, fmt.Errorf("web push error %d", res.StatusCode)
	}
	return false, nil
}
