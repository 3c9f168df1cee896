package dto

import "github.com/supportbase/keel/internal/domain"

// SubscribeRequest registers a web push subscription.
type SubscribeRequest struct {
	Subscription domain.WebPushSubscription `json:"subscription"`
}

// TokenRequest registers a mobile push token.
type TokenRequest struct {
	Token string `json:"token"`
}

// VapidKeyResponse hands the public VAPID key to browsers.
type VapidKeyResponse struct {
	PublicKey string `json:"publicKey"`
}
