package domain

import "time"

// AgentRole enumerates operator permission levels.
type AgentRole string

const (
	AgentRoleAgent AgentRole = "agent"
	AgentRoleAdmin AgentRole = "admin"
)

// WebPushKeys carries the client encryption keys of a web-push subscription.
type WebPushKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// WebPushSubscription is the browser push subscription object an agent opted in with.
type WebPushSubscription struct {
	Endpoint string      `json:"endpoint"`
	Keys     WebPushKeys `json:"keys"`
}

// Agent is an operator working the inbox.
type Agent struct {
	ID           string
	Email        string
	Name         string
	Role         AgentRole
	PasswordHash string
	IsAvailable  bool
	PushToken    *string
	WebPushSub   *WebPushSubscription
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
