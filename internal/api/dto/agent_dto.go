package dto

import "time"

// LoginRequest carries agent credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AgentResponse is the public view of an agent.
type AgentResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	IsAvailable bool   `json:"isAvailable"`
}

// LoginResponse returns a session token.
type LoginResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expiresAt"`
	Agent     AgentResponse `json:"agent"`
}

// AvailabilityRequest toggles notification eligibility.
type AvailabilityRequest struct {
	Available bool `json:"available"`
}
