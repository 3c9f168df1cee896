package domain

import "time"

// SenderType indicates who authored a ticket message.
type SenderType string

const (
	SenderCustomer SenderType = "customer"
	SenderAgent    SenderType = "agent"
	SenderSystem   SenderType = "system"
)

// TicketMessage captures one utterance in a ticket thread. Append-only.
type TicketMessage struct {
	ID            string
	TicketID      string
	SenderType    SenderType
	SenderAgentID *string
	Body          string
	CreatedAt     time.Time
}
