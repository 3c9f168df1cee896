package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// IsActive reports whether a ticket in this status still needs attention.
func (s TicketStatus) IsActive() bool {
	return s == TicketStatusOpen || s == TicketStatusInProgress
}

// TicketChannel enumerates the medium a ticket arrived on.
type TicketChannel string

const (
	ChannelPhone      TicketChannel = "phone"
	ChannelText       TicketChannel = "text"
	ChannelShopifyWeb TicketChannel = "shopify-web"
)

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityNormal TicketPriority = "normal"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// Ticket is the aggregate for a unit of customer contact.
type Ticket struct {
	ID                string
	ExternalKey       string
	Channel           TicketChannel
	Status            TicketStatus
	Priority          TicketPriority
	Subject           string
	CustomerName      *string
	CustomerEmail     *string
	CustomerPhone     string
	ShopifyCustomerID *string
	AssignedAgentID   *string
	ResolutionType    *string
	ResolutionReason  *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	ResolvedAt        *time.Time
}
