package dto

import "time"

// CreateTicketRequest describes an agent-initiated ticket.
type CreateTicketRequest struct {
	Channel           string  `json:"channel"`
	Subject           string  `json:"subject"`
	CustomerName      *string `json:"customerName"`
	CustomerEmail     *string `json:"customerEmail"`
	CustomerPhone     string  `json:"customerPhone"`
	ShopifyCustomerID *string `json:"shopifyCustomerId"`
	Priority          string  `json:"priority"`
	Body              string  `json:"body"`
}

// UpdateTicketRequest is a partial operator update.
type UpdateTicketRequest struct {
	Status           *string `json:"status"`
	Priority         *string `json:"priority"`
	AssignedAgentID  *string `json:"assignedAgentId"`
	ResolutionType   *string `json:"resolutionType"`
	ResolutionReason *string `json:"resolutionReason"`
}

// CreateMessageRequest appends a message to a thread.
type CreateMessageRequest struct {
	Body       string `json:"body"`
	SenderType string `json:"senderType"`
}

// MessageResponse is one thread entry.
type MessageResponse struct {
	ID            string    `json:"id"`
	TicketID      string    `json:"ticketId"`
	SenderType    string    `json:"senderType"`
	SenderAgentID *string   `json:"senderAgentId,omitempty"`
	Body          string    `json:"body"`
	CreatedAt     time.Time `json:"createdAt"`
}

// TicketSummary is one row of the inbox listing.
type TicketSummary struct {
	ID               string           `json:"id"`
	ExternalKey      string           `json:"externalKey"`
	Channel          string           `json:"channel"`
	Status           string           `json:"status"`
	Priority         string           `json:"priority"`
	Subject          string           `json:"subject"`
	CustomerName     *string          `json:"customerName"`
	CustomerEmail    *string          `json:"customerEmail"`
	CustomerPhone    string           `json:"customerPhone"`
	AssignedAgentID  *string          `json:"assignedAgentId"`
	LastMessage      *MessageResponse `json:"lastMessage"`
	MessageCount     int64            `json:"messageCount"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
	ResolvedAt       *time.Time       `json:"resolvedAt"`
	ResolutionType   *string          `json:"resolutionType,omitempty"`
	ResolutionReason *string          `json:"resolutionReason,omitempty"`
}

// TicketDetail is a full ticket with its message thread.
type TicketDetail struct {
	TicketSummary
	ShopifyCustomerID *string           `json:"shopifyCustomerId"`
	Messages          []MessageResponse `json:"messages"`
}

// TicketListResponse pages the inbox.
type TicketListResponse struct {
	Tickets []TicketSummary `json:"tickets"`
	Total   int64           `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}
