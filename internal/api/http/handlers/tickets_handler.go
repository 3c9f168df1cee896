package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/supportbase/keel/internal/api/dto"
	"github.com/supportbase/keel/internal/auth"
	"github.com/supportbase/keel/internal/domain"
	"github.com/supportbase/keel/internal/repository"
	"github.com/supportbase/keel/internal/service"
	apperrors "github.com/supportbase/keel/pkg/util"
)

// TicketsHandler manages operator ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	filter := parseTicketQuery(c)
	items, total, err := h.service.ListTickets(c.UserContext(), filter)
	if err != nil {
		return err
	}

	tickets := make([]dto.TicketSummary, 0, len(items))
	for i := range items {
		tickets = append(tickets, ticketSummary(&items[i].Ticket, items[i].LastMessage, items[i].MessageCount))
	}
	return c.JSON(dto.TicketListResponse{
		Tickets: tickets,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, msgs, err := h.service.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"ticket": ticketDetail(ticket, msgs)})
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	agent, ok := auth.AgentFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("agent required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.service.CreateTicket(c.UserContext(), agent.ID, service.TicketCreateInput{
		Channel:           domain.TicketChannel(req.Channel),
		Subject:           req.Subject,
		CustomerName:      req.CustomerName,
		CustomerEmail:     req.CustomerEmail,
		CustomerPhone:     req.CustomerPhone,
		ShopifyCustomerID: req.ShopifyCustomerID,
		Priority:          domain.TicketPriority(req.Priority),
		Body:              req.Body,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"ticket": ticketSummary(ticket, nil, 0)})
}

// UpdateTicket PUT /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.TicketUpdateInput{
		AssignedAgentID:  req.AssignedAgentID,
		ResolutionType:   req.ResolutionType,
		ResolutionReason: req.ResolutionReason,
	}
	if req.Status != nil {
		status := domain.TicketStatus(*req.Status)
		input.Status = &status
	}
	if req.Priority != nil {
		priority := domain.TicketPriority(*req.Priority)
		input.Priority = &priority
	}

	ticket, err := h.service.UpdateTicket(c.UserContext(), c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"ticket": ticketSummary(ticket, nil, 0)})
}

// AddMessage POST /tickets/:id/messages.
func (h *TicketsHandler) AddMessage(c *fiber.Ctx) error {
	agent, ok := auth.AgentFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("agent required")
	}
	var req dto.CreateMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	senderType := domain.SenderAgent
	if req.SenderType != "" {
		senderType = domain.SenderType(req.SenderType)
	}
	msg, err := h.service.AddMessage(c.UserContext(), agent.ID, c.Params("id"), senderType, req.Body)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"message": messageResponse(msg)})
}

func parseTicketQuery(c *fiber.Ctx) repository.TicketFilter {
	filter := repository.TicketFilter{Limit: 50}

	if raw := c.Query("channel"); raw != "" {
		channel := domain.TicketChannel(raw)
		filter.Channel = &channel
	}
	if raw := c.Query("status"); raw != "" {
		filter.Statuses = []domain.TicketStatus{domain.TicketStatus(raw)}
	}
	if raw := c.Query("priority"); raw != "" {
		filter.Priorities = []domain.TicketPriority{domain.TicketPriority(raw)}
	}
	if raw := c.Query("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit > 0 {
			filter.Limit = limit
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if offset, err := strconv.Atoi(raw); err == nil && offset >= 0 {
			filter.Offset = offset
		}
	}
	return filter
}

func ticketSummary(ticket *domain.Ticket, last *domain.TicketMessage, count int64) dto.TicketSummary {
	summary := dto.TicketSummary{
		ID:               ticket.ID,
		ExternalKey:      ticket.ExternalKey,
		Channel:          string(ticket.Channel),
		Status:           string(ticket.Status),
		Priority:         string(ticket.Priority),
		Subject:          ticket.Subject,
		CustomerName:     ticket.CustomerName,
		CustomerEmail:    ticket.CustomerEmail,
		CustomerPhone:    ticket.CustomerPhone,
		AssignedAgentID:  ticket.AssignedAgentID,
		MessageCount:     count,
		CreatedAt:        ticket.CreatedAt,
		UpdatedAt:        ticket.UpdatedAt,
		ResolvedAt:       ticket.ResolvedAt,
		ResolutionType:   ticket.ResolutionType,
		ResolutionReason: ticket.ResolutionReason,
	}
	if last != nil {
		response := messageResponse(last)
		summary.LastMessage = &response
	}
	return summary
}

func ticketDetail(ticket *domain.Ticket, msgs []domain.TicketMessage) dto.TicketDetail {
	detail := dto.TicketDetail{
		TicketSummary:     ticketSummary(ticket, nil, int64(len(msgs))),
		ShopifyCustomerID: ticket.ShopifyCustomerID,
		Messages:          make([]dto.MessageResponse, 0, len(msgs)),
	}
	for i := range msgs {
		detail.Messages = append(detail.Messages, messageResponse(&msgs[i]))
	}
	return detail
}

func messageResponse(msg *domain.TicketMessage) dto.MessageResponse {
	return dto.MessageResponse{
		ID:            msg.ID,
		TicketID:      msg.TicketID,
		SenderType:    string(msg.SenderType),
		SenderAgentID: msg.SenderAgentID,
		Body:          msg.Body,
		CreatedAt:     msg.CreatedAt,
	}
}
