package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/compliance-core/internal/api/dto"
	"github.com/spec-kit/compliance-core/internal/service"
	apperrors "github.com/spec-kit/compliance-core/pkg/util"
)

// TicketsHandler exposes the orchestration core over HTTP. Authentication is
// handled upstream; requests carry the reporter account in the payload.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.TicketCreateInput{
		DDAID:            req.DDAID,
		ForensicEvidence: req.ForensicEvidence,
		FQDN:             req.FQDN,
		IPv4:             req.IPv4,
		IPv6:             req.IPv6,
		AssignedTo:       req.AssignedTo,
		CreatedBy:        req.CreatedBy,
		Description:      req.Description,
	}
	out, err := h.service.CreateTicket(c.UserContext(), input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.CreateTicketResponse{
		TicketID:   out.TicketID,
		RevokeTime: out.RevokeTime,
	}})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, logs, err := h.service.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketDetail(ticket, logs)})
}

// RemoveTicket DELETE /tickets/:id.
func (h *TicketsHandler) RemoveTicket(c *fiber.Ctx) error {
	if err := h.service.RemoveTicket(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
