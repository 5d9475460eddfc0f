package dto

import (
	"time"

	"github.com/spec-kit/compliance-core/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	DDAID            string            `json:"dda_id"`
	ForensicEvidence map[string]string `json:"forensic_evidence"`
	FQDN             []string          `json:"fqdn"`
	IPv4             []string          `json:"ipv4"`
	IPv6             []string          `json:"ipv6"`
	AssignedTo       []string          `json:"assigned_to"`
	CreatedBy        string            `json:"created_by"`
	Description      string            `json:"description"`
}

// CreateTicketResponse returns the identifier and the removal window.
type CreateTicketResponse struct {
	TicketID   string `json:"ticket_id"`
	RevokeTime int    `json:"revoke_time"`
}

// TicketLogLine is one audit entry.
type TicketLogLine struct {
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketID    string              `json:"ticket_id"`
	DDAID       string              `json:"dda_id"`
	Description string              `json:"description,omitempty"`
	FQDN        []string            `json:"fqdn"`
	IPv4        []string            `json:"ipv4"`
	IPv6        []string            `json:"ipv6"`
	AssignedTo  []string            `json:"assigned_to"`
	Status      domain.TicketStatus `json:"status"`
	RevokeTime  int                 `json:"revoke_time"`
	Autoclose   int                 `json:"autoclose_time"`
	Tasks       []string            `json:"tasks"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	CreatedBy   string              `json:"created_by"`
	Logs        []TicketLogLine     `json:"logs"`
}

// TicketDetail maps the aggregate onto the response shape.
func TicketDetail(ticket *domain.Ticket, logs []domain.TicketLog) TicketDetailResponse {
	lines := make([]TicketLogLine, 0, len(logs))
	for _, entry := range logs {
		lines = append(lines, TicketLogLine{Message: entry.Message, CreatedAt: entry.CreatedAt})
	}
	return TicketDetailResponse{
		TicketID:    ticket.ID,
		DDAID:       ticket.DDAID,
		Description: ticket.Description,
		FQDN:        ticket.FQDN,
		IPv4:        ticket.IPv4,
		IPv6:        ticket.IPv6,
		AssignedTo:  ticket.AssignedTo,
		Status:      ticket.Status,
		RevokeTime:  ticket.Settings.RevokeTime,
		Autoclose:   ticket.Settings.AutocloseTime,
		Tasks:       ticket.Tasks,
		CreatedAt:   ticket.CreatedAt,
		UpdatedAt:   ticket.UpdatedAt,
		CreatedBy:   ticket.CreatedBy,
		Logs:        lines,
	}
}
