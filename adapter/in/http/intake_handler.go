// Package http carries the inbound HTTP adapters.
package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/weapplyse/weapply-pm/core/domain"
	"github.com/weapplyse/weapply-pm/core/port/in"
	"github.com/weapplyse/weapply-pm/pkg/apperr"
	"github.com/weapplyse/weapply-pm/pkg/response"
)

// maxContentBytes bounds the email body we accept. Reformatted emails are
// text; anything larger is junk or an attachment that belongs elsewhere.
const maxContentBytes = 512 * 1024

// IntakeHandler receives reformatted emails and runs them through triage.
type IntakeHandler struct {
	triage in.TriageUseCase
}

// NewIntakeHandler creates the handler.
func NewIntakeHandler(triage in.TriageUseCase) *IntakeHandler {
	return &IntakeHandler{triage: triage}
}

// Register mounts the intake routes.
func (h *IntakeHandler) Register(router fiber.Router) {
	router.Post("/intake/email", h.Intake)
}

type intakeRequest struct {
	Subject   string `json:"subject"`
	Content   string `json:"content"`
	MessageID string `json:"message_id"`
}

// Intake handles POST /api/v1/intake/email.
func (h *IntakeHandler) Intake(c *fiber.Ctx) error {
	var req intakeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}

	if strings.TrimSpace(req.Content) == "" {
		return apperr.MissingField("content")
	}
	if len(req.Content) > maxContentBytes {
		return apperr.ValidationFailed("content exceeds maximum size")
	}

	decision, err := h.triage.Process(c.Context(), &domain.InboundEmail{
		Subject:   req.Subject,
		Content:   req.Content,
		MessageID: req.MessageID,
	})
	if err != nil {
		return err
	}

	return response.Created(c, decision)
}
