package http

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"intake_server/core/domain"
	"intake_server/core/port/in"
	"intake_server/pkg/apperr"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// MessageRequest is the body of POST /api/v1/messages.
type MessageRequest struct {
	ExternalID     string `json:"external_id" validate:"required,min=1,max=255"`
	SenderName     string `json:"sender_name" validate:"required,min=1,max=255"`
	SenderEmail    string `json:"sender_email" validate:"required,email,max=255"`
	RecipientEmail string `json:"recipient_email" validate:"required,email,max=255"`
	Subject        string `json:"subject" validate:"max=500"`
	Message        string `json:"message" validate:"required,min=10,max=10000"`
	Timestamp      string `json:"timestamp" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	ChannelSource  string `json:"channel_source,omitempty" validate:"max=100"`
	CampaignHint   string `json:"campaign_hint,omitempty" validate:"max=255"`
}

// MessageResponse is returned for every outcome except internal errors.
type MessageResponse struct {
	Success       bool     `json:"success"`
	MessageID     int64    `json:"message_id,omitempty"`
	Status        string   `json:"status"`
	CampaignID    int64    `json:"campaign_id,omitempty"`
	CampaignName  string   `json:"campaign_name,omitempty"`
	Confidence    *float64 `json:"confidence,omitempty"`
	DuplicateRank *int     `json:"duplicate_rank,omitempty"`
	Errors        []string `json:"errors,omitempty"`
}

// FailureResponse is returned for invalid input and internal errors.
type FailureResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// MessageHandler accepts messages submitted directly over HTTP.
type MessageHandler struct {
	ingest   in.IngestionService
	validate *validator.Validate
}

func NewMessageHandler(ingest in.IngestionService, validate *validator.Validate) *MessageHandler {
	if validate == nil {
		validate = NewValidator()
	}
	return &MessageHandler{ingest: ingest, validate: validate}
}

// Register mounts POST /messages; mw (rate limiting) runs first.
func (h *MessageHandler) Register(router fiber.Router, mw ...fiber.Handler) {
	router.Post("/messages", append(mw, h.Submit)...)
}

func (h *MessageHandler) Submit(c *fiber.Ctx) error {
	var req MessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(FailureResponse{
			Error:   "Invalid input data",
			Details: "request body must be a JSON object",
		})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(FailureResponse{
			Error:   "Invalid input data",
			Details: strings.Join(ValidationMessages(err), "; "),
		})
	}

	sentAt, err := time.Parse(time.RFC3339, req.Timestamp)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(FailureResponse{
			Error:   "Invalid input data",
			Details: "timestamp: must be RFC 3339",
		})
	}

	channelSource := req.ChannelSource
	if channelSource == "" {
		channelSource = domain.ChannelSourceUnknown
	}

	outcome := h.ingest.Ingest(c.UserContext(), &domain.InboundMessage{
		ExternalID:     req.ExternalID,
		Channel:        domain.ChannelAPI,
		ChannelSource:  channelSource,
		SenderName:     req.SenderName,
		SenderEmail:    req.SenderEmail,
		RecipientEmail: req.RecipientEmail,
		Subject:        req.Subject,
		Body:           req.Message,
		SentAt:         sentAt.UTC(),
		CampaignHint:   req.CampaignHint,
	})

	return writeOutcome(c, outcome)
}

func writeOutcome(c *fiber.Ctx, outcome domain.Outcome) error {
	switch o := outcome.(type) {
	case domain.Processed:
		confidence := o.Classification.Confidence
		rank := o.DuplicateRank
		return c.JSON(MessageResponse{
			Success:       true,
			MessageID:     o.MessageID,
			Status:        "processed",
			CampaignID:    o.Classification.CampaignID,
			CampaignName:  o.Classification.CampaignName,
			Confidence:    &confidence,
			DuplicateRank: &rank,
		})

	case domain.Duplicate:
		return c.Status(fiber.StatusConflict).JSON(MessageResponse{
			Status: "duplicate",
			Errors: []string{fmt.Sprintf("Message with external_id %s already exists", o.ExternalID)},
		})

	case domain.PoliticianNotFound:
		return c.Status(fiber.StatusNotFound).JSON(MessageResponse{
			Status: "politician_not_found",
			Errors: []string{fmt.Sprintf("No politician found for email: %s", o.RecipientEmail)},
		})

	case domain.ContentTooShort:
		return c.Status(fiber.StatusBadRequest).JSON(MessageResponse{
			Status: "failed",
			Errors: []string{fmt.Sprintf("Message content too short (%d characters, minimum %d)", o.Length, domain.MinContentLength)},
		})

	case domain.ProcessingError:
		var appErr *apperr.AppError
		if errors.As(o.Err, &appErr) {
			c.Set("X-Error-Code", appErr.Code)
		}
		return c.Status(fiber.StatusInternalServerError).JSON(FailureResponse{
			Error:   "Internal server error",
			Details: o.Reason,
		})

	default:
		return apperr.Internal("unknown ingestion outcome")
	}
}
