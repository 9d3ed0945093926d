package http

import (
	"intake_server/core/domain"
	"intake_server/core/port/in"
	"intake_server/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// ReplyTemplateHandler serves the reply template routes.
type ReplyTemplateHandler struct {
	templates in.ReplyTemplateService
	validate  *validator.Validate
}

func NewReplyTemplateHandler(templates in.ReplyTemplateService, validate *validator.Validate) *ReplyTemplateHandler {
	if validate == nil {
		validate = NewValidator()
	}
	return &ReplyTemplateHandler{templates: templates, validate: validate}
}

func (h *ReplyTemplateHandler) Register(router fiber.Router, mw ...fiber.Handler) {
	templates := router.Group("/reply-templates", mw...)
	templates.Get("/", h.List)
	templates.Get("/:id", h.Get)
	templates.Post("/", h.Create)
}

// List supports politician_id, campaign_id and active filters.
func (h *ReplyTemplateHandler) List(c *fiber.Ctx) error {
	page := response.GetPagination(c, 50, 100)
	filter := &domain.ReplyTemplateFilter{
		PoliticianID: QueryInt64(c, "politician_id"),
		CampaignID:   QueryInt64(c, "campaign_id"),
		ActiveOnly:   QueryBool(c, "active", false),
		Limit:        page.Limit,
		Offset:       page.Offset,
	}

	templates, total, err := h.templates.ListTemplates(c.UserContext(), filter)
	if err != nil {
		return err
	}

	return response.OKWithMeta(c, templates, &response.Meta{
		Total:   total,
		Limit:   page.Limit,
		Offset:  page.Offset,
		HasMore: page.Offset+len(templates) < total,
	})
}

func (h *ReplyTemplateHandler) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	template, err := h.templates.GetTemplate(c.UserContext(), id)
	if err != nil {
		return err
	}
	return response.OK(c, template)
}

func (h *ReplyTemplateHandler) Create(c *fiber.Ctx) error {
	var req in.CreateReplyTemplateRequest
	if err := bindAndValidate(c, h.validate, &req); err != nil {
		return err
	}

	template, err := h.templates.CreateTemplate(c.UserContext(), &req)
	if err != nil {
		return err
	}
	return response.Created(c, template)
}
