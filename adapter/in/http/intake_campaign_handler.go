package http

import (
	"intake_server/core/port/in"
	"intake_server/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// CampaignHandler serves the campaign management routes.
type CampaignHandler struct {
	campaigns in.CampaignService
	validate  *validator.Validate
}

func NewCampaignHandler(campaigns in.CampaignService, validate *validator.Validate) *CampaignHandler {
	if validate == nil {
		validate = NewValidator()
	}
	return &CampaignHandler{campaigns: campaigns, validate: validate}
}

// Register mounts the routes under /campaigns, behind mw.
func (h *CampaignHandler) Register(router fiber.Router, mw ...fiber.Handler) {
	campaigns := router.Group("/campaigns", mw...)
	campaigns.Get("/", h.List)
	campaigns.Get("/stats", h.Stats)
	campaigns.Get("/:id", h.Get)
	campaigns.Post("/", h.Create)
}

func (h *CampaignHandler) List(c *fiber.Ctx) error {
	page := response.GetPagination(c, 50, 100)

	campaigns, total, err := h.campaigns.ListCampaigns(c.UserContext(), page.Limit, page.Offset)
	if err != nil {
		return err
	}

	return response.OKWithMeta(c, campaigns, &response.Meta{
		Total:   total,
		Limit:   page.Limit,
		Offset:  page.Offset,
		HasMore: page.Offset+len(campaigns) < total,
	})
}

func (h *CampaignHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.campaigns.CampaignStats(c.UserContext())
	if err != nil {
		return err
	}
	return response.OK(c, stats)
}

func (h *CampaignHandler) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	campaign, err := h.campaigns.GetCampaign(c.UserContext(), id)
	if err != nil {
		return err
	}
	return response.OK(c, campaign)
}

func (h *CampaignHandler) Create(c *fiber.Ctx) error {
	var req in.CreateCampaignRequest
	if err := bindAndValidate(c, h.validate, &req); err != nil {
		return err
	}

	campaign, err := h.campaigns.CreateCampaign(c.UserContext(), &req)
	if err != nil {
		return err
	}
	return response.Created(c, campaign)
}
