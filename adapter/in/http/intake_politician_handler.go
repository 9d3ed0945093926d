package http

import (
	"intake_server/core/domain"
	"intake_server/core/port/in"
	"intake_server/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// PoliticianHandler serves the read-only politician routes.
type PoliticianHandler struct {
	politicians in.PoliticianService
}

func NewPoliticianHandler(politicians in.PoliticianService) *PoliticianHandler {
	return &PoliticianHandler{politicians: politicians}
}

func (h *PoliticianHandler) Register(router fiber.Router, mw ...fiber.Handler) {
	politicians := router.Group("/politicians", mw...)
	politicians.Get("/", h.List)
	politicians.Get("/:id", h.Get)
}

func (h *PoliticianHandler) List(c *fiber.Ctx) error {
	page := response.GetPagination(c, 50, 100)
	filter := &domain.PoliticianFilter{
		ActiveOnly: QueryBool(c, "active", true),
		Limit:      page.Limit,
		Offset:     page.Offset,
	}

	politicians, total, err := h.politicians.ListPoliticians(c.UserContext(), filter)
	if err != nil {
		return err
	}

	return response.OKWithMeta(c, politicians, &response.Meta{
		Total:   total,
		Limit:   page.Limit,
		Offset:  page.Offset,
		HasMore: page.Offset+len(politicians) < total,
	})
}

func (h *PoliticianHandler) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	politician, err := h.politicians.GetPolitician(c.UserContext(), id)
	if err != nil {
		return err
	}
	return response.OK(c, politician)
}
