package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/pageflow/internal/repository"
	"github.com/maheshrc27/pageflow/internal/service"
	"github.com/maheshrc27/pageflow/internal/transfer"
)

type TemplateHandler struct {
	s service.TemplateService
}

func NewTemplateHandler(s service.TemplateService) *TemplateHandler {
	return &TemplateHandler{s: s}
}

func (h *TemplateHandler) CreateTemplate(c *fiber.Ctx) error {
	var req transfer.CreateTemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	id, err := h.s.Create(c.Context(), &req)
	if err != nil {
		return h.templateError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id": id,
	})
}

func (h *TemplateHandler) UpdateTemplate(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid template id",
		})
	}

	var req transfer.CreateTemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if err := h.s.Update(c.Context(), int64(id), &req); err != nil {
		return h.templateError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *TemplateHandler) ListTemplates(c *fiber.Ctx) error {
	templates, err := h.s.List(c.Context())
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list templates",
		})
	}
	return c.Status(fiber.StatusOK).JSON(templates)
}

func (h *TemplateHandler) GetTemplate(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid template id",
		})
	}

	tpl, err := h.s.Get(c.Context(), int64(id))
	if err != nil {
		return h.templateError(c, err)
	}
	if tpl == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "template not found",
		})
	}
	return c.Status(fiber.StatusOK).JSON(tpl)
}

func (h *TemplateHandler) DeleteTemplate(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid template id",
		})
	}

	if err := h.s.Delete(c.Context(), int64(id)); err != nil {
		return h.templateError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *TemplateHandler) SetDefaultTemplate(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid template id",
		})
	}

	if err := h.s.SetDefault(c.Context(), int64(id)); err != nil {
		return h.templateError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *TemplateHandler) templateError(c *fiber.Ctx, err error) error {
	status := fiber.StatusBadRequest
	switch {
	case errors.Is(err, repository.ErrTemplateNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, repository.ErrTemplateNameTaken),
		errors.Is(err, repository.ErrDefaultTemplate):
		status = fiber.StatusConflict
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}
