package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/pageflow/internal/service"
	"github.com/maheshrc27/pageflow/internal/transfer"
)

type TokenHandler struct {
	s service.FacebookService
}

func NewTokenHandler(s service.FacebookService) *TokenHandler {
	return &TokenHandler{s: s}
}

// Login redirects to the Facebook consent screen for the named app.
func (h *TokenHandler) Login(c *fiber.Ctx) error {
	appName := c.Query("app_name", "default")

	loginURL, err := h.s.LoginURL(appName, appName)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.Redirect(loginURL)
}

// LoginCallback receives the oauth code; the state carries the app name.
func (h *TokenHandler) LoginCallback(c *fiber.Ctx) error {
	code := c.Query("code")
	appName := c.Query("state", "default")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "missing code",
		})
	}

	if err := h.s.HandleCallback(c.Context(), appName, code); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "something went wrong",
		})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"app_name": appName,
	})
}

// SaveToken stores a manually supplied token, upgrading it to long-lived.
func (h *TokenHandler) SaveToken(c *fiber.Ctx) error {
	var req transfer.SaveTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if err := h.s.SaveToken(c.Context(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *TokenHandler) ListTokens(c *fiber.Ctx) error {
	tokens, err := h.s.ListTokens(c.Context())
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list tokens",
		})
	}
	return c.Status(fiber.StatusOK).JSON(tokens)
}

func (h *TokenHandler) DeleteToken(c *fiber.Ctx) error {
	appName := c.Params("app_name")
	if appName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "app_name is required",
		})
	}

	if err := h.s.DeleteToken(c.Context(), appName); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to delete token",
		})
	}
	return c.SendStatus(fiber.StatusOK)
}

// ListPages resolves the pages reachable with the stored token.
func (h *TokenHandler) ListPages(c *fiber.Ctx) error {
	appName := c.Query("app_name", "default")

	pages, err := h.s.ListPages(c.Context(), appName)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.Status(fiber.StatusOK).JSON(pages)
}
