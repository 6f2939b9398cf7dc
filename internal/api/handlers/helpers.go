package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/maheshrc27/pageflow/internal/models"
)

// jobKey pulls the (kind, page_id) pair every job route is keyed by.
func jobKey(c *fiber.Ctx) (models.JobKind, string, error) {
	kind := models.JobKind(c.Params("kind"))
	switch kind {
	case models.JobKindVideo, models.JobKindStory, models.JobKindReels:
	default:
		return "", "", fiber.NewError(fiber.StatusBadRequest, "kind must be video, story or reels")
	}

	pageID := c.Params("page_id")
	if pageID == "" {
		return "", "", fiber.NewError(fiber.StatusBadRequest, "page_id is required")
	}
	return kind, pageID, nil
}
