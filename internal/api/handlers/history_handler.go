package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/pageflow/internal/repository"
)

type HistoryHandler struct {
	r repository.UploadHistoryRepository
}

func NewHistoryHandler(r repository.UploadHistoryRepository) *HistoryHandler {
	return &HistoryHandler{r: r}
}

func (h *HistoryHandler) ListHistory(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 100)
	pageID := c.Query("page_id")

	if pageID != "" {
		records, err := h.r.ListByPage(c.Context(), pageID, limit)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unable to list history",
			})
		}
		return c.Status(fiber.StatusOK).JSON(records)
	}

	records, err := h.r.ListRecent(c.Context(), limit)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list history",
		})
	}
	return c.Status(fiber.StatusOK).JSON(records)
}

func (h *HistoryHandler) Stats(c *fiber.Ctx) error {
	days := c.QueryInt("days", 30)
	if days <= 0 || days > 365 {
		days = 30
	}

	stats, err := h.r.Stats(c.Context(), time.Now().AddDate(0, 0, -days))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to compute stats",
		})
	}
	return c.Status(fiber.StatusOK).JSON(stats)
}
