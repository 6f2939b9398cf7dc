package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/pageflow/internal/service"
	"github.com/maheshrc27/pageflow/internal/transfer"
)

type JobHandler struct {
	s service.JobService
}

func NewJobHandler(s service.JobService) *JobHandler {
	return &JobHandler{s: s}
}

func (h *JobHandler) CreateJob(c *fiber.Ctx) error {
	var req transfer.CreateJobRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	job, err := h.s.Create(c.Context(), &req)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"kind":    job.Kind,
		"page_id": job.PageID,
	})
}

func (h *JobHandler) ListJobs(c *fiber.Ctx) error {
	jobs := h.s.List()

	statuses := make([]*transfer.JobStatusResponse, 0, len(jobs))
	for _, j := range jobs {
		status, err := h.s.Status(j.Kind, j.PageID)
		if err != nil {
			continue
		}
		statuses = append(statuses, status)
	}
	return c.Status(fiber.StatusOK).JSON(statuses)
}

func (h *JobHandler) GetJob(c *fiber.Ctx) error {
	kind, pageID, err := jobKey(c)
	if err != nil {
		return err
	}

	status, err := h.s.Status(kind, pageID)
	if err != nil {
		return h.jobError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(status)
}

func (h *JobHandler) DeleteJob(c *fiber.Ctx) error {
	kind, pageID, err := jobKey(c)
	if err != nil {
		return err
	}

	if err := h.s.Delete(c.Context(), kind, pageID); err != nil {
		return h.jobError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *JobHandler) EnableJob(c *fiber.Ctx) error {
	return h.setEnabled(c, true)
}

func (h *JobHandler) DisableJob(c *fiber.Ctx) error {
	return h.setEnabled(c, false)
}

func (h *JobHandler) setEnabled(c *fiber.Ctx, enabled bool) error {
	kind, pageID, err := jobKey(c)
	if err != nil {
		return err
	}

	if err := h.s.SetEnabled(c.Context(), kind, pageID, enabled); err != nil {
		return h.jobError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *JobHandler) StartSchedule(c *fiber.Ctx) error {
	kind, pageID, err := jobKey(c)
	if err != nil {
		return err
	}

	if err := h.s.StartSchedule(c.Context(), kind, pageID); err != nil {
		return h.jobError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *JobHandler) StopSchedule(c *fiber.Ctx) error {
	kind, pageID, err := jobKey(c)
	if err != nil {
		return err
	}

	if err := h.s.StopSchedule(c.Context(), kind, pageID); err != nil {
		return h.jobError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *JobHandler) CancelUpload(c *fiber.Ctx) error {
	kind, pageID, err := jobKey(c)
	if err != nil {
		return err
	}

	if err := h.s.CancelUpload(kind, pageID); err != nil {
		return h.jobError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *JobHandler) RunNow(c *fiber.Ctx) error {
	kind, pageID, err := jobKey(c)
	if err != nil {
		return err
	}

	if err := h.s.RunNow(c.Context(), kind, pageID); err != nil {
		return h.jobError(c, err)
	}
	return c.SendStatus(fiber.StatusAccepted)
}

func (h *JobHandler) jobError(c *fiber.Ctx, err error) error {
	status := fiber.StatusBadRequest
	if errors.Is(err, service.ErrJobNotFound) {
		status = fiber.StatusNotFound
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}
