package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/maheshrc27/pageflow/internal/models"
	"github.com/maheshrc27/pageflow/internal/repository"
	"github.com/maheshrc27/pageflow/internal/transfer"
)

// TemplateService validates and manages posting-time templates.
type TemplateService interface {
	Create(ctx context.Context, req *transfer.CreateTemplateRequest) (int64, error)
	Update(ctx context.Context, id int64, req *transfer.CreateTemplateRequest) error
	Delete(ctx context.Context, id int64) error
	SetDefault(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*models.ScheduleTemplate, error)
	List(ctx context.Context) ([]*models.ScheduleTemplate, error)
}

type templateService struct {
	t repository.TemplateRepository
}

func NewTemplateService(t repository.TemplateRepository) TemplateService {
	return &templateService{t: t}
}

func (s *templateService) Create(ctx context.Context, req *transfer.CreateTemplateRequest) (int64, error) {
	tpl, err := templateFromRequest(req)
	if err != nil {
		return 0, err
	}

	id, err := s.t.Create(ctx, tpl)
	if err != nil {
		return 0, err
	}
	if req.SetDefault {
		if err := s.t.SetDefault(ctx, id); err != nil {
			return id, err
		}
	}
	return id, nil
}

func (s *templateService) Update(ctx context.Context, id int64, req *transfer.CreateTemplateRequest) error {
	tpl, err := templateFromRequest(req)
	if err != nil {
		return err
	}
	tpl.ID = id

	if err := s.t.Update(ctx, tpl); err != nil {
		return err
	}
	if req.SetDefault {
		return s.t.SetDefault(ctx, id)
	}
	return nil
}

func (s *templateService) Delete(ctx context.Context, id int64) error     { return s.t.Delete(ctx, id) }
func (s *templateService) SetDefault(ctx context.Context, id int64) error { return s.t.SetDefault(ctx, id) }

func (s *templateService) Get(ctx context.Context, id int64) (*models.ScheduleTemplate, error) {
	return s.t.GetByID(ctx, id)
}

func (s *templateService) List(ctx context.Context) ([]*models.ScheduleTemplate, error) {
	return s.t.List(ctx)
}

func templateFromRequest(req *transfer.CreateTemplateRequest) (*models.ScheduleTemplate, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, errors.New("template name is required")
	}
	if len(req.Times) == 0 {
		return nil, errors.New("at least one posting time is required")
	}
	for _, t := range req.Times {
		if !validClock(t) {
			return nil, fmt.Errorf("invalid posting time %q, expected HH:MM", t)
		}
	}

	days := req.Days
	if len(days) == 0 {
		days = models.AllWeekdays
	}
	for _, d := range days {
		if !validWeekday(d) {
			return nil, fmt.Errorf("invalid weekday %q", d)
		}
	}

	offset := req.RandomOffsetMinutes
	if offset < 0 {
		offset = 0
	}

	return &models.ScheduleTemplate{
		Name:                name,
		Times:               req.Times,
		Days:                days,
		RandomOffsetMinutes: offset,
	}, nil
}

func validClock(s string) bool {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return false
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	return err1 == nil && err2 == nil && h >= 0 && h <= 23 && m >= 0 && m <= 59
}

func validWeekday(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mon", "tue", "wed", "thu", "fri", "sat", "sun":
		return true
	}
	return false
}
