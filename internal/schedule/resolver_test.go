package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maheshrc27/pageflow/internal/jobpool"
	"github.com/maheshrc27/pageflow/internal/models"
)

type fakeStore struct {
	tpl *models.ScheduleTemplate
	err error
}

func (s *fakeStore) GetByID(ctx context.Context, id int64) (*models.ScheduleTemplate, error) {
	return s.tpl, s.err
}

func fixedResolver(store TemplateStore, now time.Time) *Resolver {
	r := NewResolver(store)
	r.Now = func() time.Time { return now }
	r.Intn = func(n int) int { return 0 }
	return r
}

func smartJob(templateID int64, interval int) *jobpool.Job {
	return jobpool.New(&models.JobSnapshot{
		PageID:           "p1",
		IntervalSeconds:  interval,
		UseSmartSchedule: true,
		TemplateID:       &templateID,
		Video:            &models.VideoSettings{},
	})
}

func TestNextFromTemplateSameDay(t *testing.T) {
	tpl := &models.ScheduleTemplate{
		Times: []string{"20:00", "08:00"},
		Days:  models.AllWeekdays,
	}
	// Tuesday 07:00 local.
	ref := time.Date(2025, 6, 3, 7, 0, 0, 0, time.UTC)

	next, ok := NextFromTemplate(tpl, ref)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 6, 3, 8, 0, 0, 0, time.UTC), next)
}

func TestNextFromTemplateRollsToNextDay(t *testing.T) {
	tpl := &models.ScheduleTemplate{
		Times: []string{"08:00", "20:00"},
		Days:  models.AllWeekdays,
	}
	// Tuesday 21:00, past both slots.
	ref := time.Date(2025, 6, 3, 21, 0, 0, 0, time.UTC)

	next, ok := NextFromTemplate(tpl, ref)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 6, 4, 8, 0, 0, 0, time.UTC), next)
}

func TestNextFromTemplateSkipsInactiveDays(t *testing.T) {
	tpl := &models.ScheduleTemplate{
		Times: []string{"12:00"},
		Days:  []string{"fri"},
	}
	// Tuesday, next Friday is three days out.
	ref := time.Date(2025, 6, 3, 13, 0, 0, 0, time.UTC)

	next, ok := NextFromTemplate(tpl, ref)
	require.True(t, ok)
	assert.Equal(t, time.Friday, next.Weekday())
	assert.Equal(t, time.Date(2025, 6, 6, 12, 0, 0, 0, time.UTC), next)
}

func TestNextFromTemplateExactSlotNotReused(t *testing.T) {
	tpl := &models.ScheduleTemplate{
		Times: []string{"08:00"},
		Days:  models.AllWeekdays,
	}
	// Exactly at the slot: must roll forward, not fire again.
	ref := time.Date(2025, 6, 3, 8, 0, 0, 0, time.UTC)

	next, ok := NextFromTemplate(tpl, ref)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 6, 4, 8, 0, 0, 0, time.UTC), next)
}

func TestNextFromTemplateEmpty(t *testing.T) {
	_, ok := NextFromTemplate(&models.ScheduleTemplate{}, time.Now())
	assert.False(t, ok)

	_, ok = NextFromTemplate(&models.ScheduleTemplate{
		Times: []string{"25:99", "garbage"},
		Days:  []string{"mon"},
	}, time.Now())
	assert.False(t, ok)
}

func TestResolverSmartMode(t *testing.T) {
	now := time.Date(2025, 6, 3, 7, 0, 0, 0, time.UTC)
	store := &fakeStore{tpl: &models.ScheduleTemplate{
		ID:    1,
		Times: []string{"08:00"},
		Days:  models.AllWeekdays,
	}}
	r := fixedResolver(store, now)

	ts, mode := r.NextRun(smartJob(1, 3600))
	assert.Equal(t, ModeSmart, mode)
	assert.Equal(t, time.Date(2025, 6, 3, 8, 0, 0, 0, time.UTC).Unix(), ts)
}

func TestResolverRandomOffsetApplied(t *testing.T) {
	now := time.Date(2025, 6, 3, 7, 0, 0, 0, time.UTC)
	store := &fakeStore{tpl: &models.ScheduleTemplate{
		ID:                  1,
		Times:               []string{"08:00"},
		Days:                models.AllWeekdays,
		RandomOffsetMinutes: 15,
	}}
	r := fixedResolver(store, now)
	// Intn(2*900+1) == 1800 maps to +900s, the top of the window.
	r.Intn = func(n int) int { return n - 1 }

	ts, mode := r.NextRun(smartJob(1, 3600))
	assert.Equal(t, ModeSmart, mode)
	assert.Equal(t, time.Date(2025, 6, 3, 8, 15, 0, 0, time.UTC).Unix(), ts)
}

func TestResolverMissingTemplateFallsBack(t *testing.T) {
	now := time.Date(2025, 6, 3, 7, 0, 0, 0, time.UTC)
	r := fixedResolver(&fakeStore{}, now)

	job := smartJob(42, 600)
	job.Video.JitterEnabled = false
	ts, mode := r.NextRun(job)
	assert.Equal(t, ModeInterval, mode)
	assert.Equal(t, now.Unix()+600, ts)
}

func TestResolverStoreErrorFallsBack(t *testing.T) {
	now := time.Date(2025, 6, 3, 7, 0, 0, 0, time.UTC)
	r := fixedResolver(&fakeStore{err: errors.New("db closed")}, now)

	job := smartJob(1, 600)
	job.Video.JitterEnabled = false
	_, mode := r.NextRun(job)
	assert.Equal(t, ModeInterval, mode)
}

func TestResolverIntervalFloor(t *testing.T) {
	now := time.Date(2025, 6, 3, 7, 0, 0, 0, time.UTC)
	r := fixedResolver(&fakeStore{}, now)

	job := jobpool.New(&models.JobSnapshot{
		PageID:          "p1",
		IntervalSeconds: 0,
		Story:           &models.StorySettings{StoriesPerSchedule: 1},
	})
	ts, mode := r.NextRun(job)
	assert.Equal(t, ModeInterval, mode)
	assert.Equal(t, now.Unix()+1, ts)
}

func TestJitterInterval(t *testing.T) {
	// intn pinned low: 3600 - 360 = 3240.
	low := JitterInterval(3600, 10, func(n int) int { return 0 })
	assert.Equal(t, 3240, low)

	// intn pinned high: 3600 + 360.
	high := JitterInterval(3600, 10, func(n int) int { return n - 1 })
	assert.Equal(t, 3960, high)

	// Floor guards tiny intervals.
	floored := JitterInterval(20, 90, func(n int) int { return 0 })
	assert.Equal(t, 10, floored)

	// Zero percent is a no-op.
	assert.Equal(t, 3600, JitterInterval(3600, 0, nil))
}
