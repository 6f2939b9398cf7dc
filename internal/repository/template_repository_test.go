package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maheshrc27/pageflow/internal/models"
)

func testDB(t *testing.T) *TestDeps {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &TestDeps{
		Templates: NewTemplateRepository(db),
		Jobs:      NewJobRepository(db),
		History:   NewUploadHistoryRepository(db),
		Tokens:    NewAppTokenRepository(db),
	}
}

type TestDeps struct {
	Templates TemplateRepository
	Jobs      JobRepository
	History   UploadHistoryRepository
	Tokens    AppTokenRepository
}

func TestTemplateCRUD(t *testing.T) {
	deps := testDB(t)
	ctx := context.Background()

	id, err := deps.Templates.Create(ctx, &models.ScheduleTemplate{
		Name:                "evenings",
		Times:               []string{"18:00", "21:30"},
		Days:                []string{"mon", "wed", "fri"},
		RandomOffsetMinutes: 15,
	})
	require.NoError(t, err)

	got, err := deps.Templates.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "evenings", got.Name)
	assert.Equal(t, []string{"18:00", "21:30"}, got.Times)
	assert.Equal(t, []string{"mon", "wed", "fri"}, got.Days)
	assert.Equal(t, 15, got.RandomOffsetMinutes)
	assert.False(t, got.IsDefault)

	got.Name = "weekday evenings"
	got.Times = []string{"19:00"}
	require.NoError(t, deps.Templates.Update(ctx, got))

	got, err = deps.Templates.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "weekday evenings", got.Name)
	assert.Equal(t, []string{"19:00"}, got.Times)
}

func TestTemplateNameUnique(t *testing.T) {
	deps := testDB(t)
	ctx := context.Background()

	_, err := deps.Templates.Create(ctx, &models.ScheduleTemplate{Name: "daily"})
	require.NoError(t, err)

	_, err = deps.Templates.Create(ctx, &models.ScheduleTemplate{Name: "daily"})
	assert.ErrorIs(t, err, ErrTemplateNameTaken)

	id2, err := deps.Templates.Create(ctx, &models.ScheduleTemplate{Name: "other"})
	require.NoError(t, err)

	err = deps.Templates.Update(ctx, &models.ScheduleTemplate{ID: id2, Name: "daily"})
	assert.ErrorIs(t, err, ErrTemplateNameTaken)
}

func TestTemplateDefaultProtection(t *testing.T) {
	deps := testDB(t)
	ctx := context.Background()

	id1, err := deps.Templates.Create(ctx, &models.ScheduleTemplate{Name: "a"})
	require.NoError(t, err)
	id2, err := deps.Templates.Create(ctx, &models.ScheduleTemplate{Name: "b"})
	require.NoError(t, err)

	require.NoError(t, deps.Templates.SetDefault(ctx, id1))

	def, err := deps.Templates.GetDefault(ctx)
	require.NoError(t, err)
	require.NotNil(t, def)
	assert.Equal(t, id1, def.ID)

	assert.ErrorIs(t, deps.Templates.Delete(ctx, id1), ErrDefaultTemplate)

	// Moving the default frees the old one for deletion.
	require.NoError(t, deps.Templates.SetDefault(ctx, id2))
	def, err = deps.Templates.GetDefault(ctx)
	require.NoError(t, err)
	assert.Equal(t, id2, def.ID)
	assert.NoError(t, deps.Templates.Delete(ctx, id1))
}

func TestTemplateMissing(t *testing.T) {
	deps := testDB(t)
	ctx := context.Background()

	got, err := deps.Templates.GetByID(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.ErrorIs(t, deps.Templates.Delete(ctx, 999), ErrTemplateNotFound)
	assert.ErrorIs(t, deps.Templates.SetDefault(ctx, 999), ErrTemplateNotFound)
}

func TestJobSnapshotRoundTrip(t *testing.T) {
	deps := testDB(t)
	ctx := context.Background()

	tplID := int64(3)
	snap := &models.JobSnapshot{
		PageID:           "123",
		PageName:         "My Page",
		AppName:          "main",
		Folder:           "/videos/my-page",
		IntervalSeconds:  3600,
		SortBy:           models.SortByName,
		Enabled:          true,
		IsScheduled:      true,
		NextRunTimestamp: 1750000000,
		UseSmartSchedule: true,
		TemplateID:       &tplID,
		Video: &models.VideoSettings{
			TitleTemplate: "{filename}",
			ChunkSize:     models.ChunkSizeDefault,
			JitterEnabled: true,
			JitterPercent: 10,
		},
	}
	require.NoError(t, deps.Jobs.Save(ctx, snap))

	got, err := deps.Jobs.Get(ctx, models.JobKindVideo, "123")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, snap.PageName, got.PageName)
	assert.Equal(t, snap.NextRunTimestamp, got.NextRunTimestamp)
	require.NotNil(t, got.TemplateID)
	assert.Equal(t, tplID, *got.TemplateID)
	require.NotNil(t, got.Video)
	assert.Equal(t, int64(models.ChunkSizeDefault), got.Video.ChunkSize)

	// Same key overwrites, no duplicate rows.
	snap.PageName = "Renamed"
	require.NoError(t, deps.Jobs.Save(ctx, snap))
	all, err := deps.Jobs.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Renamed", all[0].PageName)

	require.NoError(t, deps.Jobs.Delete(ctx, models.JobKindVideo, "123"))
	got, err = deps.Jobs.Get(ctx, models.JobKindVideo, "123")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestJobKindsShareNoKey(t *testing.T) {
	deps := testDB(t)
	ctx := context.Background()

	require.NoError(t, deps.Jobs.Save(ctx, &models.JobSnapshot{PageID: "p1"}))
	require.NoError(t, deps.Jobs.Save(ctx, &models.JobSnapshot{
		PageID: "p1",
		Story:  &models.StorySettings{StoriesPerSchedule: 2},
	}))

	all, err := deps.Jobs.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
