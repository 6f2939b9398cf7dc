package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotKindFromPayload(t *testing.T) {
	assert.Equal(t, JobKindVideo, (&JobSnapshot{}).Kind())
	assert.Equal(t, JobKindVideo, (&JobSnapshot{Video: &VideoSettings{}}).Kind())
	assert.Equal(t, JobKindStory, (&JobSnapshot{Story: &StorySettings{}}).Kind())
	assert.Equal(t, JobKindReels, (&JobSnapshot{Reels: &ReelsSettings{}}).Kind())
}

func TestSnapshotDecodeDefaults(t *testing.T) {
	// A row written before the smart-schedule and jitter fields existed.
	old := `{
		"page_id": "123",
		"page_name": "Old Page",
		"folder": "/videos/old",
		"interval_seconds": 3600,
		"video": {"title_template": ""}
	}`

	var snap JobSnapshot
	require.NoError(t, json.Unmarshal([]byte(old), &snap))

	assert.True(t, snap.Enabled)
	assert.Equal(t, SortByName, snap.SortBy)
	assert.False(t, snap.UseSmartSchedule)
	assert.Nil(t, snap.TemplateID)

	require.NotNil(t, snap.Video)
	assert.Equal(t, "{filename}", snap.Video.TitleTemplate)
	assert.Equal(t, int64(ChunkSizeDefault), snap.Video.ChunkSize)
	assert.Equal(t, 10, snap.Video.JitterPercent)
}

func TestSnapshotDecodeExplicitValuesKept(t *testing.T) {
	in := `{
		"page_id": "123",
		"enabled": false,
		"sort_by": "random",
		"video": {"title_template": "My {filename}", "chunk_size": 1048576, "jitter_percent": 25}
	}`

	var snap JobSnapshot
	require.NoError(t, json.Unmarshal([]byte(in), &snap))

	assert.False(t, snap.Enabled)
	assert.Equal(t, SortByRandom, snap.SortBy)
	assert.Equal(t, "My {filename}", snap.Video.TitleTemplate)
	assert.Equal(t, int64(1048576), snap.Video.ChunkSize)
	assert.Equal(t, 25, snap.Video.JitterPercent)
}

func TestSnapshotVariantDefaults(t *testing.T) {
	var story JobSnapshot
	require.NoError(t, json.Unmarshal([]byte(`{"page_id":"1","story":{}}`), &story))
	assert.Equal(t, 1, story.Story.StoriesPerSchedule)

	var reels JobSnapshot
	require.NoError(t, json.Unmarshal([]byte(`{"page_id":"1","reels":{}}`), &reels))
	assert.Equal(t, 90, reels.Reels.MaxDurationSeconds)
}

func TestSnapshotRoundTripJSON(t *testing.T) {
	tplID := int64(7)
	in := &JobSnapshot{
		PageID:           "42",
		PageName:         "Page",
		Folder:           "/videos/p",
		IntervalSeconds:  600,
		SortBy:           SortByDateModified,
		Enabled:          true,
		IsScheduled:      true,
		NextRunTimestamp: 1750000000,
		UseSmartSchedule: true,
		TemplateID:       &tplID,
		Video: &VideoSettings{
			TitleTemplate: "{filename}",
			ChunkSize:     ChunkSizeDefault,
			JitterEnabled: true,
			JitterPercent: 15,
		},
	}

	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out JobSnapshot
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in.PageID, out.PageID)
	assert.Equal(t, in.NextRunTimestamp, out.NextRunTimestamp)
	assert.Equal(t, in.SortBy, out.SortBy)
	require.NotNil(t, out.TemplateID)
	assert.Equal(t, tplID, *out.TemplateID)
	assert.Equal(t, in.Video.JitterPercent, out.Video.JitterPercent)
	assert.Equal(t, JobKindVideo, out.Kind())
}
