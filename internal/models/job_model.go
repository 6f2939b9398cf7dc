package models

import "encoding/json"

type JobKind string

const (
	JobKindVideo JobKind = "video"
	JobKindStory JobKind = "story"
	JobKindReels JobKind = "reels"
)

// JobSnapshot is the persisted representation of one page job. It is stored
// as a JSON document so that rows written by older releases, which lack the
// smart-schedule fields, still decode with sane defaults.
type JobSnapshot struct {
	PageID           string `json:"page_id"`
	PageName         string `json:"page_name"`
	AppName          string `json:"app_name,omitempty"`
	Folder           string `json:"folder"`
	IntervalSeconds  int    `json:"interval_seconds"`
	PageAccessToken  string `json:"page_access_token,omitempty"`
	NextIndex        int    `json:"next_index"`
	SortBy           string `json:"sort_by"`
	Enabled          bool   `json:"enabled"`
	IsScheduled      bool   `json:"is_scheduled"`
	NextRunTimestamp int64  `json:"next_run_timestamp,omitempty"`
	UseSmartSchedule bool   `json:"use_smart_schedule"`
	TemplateID       *int64 `json:"template_id,omitempty"`

	Video *VideoSettings `json:"video,omitempty"`
	Story *StorySettings `json:"story,omitempty"`
	Reels *ReelsSettings `json:"reels,omitempty"`
}

// VideoSettings is the variant payload for timeline video jobs.
type VideoSettings struct {
	TitleTemplate       string          `json:"title_template"`
	DescriptionTemplate string          `json:"description_template"`
	ChunkSize           int64           `json:"chunk_size"`
	UseFilenameAsTitle  bool            `json:"use_filename_as_title"`
	JitterEnabled       bool            `json:"jitter_enabled"`
	JitterPercent       int             `json:"jitter_percent"`
	Watermark           WatermarkConfig `json:"watermark"`
}

// StorySettings is the variant payload for story jobs.
type StorySettings struct {
	StoriesPerSchedule int `json:"stories_per_schedule"`
	MinBatchDelay      int `json:"min_batch_delay"`
	MaxBatchDelay      int `json:"max_batch_delay"`
}

// ReelsSettings is the variant payload for reels jobs.
type ReelsSettings struct {
	DescriptionTemplate string `json:"description_template"`
	TitleTemplate       string `json:"title_template"`
	MaxDurationSeconds  int    `json:"max_duration_seconds"`
}

type WatermarkConfig struct {
	Enabled  bool    `json:"enabled"`
	Path     string  `json:"path"`
	Position string  `json:"position"`
	Opacity  float64 `json:"opacity"`
	Scale    float64 `json:"scale"`
	X        *int    `json:"x,omitempty"`
	Y        *int    `json:"y,omitempty"`
}

// Kind reports the variant of a snapshot by its payload.
func (s *JobSnapshot) Kind() JobKind {
	switch {
	case s.Story != nil:
		return JobKindStory
	case s.Reels != nil:
		return JobKindReels
	default:
		return JobKindVideo
	}
}

// UnmarshalJSON applies defaults for fields that may be absent from data
// persisted by older releases.
func (s *JobSnapshot) UnmarshalJSON(data []byte) error {
	type alias JobSnapshot
	raw := struct {
		*alias
		Enabled *bool   `json:"enabled"`
		SortBy  *string `json:"sort_by"`
	}{alias: (*alias)(s)}

	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Enabled = raw.Enabled == nil || *raw.Enabled
	if raw.SortBy == nil || *raw.SortBy == "" {
		s.SortBy = SortByName
	} else {
		s.SortBy = *raw.SortBy
	}
	if s.IntervalSeconds < 0 {
		s.IntervalSeconds = 0
	}
	if s.Video != nil {
		if s.Video.TitleTemplate == "" {
			s.Video.TitleTemplate = "{filename}"
		}
		if s.Video.ChunkSize <= 0 {
			s.Video.ChunkSize = ChunkSizeDefault
		}
		if s.Video.JitterPercent == 0 {
			s.Video.JitterPercent = 10
		}
	}
	if s.Story != nil && s.Story.StoriesPerSchedule <= 0 {
		s.Story.StoriesPerSchedule = 1
	}
	if s.Reels != nil && s.Reels.MaxDurationSeconds <= 0 {
		s.Reels.MaxDurationSeconds = 90
	}
	return nil
}
