package transfer

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/maheshrc27/pageflow/internal/models"
)

type SessionClaims struct {
	Subject string `json:"sub_name"`
	jwt.RegisteredClaims
}

type LoginRequest struct {
	Password string `json:"password"`
}

type CreateJobRequest struct {
	Kind            string `json:"kind"`
	PageID          string `json:"page_id"`
	PageName        string `json:"page_name"`
	AppName         string `json:"app_name"`
	Folder          string `json:"folder"`
	IntervalSeconds int    `json:"interval_seconds"`
	PageAccessToken string `json:"page_access_token"`
	SortBy          string `json:"sort_by"`

	UseSmartSchedule bool   `json:"use_smart_schedule"`
	TemplateID       *int64 `json:"template_id"`

	Video *models.VideoSettings `json:"video"`
	Story *models.StorySettings `json:"story"`
	Reels *models.ReelsSettings `json:"reels"`
}

type CreateTemplateRequest struct {
	Name                string   `json:"name"`
	Times               []string `json:"times"`
	Days                []string `json:"days"`
	RandomOffsetMinutes int      `json:"random_offset_minutes"`
	SetDefault          bool     `json:"set_default"`
}

type SaveTokenRequest struct {
	AppName     string `json:"app_name"`
	AppID       string `json:"app_id"`
	AppSecret   string `json:"app_secret"`
	AccessToken string `json:"access_token"`
}

type CreateKeyRequest struct {
	Label string `json:"label"`
}

type JobStatusResponse struct {
	Kind             string `json:"kind"`
	PageID           string `json:"page_id"`
	PageName         string `json:"page_name"`
	Folder           string `json:"folder"`
	Enabled          bool   `json:"enabled"`
	IsScheduled      bool   `json:"is_scheduled"`
	CancelRequested  bool   `json:"cancel_requested"`
	Uploading        bool   `json:"uploading"`
	NextRunTimestamp int64  `json:"next_run_timestamp"`
	IntervalSeconds  int    `json:"interval_seconds"`
	UseSmartSchedule bool   `json:"use_smart_schedule"`
	TemplateID       *int64 `json:"template_id,omitempty"`
}
