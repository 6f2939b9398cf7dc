package models

import "time"

// UploadRecord is one row of upload history: a single attempt to publish one
// file to one page, successful or not.
type UploadRecord struct {
	ID           int64     `db:"id" json:"id"`
	PageID       string    `db:"page_id" json:"page_id"`
	PageName     string    `db:"page_name" json:"page_name"`
	FilePath     string    `db:"file_path" json:"file_path"`
	FileName     string    `db:"file_name" json:"file_name"`
	ContentKind  string    `db:"content_kind" json:"content_kind"`
	VideoID      string    `db:"video_id" json:"video_id"`
	VideoURL     string    `db:"video_url" json:"video_url"`
	Status       string    `db:"status" json:"status"`
	ErrorMessage string    `db:"error_message" json:"error_message"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

const (
	UploadStatusSuccess   = "success"
	UploadStatusFailed    = "failed"
	UploadStatusCancelled = "cancelled"
)

// UploadStats aggregates history rows over a window, per page or overall.
// Cancellations are user-initiated and counted apart from failures.
type UploadStats struct {
	Total     int            `json:"total"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Cancelled int            `json:"cancelled"`
	ByPage    map[string]int `json:"by_page"`
	ByDay     map[string]int `json:"by_day"`
}
