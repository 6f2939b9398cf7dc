package transfer

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// FlexInt64 decodes Graph API offset fields, which arrive as JSON strings
// in some API versions and as numbers in others.
type FlexInt64 int64

func (f *FlexInt64) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return err
	}
	*f = FlexInt64(n)
	return nil
}

func (f FlexInt64) Int64() int64 { return int64(f) }

type GraphError struct {
	Message      string `json:"message"`
	Type         string `json:"type"`
	Code         int    `json:"code"`
	ErrorSubcode int    `json:"error_subcode"`
	FbtraceID    string `json:"fbtrace_id"`
}

type GraphErrorResponse struct {
	Error GraphError `json:"error"`
}

// UploadStartResponse is the start-phase reply of the resumable video
// upload protocol.
type UploadStartResponse struct {
	UploadSessionID string    `json:"upload_session_id"`
	VideoID         string    `json:"video_id"`
	StartOffset     FlexInt64 `json:"start_offset"`
	EndOffset       FlexInt64 `json:"end_offset"`
}

// UploadTransferResponse is the per-chunk reply; offsets advance until
// start_offset equals end_offset.
type UploadTransferResponse struct {
	StartOffset FlexInt64 `json:"start_offset"`
	EndOffset   FlexInt64 `json:"end_offset"`
}

type StoryPhotoResponse struct {
	ID string `json:"id"`
}

type StoryStartResponse struct {
	VideoID   string `json:"video_id"`
	UploadURL string `json:"upload_url"`
}

type StoryFinishResponse struct {
	Success bool   `json:"success"`
	PostID  string `json:"post_id"`
}

type ReelsStartResponse struct {
	VideoID   string `json:"video_id"`
	UploadURL string `json:"upload_url"`
}

type TokenExchangeResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type DebugTokenResponse struct {
	Data struct {
		IsValid   bool   `json:"is_valid"`
		AppID     string `json:"app_id"`
		ExpiresAt int64  `json:"expires_at"`
		Scopes    []string `json:"scopes"`
	} `json:"data"`
}

type PageEntry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AccessToken string `json:"access_token"`
	Category    string `json:"category"`
}

type PageListResponse struct {
	Data   []PageEntry `json:"data"`
	Paging struct {
		Cursors struct {
			After string `json:"after"`
		} `json:"cursors"`
		Next string `json:"next"`
	} `json:"paging"`
}

// DecodeGraphError extracts the error object from a Graph API body, if any.
func DecodeGraphError(body []byte) *GraphError {
	var resp GraphErrorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil
	}
	if resp.Error.Message == "" && resp.Error.Code == 0 {
		return nil
	}
	return &resp.Error
}
