package models

const (
	// Resumable uploads kick in above this size; smaller reels/stories go up
	// in a single request.
	ResumableThresholdBytes = 50 * 1024 * 1024

	// ChunkSizeDefault is the per-chunk size for resumable video uploads.
	// Larger chunks mean fewer requests at the cost of memory.
	ChunkSizeDefault = 32 * 1024 * 1024

	ChunkSizeFallback = 10 * 1024 * 1024

	// Per-phase timeouts in seconds.
	UploadTimeoutStart    = 60
	UploadTimeoutTransfer = 300
	UploadTimeoutFinish   = 180

	// Facebook caps page videos at 4 hours.
	MaxVideoDurationSeconds = 4 * 60 * 60

	DefaultTokenExpirySeconds = 60 * 24 * 60 * 60

	PagesFetchLimit         = 100
	PagesFetchMaxIterations = 50

	WatermarkFFmpegTimeoutSeconds = 600
	WatermarkMinOutputRatio       = 0.1

	UploadedFolderName = "Uploaded"
)

var (
	VideoExtensions = []string{".mp4", ".mov", ".avi", ".mkv"}
	ImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}
)

const (
	SortByName         = "name"
	SortByRandom       = "random"
	SortByDateCreated  = "date_created"
	SortByDateModified = "date_modified"
)
