package config

import (
	"os"
	"strconv"
)

type MediaSync struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	Region     string
}

type Config struct {
	ListenAddr          string
	DatabasePath        string
	RedisURI            string
	FacebookAppID       string
	FacebookAppSecret   string
	FacebookRedirectURI string
	GraphAPIVersion     string
	ChunkSizeBytes      int64
	UploadTimeoutStart  int
	UploadTimeoutXfer   int
	UploadTimeoutFinish int
	FFmpegPath          string
	UploadedFolderName  string
	AutoMoveUploaded    bool
	WorkerConcurrency   int
	MediaSync           MediaSync
	SecretKey           string
	CookieName          string
	AdminPassword       string
}

func LoadConfig() *Config {
	return &Config{
		ListenAddr:          getEnv("LISTEN_ADDR", ":3000"),
		DatabasePath:        getEnv("DATABASE_PATH", "pageflow.db"),
		RedisURI:            getEnv("REDIS_URI", "127.0.0.1:6379"),
		FacebookAppID:       getEnv("FACEBOOK_APP_ID", ""),
		FacebookAppSecret:   getEnv("FACEBOOK_APP_SECRET", ""),
		FacebookRedirectURI: getEnv("FACEBOOK_REDIRECT_URI", ""),
		GraphAPIVersion:     getEnv("GRAPH_API_VERSION", "v20.0"),
		ChunkSizeBytes:      getEnvInt64("UPLOAD_CHUNK_SIZE", 32*1024*1024),
		UploadTimeoutStart:  getEnvInt("UPLOAD_TIMEOUT_START", 60),
		UploadTimeoutXfer:   getEnvInt("UPLOAD_TIMEOUT_TRANSFER", 300),
		UploadTimeoutFinish: getEnvInt("UPLOAD_TIMEOUT_FINISH", 180),
		FFmpegPath:          getEnv("FFMPEG_PATH", "ffmpeg"),
		UploadedFolderName:  getEnv("UPLOADED_FOLDER_NAME", "Uploaded"),
		AutoMoveUploaded:    getEnvBool("AUTO_MOVE_UPLOADED", true),
		WorkerConcurrency:   getEnvInt("WORKER_CONCURRENCY", 10),
		MediaSync: MediaSync{
			AccountID:  getEnv("MEDIA_SYNC_ACCOUNT_ID", ""),
			AccessKey:  getEnv("MEDIA_SYNC_ACCESS_KEY", ""),
			SecretKey:  getEnv("MEDIA_SYNC_SECRET_KEY", ""),
			BucketName: getEnv("MEDIA_SYNC_BUCKET_NAME", ""),
			Region:     getEnv("MEDIA_SYNC_REGION", "auto"),
		},
		SecretKey:     getEnv("SECRET_KEY", ""),
		CookieName:    getEnv("COOKIE_NAME", "pageflow_session"),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
