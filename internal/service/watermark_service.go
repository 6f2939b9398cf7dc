package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	config "github.com/maheshrc27/pageflow/configs"
	"github.com/maheshrc27/pageflow/internal/models"
)

// WatermarkService overlays a logo on a video with ffmpeg before upload.
// Watermarking is strictly best-effort: any failure, from a missing binary
// to a suspiciously small output, falls back to the original file so the
// upload itself never dies on cosmetics.
type WatermarkService interface {
	Apply(ctx context.Context, videoPath string, wm *models.WatermarkConfig) (string, func())
}

type watermarkService struct {
	ffmpegPath string
	workDir    string
}

func NewWatermarkService(cfg config.Config) WatermarkService {
	return &watermarkService{
		ffmpegPath: cfg.FFmpegPath,
		workDir:    ".temp_watermark",
	}
}

var positionExpr = map[string]string{
	"top-left":     "10:10",
	"top-right":    "main_w-overlay_w-10:10",
	"bottom-left":  "10:main_h-overlay_h-10",
	"bottom-right": "main_w-overlay_w-10:main_h-overlay_h-10",
	"center":       "(main_w-overlay_w)/2:(main_h-overlay_h)/2",
}

// OverlayPosition resolves a watermark position to an ffmpeg overlay
// expression. Explicit x/y wins over a named corner; unknown names land
// bottom-right.
func OverlayPosition(wm *models.WatermarkConfig) string {
	if wm.X != nil && wm.Y != nil {
		return fmt.Sprintf("%d:%d", *wm.X, *wm.Y)
	}
	if expr, ok := positionExpr[wm.Position]; ok {
		return expr
	}
	return positionExpr["bottom-right"]
}

// ClampOpacity bounds opacity to (0, 1], treating zero and out-of-range
// values as fully opaque.
func ClampOpacity(v float64) float64 {
	if v <= 0 || v > 1 {
		return 1.0
	}
	return v
}

// ClampScale bounds the watermark width relative to its source, defaulting
// to 15% and refusing anything above full size.
func ClampScale(v float64) float64 {
	if v <= 0 {
		return 0.15
	}
	if v > 1 {
		return 1.0
	}
	return v
}

// Apply returns the path to feed the uploader plus a cleanup func. When
// watermarking succeeds the path points at a temp file the cleanup removes;
// on any failure the original path comes back with a no-op cleanup.
func (s *watermarkService) Apply(ctx context.Context, videoPath string, wm *models.WatermarkConfig) (string, func()) {
	noop := func() {}
	if wm == nil || !wm.Enabled || wm.Path == "" {
		return videoPath, noop
	}
	if _, err := os.Stat(wm.Path); err != nil {
		slog.Warn("watermark image missing, uploading original", "path", wm.Path)
		return videoPath, noop
	}
	if err := os.MkdirAll(s.workDir, 0o755); err != nil {
		slog.Warn("watermark workdir unavailable, uploading original", "error", err.Error())
		return videoPath, noop
	}

	outPath := filepath.Join(s.workDir,
		fmt.Sprintf("wm_%d_%s", time.Now().UnixNano(), filepath.Base(videoPath)))

	filter := fmt.Sprintf(
		"[1:v]scale=iw*%.3f:-1,format=rgba,colorchannelmixer=aa=%.3f[wm];[0:v][wm]overlay=%s",
		ClampScale(wm.Scale), ClampOpacity(wm.Opacity), OverlayPosition(wm))

	ctx, cancel := context.WithTimeout(ctx, models.WatermarkFFmpegTimeoutSeconds*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.ffmpegPath,
		"-y",
		"-i", videoPath,
		"-i", wm.Path,
		"-filter_complex", filter,
		"-c:a", "copy",
		outPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		slog.Warn("ffmpeg watermark failed, uploading original",
			"error", err.Error(), "output", tail(string(out), 512))
		os.Remove(outPath)
		return videoPath, noop
	}

	if !outputSane(videoPath, outPath) {
		slog.Warn("watermark output failed sanity check, uploading original", "output", outPath)
		os.Remove(outPath)
		return videoPath, noop
	}

	return outPath, func() { os.Remove(outPath) }
}

// outputSane rejects empty or implausibly small outputs. A watermarked file
// a tenth the size of its source means ffmpeg bailed mid-encode.
func outputSane(originalPath, outPath string) bool {
	out, err := os.Stat(outPath)
	if err != nil || out.Size() == 0 {
		return false
	}
	orig, err := os.Stat(originalPath)
	if err != nil {
		return true
	}
	return float64(out.Size()) >= models.WatermarkMinOutputRatio*float64(orig.Size())
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
