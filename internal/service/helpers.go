package service

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/h2non/filetype"

	"github.com/maheshrc27/pageflow/internal/models"
)

func GetExpiresAt(expiresIn int) time.Time {
	return time.Now().Add(time.Duration(expiresIn) * time.Second)
}

// ScanMediaFolder lists the uploadable files in folder, filtered by
// extension. Subdirectories, including the uploaded archive, are not
// descended into.
func ScanMediaFolder(folder string, extensions []string) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, err
	}

	allowed := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(ext)] = true
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if allowed[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, filepath.Join(folder, e.Name()))
		}
	}
	return files, nil
}

// IsVideoFile reports whether the header bytes look like a video container.
func IsVideoFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	head := make([]byte, 261)
	n, _ := f.Read(head)
	return filetype.IsVideo(head[:n])
}

// IsImageFile reports whether the header bytes look like an image.
func IsImageFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	head := make([]byte, 261)
	n, _ := f.Read(head)
	return filetype.IsImage(head[:n])
}

// SortMediaFiles orders candidate files for round-robin selection. Unknown
// modes sort by name so the rotation stays deterministic.
func SortMediaFiles(files []string, sortBy string, intn func(int) int) []string {
	sorted := make([]string, len(files))
	copy(sorted, files)

	switch sortBy {
	case models.SortByRandom:
		if intn == nil {
			intn = rand.Intn
		}
		for i := len(sorted) - 1; i > 0; i-- {
			j := intn(i + 1)
			sorted[i], sorted[j] = sorted[j], sorted[i]
		}
	case models.SortByDateCreated, models.SortByDateModified:
		sort.SliceStable(sorted, func(i, j int) bool {
			return fileModTime(sorted[i]).Before(fileModTime(sorted[j]))
		})
	default:
		sort.Strings(sorted)
	}
	return sorted
}

func fileModTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

// RenderTitle expands a title or description template for one file.
// {filename} is the base name without extension; {date} is today.
func RenderTitle(template, filePath string) string {
	base := filepath.Base(filePath)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if template == "" {
		return name
	}

	out := strings.ReplaceAll(template, "{filename}", name)
	out = strings.ReplaceAll(out, "{date}", time.Now().Format("2006-01-02"))
	return out
}

// MoveToUploaded archives a published file into the uploaded subfolder,
// suffixing the name when a previous run already archived a namesake.
func MoveToUploaded(filePath, uploadedFolderName string) (string, error) {
	dir := filepath.Join(filepath.Dir(filePath), uploadedFolderName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	base := filepath.Base(filePath)
	dest := filepath.Join(dir, base)
	if _, err := os.Stat(dest); err == nil {
		ext := filepath.Ext(base)
		name := strings.TrimSuffix(base, ext)
		dest = filepath.Join(dir, fmt.Sprintf("%s_%d%s", name, time.Now().Unix(), ext))
	}

	if err := os.Rename(filePath, dest); err != nil {
		return "", err
	}
	return dest, nil
}
