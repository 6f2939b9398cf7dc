package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	cfg "github.com/maheshrc27/pageflow/configs"
)

// MediaSyncService pulls pending media from an R2 bucket into a local source
// folder so remote drops become uploadable without manual copying. Objects
// are keyed <prefix>/<filename>; each is removed from the bucket once it has
// landed on disk.
type MediaSyncService interface {
	SyncFolder(ctx context.Context, prefix, destFolder string) (int, error)
}

type mediaSyncService struct {
	config cfg.Config
}

func NewMediaSyncService(config cfg.Config) MediaSyncService {
	return &mediaSyncService{config: config}
}

func (m *mediaSyncService) client(ctx context.Context) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			m.config.MediaSync.AccessKey, m.config.MediaSync.SecretKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", m.config.MediaSync.AccountID))
	}), nil
}

// SyncFolder downloads every object under prefix into destFolder and reports
// how many files arrived. A single bad object is skipped, not fatal.
func (m *mediaSyncService) SyncFolder(ctx context.Context, prefix, destFolder string) (int, error) {
	if m.config.MediaSync.BucketName == "" {
		return 0, nil
	}

	client, err := m.client(ctx)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(destFolder, 0o755); err != nil {
		return 0, err
	}

	synced := 0
	var token *string
	for {
		out, err := client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(m.config.MediaSync.BucketName),
			Prefix:            aws.String(prefix),
			ContinuationToken: token,
		})
		if err != nil {
			slog.Info(err.Error())
			return synced, err
		}

		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			name := filepath.Base(strings.TrimPrefix(key, prefix))
			if name == "" || name == "." || strings.HasSuffix(key, "/") {
				continue
			}
			if err := m.download(ctx, client, key, filepath.Join(destFolder, name)); err != nil {
				slog.Warn("media sync: object skipped", "key", key, "error", err.Error())
				continue
			}
			if _, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(m.config.MediaSync.BucketName),
				Key:    aws.String(key),
			}); err != nil {
				slog.Warn("media sync: delete after download failed", "key", key, "error", err.Error())
			}
			synced++
		}

		if out.IsTruncated == nil || !*out.IsTruncated {
			break
		}
		token = out.NextContinuationToken
	}
	return synced, nil
}

func (m *mediaSyncService) download(ctx context.Context, client *s3.Client, key, destPath string) error {
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.config.MediaSync.BucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return err
	}
	defer out.Body.Close()

	tmp := destPath + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, out.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, destPath)
}
