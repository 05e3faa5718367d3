// internal/services/storage_service.go
package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/agency-onboarding/internal/config"
	"github.com/javajoker/agency-onboarding/internal/utils"
)

// FileStorage keeps uploaded bytes outside the database, namespaced by
// application id.
type FileStorage interface {
	Save(ctx context.Context, appID string, header *multipart.FileHeader) (*StoredFile, error)
	Remove(ctx context.Context, key string) error
}

type StoredFile struct {
	FileName    string `json:"file_name"`
	Key         string `json:"file_path"` // <app id>/<file name>
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
	Checksum    string `json:"sha256"`
}

type StorageService struct {
	s3Client  *s3.S3
	bucket    string
	uploadDir string
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

func NewStorageService(cfg *config.Config) (*StorageService, error) {
	if cfg.AWS.S3Bucket == "" {
		// Local disk
		if err := os.MkdirAll(cfg.Storage.UploadDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create upload dir: %w", err)
		}
		return &StorageService{uploadDir: cfg.Storage.UploadDir}, nil
	}

	awsCfg := &aws.Config{Region: aws.String(cfg.AWS.Region)}
	if cfg.AWS.AccessKeyID != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(
			cfg.AWS.AccessKeyID,
			cfg.AWS.SecretAccessKey,
			"",
		)
	}

	// Create AWS session
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &StorageService{
		s3Client: s3.New(sess),
		bucket:   cfg.AWS.S3Bucket,
	}, nil
}

// NewLocalStorage stores files under dir.
func NewLocalStorage(dir string) *StorageService {
	return &StorageService{uploadDir: dir}
}

// Backend names where files are written: "s3" or "local".
func (s *StorageService) Backend() string {
	if s.s3Client != nil {
		return "s3"
	}
	return "local"
}

func (s *StorageService) Save(ctx context.Context, appID string, header *multipart.FileHeader) (*StoredFile, error) {
	src, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload %s: %w", header.Filename, err)
	}
	defer src.Close()

	name := generateFileName(header.Filename)
	stored := &StoredFile{
		FileName:    name,
		Key:         path.Join(appID, name),
		ContentType: header.Header.Get("Content-Type"),
	}

	if s.s3Client != nil {
		err = s.uploadToS3(ctx, src, stored)
	} else {
		err = s.uploadToLocal(src, appID, stored)
	}
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func (s *StorageService) uploadToS3(ctx context.Context, src io.Reader, stored *StoredFile) error {
	// Read file content
	fileBytes, err := io.ReadAll(src)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	stored.Checksum, stored.Size, err = utils.HashReader(bytes.NewReader(fileBytes))
	if err != nil {
		return fmt.Errorf("failed to hash file: %w", err)
	}

	params := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(stored.Key),
		Body:          bytes.NewReader(fileBytes),
		ContentLength: aws.Int64(stored.Size),
		Metadata:      map[string]*string{"sha256": aws.String(stored.Checksum)},
	}
	if stored.ContentType != "" {
		params.ContentType = aws.String(stored.ContentType)
	}

	if _, err := s.s3Client.PutObjectWithContext(ctx, params); err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	return nil
}

func (s *StorageService) uploadToLocal(src io.Reader, appID string, stored *StoredFile) error {
	dir := filepath.Join(s.uploadDir, appID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create upload dir: %w", err)
	}

	dst, err := os.OpenFile(filepath.Join(dir, stored.FileName), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	stored.Checksum, stored.Size, err = utils.HashReader(io.TeeReader(src, dst))
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(dst.Name())
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

func (s *StorageService) Remove(ctx context.Context, key string) error {
	if s.s3Client == nil {
		err := os.Remove(filepath.Join(s.uploadDir, filepath.FromSlash(key)))
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete file: %w", err)
		}
		return nil
	}

	_, err := s.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file from S3: %w", err)
	}
	return nil
}

// removeAll deletes files stored for a request that did not commit.
func removeAll(ctx context.Context, storage FileStorage, files []*StoredFile) {
	for _, f := range files {
		if err := storage.Remove(ctx, f.Key); err != nil {
			logrus.WithError(err).WithField("key", f.Key).Warn("Failed to remove orphaned upload")
		}
	}
}

// generateFileName builds <millis>_<uuid prefix>_<sanitized original>.
func generateFileName(originalName string) string {
	base := unsafeNameChars.ReplaceAllString(filepath.Base(originalName), "_")
	id := uuid.New()
	return fmt.Sprintf("%d_%s_%s", time.Now().UnixMilli(), id.String()[:8], base)
}
