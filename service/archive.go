package service

import (
	"context"
	"fmt"
	"os"

	"github.com/KishoreAkashYS/chargebee-cpf/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const archivePrefix = "contracts/"

// ArchiveService keeps a best-effort copy of uploaded PDFs in object storage.
// The disk copy stays authoritative; archive failures are logged by callers
// and never fail an upload.
type ArchiveService struct {
	client *minio.Client
	bucket string
}

func NewArchiveService(cfg *config.ArchiveConfig) (*ArchiveService, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &ArchiveService{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

// EnsureBucket creates the archive bucket if it doesn't exist
func (s *ArchiveService) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}

	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

// StorePDF copies the uploaded PDF at path into the archive bucket.
func (s *ArchiveService) StorePDF(ctx context.Context, contractID, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat upload: %w", err)
	}

	_, err = s.client.PutObject(ctx, s.bucket, archiveObjectName(contractID), f, stat.Size(), minio.PutObjectOptions{
		ContentType: "application/pdf",
	})
	if err != nil {
		return fmt.Errorf("failed to archive PDF: %w", err)
	}

	return nil
}

// Clear removes every archived PDF, mirroring the bulk-delete operation.
func (s *ArchiveService) Clear(ctx context.Context) error {
	objects := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    archivePrefix,
		Recursive: true,
	})

	for obj := range objects {
		if obj.Err != nil {
			return fmt.Errorf("failed to list archive: %w", obj.Err)
		}
		if err := s.client.RemoveObject(ctx, s.bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("failed to remove %s: %w", obj.Key, err)
		}
	}

	return nil
}

func archiveObjectName(contractID string) string {
	return archivePrefix + contractID + ".pdf"
}
