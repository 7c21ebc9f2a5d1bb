package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dafibh/academia/academia-backend/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOProofStore implements ProofStore using MinIO
type MinIOProofStore struct {
	client     *minio.Client
	bucketName string
}

// NewMinIOProofStore creates a new MinIO proof store
func NewMinIOProofStore(ctx context.Context, cfg config.MinIOConfig) (*MinIOProofStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	store := &MinIOProofStore{
		client:     client,
		bucketName: cfg.BucketName,
	}

	if err := store.ensureBucket(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// ensureBucket creates the bucket if it doesn't exist. Proofs are financial records,
// so the bucket stays private and reads go through presigned URLs.
func (s *MinIOProofStore) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

// Upload uploads data to MinIO storage and returns the object path
func (s *MinIOProofStore) Upload(ctx context.Context, objectPath string, data io.Reader, contentType string, size int64) (string, error) {
	// If size is unknown, read all data into memory
	if size < 0 {
		buf, err := io.ReadAll(data)
		if err != nil {
			return "", fmt.Errorf("failed to read data: %w", err)
		}
		size = int64(len(buf))
		data = bytes.NewReader(buf)
	}

	_, err := s.client.PutObject(ctx, s.bucketName, objectPath, data, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object: %w", err)
	}

	return objectPath, nil
}

// Delete removes an object from MinIO storage
func (s *MinIOProofStore) Delete(ctx context.Context, objectPath string) error {
	err := s.client.RemoveObject(ctx, s.bucketName, objectPath, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// GeneratePresignedURL generates a presigned URL for temporary access
func (s *MinIOProofStore) GeneratePresignedURL(ctx context.Context, objectPath string, expiry time.Duration) (string, error) {
	presignedURL, err := s.client.PresignedGetObject(ctx, s.bucketName, objectPath, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return presignedURL.String(), nil
}
