package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"
)

// ProofStore defines the object storage operations used for payment proof images.
// Upload returns the object path; readers get time-limited presigned URLs.
type ProofStore interface {
	Upload(ctx context.Context, objectPath string, data io.Reader, contentType string, size int64) (string, error)
	Delete(ctx context.Context, objectPath string) error
	GeneratePresignedURL(ctx context.Context, objectPath string, expiry time.Duration) (string, error)
}

// ProofObjectPath builds the object path of one proof image variant:
// <studentId>/<transactionId>/<proofId>_<variant>.jpg
func ProofObjectPath(studentID, transactionID, proofID uuid.UUID, variant string) string {
	return path.Join(studentID.String(), transactionID.String(), fmt.Sprintf("%s_%s.jpg", proofID, variant))
}
