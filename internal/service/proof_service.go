package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"time"

	"github.com/dafibh/academia/academia-backend/internal/domain"
	"github.com/dafibh/academia/academia-backend/internal/repository/storage"
	"github.com/dafibh/academia/academia-backend/internal/websocket"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	MaxImageSize   = 5 * 1024 * 1024 // 5MB
	MinImageWidth  = 50
	MinImageHeight = 50
	ThumbnailWidth = 200
	DisplayWidth   = 800
	JPEGQuality    = 85
	ProofURLExpiry = 15 * time.Minute
)

var (
	ErrImageTooLarge             = errors.New("file too large. Maximum size is 5MB")
	ErrInvalidFormat             = errors.New("invalid format. Supported: JPEG, PNG")
	ErrImageTooSmall             = errors.New("image too small. Minimum 50x50 pixels")
	ErrInvalidImageData          = errors.New("invalid image data")
	ErrImageStorageNotConfigured = errors.New("image storage not configured")
)

// AllowedExtensions maps extensions to content types
var AllowedExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// TransactionLookup resolves a recorded payment transaction
type TransactionLookup interface {
	GetTransaction(ctx context.Context, studentID, transactionID uuid.UUID) (*Transaction, error)
}

// ProofView is a payment proof with presigned URLs for each variant
type ProofView struct {
	ID            uuid.UUID `json:"id"`
	TransactionID uuid.UUID `json:"transactionId"`
	ThumbnailURL  string    `json:"thumbnailUrl"`
	DisplayURL    string    `json:"displayUrl"`
	OriginalURL   string    `json:"originalUrl"`
	CreatedAt     time.Time `json:"createdAt"`
}

// ProofService stores receipt or transfer-slip images attached to payment transactions
type ProofService struct {
	store          storage.ProofStore
	proofRepo      domain.PaymentProofRepository
	transactions   TransactionLookup
	eventPublisher websocket.EventPublisher
}

// NewProofService creates a new ProofService. A nil store disables uploads.
func NewProofService(store storage.ProofStore, proofRepo domain.PaymentProofRepository, transactions TransactionLookup) *ProofService {
	return &ProofService{
		store:        store,
		proofRepo:    proofRepo,
		transactions: transactions,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *ProofService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

// IsEnabled indicates whether uploads are supported (storage configured)
func (s *ProofService) IsEnabled() bool {
	return s != nil && s.store != nil
}

// ValidateImage validates image format and size
func (s *ProofService) ValidateImage(data []byte, filename string) error {
	_, err := s.validateAndDecode(data, filename)
	return err
}

func (s *ProofService) validateAndDecode(data []byte, filename string) (image.Image, error) {
	if len(data) > MaxImageSize {
		return nil, ErrImageTooLarge
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := AllowedExtensions[ext]; !ok {
		return nil, ErrInvalidFormat
	}

	// Phone photos of receipts carry EXIF rotation
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, ErrInvalidImageData
	}

	bounds := img.Bounds()
	if bounds.Dx() < MinImageWidth || bounds.Dy() < MinImageHeight {
		return nil, ErrImageTooSmall
	}

	return img, nil
}

// UploadProof resizes the image into thumb, display and original JPEG variants, uploads
// them and records the proof against the transaction
func (s *ProofService) UploadProof(ctx context.Context, studentID, transactionID uuid.UUID, data []byte, filename string) (*ProofView, error) {
	if !s.IsEnabled() {
		return nil, ErrImageStorageNotConfigured
	}

	img, err := s.validateAndDecode(data, filename)
	if err != nil {
		return nil, err
	}

	if _, err := s.transactions.GetTransaction(ctx, studentID, transactionID); err != nil {
		return nil, err
	}

	proofID := uuid.New()

	variants := []struct {
		name     string
		maxWidth int
	}{
		{"thumb", ThumbnailWidth},
		{"display", DisplayWidth},
		{"original", 0}, // 0 means keep original size
	}

	paths := make(map[string]string)

	for _, variant := range variants {
		processed := img
		if variant.maxWidth > 0 && img.Bounds().Dx() > variant.maxWidth {
			processed = imaging.Resize(img, variant.maxWidth, 0, imaging.Lanczos)
		}

		var buf bytes.Buffer
		if err := imaging.Encode(&buf, processed, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
			s.cleanup(ctx, paths)
			return nil, fmt.Errorf("failed to encode image: %w", err)
		}

		objectPath := storage.ProofObjectPath(studentID, transactionID, proofID, variant.name)
		stored, err := s.store.Upload(ctx, objectPath, bytes.NewReader(buf.Bytes()), "image/jpeg", int64(buf.Len()))
		if err != nil {
			s.cleanup(ctx, paths)
			return nil, fmt.Errorf("failed to upload %s variant: %w", variant.name, err)
		}

		paths[variant.name] = stored
	}

	proof, err := s.proofRepo.Create(ctx, &domain.PaymentProof{
		ID:            proofID,
		StudentID:     studentID,
		TransactionID: transactionID,
		ThumbnailPath: paths["thumb"],
		DisplayPath:   paths["display"],
		OriginalPath:  paths["original"],
	})
	if err != nil {
		s.cleanup(ctx, paths)
		return nil, err
	}

	view, err := s.presign(ctx, proof)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("student_id", studentID.String()).
		Str("transaction_id", transactionID.String()).
		Str("proof_id", proofID.String()).
		Msg("Payment proof uploaded")

	if s.eventPublisher != nil {
		s.eventPublisher.Publish(studentID, websocket.ProofAttached(view))
	}

	return view, nil
}

// GetProof returns the proof of a transaction with freshly presigned URLs
func (s *ProofService) GetProof(ctx context.Context, studentID, transactionID uuid.UUID) (*ProofView, error) {
	if !s.IsEnabled() {
		return nil, ErrImageStorageNotConfigured
	}

	proof, err := s.proofRepo.GetByTransactionID(ctx, studentID, transactionID)
	if err != nil {
		return nil, err
	}

	return s.presign(ctx, proof)
}

func (s *ProofService) presign(ctx context.Context, proof *domain.PaymentProof) (*ProofView, error) {
	view := &ProofView{
		ID:            proof.ID,
		TransactionID: proof.TransactionID,
		CreatedAt:     proof.CreatedAt,
	}

	targets := []struct {
		path string
		dst  *string
	}{
		{proof.ThumbnailPath, &view.ThumbnailURL},
		{proof.DisplayPath, &view.DisplayURL},
		{proof.OriginalPath, &view.OriginalURL},
	}
	for _, t := range targets {
		url, err := s.store.GeneratePresignedURL(ctx, t.path, ProofURLExpiry)
		if err != nil {
			return nil, err
		}
		*t.dst = url
	}

	return view, nil
}

// cleanup removes variants uploaded during a failed operation, best effort
func (s *ProofService) cleanup(ctx context.Context, paths map[string]string) {
	for _, p := range paths {
		if err := s.store.Delete(ctx, p); err != nil {
			log.Warn().Err(err).Str("object_path", p).Msg("Failed to clean up proof variant")
		}
	}
}

// GetContentType returns the content type for a file extension
func GetContentType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ct, ok := AllowedExtensions[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}
