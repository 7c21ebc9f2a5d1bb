package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/dafibh/academia/academia-backend/internal/domain"
	"github.com/dafibh/academia/academia-backend/internal/repository/storage"
	"github.com/dafibh/academia/academia-backend/internal/testutil"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestImage creates a test image of the specified size and format
func createTestImage(width, height int, format string) ([]byte, string) {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 0, G: 128, B: 255, A: 255})
		}
	}

	var buf bytes.Buffer
	var filename string

	switch format {
	case "png":
		png.Encode(&buf, img)
		filename = "slip.png"
	default:
		jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85})
		filename = "slip.jpg"
	}

	return buf.Bytes(), filename
}

// stubTransactions resolves only the transactions it holds
type stubTransactions map[uuid.UUID]*Transaction

func (s stubTransactions) GetTransaction(ctx context.Context, studentID, transactionID uuid.UUID) (*Transaction, error) {
	txn, ok := s[transactionID]
	if !ok || txn.StudentID != studentID {
		return nil, domain.ErrTransactionNotFound
	}
	return txn, nil
}

type proofFixture struct {
	studentID     uuid.UUID
	transactionID uuid.UUID
	store         *testutil.MockProofStore
	proofs        *testutil.MockPaymentProofRepository
	publisher     *testutil.MockEventPublisher
	svc           *ProofService
}

func newProofFixture(t *testing.T) *proofFixture {
	t.Helper()

	f := &proofFixture{
		studentID:     uuid.New(),
		transactionID: uuid.New(),
		store:         testutil.NewMockProofStore(),
		proofs:        testutil.NewMockPaymentProofRepository(),
		publisher:     &testutil.MockEventPublisher{},
	}
	lookup := stubTransactions{
		f.transactionID: {TransactionID: f.transactionID, StudentID: f.studentID},
	}
	f.svc = NewProofService(f.store, f.proofs, lookup)
	f.svc.SetEventPublisher(f.publisher)
	return f
}

func TestValidateImage_ValidJPEG(t *testing.T) {
	svc := NewProofService(nil, nil, nil)
	data, filename := createTestImage(100, 100, "jpeg")

	err := svc.ValidateImage(data, filename)
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestValidateImage_ValidPNG(t *testing.T) {
	svc := NewProofService(nil, nil, nil)
	data, filename := createTestImage(100, 100, "png")

	err := svc.ValidateImage(data, filename)
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestValidateImage_Errors(t *testing.T) {
	svc := NewProofService(nil, nil, nil)
	valid, _ := createTestImage(100, 100, "jpeg")
	small, smallName := createTestImage(30, 30, "jpeg")

	tests := []struct {
		name     string
		data     []byte
		filename string
		wantErr  error
	}{
		{"too large", make([]byte, MaxImageSize+1), "slip.jpg", ErrImageTooLarge},
		{"gif extension", valid, "slip.gif", ErrInvalidFormat},
		{"webp extension", valid, "slip.webp", ErrInvalidFormat},
		{"too small", small, smallName, ErrImageTooSmall},
		{"not an image", []byte("not an image"), "slip.jpg", ErrInvalidImageData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.ValidateImage(tt.data, tt.filename)
			if err != tt.wantErr {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestGetContentType(t *testing.T) {
	tests := []struct {
		filename string
		expected string
	}{
		{"slip.jpg", "image/jpeg"},
		{"slip.JPEG", "image/jpeg"},
		{"slip.png", "image/png"},
		{"slip.gif", "application/octet-stream"},
		{"slip.txt", "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			ct := GetContentType(tt.filename)
			if ct != tt.expected {
				t.Errorf("GetContentType(%s) = %s, expected %s", tt.filename, ct, tt.expected)
			}
		})
	}
}

func TestUploadProof_StoresThreeVariants(t *testing.T) {
	f := newProofFixture(t)
	data, filename := createTestImage(1200, 600, "png")

	view, err := f.svc.UploadProof(context.Background(), f.studentID, f.transactionID, data, filename)
	require.NoError(t, err)

	assert.Equal(t, f.transactionID, view.TransactionID)
	assert.Len(t, f.store.Objects, 3)

	thumbPath := storage.ProofObjectPath(f.studentID, f.transactionID, view.ID, "thumb")
	assert.True(t, strings.HasPrefix(view.ThumbnailURL, "https://storage.test/"+thumbPath))
	assert.Contains(t, view.DisplayURL, "_display.jpg")
	assert.Contains(t, view.OriginalURL, "_original.jpg?expires=900")

	widths := map[string]int{"thumb": ThumbnailWidth, "display": DisplayWidth, "original": 1200}
	for variant, want := range widths {
		stored := f.store.Objects[storage.ProofObjectPath(f.studentID, f.transactionID, view.ID, variant)]
		img, err := imaging.Decode(bytes.NewReader(stored))
		require.NoError(t, err, variant)
		assert.Equal(t, want, img.Bounds().Dx(), variant)
	}

	assert.Equal(t, []string{"proof.attached"}, f.publisher.Types())
}

func TestUploadProof_SmallImageIsNotUpscaled(t *testing.T) {
	f := newProofFixture(t)
	data, filename := createTestImage(120, 80, "jpeg")

	view, err := f.svc.UploadProof(context.Background(), f.studentID, f.transactionID, data, filename)
	require.NoError(t, err)

	stored := f.store.Objects[storage.ProofObjectPath(f.studentID, f.transactionID, view.ID, "display")]
	img, err := imaging.Decode(bytes.NewReader(stored))
	require.NoError(t, err)
	assert.Equal(t, 120, img.Bounds().Dx())
}

func TestUploadProof_CleansUpAfterUploadFailure(t *testing.T) {
	f := newProofFixture(t)
	f.store.UploadErr = errors.New("bucket unavailable")
	f.store.FailOnUpload = 2
	data, filename := createTestImage(300, 300, "jpeg")

	_, err := f.svc.UploadProof(context.Background(), f.studentID, f.transactionID, data, filename)

	require.Error(t, err)
	assert.Empty(t, f.store.Objects)
	assert.Len(t, f.store.Deleted, 1)
	assert.Contains(t, f.store.Deleted[0], "_thumb.jpg")
	assert.Empty(t, f.proofs.Proofs)
}

func TestUploadProof_CleansUpAfterRecordFailure(t *testing.T) {
	f := newProofFixture(t)
	f.proofs.CreateErr = errors.New("insert failed")
	data, filename := createTestImage(300, 300, "jpeg")

	_, err := f.svc.UploadProof(context.Background(), f.studentID, f.transactionID, data, filename)

	require.Error(t, err)
	assert.Empty(t, f.store.Objects)
	assert.Len(t, f.store.Deleted, 3)
	assert.Empty(t, f.publisher.Types())
}

func TestUploadProof_UnknownTransaction(t *testing.T) {
	f := newProofFixture(t)
	data, filename := createTestImage(100, 100, "jpeg")

	_, err := f.svc.UploadProof(context.Background(), f.studentID, uuid.New(), data, filename)

	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
	assert.Empty(t, f.store.Objects)
}

func TestUploadProof_StorageNotConfigured(t *testing.T) {
	svc := NewProofService(nil, testutil.NewMockPaymentProofRepository(), stubTransactions{})
	data, filename := createTestImage(100, 100, "jpeg")

	assert.False(t, svc.IsEnabled())
	_, err := svc.UploadProof(context.Background(), uuid.New(), uuid.New(), data, filename)
	assert.ErrorIs(t, err, ErrImageStorageNotConfigured)
}

func TestGetProof(t *testing.T) {
	f := newProofFixture(t)
	data, filename := createTestImage(100, 100, "jpeg")

	uploaded, err := f.svc.UploadProof(context.Background(), f.studentID, f.transactionID, data, filename)
	require.NoError(t, err)

	view, err := f.svc.GetProof(context.Background(), f.studentID, f.transactionID)
	require.NoError(t, err)
	assert.Equal(t, uploaded.ID, view.ID)
	assert.Equal(t, uploaded.ThumbnailURL, view.ThumbnailURL)

	_, err = f.svc.GetProof(context.Background(), uuid.New(), f.transactionID)
	assert.ErrorIs(t, err, domain.ErrProofNotFound)
}
