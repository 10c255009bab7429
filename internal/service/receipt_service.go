package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/jpmelo/financio-backend/internal/domain"
	"github.com/jpmelo/financio-backend/internal/repository/storage"
)

const (
	MaxReceiptSize     = 10 * 1024 * 1024 // 10MB
	ReceiptMaxWidth    = 2000
	ReceiptJPEGQuality = 85
	ReceiptURLExpiry   = 15 * time.Minute
)

var (
	ErrReceiptTooLarge             = errors.New("receipt too large. Maximum size is 10MB")
	ErrReceiptInvalidFormat        = errors.New("invalid format. Supported: JPEG, PNG, PDF")
	ErrReceiptInvalidData          = errors.New("invalid receipt data")
	ErrReceiptNotFound             = errors.New("payment has no receipt attached")
	ErrReceiptStorageNotConfigured = errors.New("receipt storage not configured")
)

// receiptExtensions maps allowed extensions to content types.
var receiptExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".pdf":  "application/pdf",
}

// ReceiptService attaches proof-of-payment documents to financing payments.
// The receipt key is, together with the observation text, the only mutable
// field on a committed payment.
type ReceiptService struct {
	storage     storage.ReceiptRepository
	paymentRepo domain.FinancingPaymentRepository
}

// NewReceiptService creates a new ReceiptService
func NewReceiptService(storage storage.ReceiptRepository, paymentRepo domain.FinancingPaymentRepository) *ReceiptService {
	return &ReceiptService{
		storage:     storage,
		paymentRepo: paymentRepo,
	}
}

// IsEnabled indicates whether uploads/deletes are supported (storage configured).
func (s *ReceiptService) IsEnabled() bool {
	return s != nil && s.storage != nil
}

// Upload validates, normalizes and stores a receipt for a payment, replacing
// any previous one. Images are downscaled and re-encoded; PDFs are stored
// untouched.
func (s *ReceiptService) Upload(ctx context.Context, workspaceID int32, paymentID int32, data []byte, filename string) (*domain.FinancingPayment, error) {
	if !s.IsEnabled() {
		return nil, ErrReceiptStorageNotConfigured
	}
	if len(data) > MaxReceiptSize {
		return nil, ErrReceiptTooLarge
	}

	ext := strings.ToLower(filepath.Ext(filename))
	contentType, ok := receiptExtensions[ext]
	if !ok {
		return nil, ErrReceiptInvalidFormat
	}

	payment, err := s.paymentRepo.GetByID(workspaceID, paymentID)
	if err != nil {
		return nil, err
	}

	body := data
	storedExt := ext
	if contentType != "application/pdf" {
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, ErrReceiptInvalidData
		}
		if img.Bounds().Dx() > ReceiptMaxWidth {
			img = imaging.Resize(img, ReceiptMaxWidth, 0, imaging.Lanczos)
		}
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: ReceiptJPEGQuality}); err != nil {
			return nil, fmt.Errorf("encode receipt: %w", err)
		}
		body = buf.Bytes()
		contentType = "image/jpeg"
		storedExt = ".jpg"
	}

	key := fmt.Sprintf("%d/payments/%d/%s%s", workspaceID, payment.ID, uuid.New().String(), storedExt)
	if _, err := s.storage.Upload(ctx, key, bytes.NewReader(body), contentType, int64(len(body))); err != nil {
		return nil, fmt.Errorf("upload receipt: %w", err)
	}

	// Replace before updating the row, so a failed update leaves the old key intact.
	old := payment.ReceiptKey
	updated, err := s.paymentRepo.UpdateReceiptKey(workspaceID, payment.ID, &key)
	if err != nil {
		_ = s.storage.Delete(ctx, key)
		return nil, err
	}
	if old != nil {
		_ = s.storage.Delete(ctx, *old)
	}
	return updated, nil
}

// PresignedURL returns a short-lived URL for the payment's receipt.
func (s *ReceiptService) PresignedURL(ctx context.Context, workspaceID int32, paymentID int32) (string, error) {
	if !s.IsEnabled() {
		return "", ErrReceiptStorageNotConfigured
	}
	payment, err := s.paymentRepo.GetByID(workspaceID, paymentID)
	if err != nil {
		return "", err
	}
	if payment.ReceiptKey == nil {
		return "", ErrReceiptNotFound
	}
	return s.storage.GeneratePresignedURL(ctx, *payment.ReceiptKey, ReceiptURLExpiry)
}

// Delete removes the payment's receipt and clears the key.
func (s *ReceiptService) Delete(ctx context.Context, workspaceID int32, paymentID int32) error {
	if !s.IsEnabled() {
		return ErrReceiptStorageNotConfigured
	}
	payment, err := s.paymentRepo.GetByID(workspaceID, paymentID)
	if err != nil {
		return err
	}
	if payment.ReceiptKey == nil {
		return ErrReceiptNotFound
	}
	if err := s.storage.Delete(ctx, *payment.ReceiptKey); err != nil {
		return err
	}
	_, err = s.paymentRepo.UpdateReceiptKey(workspaceID, paymentID, nil)
	return err
}
