package service

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"testing"
	"time"

	"github.com/jpmelo/financio-backend/internal/domain"
	"github.com/jpmelo/financio-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReceiptStorage struct {
	objects map[string][]byte
	deleted []string
}

func newFakeReceiptStorage() *fakeReceiptStorage {
	return &fakeReceiptStorage{objects: make(map[string][]byte)}
}

func (f *fakeReceiptStorage) Upload(ctx context.Context, objectPath string, data io.Reader, contentType string, size int64) (string, error) {
	body, err := io.ReadAll(data)
	if err != nil {
		return "", err
	}
	f.objects[objectPath] = body
	return objectPath, nil
}

func (f *fakeReceiptStorage) Delete(ctx context.Context, objectPath string) error {
	delete(f.objects, objectPath)
	f.deleted = append(f.deleted, objectPath)
	return nil
}

func (f *fakeReceiptStorage) GeneratePresignedURL(ctx context.Context, objectPath string, expiry time.Duration) (string, error) {
	return "https://storage.local/" + objectPath + "?signed", nil
}

func pngBytes(t *testing.T, width int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, 10))))
	return buf.Bytes()
}

func newReceiptFixture(t *testing.T) (*ReceiptService, *fakeReceiptStorage, *domain.FinancingPayment) {
	t.Helper()
	storage := newFakeReceiptStorage()
	paymentRepo := testutil.NewMockFinancingPaymentRepository()

	installment := int32(1)
	payment, err := paymentRepo.CreateTx(&testutil.MockTx{}, &domain.FinancingPayment{
		FinancingID:       1,
		AccountID:         1,
		InstallmentNumber: &installment,
		PaymentAmount:     dec("1066.19"),
		PrincipalAmount:   dec("946.19"),
		InterestAmount:    dec("120.00"),
		PaymentDate:       time.Now(),
		PaymentMethod:     "pix",
		PaymentType:       domain.PaymentTypeInstallment,
	})
	require.NoError(t, err)

	return NewReceiptService(storage, paymentRepo), storage, payment
}

func TestReceiptUpload_ImageReencodedAsJPEG(t *testing.T) {
	svc, storage, payment := newReceiptFixture(t)

	updated, err := svc.Upload(context.Background(), 1, payment.ID, pngBytes(t, 100), "receipt.png")
	require.NoError(t, err)
	require.NotNil(t, updated.ReceiptKey)
	assert.Contains(t, *updated.ReceiptKey, "1/payments/1/")
	assert.Contains(t, *updated.ReceiptKey, ".jpg")

	body, ok := storage.objects[*updated.ReceiptKey]
	require.True(t, ok)
	// JPEG magic bytes.
	assert.Equal(t, []byte{0xFF, 0xD8}, body[:2])
}

func TestReceiptUpload_PDFStoredUntouched(t *testing.T) {
	svc, storage, payment := newReceiptFixture(t)
	pdf := []byte("%PDF-1.4 fake document")

	updated, err := svc.Upload(context.Background(), 1, payment.ID, pdf, "receipt.pdf")
	require.NoError(t, err)
	require.NotNil(t, updated.ReceiptKey)
	assert.Contains(t, *updated.ReceiptKey, ".pdf")
	assert.Equal(t, pdf, storage.objects[*updated.ReceiptKey])
}

func TestReceiptUpload_ReplacesPrevious(t *testing.T) {
	svc, storage, payment := newReceiptFixture(t)

	first, err := svc.Upload(context.Background(), 1, payment.ID, pngBytes(t, 50), "a.png")
	require.NoError(t, err)
	firstKey := *first.ReceiptKey

	second, err := svc.Upload(context.Background(), 1, payment.ID, pngBytes(t, 50), "b.png")
	require.NoError(t, err)

	assert.NotEqual(t, firstKey, *second.ReceiptKey)
	assert.Contains(t, storage.deleted, firstKey)
	assert.Len(t, storage.objects, 1)
}

func TestReceiptUpload_Validation(t *testing.T) {
	svc, _, payment := newReceiptFixture(t)

	_, err := svc.Upload(context.Background(), 1, payment.ID, []byte("data"), "receipt.exe")
	assert.Equal(t, ErrReceiptInvalidFormat, err)

	_, err = svc.Upload(context.Background(), 1, payment.ID, make([]byte, MaxReceiptSize+1), "receipt.png")
	assert.Equal(t, ErrReceiptTooLarge, err)

	_, err = svc.Upload(context.Background(), 1, payment.ID, []byte("not an image"), "receipt.png")
	assert.Equal(t, ErrReceiptInvalidData, err)

	_, err = svc.Upload(context.Background(), 1, 999, pngBytes(t, 10), "receipt.png")
	assert.Equal(t, domain.ErrPaymentNotFound, err)
}

func TestReceiptService_Disabled(t *testing.T) {
	svc := NewReceiptService(nil, testutil.NewMockFinancingPaymentRepository())

	assert.False(t, svc.IsEnabled())
	_, err := svc.Upload(context.Background(), 1, 1, []byte("x"), "a.png")
	assert.Equal(t, ErrReceiptStorageNotConfigured, err)
	_, err = svc.PresignedURL(context.Background(), 1, 1)
	assert.Equal(t, ErrReceiptStorageNotConfigured, err)
	assert.Equal(t, ErrReceiptStorageNotConfigured, svc.Delete(context.Background(), 1, 1))
}

func TestReceiptPresignedURL(t *testing.T) {
	svc, _, payment := newReceiptFixture(t)

	_, err := svc.PresignedURL(context.Background(), 1, payment.ID)
	assert.Equal(t, ErrReceiptNotFound, err)

	updated, err := svc.Upload(context.Background(), 1, payment.ID, pngBytes(t, 10), "receipt.png")
	require.NoError(t, err)

	url, err := svc.PresignedURL(context.Background(), 1, payment.ID)
	require.NoError(t, err)
	assert.Contains(t, url, *updated.ReceiptKey)
}

func TestReceiptDelete(t *testing.T) {
	svc, storage, payment := newReceiptFixture(t)

	assert.Equal(t, ErrReceiptNotFound, svc.Delete(context.Background(), 1, payment.ID))

	updated, err := svc.Upload(context.Background(), 1, payment.ID, pngBytes(t, 10), "receipt.png")
	require.NoError(t, err)
	key := *updated.ReceiptKey

	require.NoError(t, svc.Delete(context.Background(), 1, payment.ID))
	assert.Nil(t, payment.ReceiptKey)
	assert.NotContains(t, storage.objects, key)
}
