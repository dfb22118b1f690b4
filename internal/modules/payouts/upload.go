package payouts

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/zealits/bulkpayout-sub001/internal/storage"
)

// Uploader turns raw recipient rows into a Batch plus pending Payments.
type Uploader struct {
	db      *gorm.DB
	logger  *slog.Logger
	archive storage.Storage // optional: raw upload file archival
}

func NewUploader(db *gorm.DB) *Uploader {
	return &Uploader{db: db, logger: slog.Default()}
}

func (u *Uploader) SetLogger(l *slog.Logger) { u.logger = l }

// SetArchive enables archival of the original uploaded file.
func (u *Uploader) SetArchive(s storage.Storage) { u.archive = s }

type UploadRow struct {
	RecipientName  string            `json:"recipientName" binding:"required"`
	RecipientEmail string            `json:"recipientEmail" binding:"required,email"`
	Amount         float64           `json:"amount" binding:"required,gt=0"`
	Currency       string            `json:"currency"`
	Meta           map[string]string `json:"meta"`
}

type UploadInput struct {
	Name           string
	PaymentMethod  Method
	Currency       string // default for rows without one
	ProviderConfig json.RawMessage
	Rows           []UploadRow
}

type UploadResult struct {
	BatchID       string      `json:"batchId"`
	Status        BatchStatus `json:"status"`
	TotalPayments int         `json:"totalPayments"`
}

// Create persists the batch and its payments in one transaction. Every
// payment starts pending; the batch starts uploaded.
func (u *Uploader) Create(ctx context.Context, in UploadInput) (UploadResult, error) {
	if !in.PaymentMethod.Valid() {
		return UploadResult{}, ErrUnknownMethod
	}

	now := time.Now()
	batchID := uuid.NewString()

	b := Batch{
		ID:            batchID,
		Name:          in.Name,
		PaymentMethod: in.PaymentMethod,
		Status:        BatchUploaded,
		PendingCount:  len(in.Rows),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if len(in.ProviderConfig) > 0 {
		b.ProviderConfig = datatypes.JSON(in.ProviderConfig)
	}

	payments := make([]Payment, len(in.Rows))
	for i, row := range in.Rows {
		currency := row.Currency
		if currency == "" {
			currency = in.Currency
		}
		if currency == "" {
			currency = "USD"
		}
		var meta datatypes.JSON
		if len(row.Meta) > 0 {
			raw, _ := json.Marshal(row.Meta)
			meta = datatypes.JSON(raw)
		}
		payments[i] = Payment{
			ID:             uuid.NewString(),
			BatchID:        batchID,
			RecipientName:  row.RecipientName,
			RecipientEmail: row.RecipientEmail,
			AmountCents:    toCents(row.Amount),
			Currency:       currency,
			PaymentMethod:  in.PaymentMethod,
			Status:         StatusPending,
			Meta:           meta,
			InitiatedAt:    now,
			// Stable upload order: created_at carries the row sequence so
			// positional matching at submit time is deterministic.
			CreatedAt: now.Add(time.Duration(i) * time.Microsecond),
			UpdatedAt: now,
		}
	}

	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&b).Error; err != nil {
			return err
		}
		if len(payments) == 0 {
			return nil
		}
		return tx.CreateInBatches(payments, 200).Error
	})
	if err != nil {
		return UploadResult{}, err
	}

	u.logger.InfoContext(ctx, "batch uploaded",
		"batch_id", batchID, "method", in.PaymentMethod, "payments", len(payments))

	return UploadResult{BatchID: batchID, Status: b.Status, TotalPayments: len(payments)}, nil
}

// ArchiveFile stores the raw uploaded file and records its key on the batch.
// Best-effort: archival failure does not fail the upload.
func (u *Uploader) ArchiveFile(ctx context.Context, batchID, filename, contentType string, size int64, r io.Reader) {
	if u.archive == nil {
		return
	}
	put, err := u.archive.Put(ctx, r, storage.PutInput{
		Filename:    filename,
		ContentType: contentType,
		Size:        size,
		KeyPrefix:   "batches/" + batchID,
	})
	if err != nil {
		u.logger.WarnContext(ctx, "upload archive failed", "batch_id", batchID, "err", err)
		return
	}
	if err := u.db.WithContext(ctx).Model(&Batch{}).
		Where("id = ?", batchID).
		Updates(map[string]any{"source_file_key": put.Key, "updated_at": time.Now()}).Error; err != nil {
		u.logger.WarnContext(ctx, "failed to record archive key", "batch_id", batchID, "err", err)
	}
}

func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
