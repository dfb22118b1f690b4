package payouts

import (
	"time"

	"gorm.io/datatypes"
)

// Canonical payment status. Providers speak their own vocabularies; the
// status mapper translates into this set and nothing else is persisted.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

var statusRank = map[Status]int{
	StatusPending:    0,
	StatusProcessing: 1,
	StatusCompleted:  2,
	StatusFailed:     2,
	StatusCancelled:  2,
}

// CanTransition enforces monotonic forward movement:
// pending -> processing -> {completed|failed}; cancelled only overrides
// pending or processing.
func CanTransition(from, to Status) bool {
	if from == to {
		return false
	}
	if to == StatusCancelled {
		return from == StatusPending || from == StatusProcessing
	}
	return statusRank[to] > statusRank[from]
}

type BatchStatus string

const (
	BatchDraft      BatchStatus = "draft"
	BatchUploaded   BatchStatus = "uploaded"
	BatchProcessing BatchStatus = "processing"
	BatchCompleted  BatchStatus = "completed"
	BatchFailed     BatchStatus = "failed"
	BatchPartial    BatchStatus = "partial"
)

// Deletable: a batch can only be removed before any submission happened.
func (s BatchStatus) Deletable() bool {
	return s == BatchDraft || s == BatchUploaded
}

type Method string

const (
	MethodPayPal       Method = "paypal"
	MethodGiftCard     Method = "giftcard"
	MethodBankTransfer Method = "banktransfer"
)

func (m Method) Valid() bool {
	switch m {
	case MethodPayPal, MethodGiftCard, MethodBankTransfer:
		return true
	}
	return false
}

type Batch struct {
	ID            string      `gorm:"type:char(36);primaryKey"`
	Name          string      `gorm:"type:varchar(255);not null"`
	PaymentMethod Method      `gorm:"type:varchar(32);not null"`
	Status        BatchStatus `gorm:"type:varchar(32);not null;index:ix_batches_status"`

	// Provider-specific submission config (campaign id, email subject, ...).
	ProviderConfig datatypes.JSON `gorm:"type:json"`

	// Provider batch correlation (PayPal payout_batch_id).
	ProviderBatchID *string `gorm:"type:varchar(128);index:ix_batches_provider_batch"`

	// Aggregate counters, recomputed from child payments. Never set by hand
	// outside the aggregate recomputation and the early-exit control states.
	SuccessCount     int   `gorm:"not null;default:0"`
	FailureCount     int   `gorm:"not null;default:0"`
	PendingCount     int   `gorm:"not null;default:0"`
	TotalAmountCents int64 `gorm:"not null;default:0"`

	ErrorMessage *string `gorm:"type:varchar(512)"`

	// Archived copy of the uploaded recipient file, when one was provided.
	SourceFileKey *string `gorm:"type:varchar(255)"`

	ProcessedAt *time.Time `gorm:"precision:3"`
	CreatedAt   time.Time  `gorm:"precision:3;not null"`
	UpdatedAt   time.Time  `gorm:"precision:3;not null"`
}

func (Batch) TableName() string { return "payout_batches" }

type Payment struct {
	ID      string `gorm:"type:char(36);primaryKey"`
	BatchID string `gorm:"type:char(36);not null;index:ix_payments_batch_id"`

	RecipientName  string `gorm:"type:varchar(255);not null"`
	RecipientEmail string `gorm:"type:varchar(255);not null"`

	AmountCents   int64  `gorm:"not null"`
	Currency      string `gorm:"type:char(3);not null"`
	PaymentMethod Method `gorm:"type:varchar(32);not null"`

	Status Status `gorm:"type:varchar(32);not null;index:ix_payments_status"`

	// Provider correlation ids. Set only when a submit call returned a
	// recognized success payload for this payment.
	PayoutItemID *string `gorm:"type:varchar(128);index:ix_payments_payout_item"` // PayPal
	OrderID      *string `gorm:"type:varchar(128);index:ix_payments_order_id"`    // Giftogram
	RecipientID  *string `gorm:"type:varchar(128)"`                               // XE
	ContractID   *string `gorm:"type:varchar(128);index:ix_payments_contract_id"` // XE

	ErrorCode    *string `gorm:"type:varchar(64)"`
	ErrorMessage *string `gorm:"type:varchar(512)"`

	// Provider-specific extras from the upload row (bank account details
	// for cross-border transfers, gift message, ...).
	Meta datatypes.JSON `gorm:"type:json"`

	InitiatedAt time.Time  `gorm:"precision:3;not null"`
	ProcessedAt *time.Time `gorm:"precision:3"`
	CompletedAt *time.Time `gorm:"precision:3"`
	CreatedAt   time.Time  `gorm:"precision:3;not null"`
	UpdatedAt   time.Time  `gorm:"precision:3;not null"`
}

func (Payment) TableName() string { return "payout_payments" }
