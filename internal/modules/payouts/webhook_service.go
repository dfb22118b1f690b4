package payouts

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProviderEvent is one received webhook, persisted for dedupe and audit.
type ProviderEvent struct {
	ID          string         `gorm:"type:char(36);primaryKey"`
	Provider    string         `gorm:"type:varchar(64);not null;uniqueIndex:ux_provider_events_provider_event,priority:1"`
	EventID     string         `gorm:"type:varchar(128);not null;uniqueIndex:ux_provider_events_provider_event,priority:2"`
	EventType   string         `gorm:"type:varchar(64);not null"`
	PayloadJSON datatypes.JSON `gorm:"type:json;not null"`

	ReceivedAt   time.Time  `gorm:"precision:3;not null"`
	ProcessedAt  *time.Time `gorm:"precision:3"`
	ProcessError *string    `gorm:"type:varchar(255)"`
}

func (ProviderEvent) TableName() string { return "provider_events" }

// WebhookEvent is a parsed payout notification. PayPal is the only rail
// that pushes events today; Giftogram and XE settle via the reconciler.
type WebhookEvent struct {
	EventID       string
	Type          string // e.g. PAYMENT.PAYOUTS-ITEM.SUCCEEDED
	PayoutItemID  string
	PayoutBatchID string
	ItemStatus    string
	ErrorCode     string
	ErrorMessage  string
}

type WebhookService struct {
	db     *gorm.DB
	repo   *Repo
	logger *slog.Logger
}

func NewWebhookService(db *gorm.DB) *WebhookService {
	return &WebhookService{db: db, repo: NewRepo(db), logger: slog.Default()}
}

func (s *WebhookService) SetLogger(l *slog.Logger) { s.logger = l }

func (s *WebhookService) Handle(ctx context.Context, providerName string, ev WebhookEvent, rawBody []byte) error {
	payload, _ := json.RawMessage(rawBody).MarshalJSON()
	now := time.Now()

	pe := ProviderEvent{
		ID:          uuid.NewString(),
		Provider:    providerName,
		EventID:     ev.EventID,
		EventType:   ev.Type,
		PayloadJSON: datatypes.JSON(payload),
		ReceivedAt:  now,
	}

	// The event row is inserted outside the apply transaction so that it
	// survives an apply failure: unique(provider, event_id) then deduplicates
	// the provider's retry, and the reconciler picks up whatever the failed
	// apply missed. A replay is acknowledged with 200 and no further work.
	if err := s.db.WithContext(ctx).Create(&pe).Error; err != nil {
		if isDup(err) {
			s.logger.InfoContext(ctx, "webhook event deduplicated",
				"provider", providerName, "event_id", ev.EventID, "type", ev.Type)
			return nil
		}
		return err
	}

	applyErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.apply(ctx, tx, ev)
	})
	if applyErr != nil {
		msg := truncate(applyErr.Error(), 250)
		if err := s.db.WithContext(ctx).Model(&ProviderEvent{}).
			Where("id = ?", pe.ID).
			Updates(map[string]any{"process_error": msg}).Error; err != nil {
			return err
		}
		s.logger.ErrorContext(ctx, "webhook event apply failed",
			"provider", providerName, "event_id", ev.EventID, "type", ev.Type, "error", msg)
		// propagate so the endpoint answers 500
		return applyErr
	}

	return s.db.WithContext(ctx).Model(&ProviderEvent{}).
		Where("id = ?", pe.ID).
		Updates(map[string]any{"processed_at": now}).Error
}

// apply locates the payment by its payout-item correlation id and moves it
// to the status the event carries, then recomputes the batch aggregate.
func (s *WebhookService) apply(ctx context.Context, tx *gorm.DB, ev WebhookEvent) error {
	if !strings.HasPrefix(ev.Type, "PAYMENT.PAYOUTS-ITEM.") {
		// batch-level events carry nothing the reconciler doesn't cover
		return nil
	}
	if ev.PayoutItemID == "" {
		return errors.New("payout item event without item id")
	}

	var pm Payment
	if err := tx.WithContext(ctx).
		First(&pm, "payout_item_id = ?", ev.PayoutItemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New("no payment for payout item " + ev.PayoutItemID)
		}
		return err
	}

	status := ev.ItemStatus
	if status == "" {
		// derive from the event type suffix: SUCCEEDED, FAILED, ...
		status = strings.TrimPrefix(ev.Type, "PAYMENT.PAYOUTS-ITEM.")
	}
	mapped := MapPayPalStatus(normalizeEventStatus(status))
	if mapped == pm.Status || !CanTransition(pm.Status, mapped) {
		return nil
	}

	upd := PaymentUpdate{}
	if mapped == StatusFailed && ev.ErrorMessage != "" {
		upd.ErrorCode = &ev.ErrorCode
		upd.ErrorMessage = &ev.ErrorMessage
	}
	if err := updatePaymentStatusTx(ctx, tx, pm.ID, mapped, upd); err != nil {
		return err
	}

	_, err := RecomputeAggregate(ctx, tx, pm.BatchID)
	return err
}

// normalizeEventStatus: webhook suffixes differ slightly from the payout
// item vocabulary (SUCCEEDED vs SUCCESS).
func normalizeEventStatus(s string) string {
	switch strings.ToUpper(s) {
	case "SUCCEEDED":
		return "SUCCESS"
	case "DENIED":
		return "DENIED"
	}
	return s
}

func isDup(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return false
}
