package payouts

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/zealits/bulkpayout-sub001/internal/providers"
)

// Reconciler refreshes local status from the provider for already-submitted
// batches. Unlike submission, which matches provider results by position,
// sync locates payments by their stored correlation id — by the time a sync
// runs every submitted payment carries one.
type Reconciler struct {
	db     *gorm.DB
	repo   *Repo
	gw     Gateways
	logger *slog.Logger
}

func NewReconciler(db *gorm.DB, gw Gateways) *Reconciler {
	return &Reconciler{db: db, repo: NewRepo(db), gw: gw, logger: slog.Default()}
}

func (r *Reconciler) SetLogger(l *slog.Logger) { r.logger = l }

type SyncResult struct {
	BatchID         string      `json:"batchId"`
	BatchStatus     BatchStatus `json:"batchStatus"`
	ProviderStatus  string      `json:"providerStatus,omitempty"`
	PaymentsChecked int         `json:"paymentsChecked"`
	PaymentsUpdated int         `json:"paymentsUpdated"`
	ItemsReconciled bool        `json:"itemsReconciled"`
	Message         string      `json:"message,omitempty"`
}

// Sync reconciles one batch. Writes happen only where the mapped provider
// status differs from the stored one, so a second sync with no upstream
// changes produces zero additional payment writes.
func (r *Reconciler) Sync(ctx context.Context, batchID string) (SyncResult, error) {
	b, err := r.repo.GetBatch(ctx, batchID)
	if err != nil {
		return SyncResult{}, err
	}

	res := SyncResult{BatchID: batchID, ItemsReconciled: true}

	switch b.PaymentMethod {
	case MethodPayPal:
		err = r.syncPayPal(ctx, b, &res)
	case MethodGiftCard:
		err = r.syncByLookup(ctx, b, &res, func(pm Payment) (*string, Status, *providers.Failure) {
			if pm.OrderID == nil {
				return nil, "", nil
			}
			result, fail := r.gw.GiftCard.GetOrder(ctx, *pm.OrderID)
			if fail != nil {
				return nil, "", fail
			}
			return pm.OrderID, MapGiftogramStatus(result.OrderStatus, result.RecipientStatus), nil
		})
	case MethodBankTransfer:
		err = r.syncByLookup(ctx, b, &res, func(pm Payment) (*string, Status, *providers.Failure) {
			if pm.ContractID == nil {
				return nil, "", nil
			}
			state, fail := r.gw.BankTransfer.GetContract(ctx, *pm.ContractID)
			if fail != nil {
				return nil, "", fail
			}
			return pm.ContractID, MapXEStatus(state.Status), nil
		})
	default:
		return SyncResult{}, ErrUnknownMethod
	}
	if err != nil {
		return SyncResult{}, err
	}

	agg, err := RecomputeAggregate(ctx, r.db, batchID)
	if err != nil {
		return SyncResult{}, err
	}
	res.BatchStatus = agg.Status
	return res, nil
}

func (r *Reconciler) syncPayPal(ctx context.Context, b Batch, res *SyncResult) error {
	if b.ProviderBatchID == nil {
		return ErrNotSubmitted
	}

	st, fail := r.gw.PayPal.GetBatchStatus(ctx, *b.ProviderBatchID)
	if fail != nil {
		desc := providers.DescribeFailure(providers.NamePayPal, fail)
		return fmt.Errorf("provider status query failed: %s", desc.Message)
	}
	res.ProviderStatus = st.BatchStatus

	if len(st.Items) == 0 {
		// Asynchronous settlement has not produced item detail upstream.
		// Batch-level status is refreshed; payments stay untouched, and we
		// say so instead of implying a full reconciliation.
		res.ItemsReconciled = false
		res.Message = "provider has not produced per-item detail yet; payments left unchanged"
		return nil
	}

	for _, item := range st.Items {
		res.PaymentsChecked++

		var pm Payment
		err := r.db.WithContext(ctx).
			First(&pm, "batch_id = ? AND payout_item_id = ?", b.ID, item.ItemID).Error
		if err != nil {
			r.logger.WarnContext(ctx, "sync: no local payment for payout item",
				"batch_id", b.ID, "payout_item_id", item.ItemID)
			continue
		}

		mapped := MapPayPalStatus(item.TransactionStatus)
		if mapped == pm.Status || !CanTransition(pm.Status, mapped) {
			continue
		}

		upd := PaymentUpdate{}
		if mapped == StatusFailed {
			code := item.ErrorCode
			msg := item.ErrorMessage
			if msg == "" {
				msg = providers.Describe(providers.NamePayPal, code).Message
			}
			upd.ErrorCode = &code
			upd.ErrorMessage = &msg
		}
		if err := r.repo.ApplyProviderOutcome(ctx, pm.ID, mapped, upd); err != nil {
			r.logger.ErrorContext(ctx, "sync: payment update failed", "payment_id", pm.ID, "err", err)
			continue
		}
		res.PaymentsUpdated++
	}
	return nil
}

// syncByLookup drives per-payment reconciliation for providers without a
// batch status call. lookup returns (correlationID, mappedStatus, failure);
// a nil correlation id means the payment was never submitted and is skipped.
func (r *Reconciler) syncByLookup(ctx context.Context, b Batch, res *SyncResult, lookup func(Payment) (*string, Status, *providers.Failure)) error {
	var payments []Payment
	if err := r.db.WithContext(ctx).
		Where("batch_id = ? AND status = ?", b.ID, StatusProcessing).
		Order("created_at ASC, id ASC").
		Find(&payments).Error; err != nil {
		return err
	}

	for _, pm := range payments {
		corrID, mapped, fail := lookup(pm)
		if fail != nil {
			r.logger.WarnContext(ctx, "sync: provider lookup failed",
				"payment_id", pm.ID, "code", fail.Code, "err", fail.Message)
			continue
		}
		if corrID == nil {
			continue
		}
		res.PaymentsChecked++

		if mapped == pm.Status || !CanTransition(pm.Status, mapped) {
			continue
		}
		if err := r.repo.ApplyProviderOutcome(ctx, pm.ID, mapped, PaymentUpdate{}); err != nil {
			r.logger.ErrorContext(ctx, "sync: payment update failed", "payment_id", pm.ID, "err", err)
			continue
		}
		res.PaymentsUpdated++
	}
	return nil
}
