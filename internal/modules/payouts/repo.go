package payouts

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"
)

type Repo struct{ db *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db} }

// DB returns the underlying database connection for direct queries.
func (r *Repo) DB() *gorm.DB { return r.db }

func (r *Repo) GetBatch(ctx context.Context, batchID string) (Batch, error) {
	var b Batch
	err := r.db.WithContext(ctx).First(&b, "id = ?", batchID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Batch{}, ErrBatchNotFound
	}
	return b, err
}

type ListBatchesParams struct {
	Status   string // optional filter
	Method   string // optional filter
	Page     int
	PageSize int
}

type ListBatchesResult struct {
	Items []Batch
	Total int64
}

func (r *Repo) ListBatches(ctx context.Context, in ListBatchesParams) (ListBatchesResult, error) {
	page := in.Page
	if page < 1 {
		page = 1
	}
	size := in.PageSize
	if size < 1 || size > 100 {
		size = 20
	}

	q := r.db.WithContext(ctx).Model(&Batch{})
	if s := strings.TrimSpace(in.Status); s != "" {
		q = q.Where("status = ?", s)
	}
	if m := strings.TrimSpace(in.Method); m != "" {
		q = q.Where("payment_method = ?", m)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return ListBatchesResult{}, err
	}

	var items []Batch
	if err := q.
		Order("created_at DESC").
		Limit(size).
		Offset((page - 1) * size).
		Find(&items).Error; err != nil {
		return ListBatchesResult{}, err
	}

	return ListBatchesResult{Items: items, Total: total}, nil
}

// DeleteBatch removes a batch and its payments, allowed only while the batch
// is still in a pre-processing state.
func (r *Repo) DeleteBatch(ctx context.Context, batchID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var b Batch
		if err := tx.First(&b, "id = ?", batchID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBatchNotFound
			}
			return err
		}
		if !b.Status.Deletable() {
			return ErrBatchNotDeletable
		}
		if err := tx.Where("batch_id = ?", batchID).Delete(&Payment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Batch{}, "id = ?", batchID).Error
	})
}

func (r *Repo) GetPayment(ctx context.Context, paymentID string) (Payment, error) {
	var p Payment
	err := r.db.WithContext(ctx).First(&p, "id = ?", paymentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Payment{}, ErrPaymentNotFound
	}
	return p, err
}

type ListPaymentsParams struct {
	BatchID  string
	Status   string // optional filter
	Page     int
	PageSize int
}

type ListPaymentsResult struct {
	Items []Payment
	Total int64
}

func (r *Repo) ListPayments(ctx context.Context, in ListPaymentsParams) (ListPaymentsResult, error) {
	page := in.Page
	if page < 1 {
		page = 1
	}
	size := in.PageSize
	if size < 1 || size > 500 {
		size = 50
	}

	q := r.db.WithContext(ctx).Model(&Payment{}).Where("batch_id = ?", in.BatchID)
	if s := strings.TrimSpace(in.Status); s != "" {
		q = q.Where("status = ?", s)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return ListPaymentsResult{}, err
	}

	var items []Payment
	if err := q.
		Order("created_at ASC").
		Limit(size).
		Offset((page - 1) * size).
		Find(&items).Error; err != nil {
		return ListPaymentsResult{}, err
	}

	return ListPaymentsResult{Items: items, Total: total}, nil
}

// PendingPayments loads the submittable rows of a batch in upload order.
// Submission later matches provider results to this slice by index, so the
// ordering must be stable.
func (r *Repo) PendingPayments(ctx context.Context, batchID string, method Method) ([]Payment, error) {
	var items []Payment
	q := r.db.WithContext(ctx).
		Where("batch_id = ? AND status = ?", batchID, StatusPending)
	if method != "" {
		q = q.Where("payment_method = ?", method)
	}
	err := q.Order("created_at ASC, id ASC").Find(&items).Error
	return items, err
}

// PaymentUpdate carries the provider fields that may land together with a
// status change.
type PaymentUpdate struct {
	PayoutItemID *string
	OrderID      *string
	RecipientID  *string
	ContractID   *string
	ErrorCode    *string
	ErrorMessage *string
}

// UpdatePaymentStatus applies a monotonic status transition plus any
// provider correlation fields. ErrBadTransition when the move would go
// backwards or out of a terminal state.
func (r *Repo) UpdatePaymentStatus(ctx context.Context, paymentID string, to Status, upd PaymentUpdate) error {
	return updatePaymentStatusTx(ctx, r.db, paymentID, to, upd)
}

func updatePaymentStatusTx(ctx context.Context, db *gorm.DB, paymentID string, to Status, upd PaymentUpdate) error {
	var p Payment
	if err := db.WithContext(ctx).First(&p, "id = ?", paymentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPaymentNotFound
		}
		return err
	}
	if !CanTransition(p.Status, to) {
		return ErrBadTransition
	}

	now := time.Now()
	updates := map[string]any{
		"status":     to,
		"updated_at": now,
	}
	switch to {
	case StatusProcessing:
		updates["processed_at"] = now
	case StatusCompleted, StatusFailed, StatusCancelled:
		updates["completed_at"] = now
	}
	if upd.PayoutItemID != nil {
		updates["payout_item_id"] = *upd.PayoutItemID
	}
	if upd.OrderID != nil {
		updates["order_id"] = *upd.OrderID
	}
	if upd.RecipientID != nil {
		updates["recipient_id"] = *upd.RecipientID
	}
	if upd.ContractID != nil {
		updates["contract_id"] = *upd.ContractID
	}
	if upd.ErrorCode != nil {
		updates["error_code"] = *upd.ErrorCode
	}
	if upd.ErrorMessage != nil {
		updates["error_message"] = truncate(*upd.ErrorMessage, 500)
	}

	return db.WithContext(ctx).Model(&Payment{}).
		Where("id = ?", paymentID).
		Updates(updates).Error
}

type Stats struct {
	TotalBatches     int64                 `json:"totalBatches"`
	BatchesByStatus  map[BatchStatus]int64 `json:"batchesByStatus"`
	TotalPayments    int64                 `json:"totalPayments"`
	PaymentsByStatus map[Status]int64      `json:"paymentsByStatus"`
	TotalPaidCents   int64                 `json:"totalPaidCents"`
}

func (r *Repo) Stats(ctx context.Context) (Stats, error) {
	st := Stats{
		BatchesByStatus:  map[BatchStatus]int64{},
		PaymentsByStatus: map[Status]int64{},
	}

	var batchRows []struct {
		Status BatchStatus
		N      int64
	}
	if err := r.db.WithContext(ctx).Model(&Batch{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&batchRows).Error; err != nil {
		return Stats{}, err
	}
	for _, row := range batchRows {
		st.BatchesByStatus[row.Status] = row.N
		st.TotalBatches += row.N
	}

	var payRows []struct {
		Status Status
		N      int64
		Amount int64
	}
	if err := r.db.WithContext(ctx).Model(&Payment{}).
		Select("status, COUNT(*) AS n, COALESCE(SUM(amount_cents), 0) AS amount").
		Group("status").
		Scan(&payRows).Error; err != nil {
		return Stats{}, err
	}
	for _, row := range payRows {
		st.PaymentsByStatus[row.Status] = row.N
		st.TotalPayments += row.N
		if row.Status == StatusCompleted {
			st.TotalPaidCents += row.Amount
		}
	}

	return st, nil
}

// ApplyProviderOutcome is the submission/sync write path. Unlike
// UpdatePaymentStatus it is lenient: when the mapped status equals the
// current one (or would move backwards), only the provider correlation and
// error fields are written — a PayPal PENDING item must still record its
// payout-item id even though the canonical status stays processing.
func (r *Repo) ApplyProviderOutcome(ctx context.Context, paymentID string, to Status, upd PaymentUpdate) error {
	var p Payment
	if err := r.db.WithContext(ctx).First(&p, "id = ?", paymentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPaymentNotFound
		}
		return err
	}

	now := time.Now()
	updates := map[string]any{"updated_at": now}

	if CanTransition(p.Status, to) {
		updates["status"] = to
		switch to {
		case StatusProcessing:
			updates["processed_at"] = now
		case StatusCompleted, StatusFailed, StatusCancelled:
			updates["completed_at"] = now
		}
	}
	if upd.PayoutItemID != nil {
		updates["payout_item_id"] = *upd.PayoutItemID
	}
	if upd.OrderID != nil {
		updates["order_id"] = *upd.OrderID
	}
	if upd.RecipientID != nil {
		updates["recipient_id"] = *upd.RecipientID
	}
	if upd.ContractID != nil {
		updates["contract_id"] = *upd.ContractID
	}
	if upd.ErrorCode != nil {
		updates["error_code"] = *upd.ErrorCode
	}
	if upd.ErrorMessage != nil {
		updates["error_message"] = truncate(*upd.ErrorMessage, 500)
	}

	return r.db.WithContext(ctx).Model(&Payment{}).
		Where("id = ?", paymentID).
		Updates(updates).Error
}

// truncate shortens s to at most n bytes without splitting a multi-byte
// character.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
