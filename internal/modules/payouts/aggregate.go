package payouts

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Aggregate is the recomputed batch-level view of the child payment set.
type Aggregate struct {
	TotalPayments    int
	SuccessCount     int
	FailureCount     int
	PendingCount     int
	TotalAmountCents int64
	Status           BatchStatus
}

type statusRow struct {
	Status Status
	N      int
	Amount int64
}

// RecomputeAggregate derives the batch counters and status from the child
// payments and persists them. Deterministic and idempotent: running it twice
// with no payment changes writes the same values. Batch status is a pure
// function of the children — completed when every payment succeeded, failed
// when every payment failed, partial on any mix, otherwise left as-is.
func RecomputeAggregate(ctx context.Context, db *gorm.DB, batchID string) (Aggregate, error) {
	var b Batch
	if err := db.WithContext(ctx).First(&b, "id = ?", batchID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return Aggregate{}, ErrBatchNotFound
		}
		return Aggregate{}, err
	}

	var rows []statusRow
	if err := db.WithContext(ctx).Model(&Payment{}).
		Select("status, COUNT(*) AS n, COALESCE(SUM(amount_cents), 0) AS amount").
		Where("batch_id = ?", batchID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return Aggregate{}, err
	}

	agg := Aggregate{Status: b.Status}
	for _, row := range rows {
		agg.TotalPayments += row.N
		switch row.Status {
		case StatusCompleted:
			agg.SuccessCount += row.N
			agg.TotalAmountCents += row.Amount
		case StatusFailed:
			agg.FailureCount += row.N
		default:
			// pending bucket: pending, processing, cancelled
			agg.PendingCount += row.N
		}
	}

	switch {
	case agg.TotalPayments == 0:
		// empty batch keeps its control status
	case agg.SuccessCount == agg.TotalPayments:
		agg.Status = BatchCompleted
	case agg.FailureCount == agg.TotalPayments:
		agg.Status = BatchFailed
	case agg.SuccessCount > 0 || agg.FailureCount > 0:
		agg.Status = BatchPartial
	}

	updates := map[string]any{
		"success_count":      agg.SuccessCount,
		"failure_count":      agg.FailureCount,
		"pending_count":      agg.PendingCount,
		"total_amount_cents": agg.TotalAmountCents,
		"status":             agg.Status,
		"updated_at":         time.Now(),
	}
	if err := db.WithContext(ctx).Model(&Batch{}).
		Where("id = ?", batchID).
		Updates(updates).Error; err != nil {
		return Aggregate{}, err
	}

	return agg, nil
}
