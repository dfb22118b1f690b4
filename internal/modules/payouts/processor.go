package payouts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/zealits/bulkpayout-sub001/internal/metrics"
	"github.com/zealits/bulkpayout-sub001/internal/providers"
)

// Processor drives one batch through its provider. One invocation owns the
// batch for its duration; the guarded uploaded->processing transition in
// beginProcessing rejects a second concurrent run on the same batch.
type Processor struct {
	db       *gorm.DB
	repo     *Repo
	gw       Gateways
	logger   *slog.Logger
	notifier *Notifier
}

func NewProcessor(db *gorm.DB, gw Gateways) *Processor {
	return &Processor{db: db, repo: NewRepo(db), gw: gw, logger: slog.Default()}
}

func (p *Processor) SetLogger(l *slog.Logger) { p.logger = l }

// SetNotifier enables terminal-state notification emails. Optional.
func (p *Processor) SetNotifier(n *Notifier) { p.notifier = n }

// BatchConfig is the per-batch provider config blob, decoded from
// Batch.ProviderConfig. Providers read only the fields they know.
type BatchConfig struct {
	// PayPal
	EmailSubject string `json:"email_subject"`
	EmailMessage string `json:"email_message"`

	// Giftogram
	CampaignID string `json:"campaign_id"`
	Message    string `json:"message"`
	BatchSize  int    `json:"batch_size"`
	DelayMs    int    `json:"delay_ms"`

	// XE
	SellCurrency string `json:"sell_currency"`
	CountryCode  string `json:"country_code"`
}

func decodeBatchConfig(raw []byte) BatchConfig {
	var cfg BatchConfig
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &cfg)
	}
	return cfg
}

// ItemFailure is one per-payment failure in the response summary. It carries
// the full error descriptor so callers can render guidance without a second
// lookup.
type ItemFailure struct {
	PaymentID      string `json:"paymentId"`
	RecipientEmail string `json:"recipientEmail"`
	Code           string `json:"code,omitempty"`
	Title          string `json:"title"`
	Message        string `json:"message"`
	Suggestion     string `json:"suggestion,omitempty"`
	Severity       string `json:"severity"`
	Action         string `json:"action"`
	Retryable      bool   `json:"retryable"`
}

type ProcessResult struct {
	BatchID          string        `json:"batchId"`
	Status           BatchStatus   `json:"status"`
	TotalPayments    int           `json:"totalPayments"`
	SuccessCount     int           `json:"successCount"`
	FailureCount     int           `json:"failureCount"`
	PendingCount     int           `json:"pendingCount"`
	TotalAmountCents int64         `json:"totalAmountCents"`
	HasFailures      bool          `json:"hasFailures"`
	Failures         []ItemFailure `json:"failures,omitempty"`
	ErrorMessage     string        `json:"errorMessage,omitempty"`
}

// itemOutcome is one provider result slot, positional with the submitted
// payment slice.
type itemOutcome struct {
	status  Status
	update  PaymentUpdate
	errCode string
	errMsg  string
}

// Process runs the synchronous state machine for one batch.
func (p *Processor) Process(ctx context.Context, batchID string) (res ProcessResult, err error) {
	b, payments, err := p.begin(ctx, batchID)
	if err != nil {
		return ProcessResult{}, err
	}

	// Once the lease is taken the run must reach an outcome even if the
	// caller disconnects; provider submissions already in flight cannot be
	// taken back.
	ctx = context.WithoutCancel(ctx)

	// Unexpected failures during submission or bookkeeping roll the batch
	// back exactly like a provider-reported total failure.
	defer func() {
		if r := recover(); r != nil {
			p.logger.ErrorContext(ctx, "batch processing panicked", "batch_id", batchID, "panic", r)
			p.rollback(ctx, batchID, fmt.Sprintf("internal error: %v", r))
			res = ProcessResult{}
			err = fmt.Errorf("batch processing panicked: %v", r)
		}
	}()

	outcomes, totalFail := p.submit(ctx, &b, payments)
	if totalFail != nil {
		desc := providers.DescribeFailure(providerName(b.PaymentMethod), totalFail)
		p.logger.ErrorContext(ctx, "batch submission failed",
			"batch_id", batchID, "provider", b.PaymentMethod, "code", totalFail.Code, "err", totalFail.Message)
		p.rollback(ctx, batchID, desc.Message)
		agg, aerr := RecomputeAggregate(ctx, p.db, batchID)
		if aerr != nil {
			return ProcessResult{}, aerr
		}
		res = p.buildResult(batchID, agg, nil)
		res.Status = BatchFailed
		res.ErrorMessage = desc.Message
		p.notify(ctx, batchID)
		return res, nil
	}

	failures := p.applyOutcomes(ctx, b, payments, outcomes)

	agg, err := p.finalize(ctx, batchID, outcomes)
	if err != nil {
		p.rollback(ctx, batchID, "internal error finalizing batch")
		return ProcessResult{}, err
	}

	res = p.buildResult(batchID, agg, failures)
	metrics.BatchesProcessed.WithLabelValues(string(b.PaymentMethod), string(res.Status)).Inc()
	p.notify(ctx, batchID)
	return res, nil
}

// begin covers steps 1-3: load, validate, and take the processing lease.
func (p *Processor) begin(ctx context.Context, batchID string) (Batch, []Payment, error) {
	b, err := p.repo.GetBatch(ctx, batchID)
	if err != nil {
		return Batch{}, nil, err
	}
	if !b.PaymentMethod.Valid() {
		return Batch{}, nil, ErrUnknownMethod
	}

	payments, err := p.repo.PendingPayments(ctx, batchID, b.PaymentMethod)
	if err != nil {
		return Batch{}, nil, err
	}
	if len(payments) == 0 {
		return Batch{}, nil, ErrNoPendingPayments
	}

	// Batch and payment transitions land together, before any provider
	// call. A crash after this transaction leaves the batch stuck in
	// processing; that window is recovered by an operator-triggered sync,
	// not automatically.
	err = p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		lease := tx.Model(&Batch{}).
			Where("id = ? AND status <> ?", batchID, BatchProcessing).
			Updates(map[string]any{
				"status":        BatchProcessing,
				"processed_at":  now,
				"error_message": nil,
				"updated_at":    now,
			})
		if lease.Error != nil {
			return lease.Error
		}
		if lease.RowsAffected == 0 {
			return ErrBatchBusy
		}

		ids := make([]string, len(payments))
		for i := range payments {
			ids[i] = payments[i].ID
		}
		return tx.Model(&Payment{}).
			Where("id IN ?", ids).
			Updates(map[string]any{
				"status":       StatusProcessing,
				"processed_at": now,
				"updated_at":   now,
			}).Error
	})
	if err != nil {
		return Batch{}, nil, err
	}
	return b, payments, nil
}

// submit dispatches to the batch's rail. Returns positional outcomes, or a
// batch-level failure when the whole call was rejected.
func (p *Processor) submit(ctx context.Context, b *Batch, payments []Payment) ([]itemOutcome, *providers.Failure) {
	cfg := decodeBatchConfig(b.ProviderConfig)
	switch b.PaymentMethod {
	case MethodPayPal:
		return p.submitPayPal(ctx, b, payments, cfg)
	case MethodGiftCard:
		return p.submitGiftCard(ctx, b, payments, cfg)
	case MethodBankTransfer:
		return p.submitBankTransfer(ctx, b, payments, cfg), nil
	}
	return nil, &providers.Failure{Code: "UNKNOWN_METHOD", Message: "unknown payment method"}
}

func payoutInputs(payments []Payment, note string) []PayoutInput {
	items := make([]PayoutInput, len(payments))
	for i, pm := range payments {
		meta := map[string]string{}
		if len(pm.Meta) > 0 {
			_ = json.Unmarshal(pm.Meta, &meta)
		}
		items[i] = PayoutInput{
			PaymentID:      pm.ID,
			RecipientName:  pm.RecipientName,
			RecipientEmail: pm.RecipientEmail,
			AmountCents:    pm.AmountCents,
			Currency:       pm.Currency,
			Note:           note,
			Meta:           meta,
		}
	}
	return items
}

func (p *Processor) submitPayPal(ctx context.Context, b *Batch, payments []Payment, cfg BatchConfig) ([]itemOutcome, *providers.Failure) {
	sub, fail := p.gw.PayPal.SubmitBatch(ctx, b.ID, payoutInputs(payments, cfg.EmailMessage), PayPalOptions{
		EmailSubject: cfg.EmailSubject,
		EmailMessage: cfg.EmailMessage,
	})
	if fail != nil {
		return nil, fail
	}

	// Record the batch correlation id before touching payments.
	now := time.Now()
	if err := p.db.WithContext(ctx).Model(&Batch{}).
		Where("id = ?", b.ID).
		Updates(map[string]any{"provider_batch_id": sub.ProviderBatchID, "updated_at": now}).Error; err != nil {
		p.logger.ErrorContext(ctx, "failed to store provider batch id", "batch_id", b.ID, "err", err)
	}
	b.ProviderBatchID = &sub.ProviderBatchID

	// Items are matched to payments by index. A count mismatch is logged,
	// never fatal: unmatched payments stay in processing for sync to settle.
	if len(sub.Items) != len(payments) {
		p.logger.WarnContext(ctx, "payout item count mismatch",
			"batch_id", b.ID, "submitted", len(payments), "returned", len(sub.Items))
	}

	outcomes := make([]itemOutcome, 0, len(sub.Items))
	for _, item := range sub.Items {
		itemID := item.ItemID
		out := itemOutcome{
			status: MapPayPalStatus(item.TransactionStatus),
			update: PaymentUpdate{PayoutItemID: &itemID},
		}
		if item.ErrorCode != "" || out.status == StatusFailed {
			desc := providers.Describe(providers.NamePayPal, item.ErrorCode)
			out.errCode = item.ErrorCode
			out.errMsg = desc.Message
			if item.ErrorMessage != "" {
				out.errMsg = item.ErrorMessage
			}
			out.update.ErrorCode = &out.errCode
			out.update.ErrorMessage = &out.errMsg
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, nil
}

func (p *Processor) submitGiftCard(ctx context.Context, b *Batch, payments []Payment, cfg BatchConfig) ([]itemOutcome, *providers.Failure) {
	orders := make([]GiftOrder, len(payments))
	for i, pm := range payments {
		orders[i] = GiftOrder{
			PaymentID:      pm.ID,
			ExternalID:     pm.ID,
			CampaignID:     cfg.CampaignID,
			RecipientName:  pm.RecipientName,
			RecipientEmail: pm.RecipientEmail,
			AmountCents:    pm.AmountCents,
			Currency:       pm.Currency,
			Message:        cfg.Message,
		}
	}

	opts := BulkOptions{BatchSize: cfg.BatchSize}
	if cfg.DelayMs > 0 {
		opts.Delay = time.Duration(cfg.DelayMs) * time.Millisecond
	}

	bulk, fail := p.gw.GiftCard.SubmitBulk(ctx, orders, opts)
	if fail != nil {
		return nil, fail
	}

	if len(bulk.Results) != len(payments) {
		p.logger.WarnContext(ctx, "gift order count mismatch",
			"batch_id", b.ID, "submitted", len(payments), "returned", len(bulk.Results))
	}

	outcomes := make([]itemOutcome, 0, len(bulk.Results))
	for _, r := range bulk.Results {
		outcomes = append(outcomes, giftOutcome(r))
	}
	return outcomes, nil
}

func giftOutcome(r GiftOrderOutcome) itemOutcome {
	if r.Failure != nil {
		desc := providers.DescribeFailure(providers.NameGiftogram, r.Failure)
		code := r.Failure.Code
		msg := desc.Message
		return itemOutcome{
			status:  StatusFailed,
			errCode: code,
			errMsg:  msg,
			update:  PaymentUpdate{ErrorCode: &code, ErrorMessage: &msg},
		}
	}
	orderID := r.Result.OrderID
	return itemOutcome{
		status: MapGiftogramStatus(r.Result.OrderStatus, r.Result.RecipientStatus),
		update: PaymentUpdate{OrderID: &orderID},
	}
}

// submitBankTransfer loops per-payment: the provider has no batch call. One
// payment failing never fails the whole submission.
func (p *Processor) submitBankTransfer(ctx context.Context, b *Batch, payments []Payment, cfg BatchConfig) []itemOutcome {
	outcomes := make([]itemOutcome, 0, len(payments))
	for _, pm := range payments {
		outcomes = append(outcomes, p.submitOneTransfer(ctx, pm, cfg))
	}
	return outcomes
}

func (p *Processor) submitOneTransfer(ctx context.Context, pm Payment, cfg BatchConfig) itemOutcome {
	meta := map[string]string{}
	if len(pm.Meta) > 0 {
		_ = json.Unmarshal(pm.Meta, &meta)
	}

	created, fail := p.gw.BankTransfer.CreateRecipient(ctx, BankRecipient{
		PaymentID:     pm.ID,
		Name:          pm.RecipientName,
		Email:         pm.RecipientEmail,
		Currency:      pm.Currency,
		CountryCode:   firstNonEmpty(meta["country_code"], cfg.CountryCode),
		AccountNumber: meta["account_number"],
		BankCode:      meta["bank_code"],
	})
	if fail != nil {
		return transferFailure(fail, nil)
	}

	sell := cfg.SellCurrency
	if sell == "" {
		sell = pm.Currency
	}
	contract, fail := p.gw.BankTransfer.CreateContract(ctx, BankContract{
		RecipientID:  created.RecipientID,
		AmountCents:  pm.AmountCents,
		SellCurrency: sell,
		BuyCurrency:  pm.Currency,
		Reference:    pm.ID,
	})
	if fail != nil {
		return transferFailure(fail, &created.RecipientID)
	}

	recipientID := created.RecipientID
	contractID := contract.ContractID
	return itemOutcome{
		status: MapXEStatus(contract.Status),
		update: PaymentUpdate{RecipientID: &recipientID, ContractID: &contractID},
	}
}

func transferFailure(fail *providers.Failure, recipientID *string) itemOutcome {
	desc := providers.DescribeFailure(providers.NameXE, fail)
	code := fail.Code
	msg := desc.Message
	return itemOutcome{
		status:  StatusFailed,
		errCode: code,
		errMsg:  msg,
		update:  PaymentUpdate{RecipientID: recipientID, ErrorCode: &code, ErrorMessage: &msg},
	}
}

// applyOutcomes walks provider results in request order, matched positionally
// to the payments slice. Payments beyond the result count are left in
// processing deliberately.
func (p *Processor) applyOutcomes(ctx context.Context, b Batch, payments []Payment, outcomes []itemOutcome) []ItemFailure {
	var failures []ItemFailure
	for i, out := range outcomes {
		if i >= len(payments) {
			p.logger.WarnContext(ctx, "more provider results than payments", "batch_id", b.ID, "extra", len(outcomes)-len(payments))
			break
		}
		pm := payments[i]
		if err := p.repo.ApplyProviderOutcome(ctx, pm.ID, out.status, out.update); err != nil {
			p.logger.ErrorContext(ctx, "failed to apply payment outcome", "payment_id", pm.ID, "err", err)
			continue
		}
		metrics.PaymentsProcessed.WithLabelValues(string(b.PaymentMethod), string(out.status)).Inc()
		if out.status == StatusFailed {
			desc := providers.Describe(providerName(b.PaymentMethod), out.errCode)
			failures = append(failures, ItemFailure{
				PaymentID:      pm.ID,
				RecipientEmail: pm.RecipientEmail,
				Code:           out.errCode,
				Title:          desc.Title,
				Message:        out.errMsg,
				Suggestion:     desc.Suggestion,
				Severity:       desc.Severity,
				Action:         desc.Action,
				Retryable:      desc.Retryable,
			})
		}
	}
	return failures
}

// finalize recomputes the aggregate and applies the all-failed override:
// zero successes with at least one failure forces the batch to failed, with
// the first per-item error string preferred over a generic message.
func (p *Processor) finalize(ctx context.Context, batchID string, outcomes []itemOutcome) (Aggregate, error) {
	agg, err := RecomputeAggregate(ctx, p.db, batchID)
	if err != nil {
		return Aggregate{}, err
	}

	if agg.SuccessCount == 0 && agg.FailureCount > 0 && agg.Status != BatchFailed {
		msg := "All payments in this batch failed."
		for _, out := range outcomes {
			if out.errMsg != "" {
				msg = out.errMsg
				break
			}
		}
		if err := p.db.WithContext(ctx).Model(&Batch{}).
			Where("id = ?", batchID).
			Updates(map[string]any{
				"status":        BatchFailed,
				"error_message": truncate(msg, 500),
				"updated_at":    time.Now(),
			}).Error; err != nil {
			return Aggregate{}, err
		}
		agg.Status = BatchFailed
	}
	return agg, nil
}

// rollback is the total-failure path: batch first, then every in-flight
// payment of the batch. The batch write must land before the payment writes.
func (p *Processor) rollback(ctx context.Context, batchID, msg string) {
	now := time.Now()
	if err := p.db.WithContext(ctx).Model(&Batch{}).
		Where("id = ?", batchID).
		Updates(map[string]any{
			"status":        BatchFailed,
			"error_message": truncate(msg, 500),
			"updated_at":    now,
		}).Error; err != nil {
		p.logger.ErrorContext(ctx, "rollback: batch update failed", "batch_id", batchID, "err", err)
	}

	if err := p.db.WithContext(ctx).Model(&Payment{}).
		Where("batch_id = ? AND status = ?", batchID, StatusProcessing).
		Updates(map[string]any{
			"status":        StatusFailed,
			"error_message": truncate(msg, 500),
			"completed_at":  now,
			"updated_at":    now,
		}).Error; err != nil {
		p.logger.ErrorContext(ctx, "rollback: payment revert failed", "batch_id", batchID, "err", err)
	}
}

func (p *Processor) buildResult(batchID string, agg Aggregate, failures []ItemFailure) ProcessResult {
	return ProcessResult{
		BatchID:          batchID,
		Status:           agg.Status,
		TotalPayments:    agg.TotalPayments,
		SuccessCount:     agg.SuccessCount,
		FailureCount:     agg.FailureCount,
		PendingCount:     agg.PendingCount,
		TotalAmountCents: agg.TotalAmountCents,
		HasFailures:      len(failures) > 0 || agg.FailureCount > 0,
		Failures:         failures,
	}
}

func (p *Processor) notify(ctx context.Context, batchID string) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.BatchFinished(ctx, batchID); err != nil {
		p.logger.WarnContext(ctx, "batch notification failed", "batch_id", batchID, "err", err)
	}
}

// providerName maps the payment method onto the provider vocabulary used by
// the error-descriptor tables.
func providerName(m Method) string {
	switch m {
	case MethodPayPal:
		return providers.NamePayPal
	case MethodGiftCard:
		return providers.NameGiftogram
	case MethodBankTransfer:
		return providers.NameXE
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
