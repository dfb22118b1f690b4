package payouts

import (
	"context"
	"fmt"

	"github.com/zealits/bulkpayout-sub001/internal/providers"
)

// ProgressEvent is one message on the streaming progress channel. Item
// events carry the payment outcome; the final event (Done) carries the
// aggregate summary and is followed by channel close.
type ProgressEvent struct {
	Processed    int            `json:"processed"`
	Total        int            `json:"total"`
	Done         bool           `json:"done"`
	PaymentID    string         `json:"paymentId,omitempty"`
	Success      bool           `json:"success"`
	Status       Status         `json:"status,omitempty"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
	Summary      *ProcessResult `json:"summary,omitempty"`
}

// ProcessStream runs the same state machine as Process but submits one
// payment at a time, emitting an event after each item's outcome is known.
// Validation errors (missing batch, nothing pending, concurrent run) are
// returned before the stream starts.
//
// The loop is deliberately not interruptible by consumer disconnect: once
// submission begins every payment is driven to an outcome, regardless of
// whether anyone is still reading events. The producer goroutine detaches
// from request cancellation; the event channel is buffered for the full run
// so it never blocks on a departed reader.
func (p *Processor) ProcessStream(ctx context.Context, batchID string) (<-chan ProgressEvent, error) {
	b, payments, err := p.begin(ctx, batchID)
	if err != nil {
		return nil, err
	}

	events := make(chan ProgressEvent, len(payments)+1)
	go p.runStream(context.WithoutCancel(ctx), b, payments, events)
	return events, nil
}

func (p *Processor) runStream(ctx context.Context, b Batch, payments []Payment, events chan<- ProgressEvent) {
	defer close(events)

	defer func() {
		if r := recover(); r != nil {
			p.logger.ErrorContext(ctx, "streaming batch processing panicked", "batch_id", b.ID, "panic", r)
			p.rollback(ctx, b.ID, fmt.Sprintf("internal error: %v", r))
			events <- ProgressEvent{Done: true, Total: len(payments), ErrorMessage: "internal error"}
		}
	}()

	cfg := decodeBatchConfig(b.ProviderConfig)

	var outcomes []itemOutcome
	switch b.PaymentMethod {
	case MethodPayPal:
		// PayPal only has a batch-level submit; the per-item events are
		// emitted while walking the positional results.
		outs, fail := p.submitPayPal(ctx, &b, payments, cfg)
		if fail != nil {
			p.streamTotalFailure(ctx, b, payments, fail, events)
			return
		}
		outcomes = p.streamApply(ctx, b, payments, func(i int) itemOutcome {
			if i < len(outs) {
				return outs[i]
			}
			// Missing result slot: leave the payment in processing.
			return itemOutcome{status: StatusProcessing}
		}, events)

	case MethodGiftCard:
		outcomes = p.streamApply(ctx, b, payments, func(i int) itemOutcome {
			order := GiftOrder{
				PaymentID:      payments[i].ID,
				ExternalID:     payments[i].ID,
				CampaignID:     cfg.CampaignID,
				RecipientName:  payments[i].RecipientName,
				RecipientEmail: payments[i].RecipientEmail,
				AmountCents:    payments[i].AmountCents,
				Currency:       payments[i].Currency,
				Message:        cfg.Message,
			}
			result, fail := p.gw.GiftCard.SubmitOrder(ctx, order)
			return giftOutcome(GiftOrderOutcome{ExternalID: order.ExternalID, Result: result, Failure: fail})
		}, events)

	case MethodBankTransfer:
		outcomes = p.streamApply(ctx, b, payments, func(i int) itemOutcome {
			return p.submitOneTransfer(ctx, payments[i], cfg)
		}, events)

	default:
		p.streamTotalFailure(ctx, b, payments,
			&providers.Failure{Code: "UNKNOWN_METHOD", Message: "unknown payment method"}, events)
		return
	}

	agg, err := p.finalize(ctx, b.ID, outcomes)
	if err != nil {
		p.logger.ErrorContext(ctx, "streaming finalize failed", "batch_id", b.ID, "err", err)
		p.rollback(ctx, b.ID, "internal error finalizing batch")
		events <- ProgressEvent{Done: true, Total: len(payments), ErrorMessage: "internal error"}
		return
	}

	res := p.buildResult(b.ID, agg, nil)
	res.HasFailures = agg.FailureCount > 0
	p.notify(ctx, b.ID)

	events <- ProgressEvent{
		Processed: len(payments),
		Total:     len(payments),
		Done:      true,
		Summary:   &res,
	}
}

// streamApply drives the per-item loop: resolve outcome i, persist it, emit
// the event, continue. No select on ctx between items — see ProcessStream.
func (p *Processor) streamApply(ctx context.Context, b Batch, payments []Payment, next func(i int) itemOutcome, events chan<- ProgressEvent) []itemOutcome {
	outcomes := make([]itemOutcome, 0, len(payments))
	for i := range payments {
		out := next(i)
		outcomes = append(outcomes, out)

		if err := p.repo.ApplyProviderOutcome(ctx, payments[i].ID, out.status, out.update); err != nil {
			p.logger.ErrorContext(ctx, "failed to apply payment outcome", "payment_id", payments[i].ID, "err", err)
		}

		events <- ProgressEvent{
			Processed:    i + 1,
			Total:        len(payments),
			PaymentID:    payments[i].ID,
			Success:      out.status != StatusFailed,
			Status:       out.status,
			ErrorMessage: out.errMsg,
		}
	}
	return outcomes
}

func (p *Processor) streamTotalFailure(ctx context.Context, b Batch, payments []Payment, fail *providers.Failure, events chan<- ProgressEvent) {
	desc := providers.DescribeFailure(providerName(b.PaymentMethod), fail)
	p.rollback(ctx, b.ID, desc.Message)
	if _, err := RecomputeAggregate(ctx, p.db, b.ID); err != nil {
		p.logger.ErrorContext(ctx, "aggregate recompute failed after rollback", "batch_id", b.ID, "err", err)
	}
	p.notify(ctx, b.ID)
	events <- ProgressEvent{
		Done:         true,
		Total:        len(payments),
		ErrorMessage: desc.Message,
	}
}
