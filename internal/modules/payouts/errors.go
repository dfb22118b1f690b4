package payouts

import "errors"

var (
	ErrBatchNotFound     = errors.New("batch not found")
	ErrPaymentNotFound   = errors.New("payment not found")
	ErrNoPendingPayments = errors.New("no pending payments in batch")
	ErrBatchBusy         = errors.New("batch is already being processed")
	ErrBatchNotDeletable = errors.New("batch can no longer be deleted")
	ErrBadTransition     = errors.New("invalid payment status transition")
	ErrNotSubmitted      = errors.New("batch has no provider correlation id")
	ErrUnknownMethod     = errors.New("unknown payment method")
)
