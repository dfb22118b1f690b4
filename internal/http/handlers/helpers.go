package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/zealits/bulkpayout-sub001/internal/http/middleware"
	"github.com/zealits/bulkpayout-sub001/internal/modules/payouts"
	"github.com/zealits/bulkpayout-sub001/internal/shared/apperr"
)

func parseInt(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}

// failDomain translates payouts sentinel errors into the apperr pipeline.
func failDomain(c *gin.Context, err error) {
	switch {
	case errors.Is(err, payouts.ErrBatchNotFound):
		middleware.Fail(c, apperr.NotFoundErr("Batch not found."))
	case errors.Is(err, payouts.ErrPaymentNotFound):
		middleware.Fail(c, apperr.NotFoundErr("Payment not found."))
	case errors.Is(err, payouts.ErrBatchBusy):
		middleware.Fail(c, apperr.ConflictErr("Batch is already being processed."))
	case errors.Is(err, payouts.ErrBatchNotDeletable):
		middleware.Fail(c, apperr.ConflictErr("Batch can no longer be deleted."))
	case errors.Is(err, payouts.ErrNoPendingPayments):
		middleware.Fail(c, apperr.InvalidErr("Batch has no pending payments.", nil))
	case errors.Is(err, payouts.ErrNotSubmitted):
		middleware.Fail(c, apperr.InvalidErr("Batch has not been submitted to the provider yet.", nil))
	case errors.Is(err, payouts.ErrBadTransition):
		middleware.Fail(c, apperr.ConflictErr("Status change is not allowed from the payment's current status."))
	case errors.Is(err, payouts.ErrUnknownMethod):
		middleware.Fail(c, apperr.InvalidErr("Unknown payment method.", nil))
	default:
		middleware.Fail(c, apperr.Wrap(err))
	}
}
