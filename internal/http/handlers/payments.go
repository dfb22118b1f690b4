package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/zealits/bulkpayout-sub001/internal/http/middleware"
	"github.com/zealits/bulkpayout-sub001/internal/http/validation"
	"github.com/zealits/bulkpayout-sub001/internal/modules/payouts"
	"github.com/zealits/bulkpayout-sub001/internal/shared/apperr"
)

type PaymentsHandler struct {
	DB     *gorm.DB
	Logger *slog.Logger
}

func NewPaymentsHandler(db *gorm.DB, logger *slog.Logger) *PaymentsHandler {
	return &PaymentsHandler{DB: db, Logger: logger}
}

// GET /api/v1/batches/:id/payments
func (h *PaymentsHandler) List(c *gin.Context) {
	repo := payouts.NewRepo(h.DB)

	// 404 for an unknown batch instead of an empty page.
	if _, err := repo.GetBatch(c.Request.Context(), c.Param("id")); err != nil {
		failDomain(c, err)
		return
	}

	res, err := repo.ListPayments(c.Request.Context(), payouts.ListPaymentsParams{
		BatchID:  c.Param("id"),
		Status:   strings.TrimSpace(c.Query("status")),
		Page:     parseInt(c.Query("page"), 1),
		PageSize: parseInt(c.Query("pageSize"), 50),
	})
	if err != nil {
		failDomain(c, err)
		return
	}

	items := make([]paymentView, 0, len(res.Items))
	for _, p := range res.Items {
		items = append(items, toPaymentView(p))
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": res.Total})
}

// GET /api/v1/payments/:id
func (h *PaymentsHandler) Get(c *gin.Context) {
	repo := payouts.NewRepo(h.DB)
	p, err := repo.GetPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		failDomain(c, err)
		return
	}
	c.JSON(http.StatusOK, toPaymentView(p))
}

type updateStatusRequest struct {
	Status       string `json:"status" binding:"required,oneof=pending processing completed failed cancelled"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// PATCH /api/v1/payments/:id/status
// Manual override for operators; the monotonic transition rules still apply.
func (h *PaymentsHandler) UpdateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fields := validation.FromBindError(err, &req)
		middleware.Fail(c, apperr.InvalidErr("Status payload is invalid.", fields))
		return
	}

	upd := payouts.PaymentUpdate{}
	if req.ErrorCode != "" {
		upd.ErrorCode = &req.ErrorCode
	}
	if req.ErrorMessage != "" {
		upd.ErrorMessage = &req.ErrorMessage
	}

	repo := payouts.NewRepo(h.DB)
	if err := repo.UpdatePaymentStatus(c.Request.Context(), c.Param("id"), payouts.Status(req.Status), upd); err != nil {
		failDomain(c, err)
		return
	}

	p, err := repo.GetPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		failDomain(c, err)
		return
	}
	if _, err := payouts.RecomputeAggregate(c.Request.Context(), h.DB, p.BatchID); err != nil {
		h.Logger.ErrorContext(c.Request.Context(), "aggregate recompute failed", "batch_id", p.BatchID, "err", err)
	}

	c.JSON(http.StatusOK, toPaymentView(p))
}

type paymentView struct {
	ID             string         `json:"id"`
	BatchID        string         `json:"batchId"`
	RecipientName  string         `json:"recipientName"`
	RecipientEmail string         `json:"recipientEmail"`
	AmountCents    int64          `json:"amountCents"`
	Currency       string         `json:"currency"`
	PaymentMethod  payouts.Method `json:"paymentMethod"`
	Status         payouts.Status `json:"status"`
	PayoutItemID   *string        `json:"payoutItemId,omitempty"`
	OrderID        *string        `json:"orderId,omitempty"`
	RecipientID    *string        `json:"recipientId,omitempty"`
	ContractID     *string        `json:"contractId,omitempty"`
	ErrorCode      *string        `json:"errorCode,omitempty"`
	ErrorMessage   *string        `json:"errorMessage,omitempty"`
	InitiatedAt    time.Time      `json:"initiatedAt"`
	ProcessedAt    *time.Time     `json:"processedAt,omitempty"`
	CompletedAt    *time.Time     `json:"completedAt,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
}

func toPaymentView(p payouts.Payment) paymentView {
	return paymentView{
		ID:             p.ID,
		BatchID:        p.BatchID,
		RecipientName:  p.RecipientName,
		RecipientEmail: p.RecipientEmail,
		AmountCents:    p.AmountCents,
		Currency:       p.Currency,
		PaymentMethod:  p.PaymentMethod,
		Status:         p.Status,
		PayoutItemID:   p.PayoutItemID,
		OrderID:        p.OrderID,
		RecipientID:    p.RecipientID,
		ContractID:     p.ContractID,
		ErrorCode:      p.ErrorCode,
		ErrorMessage:   p.ErrorMessage,
		InitiatedAt:    p.InitiatedAt,
		ProcessedAt:    p.ProcessedAt,
		CompletedAt:    p.CompletedAt,
		CreatedAt:      p.CreatedAt,
	}
}
