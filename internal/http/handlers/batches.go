package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"gorm.io/gorm"

	"github.com/zealits/bulkpayout-sub001/internal/http/middleware"
	"github.com/zealits/bulkpayout-sub001/internal/http/validation"
	"github.com/zealits/bulkpayout-sub001/internal/modules/payouts"
	"github.com/zealits/bulkpayout-sub001/internal/shared/apperr"
)

type BatchHandler struct {
	DB       *gorm.DB
	Logger   *slog.Logger
	Uploader *payouts.Uploader
}

func NewBatchHandler(db *gorm.DB, logger *slog.Logger, up *payouts.Uploader) *BatchHandler {
	return &BatchHandler{DB: db, Logger: logger, Uploader: up}
}

type createBatchRequest struct {
	Name           string              `json:"name" binding:"required"`
	PaymentMethod  string              `json:"paymentMethod" binding:"required,oneof=paypal giftcard banktransfer"`
	Currency       string              `json:"currency"`
	ProviderConfig json.RawMessage     `json:"providerConfig"`
	Payments       []payouts.UploadRow `json:"payments" binding:"required,min=1,dive"`
}

// POST /api/v1/batches
func (h *BatchHandler) Create(c *gin.Context) {
	var req createBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fields := validation.FromBindError(err, &req)
		middleware.Fail(c, apperr.InvalidErr("Batch payload is invalid.", fields))
		return
	}

	res, err := h.Uploader.Create(c.Request.Context(), payouts.UploadInput{
		Name:           req.Name,
		PaymentMethod:  payouts.Method(req.PaymentMethod),
		Currency:       strings.ToUpper(strings.TrimSpace(req.Currency)),
		ProviderConfig: req.ProviderConfig,
		Rows:           req.Payments,
	})
	if err != nil {
		failDomain(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

// POST /api/v1/batches/upload
// Multipart variant: a "payload" part carrying the createBatchRequest JSON
// plus the original recipient file under "file", archived for audit.
func (h *BatchHandler) Upload(c *gin.Context) {
	payload := c.PostForm("payload")
	if payload == "" {
		middleware.Fail(c, apperr.InvalidErr("Missing payload part.", nil))
		return
	}

	var req createBatchRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Payload part is not valid JSON.", nil))
		return
	}
	if err := binding.Validator.ValidateStruct(&req); err != nil {
		fields := validation.FromBindError(err, &req)
		middleware.Fail(c, apperr.InvalidErr("Batch payload is invalid.", fields))
		return
	}

	res, err := h.Uploader.Create(c.Request.Context(), payouts.UploadInput{
		Name:           req.Name,
		PaymentMethod:  payouts.Method(req.PaymentMethod),
		Currency:       strings.ToUpper(strings.TrimSpace(req.Currency)),
		ProviderConfig: req.ProviderConfig,
		Rows:           req.Payments,
	})
	if err != nil {
		failDomain(c, err)
		return
	}

	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err == nil {
			defer f.Close()
			h.Uploader.ArchiveFile(c.Request.Context(), res.BatchID,
				fh.Filename, fh.Header.Get("Content-Type"), fh.Size, f)
		}
	}

	c.JSON(http.StatusCreated, res)
}

// GET /api/v1/batches
func (h *BatchHandler) List(c *gin.Context) {
	repo := payouts.NewRepo(h.DB)
	res, err := repo.ListBatches(c.Request.Context(), payouts.ListBatchesParams{
		Status:   strings.TrimSpace(c.Query("status")),
		Method:   strings.TrimSpace(c.Query("method")),
		Page:     parseInt(c.Query("page"), 1),
		PageSize: parseInt(c.Query("pageSize"), 20),
	})
	if err != nil {
		failDomain(c, err)
		return
	}

	items := make([]batchView, 0, len(res.Items))
	for _, b := range res.Items {
		items = append(items, toBatchView(b))
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": res.Total})
}

// GET /api/v1/batches/:id
func (h *BatchHandler) Get(c *gin.Context) {
	repo := payouts.NewRepo(h.DB)
	b, err := repo.GetBatch(c.Request.Context(), c.Param("id"))
	if err != nil {
		failDomain(c, err)
		return
	}
	c.JSON(http.StatusOK, toBatchView(b))
}

// DELETE /api/v1/batches/:id
func (h *BatchHandler) Delete(c *gin.Context) {
	repo := payouts.NewRepo(h.DB)
	if err := repo.DeleteBatch(c.Request.Context(), c.Param("id")); err != nil {
		failDomain(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/v1/stats
func (h *BatchHandler) Stats(c *gin.Context) {
	repo := payouts.NewRepo(h.DB)
	st, err := repo.Stats(c.Request.Context())
	if err != nil {
		failDomain(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

type batchView struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	PaymentMethod    payouts.Method  `json:"paymentMethod"`
	Status           string          `json:"status"`
	ProviderBatchID  *string         `json:"providerBatchId,omitempty"`
	ProviderConfig   json.RawMessage `json:"providerConfig,omitempty"`
	SuccessCount     int             `json:"successCount"`
	FailureCount     int             `json:"failureCount"`
	PendingCount     int             `json:"pendingCount"`
	TotalAmountCents int64           `json:"totalAmountCents"`
	ErrorMessage     *string         `json:"errorMessage,omitempty"`
	SourceFileKey    *string         `json:"sourceFileKey,omitempty"`
	ProcessedAt      *time.Time      `json:"processedAt,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

func toBatchView(b payouts.Batch) batchView {
	return batchView{
		ID:               b.ID,
		Name:             b.Name,
		PaymentMethod:    b.PaymentMethod,
		Status:           string(b.Status),
		ProviderBatchID:  b.ProviderBatchID,
		ProviderConfig:   json.RawMessage(b.ProviderConfig),
		SuccessCount:     b.SuccessCount,
		FailureCount:     b.FailureCount,
		PendingCount:     b.PendingCount,
		TotalAmountCents: b.TotalAmountCents,
		ErrorMessage:     b.ErrorMessage,
		SourceFileKey:    b.SourceFileKey,
		ProcessedAt:      b.ProcessedAt,
		CreatedAt:        b.CreatedAt,
		UpdatedAt:        b.UpdatedAt,
	}
}
