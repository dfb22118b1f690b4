package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/zealits/bulkpayout-sub001/internal/http/middleware"
	"github.com/zealits/bulkpayout-sub001/internal/modules/payouts"
	"github.com/zealits/bulkpayout-sub001/internal/modules/refdata"
	"github.com/zealits/bulkpayout-sub001/internal/providers"
	"github.com/zealits/bulkpayout-sub001/internal/shared/apperr"
)

type ProvidersHandler struct {
	DB      *gorm.DB
	Logger  *slog.Logger
	GW      payouts.Gateways
	RefData *refdata.Cache
}

func NewProvidersHandler(db *gorm.DB, logger *slog.Logger, gw payouts.Gateways, rc *refdata.Cache) *ProvidersHandler {
	return &ProvidersHandler{DB: db, Logger: logger, GW: gw, RefData: rc}
}

// failProvider maps a gateway failure onto the HTTP error pipeline, keeping
// the descriptor's advice so the envelope carries suggestion, action,
// severity and retryability alongside the message.
func failProvider(c *gin.Context, provider string, fail *providers.Failure) {
	d := providers.DescribeFailure(provider, fail)
	ae := apperr.InvalidErr(d.Message, nil)
	if d.Retryable {
		ae = apperr.Wrap(errors.New(fail.Message))
		ae.PublicMsg = d.Message
	}
	middleware.Fail(c, ae.WithCode(fail.Code).WithAdvice(apperr.Advice{
		Suggestion: d.Suggestion,
		Action:     d.Action,
		Severity:   d.Severity,
		Retryable:  d.Retryable,
	}))
}

// GET /api/v1/providers/giftogram/campaigns
func (h *ProvidersHandler) Campaigns(c *gin.Context) {
	campaigns, fail := h.GW.GiftCard.ListCampaigns(c.Request.Context())
	if fail != nil {
		failProvider(c, providers.NameGiftogram, fail)
		return
	}
	c.JSON(http.StatusOK, gin.H{"campaigns": campaigns})
}

// GET /api/v1/providers/xe/accounts
func (h *ProvidersHandler) Accounts(c *gin.Context) {
	accounts, fail := h.GW.BankTransfer.ListAccounts(c.Request.Context())
	if fail != nil {
		failProvider(c, providers.NameXE, fail)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}

// GET /api/v1/providers/xe/fields?country=DE&currency=EUR
// Required recipient fields per corridor, served from the 30-day cache and
// fetched from the provider on a miss.
func (h *ProvidersHandler) FieldRequirements(c *gin.Context) {
	country := strings.ToUpper(strings.TrimSpace(c.Query("country")))
	currency := strings.ToUpper(strings.TrimSpace(c.Query("currency")))
	if len(country) != 2 || len(currency) != 3 {
		middleware.Fail(c, apperr.InvalidErr("country (ISO-2) and currency (ISO-3) are required.", nil))
		return
	}

	ctx := c.Request.Context()
	if cached, err := h.RefData.Get(ctx, providers.NameXE, country, currency); err == nil {
		c.Data(http.StatusOK, "application/json", cached)
		return
	} else if !errors.Is(err, refdata.ErrMiss) {
		h.Logger.WarnContext(ctx, "refdata lookup failed", "country", country, "currency", currency, "err", err)
	}

	raw, fail := h.GW.BankTransfer.FieldRequirements(ctx, country, currency)
	if fail != nil {
		failProvider(c, providers.NameXE, fail)
		return
	}
	if err := h.RefData.Put(ctx, providers.NameXE, country, currency, raw); err != nil {
		h.Logger.WarnContext(ctx, "refdata store failed", "country", country, "currency", currency, "err", err)
	}
	c.Data(http.StatusOK, "application/json", raw)
}

// POST /api/v1/payments/:id/bank/approve
// Releases a held cross-border contract. Bank-transfer payments only.
func (h *ProvidersHandler) ApproveContract(c *gin.Context) {
	h.contractAction(c, func(contractID string) (*payouts.ContractState, *providers.Failure) {
		return h.GW.BankTransfer.ApproveContract(c.Request.Context(), contractID)
	})
}

// POST /api/v1/payments/:id/bank/cancel
// Cancels the contract; a cancelled canonical status is recorded on success.
func (h *ProvidersHandler) CancelContract(c *gin.Context) {
	h.contractAction(c, func(contractID string) (*payouts.ContractState, *providers.Failure) {
		return h.GW.BankTransfer.CancelContract(c.Request.Context(), contractID)
	})
}

func (h *ProvidersHandler) contractAction(c *gin.Context, call func(contractID string) (*payouts.ContractState, *providers.Failure)) {
	ctx := c.Request.Context()
	repo := payouts.NewRepo(h.DB)

	p, err := repo.GetPayment(ctx, c.Param("id"))
	if err != nil {
		failDomain(c, err)
		return
	}
	if p.PaymentMethod != payouts.MethodBankTransfer || p.ContractID == nil {
		middleware.Fail(c, apperr.InvalidErr("Payment has no bank-transfer contract.", nil))
		return
	}

	state, fail := call(*p.ContractID)
	if fail != nil {
		failProvider(c, providers.NameXE, fail)
		return
	}

	mapped := payouts.MapXEStatus(state.Status)
	if err := repo.ApplyProviderOutcome(ctx, p.ID, mapped, payouts.PaymentUpdate{}); err != nil {
		failDomain(c, err)
		return
	}
	if _, err := payouts.RecomputeAggregate(ctx, h.DB, p.BatchID); err != nil {
		h.Logger.ErrorContext(ctx, "aggregate recompute failed", "batch_id", p.BatchID, "err", err)
	}

	c.JSON(http.StatusOK, gin.H{
		"paymentId":  p.ID,
		"contractId": state.ContractID,
		"provider":   gin.H{"status": state.Status},
		"status":     mapped,
	})
}
