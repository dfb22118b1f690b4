// Package giftogram implements the gift-card issuance rail.
package giftogram

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/zealits/bulkpayout-sub001/internal/modules/payouts"
	"github.com/zealits/bulkpayout-sub001/internal/providers"
	"github.com/zealits/bulkpayout-sub001/internal/providers/httpclient"
)

const (
	sandboxBaseURL    = "https://sandbox-api.giftogram.com"
	productionBaseURL = "https://api.giftogram.com"
)

type Config struct {
	Env        providers.Environment
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// Client authenticates with a static API key; there is no token exchange on
// this rail.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger
}

func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("giftogram: api key is required")
	}

	base := cfg.BaseURL
	if base == "" {
		base = sandboxBaseURL
		if cfg.Env == providers.EnvProduction {
			base = productionBaseURL
		}
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = httpclient.New()
	}

	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		apiKey:  cfg.APIKey,
		http:    hc,
		logger:  slog.Default(),
	}, nil
}

func (c *Client) SetLogger(l *slog.Logger) { c.logger = l }

func (c *Client) headers() map[string]string {
	return map[string]string{"Authorization": c.apiKey}
}

type orderCreateReq struct {
	ExternalID string `json:"external_id"`
	CampaignID string `json:"campaign_id"`
	Message    string `json:"message,omitempty"`
	// Denomination in whole currency units, e.g. "25.00"
	Denomination string `json:"denomination"`
	Recipients   []struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"recipients"`
}

type orderResp struct {
	Data struct {
		OrderID    string `json:"order_id"`
		Status     string `json:"status"`
		Recipients []struct {
			Email  string `json:"email"`
			Status string `json:"status"`
		} `json:"recipients"`
	} `json:"data"`
}

// SubmitOrder issues one gift card. The response carries an order-level
// status and a per-recipient status; both are surfaced to the status mapper.
func (c *Client) SubmitOrder(ctx context.Context, order payouts.GiftOrder) (*payouts.GiftOrderResult, *providers.Failure) {
	var body orderCreateReq
	body.ExternalID = order.ExternalID
	body.CampaignID = order.CampaignID
	body.Message = order.Message
	body.Denomination = fmt.Sprintf("%d.%02d", order.AmountCents/100, order.AmountCents%100)
	body.Recipients = []struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}{{Name: order.RecipientName, Email: order.RecipientEmail}}

	status, raw, fail := providers.DoJSON(ctx, c.http, http.MethodPost,
		c.baseURL+"/api/v1/orders", c.headers(), body)
	if fail != nil {
		return nil, fail
	}
	if status < 200 || status > 299 {
		return nil, c.parseError(status, raw)
	}

	var resp orderResp
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &providers.Failure{Code: "DECODE_ERROR", Message: "malformed order response: " + err.Error(), Details: raw}
	}
	return toResult(resp), nil
}

// GetOrder re-queries one order for reconciliation.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*payouts.GiftOrderResult, *providers.Failure) {
	status, raw, fail := providers.DoJSON(ctx, c.http, http.MethodGet,
		c.baseURL+"/api/v1/order/"+url.PathEscape(orderID), c.headers(), nil)
	if fail != nil {
		return nil, fail
	}
	if status < 200 || status > 299 {
		return nil, c.parseError(status, raw)
	}

	var resp orderResp
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &providers.Failure{Code: "DECODE_ERROR", Message: "malformed order response: " + err.Error(), Details: raw}
	}
	return toResult(resp), nil
}

func toResult(resp orderResp) *payouts.GiftOrderResult {
	out := &payouts.GiftOrderResult{
		OrderID:     resp.Data.OrderID,
		OrderStatus: resp.Data.Status,
	}
	if len(resp.Data.Recipients) > 0 {
		out.RecipientStatus = resp.Data.Recipients[0].Status
	}
	return out
}

type campaignsResp struct {
	Data []struct {
		ID         string   `json:"id"`
		Name       string   `json:"name"`
		Active     bool     `json:"active"`
		Currencies []string `json:"currencies"`
	} `json:"data"`
}

func (c *Client) ListCampaigns(ctx context.Context) ([]payouts.GiftCampaign, *providers.Failure) {
	status, raw, fail := providers.DoJSON(ctx, c.http, http.MethodGet,
		c.baseURL+"/api/v1/campaigns", c.headers(), nil)
	if fail != nil {
		return nil, fail
	}
	if status < 200 || status > 299 {
		return nil, c.parseError(status, raw)
	}

	var resp campaignsResp
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &providers.Failure{Code: "DECODE_ERROR", Message: "malformed campaigns response: " + err.Error(), Details: raw}
	}

	out := make([]payouts.GiftCampaign, len(resp.Data))
	for i, cmp := range resp.Data {
		out[i] = payouts.GiftCampaign{
			ID:         cmp.ID,
			Name:       cmp.Name,
			Active:     cmp.Active,
			Currencies: cmp.Currencies,
		}
	}
	return out, nil
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) parseError(status int, raw []byte) *providers.Failure {
	var eb errorBody
	_ = json.Unmarshal(raw, &eb)
	msg := eb.Error.Message
	if msg == "" {
		msg = fmt.Sprintf("giftogram request failed with status %d", status)
	}
	return &providers.Failure{
		Code:       eb.Error.Code,
		Message:    msg,
		StatusCode: status,
		Retryable:  providers.RetryableStatus(status),
		Details:    raw,
	}
}
