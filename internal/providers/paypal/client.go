// Package paypal implements the PayPal Payouts rail.
package paypal

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/zealits/bulkpayout-sub001/internal/modules/payouts"
	"github.com/zealits/bulkpayout-sub001/internal/providers"
	"github.com/zealits/bulkpayout-sub001/internal/providers/httpclient"
)

const (
	sandboxBaseURL    = "https://api-m.sandbox.paypal.com"
	productionBaseURL = "https://api-m.paypal.com"
)

type Config struct {
	Env          providers.Environment
	BaseURL      string // override, mainly for tests and the mock provider
	ClientID     string
	ClientSecret string
	HTTPClient   *http.Client
}

// Client is one (environment, credential) pair. Sandbox and production are
// separate instances with separate cached tokens.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	http         *http.Client
	tokens       *providers.TokenSource
	logger       *slog.Logger
}

func New(cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("paypal: client id and secret are required")
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

	c := &Client{
		baseURL:      strings.TrimRight(base, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		http:         hc,
		logger:       slog.Default(),
	}
	c.tokens = providers.NewTokenSource(c.authenticate)
	return c, nil
}

func (c *Client) SetLogger(l *slog.Logger) { c.logger = l }

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// authenticate exchanges the client credential pair for a short-lived
// bearer token.
func (c *Client) authenticate(ctx context.Context) (providers.Token, *providers.Failure) {
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return providers.Token{}, &providers.Failure{Code: "REQUEST_ERROR", Message: err.Error()}
	}
	basic := base64.StdEncoding.EncodeToString([]byte(c.clientID + ":" + c.clientSecret))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return providers.Token{}, providers.TransportFailure(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return providers.Token{}, &providers.Failure{
			Code:       "AUTHORIZATION_ERROR",
			Message:    "paypal token exchange failed",
			StatusCode: resp.StatusCode,
		}
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return providers.Token{}, &providers.Failure{Code: "DECODE_ERROR", Message: err.Error()}
	}
	return providers.Token{
		Value:     tr.AccessToken,
		ExpiresAt: time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second),
	}, nil
}

type payoutItemReq struct {
	RecipientType string `json:"recipient_type"`
	Amount        struct {
		Value    string `json:"value"`
		Currency string `json:"currency"`
	} `json:"amount"`
	Receiver     string `json:"receiver"`
	Note         string `json:"note,omitempty"`
	SenderItemID string `json:"sender_item_id"`
}

type payoutCreateReq struct {
	SenderBatchHeader struct {
		SenderBatchID string `json:"sender_batch_id"`
		EmailSubject  string `json:"email_subject,omitempty"`
		EmailMessage  string `json:"email_message,omitempty"`
	} `json:"sender_batch_header"`
	Items []payoutItemReq `json:"items"`
}

type payoutItemResp struct {
	PayoutItemID      string `json:"payout_item_id"`
	TransactionStatus string `json:"transaction_status"`
	PayoutItem        struct {
		SenderItemID string `json:"sender_item_id"`
	} `json:"payout_item"`
	Errors *struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"errors"`
}

type payoutBatchResp struct {
	BatchHeader struct {
		PayoutBatchID string `json:"payout_batch_id"`
		BatchStatus   string `json:"batch_status"`
	} `json:"batch_header"`
	Items []payoutItemResp `json:"items"`
}

// SubmitBatch exchanges N payment rows for one payout batch id plus one
// item id per row, in provider-declared order. The create response may omit
// item detail; in that case the batch is fetched once to obtain it.
func (c *Client) SubmitBatch(ctx context.Context, senderBatchID string, items []payouts.PayoutInput, opts payouts.PayPalOptions) (*payouts.PayPalSubmission, *providers.Failure) {
	token, fail := c.tokens.Get(ctx)
	if fail != nil {
		return nil, fail
	}

	var body payoutCreateReq
	body.SenderBatchHeader.SenderBatchID = senderBatchID
	body.SenderBatchHeader.EmailSubject = opts.EmailSubject
	body.SenderBatchHeader.EmailMessage = opts.EmailMessage
	body.Items = make([]payoutItemReq, len(items))
	for i, item := range items {
		r := payoutItemReq{
			RecipientType: "EMAIL",
			Receiver:      item.RecipientEmail,
			Note:          item.Note,
			SenderItemID:  item.PaymentID,
		}
		r.Amount.Value = centsToDecimal(item.AmountCents)
		r.Amount.Currency = item.Currency
		body.Items[i] = r
	}

	status, raw, fail := providers.DoJSON(ctx, c.http, http.MethodPost,
		c.baseURL+"/v1/payments/payouts",
		map[string]string{"Authorization": "Bearer " + token}, body)
	if fail != nil {
		return nil, fail
	}
	if status < 200 || status > 299 {
		return nil, c.parseError(status, raw)
	}

	var resp payoutBatchResp
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &providers.Failure{Code: "DECODE_ERROR", Message: "malformed payout response: " + err.Error(), Details: raw}
	}

	sub := &payouts.PayPalSubmission{
		ProviderBatchID: resp.BatchHeader.PayoutBatchID,
		BatchStatus:     resp.BatchHeader.BatchStatus,
		Items:           convertItems(resp.Items),
	}

	if len(sub.Items) == 0 {
		// Item detail only materializes on the read side for some accounts.
		st, f := c.GetBatchStatus(ctx, sub.ProviderBatchID)
		if f != nil {
			c.logger.WarnContext(ctx, "paypal: item detail fetch after submit failed",
				"payout_batch_id", sub.ProviderBatchID, "err", f.Message)
			return sub, nil
		}
		sub.BatchStatus = st.BatchStatus
		sub.Items = st.Items
	}
	return sub, nil
}

// GetBatchStatus fetches the current provider-side view of a payout batch.
func (c *Client) GetBatchStatus(ctx context.Context, providerBatchID string) (*payouts.PayPalBatchStatus, *providers.Failure) {
	token, fail := c.tokens.Get(ctx)
	if fail != nil {
		return nil, fail
	}

	status, raw, fail := providers.DoJSON(ctx, c.http, http.MethodGet,
		c.baseURL+"/v1/payments/payouts/"+url.PathEscape(providerBatchID),
		map[string]string{"Authorization": "Bearer " + token}, nil)
	if fail != nil {
		return nil, fail
	}
	if status < 200 || status > 299 {
		return nil, c.parseError(status, raw)
	}

	var resp payoutBatchResp
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &providers.Failure{Code: "DECODE_ERROR", Message: "malformed payout response: " + err.Error(), Details: raw}
	}

	return &payouts.PayPalBatchStatus{
		BatchStatus: resp.BatchHeader.BatchStatus,
		Items:       convertItems(resp.Items),
	}, nil
}

func convertItems(items []payoutItemResp) []payouts.PayPalItem {
	out := make([]payouts.PayPalItem, len(items))
	for i, item := range items {
		out[i] = payouts.PayPalItem{
			ItemID:            item.PayoutItemID,
			TransactionStatus: item.TransactionStatus,
		}
		if item.Errors != nil {
			out[i].ErrorCode = item.Errors.Name
			out[i].ErrorMessage = item.Errors.Message
		}
	}
	return out
}

type errorBody struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

func (c *Client) parseError(status int, raw []byte) *providers.Failure {
	var eb errorBody
	_ = json.Unmarshal(raw, &eb)
	msg := eb.Message
	if msg == "" {
		msg = fmt.Sprintf("paypal request failed with status %d", status)
	}
	return &providers.Failure{
		Code:       eb.Name,
		Message:    msg,
		StatusCode: status,
		Retryable:  providers.RetryableStatus(status),
		Details:    raw,
	}
}

func centsToDecimal(cents int64) string {
	if cents < 0 {
		return fmt.Sprintf("-%d.%02d", -cents/100, -cents%100)
	}
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
