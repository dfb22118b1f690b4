// Package xe implements the cross-border bank-transfer rail.
package xe

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
	sandboxBaseURL    = "https://sandbox.xe.com/api"
	productionBaseURL = "https://xecd.xe.com/api"
)

type Config struct {
	Env          providers.Environment
	BaseURL      string
	ClientID     string
	ClientSecret string
	HTTPClient   *http.Client
}

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
		return nil, fmt.Errorf("xe: client id and secret are required")
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

func (c *Client) authenticate(ctx context.Context) (providers.Token, *providers.Failure) {
	basic := base64.StdEncoding.EncodeToString([]byte(c.clientID + ":" + c.clientSecret))
	status, raw, fail := providers.DoJSON(ctx, c.http, http.MethodPost,
		c.baseURL+"/v2/auth/token",
		map[string]string{"Authorization": "Basic " + basic},
		map[string]string{"grant_type": "client_credentials"})
	if fail != nil {
		return providers.Token{}, fail
	}
	if status != http.StatusOK {
		return providers.Token{}, &providers.Failure{
			Code:       "UNAUTHORIZED",
			Message:    "xe token exchange failed",
			StatusCode: status,
			Details:    raw,
		}
	}

	var tr struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(raw, &tr); err != nil {
		return providers.Token{}, &providers.Failure{Code: "DECODE_ERROR", Message: err.Error()}
	}
	return providers.Token{
		Value:     tr.AccessToken,
		ExpiresAt: time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second),
	}, nil
}

func (c *Client) authed(ctx context.Context) (map[string]string, *providers.Failure) {
	token, fail := c.tokens.Get(ctx)
	if fail != nil {
		return nil, fail
	}
	return map[string]string{"Authorization": "Bearer " + token}, nil
}

// CreateRecipient registers the beneficiary with XE and returns its id.
func (c *Client) CreateRecipient(ctx context.Context, r payouts.BankRecipient) (*payouts.CreatedRecipient, *providers.Failure) {
	headers, fail := c.authed(ctx)
	if fail != nil {
		return nil, fail
	}

	body := map[string]any{
		"name":           r.Name,
		"email":          r.Email,
		"currency":       r.Currency,
		"country":        r.CountryCode,
		"account_number": r.AccountNumber,
		"bank_code":      r.BankCode,
		"reference":      r.PaymentID,
	}
	status, raw, fail := providers.DoJSON(ctx, c.http, http.MethodPost,
		c.baseURL+"/v2/recipients", headers, body)
	if fail != nil {
		return nil, fail
	}
	if status < 200 || status > 299 {
		return nil, c.parseError(status, raw)
	}

	var resp struct {
		RecipientID string `json:"recipient_id"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &providers.Failure{Code: "DECODE_ERROR", Message: "malformed recipient response: " + err.Error(), Details: raw}
	}
	return &payouts.CreatedRecipient{RecipientID: resp.RecipientID}, nil
}

// CreateContract books the transfer for a registered recipient.
func (c *Client) CreateContract(ctx context.Context, in payouts.BankContract) (*payouts.ContractState, *providers.Failure) {
	headers, fail := c.authed(ctx)
	if fail != nil {
		return nil, fail
	}

	body := map[string]any{
		"recipient_id":  in.RecipientID,
		"sell_currency": in.SellCurrency,
		"buy_currency":  in.BuyCurrency,
		"buy_amount":    fmt.Sprintf("%d.%02d", in.AmountCents/100, in.AmountCents%100),
		"reference":     in.Reference,
	}
	status, raw, fail := providers.DoJSON(ctx, c.http, http.MethodPost,
		c.baseURL+"/v2/contracts", headers, body)
	if fail != nil {
		return nil, fail
	}
	if status < 200 || status > 299 {
		return nil, c.parseError(status, raw)
	}
	return parseContract(raw)
}

func (c *Client) GetContract(ctx context.Context, contractID string) (*payouts.ContractState, *providers.Failure) {
	return c.contractCall(ctx, http.MethodGet, contractID, "")
}

func (c *Client) CancelContract(ctx context.Context, contractID string) (*payouts.ContractState, *providers.Failure) {
	return c.contractCall(ctx, http.MethodPost, contractID, "cancel")
}

func (c *Client) ApproveContract(ctx context.Context, contractID string) (*payouts.ContractState, *providers.Failure) {
	return c.contractCall(ctx, http.MethodPost, contractID, "approve")
}

func (c *Client) contractCall(ctx context.Context, method, contractID, action string) (*payouts.ContractState, *providers.Failure) {
	headers, fail := c.authed(ctx)
	if fail != nil {
		return nil, fail
	}

	u := c.baseURL + "/v2/contracts/" + url.PathEscape(contractID)
	if action != "" {
		u += "/" + action
	}
	status, raw, fail := providers.DoJSON(ctx, c.http, method, u, headers, nil)
	if fail != nil {
		return nil, fail
	}
	if status < 200 || status > 299 {
		return nil, c.parseError(status, raw)
	}
	return parseContract(raw)
}

func parseContract(raw []byte) (*payouts.ContractState, *providers.Failure) {
	var resp struct {
		ContractID string `json:"contract_id"`
		Status     string `json:"status"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &providers.Failure{Code: "DECODE_ERROR", Message: "malformed contract response: " + err.Error(), Details: raw}
	}
	return &payouts.ContractState{ContractID: resp.ContractID, Status: resp.Status}, nil
}

func (c *Client) ListAccounts(ctx context.Context) ([]payouts.SettlementAccount, *providers.Failure) {
	headers, fail := c.authed(ctx)
	if fail != nil {
		return nil, fail
	}

	status, raw, fail := providers.DoJSON(ctx, c.http, http.MethodGet,
		c.baseURL+"/v2/accounts", headers, nil)
	if fail != nil {
		return nil, fail
	}
	if status < 200 || status > 299 {
		return nil, c.parseError(status, raw)
	}

	var resp struct {
		Accounts []struct {
			ID       string `json:"id"`
			Currency string `json:"currency"`
			Name     string `json:"name"`
		} `json:"accounts"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &providers.Failure{Code: "DECODE_ERROR", Message: "malformed accounts response: " + err.Error(), Details: raw}
	}

	out := make([]payouts.SettlementAccount, len(resp.Accounts))
	for i, a := range resp.Accounts {
		out[i] = payouts.SettlementAccount{ID: a.ID, Currency: a.Currency, Name: a.Name}
	}
	return out, nil
}

// FieldRequirements fetches the required recipient fields for a corridor.
// The payload is passed through verbatim; the API layer caches it.
func (c *Client) FieldRequirements(ctx context.Context, country, currency string) (json.RawMessage, *providers.Failure) {
	headers, fail := c.authed(ctx)
	if fail != nil {
		return nil, fail
	}

	u := c.baseURL + "/v2/recipients/fields?country=" + url.QueryEscape(country) +
		"&currency=" + url.QueryEscape(currency)
	status, raw, fail := providers.DoJSON(ctx, c.http, http.MethodGet, u, headers, nil)
	if fail != nil {
		return nil, fail
	}
	if status < 200 || status > 299 {
		return nil, c.parseError(status, raw)
	}
	return raw, nil
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *Client) parseError(status int, raw []byte) *providers.Failure {
	var eb errorBody
	_ = json.Unmarshal(raw, &eb)
	msg := eb.Message
	if msg == "" {
		msg = fmt.Sprintf("xe request failed with status %d", status)
	}
	return &providers.Failure{
		Code:       eb.Code,
		Message:    msg,
		StatusCode: status,
		Retryable:  providers.RetryableStatus(status),
		Details:    raw,
	}
}
