package paypal

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/zealits/bulkpayout-sub001/internal/modules/payouts"
	"github.com/zealits/bulkpayout-sub001/internal/providers/httpclient"
)

const tokenBody = `{"access_token":"test-token","expires_in":3600}`

func newTestClient(t *testing.T, fn func(req *http.Request) (*http.Response, error)) *Client {
	t.Helper()
	c, err := New(Config{
		ClientID:     "cid",
		ClientSecret: "secret",
		HTTPClient:   httpclient.NewMockClient(fn),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestSubmitBatch(t *testing.T) {
	var payoutReq payoutCreateReq
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		switch {
		case strings.HasSuffix(req.URL.Path, "/v1/oauth2/token"):
			if got := req.Header.Get("Authorization"); !strings.HasPrefix(got, "Basic ") {
				t.Errorf("token request auth = %q, want Basic", got)
			}
			return httpclient.NewMockResponse(200, []byte(tokenBody)), nil
		case req.URL.Path == "/v1/payments/payouts":
			if got := req.Header.Get("Authorization"); got != "Bearer test-token" {
				t.Errorf("payout auth = %q", got)
			}
			body, _ := io.ReadAll(req.Body)
			if err := json.Unmarshal(body, &payoutReq); err != nil {
				t.Fatalf("request body: %v", err)
			}
			return httpclient.NewMockResponse(201, []byte(`{
				"batch_header": {"payout_batch_id": "PB-1", "batch_status": "PENDING"},
				"items": [
					{"payout_item_id": "PI-1", "transaction_status": "PENDING"},
					{"payout_item_id": "PI-2", "transaction_status": "FAILED",
					 "errors": {"name": "RECEIVER_UNREGISTERED", "message": "no account"}}
				]
			}`)), nil
		default:
			t.Fatalf("unexpected request %s %s", req.Method, req.URL)
			return nil, nil
		}
	})

	items := []payouts.PayoutInput{
		{PaymentID: "pm-1", RecipientEmail: "a@example.com", AmountCents: 1999, Currency: "USD"},
		{PaymentID: "pm-2", RecipientEmail: "b@example.com", AmountCents: 500, Currency: "USD"},
	}
	sub, fail := c.SubmitBatch(context.Background(), "batch-1", items, payouts.PayPalOptions{EmailSubject: "Payout"})
	if fail != nil {
		t.Fatalf("SubmitBatch: %v", fail)
	}

	if sub.ProviderBatchID != "PB-1" || sub.BatchStatus != "PENDING" {
		t.Errorf("submission header = %q/%q", sub.ProviderBatchID, sub.BatchStatus)
	}
	if len(sub.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(sub.Items))
	}
	if sub.Items[1].ErrorCode != "RECEIVER_UNREGISTERED" || sub.Items[1].ErrorMessage != "no account" {
		t.Errorf("item error not carried: %+v", sub.Items[1])
	}

	// request shape: decimal amounts, email receivers, payment ids as sender item ids
	if payoutReq.SenderBatchHeader.SenderBatchID != "batch-1" {
		t.Errorf("sender_batch_id = %q", payoutReq.SenderBatchHeader.SenderBatchID)
	}
	if payoutReq.SenderBatchHeader.EmailSubject != "Payout" {
		t.Errorf("email_subject = %q", payoutReq.SenderBatchHeader.EmailSubject)
	}
	if payoutReq.Items[0].Amount.Value != "19.99" || payoutReq.Items[1].Amount.Value != "5.00" {
		t.Errorf("amounts = %q, %q", payoutReq.Items[0].Amount.Value, payoutReq.Items[1].Amount.Value)
	}
	if payoutReq.Items[0].SenderItemID != "pm-1" || payoutReq.Items[0].Receiver != "a@example.com" {
		t.Errorf("item 0 = %+v", payoutReq.Items[0])
	}
}

func TestSubmitBatchFetchesItemsWhenCreateOmitsThem(t *testing.T) {
	getCalls := 0
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		switch {
		case strings.HasSuffix(req.URL.Path, "/v1/oauth2/token"):
			return httpclient.NewMockResponse(200, []byte(tokenBody)), nil
		case req.Method == http.MethodPost:
			return httpclient.NewMockResponse(201, []byte(`{
				"batch_header": {"payout_batch_id": "PB-2", "batch_status": "PENDING"}
			}`)), nil
		default:
			getCalls++
			return httpclient.NewMockResponse(200, []byte(`{
				"batch_header": {"payout_batch_id": "PB-2", "batch_status": "PROCESSING"},
				"items": [{"payout_item_id": "PI-9", "transaction_status": "SUCCESS"}]
			}`)), nil
		}
	})

	sub, fail := c.SubmitBatch(context.Background(), "batch-2",
		[]payouts.PayoutInput{{PaymentID: "pm", RecipientEmail: "x@example.com", AmountCents: 100, Currency: "USD"}},
		payouts.PayPalOptions{})
	if fail != nil {
		t.Fatalf("SubmitBatch: %v", fail)
	}
	if getCalls != 1 {
		t.Errorf("status fetched %d times, want 1", getCalls)
	}
	if sub.BatchStatus != "PROCESSING" || len(sub.Items) != 1 || sub.Items[0].ItemID != "PI-9" {
		t.Errorf("submission = %+v", sub)
	}
}

func TestSubmitBatchProviderError(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		if strings.HasSuffix(req.URL.Path, "/v1/oauth2/token") {
			return httpclient.NewMockResponse(200, []byte(tokenBody)), nil
		}
		return httpclient.NewMockResponse(400, []byte(`{"name":"INSUFFICIENT_FUNDS","message":"balance too low"}`)), nil
	})

	_, fail := c.SubmitBatch(context.Background(), "b",
		[]payouts.PayoutInput{{PaymentID: "pm", RecipientEmail: "x@example.com", AmountCents: 100, Currency: "USD"}},
		payouts.PayPalOptions{})
	if fail == nil {
		t.Fatal("expected a failure")
	}
	if fail.Code != "INSUFFICIENT_FUNDS" || fail.Message != "balance too low" {
		t.Errorf("failure = %+v", fail)
	}
	if fail.Retryable {
		t.Error("a 400 is not transport-retryable")
	}
}

func TestAuthenticateRejection(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return httpclient.NewMockResponse(401, []byte(`{}`)), nil
	})

	_, fail := c.GetBatchStatus(context.Background(), "PB-x")
	if fail == nil || fail.Code != "AUTHORIZATION_ERROR" {
		t.Errorf("failure = %+v", fail)
	}
}

func TestCentsToDecimal(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{100, "1.00"},
		{1999, "19.99"},
		{123456, "1234.56"},
		{-150, "-1.50"},
	}
	for _, tc := range cases {
		if got := centsToDecimal(tc.in); got != tc.want {
			t.Errorf("centsToDecimal(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
