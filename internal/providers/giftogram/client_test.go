package giftogram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zealits/bulkpayout-sub001/internal/modules/payouts"
	"github.com/zealits/bulkpayout-sub001/internal/providers/httpclient"
)

func newTestClient(t *testing.T, fn func(req *http.Request) (*http.Response, error)) *Client {
	t.Helper()
	c, err := New(Config{
		APIKey:     "test-key",
		HTTPClient: httpclient.NewMockClient(fn),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestSubmitOrder(t *testing.T) {
	var gotReq orderCreateReq
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/api/v1/orders" {
			t.Fatalf("unexpected path %s", req.URL.Path)
		}
		if got := req.Header.Get("Authorization"); got != "test-key" {
			t.Errorf("auth header = %q", got)
		}
		body, _ := io.ReadAll(req.Body)
		if err := json.Unmarshal(body, &gotReq); err != nil {
			t.Fatalf("request body: %v", err)
		}
		return httpclient.NewMockResponse(200, []byte(`{
			"data": {
				"order_id": "GO-1",
				"status": "sent",
				"recipients": [{"email": "a@example.com", "status": "delivered"}]
			}
		}`)), nil
	})

	result, fail := c.SubmitOrder(context.Background(), payouts.GiftOrder{
		ExternalID:     "pm-1",
		CampaignID:     "camp-1",
		RecipientName:  "Ada",
		RecipientEmail: "a@example.com",
		AmountCents:    2500,
	})
	if fail != nil {
		t.Fatalf("SubmitOrder: %v", fail)
	}

	if result.OrderID != "GO-1" || result.OrderStatus != "sent" || result.RecipientStatus != "delivered" {
		t.Errorf("result = %+v", result)
	}
	if gotReq.Denomination != "25.00" {
		t.Errorf("denomination = %q, want 25.00", gotReq.Denomination)
	}
	if gotReq.ExternalID != "pm-1" || gotReq.CampaignID != "camp-1" {
		t.Errorf("request ids = %q/%q", gotReq.ExternalID, gotReq.CampaignID)
	}
	if len(gotReq.Recipients) != 1 || gotReq.Recipients[0].Email != "a@example.com" {
		t.Errorf("recipients = %+v", gotReq.Recipients)
	}
}

func TestSubmitOrderProviderError(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return httpclient.NewMockResponse(422, []byte(`{"error":{"code":"INVALID_DENOMINATION","message":"no card at this amount"}}`)), nil
	})

	_, fail := c.SubmitOrder(context.Background(), payouts.GiftOrder{ExternalID: "pm", AmountCents: 1})
	if fail == nil {
		t.Fatal("expected a failure")
	}
	if fail.Code != "INVALID_DENOMINATION" || fail.StatusCode != 422 {
		t.Errorf("failure = %+v", fail)
	}
}

func TestListCampaigns(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/api/v1/campaigns" {
			t.Fatalf("unexpected path %s", req.URL.Path)
		}
		return httpclient.NewMockResponse(200, []byte(`{
			"data": [
				{"id": "camp-1", "name": "Thanks", "active": true, "currencies": ["USD"]},
				{"id": "camp-2", "name": "Retired", "active": false, "currencies": ["USD", "CAD"]}
			]
		}`)), nil
	})

	campaigns, fail := c.ListCampaigns(context.Background())
	if fail != nil {
		t.Fatalf("ListCampaigns: %v", fail)
	}
	if len(campaigns) != 2 || campaigns[0].ID != "camp-1" || !campaigns[0].Active || campaigns[1].Active {
		t.Errorf("campaigns = %+v", campaigns)
	}
}

func TestSubmitBulkWindows(t *testing.T) {
	var mu sync.Mutex
	var inFlight, maxInFlight int32
	var seen []string

	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		cur := atomic.AddInt32(&inFlight, 1)
		for {
			max := atomic.LoadInt32(&maxInFlight)
			if cur <= max || atomic.CompareAndSwapInt32(&maxInFlight, max, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond) // let window-mates overlap
		defer atomic.AddInt32(&inFlight, -1)

		body, _ := io.ReadAll(req.Body)
		var cr orderCreateReq
		json.Unmarshal(body, &cr)
		mu.Lock()
		seen = append(seen, cr.ExternalID)
		mu.Unlock()

		if strings.Contains(cr.Recipients[0].Email, "fail") {
			return httpclient.NewMockResponse(400, []byte(`{"error":{"code":"INVALID_RECIPIENT","message":"rejected"}}`)), nil
		}
		return httpclient.NewMockResponse(200, []byte(fmt.Sprintf(`{
			"data": {"order_id": "GO-%s", "status": "sent",
			         "recipients": [{"email": %q, "status": "delivered"}]}
		}`, cr.ExternalID, cr.Recipients[0].Email))), nil
	})

	orders := make([]payouts.GiftOrder, 7)
	for i := range orders {
		email := fmt.Sprintf("r%d@example.com", i)
		if i == 4 {
			email = "fail@example.com"
		}
		orders[i] = payouts.GiftOrder{
			ExternalID:     fmt.Sprintf("pm-%d", i),
			CampaignID:     "camp-1",
			RecipientName:  "R",
			RecipientEmail: email,
			AmountCents:    1000,
		}
	}

	out, fail := c.SubmitBulk(context.Background(), orders, payouts.BulkOptions{BatchSize: 3, Delay: time.Millisecond})
	if fail != nil {
		t.Fatalf("SubmitBulk: %v", fail)
	}

	if out.TotalProcessed != 7 || out.Successful != 6 || out.Failed != 1 {
		t.Errorf("counts = %d/%d/%d, want 7/6/1", out.TotalProcessed, out.Successful, out.Failed)
	}
	if out.TotalAmountCents != 6000 {
		t.Errorf("totalAmountCents = %d, want 6000", out.TotalAmountCents)
	}
	if got := atomic.LoadInt32(&maxInFlight); got > 3 {
		t.Errorf("max concurrent requests = %d, window size is 3", got)
	}
	if len(seen) != 7 {
		t.Fatalf("provider saw %d requests", len(seen))
	}

	// results stay positional with the input
	for i, r := range out.Results {
		if r.ExternalID != orders[i].ExternalID {
			t.Errorf("result %d externalID = %q, want %q", i, r.ExternalID, orders[i].ExternalID)
		}
	}
	if out.Results[4].Failure == nil || out.Results[4].Failure.Code != "INVALID_RECIPIENT" {
		t.Errorf("failed slot = %+v", out.Results[4])
	}
	if out.Results[0].Result == nil || out.Results[0].Result.OrderID != "GO-pm-0" {
		t.Errorf("success slot = %+v", out.Results[0])
	}
}

func TestSubmitBulkDefaultWindowing(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return httpclient.NewMockResponse(200, []byte(`{"data":{"order_id":"GO-x","status":"sent"}}`)), nil
	})

	orders := []payouts.GiftOrder{
		{ExternalID: "a", AmountCents: 100},
		{ExternalID: "b", AmountCents: 200},
	}
	out, fail := c.SubmitBulk(context.Background(), orders, payouts.BulkOptions{})
	if fail != nil {
		t.Fatalf("SubmitBulk: %v", fail)
	}
	if out.Successful != 2 || atomic.LoadInt32(&calls) != 2 {
		t.Errorf("successful = %d, calls = %d", out.Successful, calls)
	}
}
