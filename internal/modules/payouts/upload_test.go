package payouts

import (
	"context"
	"encoding/json"
	"testing"
)

func TestUploadCreate(t *testing.T) {
	db := openTestDB(t)
	u := NewUploader(db)

	res, err := u.Create(context.Background(), UploadInput{
		Name:           "march contractors",
		PaymentMethod:  MethodPayPal,
		Currency:       "EUR",
		ProviderConfig: json.RawMessage(`{"emailSubject":"Payout"}`),
		Rows: []UploadRow{
			{RecipientName: "Ada", RecipientEmail: "ada@example.com", Amount: 10.00},
			{RecipientName: "Ben", RecipientEmail: "ben@example.com", Amount: 19.99, Currency: "USD"},
			{RecipientName: "Cleo", RecipientEmail: "cleo@example.com", Amount: 0.01, Meta: map[string]string{"dept": "eng"}},
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res.Status != BatchUploaded {
		t.Errorf("status = %s, want uploaded", res.Status)
	}
	if res.TotalPayments != 3 {
		t.Errorf("totalPayments = %d, want 3", res.TotalPayments)
	}

	b := reloadBatch(t, db, res.BatchID)
	if b.PendingCount != 3 {
		t.Errorf("pendingCount = %d, want 3", b.PendingCount)
	}
	if len(b.ProviderConfig) == 0 {
		t.Error("providerConfig not persisted")
	}

	payments, err := NewRepo(db).PendingPayments(context.Background(), res.BatchID, MethodPayPal)
	if err != nil {
		t.Fatalf("PendingPayments: %v", err)
	}
	if len(payments) != 3 {
		t.Fatalf("got %d pending payments", len(payments))
	}

	// rows come back in upload order
	wantNames := []string{"Ada", "Ben", "Cleo"}
	wantCents := []int64{1000, 1999, 1}
	wantCurrency := []string{"EUR", "USD", "EUR"}
	for i, pm := range payments {
		if pm.RecipientName != wantNames[i] {
			t.Errorf("row %d name = %q, want %q", i, pm.RecipientName, wantNames[i])
		}
		if pm.AmountCents != wantCents[i] {
			t.Errorf("row %d cents = %d, want %d", i, pm.AmountCents, wantCents[i])
		}
		if pm.Currency != wantCurrency[i] {
			t.Errorf("row %d currency = %q, want %q", i, pm.Currency, wantCurrency[i])
		}
		if pm.Status != StatusPending {
			t.Errorf("row %d status = %s, want pending", i, pm.Status)
		}
	}
	if len(payments[2].Meta) == 0 {
		t.Error("row meta not persisted")
	}
}

func TestUploadCreateDefaultsCurrencyToUSD(t *testing.T) {
	db := openTestDB(t)
	u := NewUploader(db)

	res, err := u.Create(context.Background(), UploadInput{
		Name:          "no currency anywhere",
		PaymentMethod: MethodGiftCard,
		Rows: []UploadRow{
			{RecipientName: "Dot", RecipientEmail: "dot@example.com", Amount: 25},
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	payments, _ := NewRepo(db).PendingPayments(context.Background(), res.BatchID, MethodGiftCard)
	if payments[0].Currency != "USD" {
		t.Errorf("currency = %q, want USD", payments[0].Currency)
	}
}

func TestUploadCreateUnknownMethod(t *testing.T) {
	db := openTestDB(t)
	u := NewUploader(db)

	_, err := u.Create(context.Background(), UploadInput{
		Name:          "bad",
		PaymentMethod: Method("carrier_pigeon"),
		Rows:          []UploadRow{{RecipientName: "X", RecipientEmail: "x@example.com", Amount: 1}},
	})
	if err != ErrUnknownMethod {
		t.Errorf("err = %v, want ErrUnknownMethod", err)
	}
}

func TestUploadCreateEmptyRows(t *testing.T) {
	db := openTestDB(t)
	u := NewUploader(db)

	res, err := u.Create(context.Background(), UploadInput{
		Name:          "empty",
		PaymentMethod: MethodBankTransfer,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res.TotalPayments != 0 {
		t.Errorf("totalPayments = %d, want 0", res.TotalPayments)
	}
	if b := reloadBatch(t, db, res.BatchID); b.Status != BatchUploaded {
		t.Errorf("status = %s, want uploaded", b.Status)
	}
}

func TestToCents(t *testing.T) {
	cases := []struct {
		in   float64
		want int64
	}{
		{10.00, 1000},
		{19.99, 1999},
		{0.1, 10},
		{0.01, 1},
		{123.45, 12345},
		{1.005, 100}, // 1.005 is stored just below 1.005; rounding follows the float
	}
	for _, tc := range cases {
		if got := toCents(tc.in); got != tc.want {
			t.Errorf("toCents(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
