package payouts

import (
	"context"
	"testing"
)

func TestSyncPayPalIdentityMatch(t *testing.T) {
	db := openTestDB(t)
	b, payments := seedBatch(t, db, MethodPayPal, []int64{1000, 2000})

	pbID := "PB-sync"
	db.Model(&Batch{}).Where("id = ?", b.ID).
		Updates(map[string]any{"status": BatchProcessing, "provider_batch_id": pbID})
	// simulate a previous submission: processing with correlation ids, out of
	// upload order on purpose — sync matches by id, not position
	db.Model(&Payment{}).Where("id = ?", payments[0].ID).
		Updates(map[string]any{"status": StatusProcessing, "payout_item_id": "PI-A"})
	db.Model(&Payment{}).Where("id = ?", payments[1].ID).
		Updates(map[string]any{"status": StatusProcessing, "payout_item_id": "PI-B"})

	gw, pp, _, _ := testGateways()
	pp.status = &PayPalBatchStatus{
		BatchStatus: "PROCESSING",
		Items: []PayPalItem{
			{ItemID: "PI-B", TransactionStatus: "SUCCESS"},
			{ItemID: "PI-A", TransactionStatus: "PENDING"},
		},
	}

	res, err := NewReconciler(db, gw).Sync(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}

	if !res.ItemsReconciled {
		t.Error("items were present, ItemsReconciled should be true")
	}
	if res.PaymentsChecked != 2 || res.PaymentsUpdated != 1 {
		t.Errorf("checked/updated = %d/%d, want 2/1", res.PaymentsChecked, res.PaymentsUpdated)
	}

	if got := reloadPayment(t, db, payments[1].ID); got.Status != StatusCompleted {
		t.Errorf("PI-B payment = %s, want completed", got.Status)
	}
	if got := reloadPayment(t, db, payments[0].ID); got.Status != StatusProcessing {
		t.Errorf("PI-A payment = %s, want still processing", got.Status)
	}

	// second sync with identical upstream state writes nothing
	res2, err := NewReconciler(db, gw).Sync(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("second Sync: %v", err)
	}
	if res2.PaymentsUpdated != 0 {
		t.Errorf("second sync updated = %d, want 0", res2.PaymentsUpdated)
	}
}

func TestSyncPayPalNoItemDetailYet(t *testing.T) {
	db := openTestDB(t)
	b, payments := seedBatch(t, db, MethodPayPal, []int64{1000})

	pbID := "PB-empty"
	db.Model(&Batch{}).Where("id = ?", b.ID).
		Updates(map[string]any{"status": BatchProcessing, "provider_batch_id": pbID})
	db.Model(&Payment{}).Where("id = ?", payments[0].ID).
		Updates(map[string]any{"status": StatusProcessing, "payout_item_id": "PI-X"})

	gw, pp, _, _ := testGateways()
	pp.status = &PayPalBatchStatus{BatchStatus: "PENDING"}

	res, err := NewReconciler(db, gw).Sync(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}

	if res.ItemsReconciled {
		t.Error("no item detail upstream, ItemsReconciled must be false")
	}
	if res.Message == "" {
		t.Error("expected an explanatory message")
	}
	if res.ProviderStatus != "PENDING" {
		t.Errorf("providerStatus = %q, want PENDING", res.ProviderStatus)
	}
	if got := reloadPayment(t, db, payments[0].ID); got.Status != StatusProcessing {
		t.Errorf("payment = %s, payments must be untouched", got.Status)
	}
}

func TestSyncPayPalNotSubmitted(t *testing.T) {
	db := openTestDB(t)
	b, _ := seedBatch(t, db, MethodPayPal, []int64{1000})

	gw, _, _, _ := testGateways()
	if _, err := NewReconciler(db, gw).Sync(context.Background(), b.ID); err != ErrNotSubmitted {
		t.Errorf("err = %v, want ErrNotSubmitted", err)
	}
}

func TestSyncGiftogramRecipientPrecedence(t *testing.T) {
	db := openTestDB(t)
	b, payments := seedBatch(t, db, MethodGiftCard, []int64{1000, 2000, 3000})

	db.Model(&Batch{}).Where("id = ?", b.ID).Update("status", BatchProcessing)
	db.Model(&Payment{}).Where("id = ?", payments[0].ID).
		Updates(map[string]any{"status": StatusProcessing, "order_id": "GO-1"})
	db.Model(&Payment{}).Where("id = ?", payments[1].ID).
		Updates(map[string]any{"status": StatusProcessing, "order_id": "GO-2"})
	// third payment was never submitted: no order id, skipped entirely

	gw, _, gc, _ := testGateways()
	gc.getResults = map[string]*GiftOrderResult{
		// order-level says sent, recipient-level says bounced: recipient wins
		"GO-1": {OrderID: "GO-1", OrderStatus: "sent", RecipientStatus: "bounced"},
		"GO-2": {OrderID: "GO-2", OrderStatus: "sent", RecipientStatus: "delivered"},
	}

	res, err := NewReconciler(db, gw).Sync(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}

	if res.PaymentsChecked != 2 {
		t.Errorf("checked = %d, want 2 (unsubmitted payment skipped)", res.PaymentsChecked)
	}
	if got := reloadPayment(t, db, payments[0].ID); got.Status != StatusFailed {
		t.Errorf("bounced recipient = %s, want failed", got.Status)
	}
	if got := reloadPayment(t, db, payments[1].ID); got.Status != StatusCompleted {
		t.Errorf("delivered recipient = %s, want completed", got.Status)
	}
	if res.BatchStatus != BatchPartial {
		t.Errorf("batch = %s, want partial", res.BatchStatus)
	}
}

func TestSyncBankTransferContractLookup(t *testing.T) {
	db := openTestDB(t)
	b, payments := seedBatch(t, db, MethodBankTransfer, []int64{5000})

	db.Model(&Batch{}).Where("id = ?", b.ID).Update("status", BatchProcessing)
	db.Model(&Payment{}).Where("id = ?", payments[0].ID).
		Updates(map[string]any{"status": StatusProcessing, "contract_id": "CT-1"})

	gw, _, _, bt := testGateways()
	bt.getStates = map[string]*ContractState{
		"CT-1": {ContractID: "CT-1", Status: "settled"},
	}

	res, err := NewReconciler(db, gw).Sync(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if res.PaymentsUpdated != 1 {
		t.Errorf("updated = %d, want 1", res.PaymentsUpdated)
	}
	if got := reloadPayment(t, db, payments[0].ID); got.Status != StatusCompleted {
		t.Errorf("settled contract payment = %s, want completed", got.Status)
	}
	if res.BatchStatus != BatchCompleted {
		t.Errorf("batch = %s, want completed", res.BatchStatus)
	}
}
