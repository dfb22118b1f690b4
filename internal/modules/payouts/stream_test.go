package payouts

import (
	"context"
	"testing"

	"github.com/zealits/bulkpayout-sub001/internal/providers"
)

func collectEvents(t *testing.T, events <-chan ProgressEvent) []ProgressEvent {
	t.Helper()
	var out []ProgressEvent
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

func TestProcessStreamEmitsPerItemEvents(t *testing.T) {
	db := openTestDB(t)
	b, payments := seedBatch(t, db, MethodGiftCard, []int64{1000, 2000, 3000})

	gw, _, gc, _ := testGateways()
	gc.orderFails = map[string]*providers.Failure{
		payments[1].ID: {Code: "INVALID_RECIPIENT", Message: "recipient rejected", StatusCode: 422},
	}

	events, err := NewProcessor(db, gw).ProcessStream(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("ProcessStream: %v", err)
	}

	got := collectEvents(t, events)
	if len(got) != 4 {
		t.Fatalf("got %d events, want 3 item events + 1 final", len(got))
	}

	for i := 0; i < 3; i++ {
		ev := got[i]
		if ev.Done {
			t.Errorf("event %d marked done", i)
		}
		if ev.Processed != i+1 || ev.Total != 3 {
			t.Errorf("event %d progress = %d/%d, want %d/3", i, ev.Processed, ev.Total, i+1)
		}
		if ev.PaymentID != payments[i].ID {
			t.Errorf("event %d payment = %s, want %s (upload order)", i, ev.PaymentID, payments[i].ID)
		}
	}
	if got[1].Success {
		t.Error("second event should report the failure")
	}
	if got[1].ErrorMessage == "" {
		t.Error("failure event should carry a message")
	}

	final := got[3]
	if !final.Done || final.Summary == nil {
		t.Fatalf("final event = %+v, want done with summary", final)
	}
	if final.Summary.Status != BatchPartial {
		t.Errorf("summary status = %s, want partial", final.Summary.Status)
	}
	if final.Summary.SuccessCount != 2 || final.Summary.FailureCount != 1 {
		t.Errorf("summary counts = (%d,%d), want (2,1)",
			final.Summary.SuccessCount, final.Summary.FailureCount)
	}
	if final.Summary.TotalAmountCents != 4000 {
		t.Errorf("summary amount = %d, want 4000", final.Summary.TotalAmountCents)
	}
}

func TestProcessStreamValidationBeforeStream(t *testing.T) {
	db := openTestDB(t)
	gw, _, _, _ := testGateways()
	p := NewProcessor(db, gw)

	if _, err := p.ProcessStream(context.Background(), "missing"); err != ErrBatchNotFound {
		t.Errorf("err = %v, want ErrBatchNotFound before any event", err)
	}

	b, _ := seedBatch(t, db, MethodPayPal, []int64{1000})
	db.Model(&Batch{}).Where("id = ?", b.ID).Update("status", BatchProcessing)
	if _, err := p.ProcessStream(context.Background(), b.ID); err != ErrBatchBusy {
		t.Errorf("err = %v, want ErrBatchBusy before any event", err)
	}
}

func TestProcessStreamPayPalBatchSubmit(t *testing.T) {
	db := openTestDB(t)
	b, payments := seedBatch(t, db, MethodPayPal, []int64{1000, 2000})

	gw, pp, _, _ := testGateways()
	pp.submission = &PayPalSubmission{
		ProviderBatchID: "PB-stream",
		Items: []PayPalItem{
			{ItemID: "PI-1", TransactionStatus: "SUCCESS"},
			{ItemID: "PI-2", TransactionStatus: "PENDING"},
		},
	}

	events, err := NewProcessor(db, gw).ProcessStream(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("ProcessStream: %v", err)
	}
	got := collectEvents(t, events)

	if pp.submitCalls != 1 {
		t.Errorf("submit calls = %d, want one batch submission", pp.submitCalls)
	}
	if len(got) != 3 {
		t.Fatalf("got %d events, want 2 item events + final", len(got))
	}
	if got[1].Status != StatusProcessing {
		t.Errorf("pending item status = %s, want processing", got[1].Status)
	}

	p2 := reloadPayment(t, db, payments[1].ID)
	if p2.PayoutItemID == nil || *p2.PayoutItemID != "PI-2" {
		t.Error("correlation id must be recorded even when status stays processing")
	}
}

// A consumer disconnect cancels the request context; the run must still
// drive every payment to an outcome and settle the batch.
func TestProcessStreamSurvivesConsumerDisconnect(t *testing.T) {
	db := openTestDB(t)
	b, payments := seedBatch(t, db, MethodGiftCard, []int64{1000, 2000})

	gw, _, gc, _ := testGateways()
	gated := newGatedGiftCard(gc)
	gw.GiftCard = gated

	ctx, cancel := context.WithCancel(context.Background())
	events, err := NewProcessor(db, gw).ProcessStream(ctx, b.ID)
	if err != nil {
		t.Fatalf("ProcessStream: %v", err)
	}

	// Disconnect before any submission completes, then let the provider go.
	cancel()
	close(gated.gate)

	got := collectEvents(t, events)
	final := got[len(got)-1]
	if !final.Done || final.Summary == nil {
		t.Fatalf("final event = %+v, want done with summary", final)
	}
	if final.Summary.Status != BatchCompleted {
		t.Errorf("summary status = %s, want completed", final.Summary.Status)
	}

	if got := reloadBatch(t, db, b.ID).Status; got != BatchCompleted {
		t.Errorf("batch status = %s, want completed after disconnect", got)
	}
	for _, pm := range payments {
		if got := reloadPayment(t, db, pm.ID).Status; got != StatusCompleted {
			t.Errorf("payment %s status = %s, want completed", pm.ID, got)
		}
	}
}

func TestProcessStreamTotalFailure(t *testing.T) {
	db := openTestDB(t)
	b, _ := seedBatch(t, db, MethodPayPal, []int64{1000, 2000})

	gw, pp, _, _ := testGateways()
	pp.submitFail = &providers.Failure{Code: "INSUFFICIENT_FUNDS", Message: "sender funds too low"}

	events, err := NewProcessor(db, gw).ProcessStream(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("ProcessStream: %v", err)
	}
	got := collectEvents(t, events)

	if len(got) != 1 {
		t.Fatalf("got %d events, want single terminal event", len(got))
	}
	if !got[0].Done || got[0].ErrorMessage == "" {
		t.Errorf("terminal event = %+v, want done with error", got[0])
	}
	if reloadBatch(t, db, b.ID).Status != BatchFailed {
		t.Error("batch must be failed after total failure")
	}
}
