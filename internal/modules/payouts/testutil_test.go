package payouts

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/zealits/bulkpayout-sub001/internal/providers"
)

var testDBSeq atomic.Int64

// openTestDB gives each test its own named in-memory database; the shared
// cache keeps every pooled connection on the same store.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:payouts_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.AutoMigrate(&Batch{}, &Payment{}, &ProviderEvent{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// seedBatch creates an uploaded batch with one pending payment per amount,
// in slice order.
func seedBatch(t *testing.T, db *gorm.DB, method Method, amountsCents []int64) (Batch, []Payment) {
	t.Helper()

	now := time.Now()
	b := Batch{
		ID:            uuid.NewString(),
		Name:          "test batch",
		PaymentMethod: method,
		Status:        BatchUploaded,
		PendingCount:  len(amountsCents),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := db.Create(&b).Error; err != nil {
		t.Fatalf("failed to seed batch: %v", err)
	}

	payments := make([]Payment, len(amountsCents))
	for i, cents := range amountsCents {
		payments[i] = Payment{
			ID:             uuid.NewString(),
			BatchID:        b.ID,
			RecipientName:  fmt.Sprintf("Recipient %d", i+1),
			RecipientEmail: fmt.Sprintf("recipient%d@example.com", i+1),
			AmountCents:    cents,
			Currency:       "USD",
			PaymentMethod:  method,
			Status:         StatusPending,
			InitiatedAt:    now,
			CreatedAt:      now.Add(time.Duration(i) * time.Millisecond),
			UpdatedAt:      now,
		}
		if err := db.Create(&payments[i]).Error; err != nil {
			t.Fatalf("failed to seed payment %d: %v", i, err)
		}
	}
	return b, payments
}

func reloadBatch(t *testing.T, db *gorm.DB, id string) Batch {
	t.Helper()
	var b Batch
	if err := db.First(&b, "id = ?", id).Error; err != nil {
		t.Fatalf("failed to reload batch: %v", err)
	}
	return b
}

func reloadPayment(t *testing.T, db *gorm.DB, id string) Payment {
	t.Helper()
	var p Payment
	if err := db.First(&p, "id = ?", id).Error; err != nil {
		t.Fatalf("failed to reload payment: %v", err)
	}
	return p
}

// --- gateway fakes ---

type fakePayPal struct {
	submission *PayPalSubmission
	submitFail *providers.Failure
	status     *PayPalBatchStatus
	statusFail *providers.Failure

	submitCalls int
	statusCalls int
}

func (f *fakePayPal) SubmitBatch(ctx context.Context, senderBatchID string, items []PayoutInput, opts PayPalOptions) (*PayPalSubmission, *providers.Failure) {
	f.submitCalls++
	if f.submitFail != nil {
		return nil, f.submitFail
	}
	return f.submission, nil
}

func (f *fakePayPal) GetBatchStatus(ctx context.Context, providerBatchID string) (*PayPalBatchStatus, *providers.Failure) {
	f.statusCalls++
	if f.statusFail != nil {
		return nil, f.statusFail
	}
	return f.status, nil
}

type fakeGiftCard struct {
	// orderResults maps external id -> outcome for SubmitOrder/SubmitBulk.
	orderResults map[string]*GiftOrderResult
	orderFails   map[string]*providers.Failure
	bulkFail     *providers.Failure
	// getResults maps order id -> result for GetOrder during sync.
	getResults map[string]*GiftOrderResult
	campaigns  []GiftCampaign
}

func (f *fakeGiftCard) SubmitOrder(ctx context.Context, order GiftOrder) (*GiftOrderResult, *providers.Failure) {
	if fail, ok := f.orderFails[order.ExternalID]; ok {
		return nil, fail
	}
	if r, ok := f.orderResults[order.ExternalID]; ok {
		return r, nil
	}
	return &GiftOrderResult{OrderID: "GO-" + order.ExternalID, OrderStatus: "sent"}, nil
}

func (f *fakeGiftCard) SubmitBulk(ctx context.Context, orders []GiftOrder, opts BulkOptions) (*GiftBulkOutcome, *providers.Failure) {
	if f.bulkFail != nil {
		return nil, f.bulkFail
	}
	out := &GiftBulkOutcome{TotalProcessed: len(orders)}
	for _, o := range orders {
		result, fail := f.SubmitOrder(ctx, o)
		out.Results = append(out.Results, GiftOrderOutcome{ExternalID: o.ExternalID, Result: result, Failure: fail})
		if fail != nil {
			out.Failed++
			continue
		}
		out.Successful++
		out.TotalAmountCents += o.AmountCents
	}
	return out, nil
}

func (f *fakeGiftCard) GetOrder(ctx context.Context, orderID string) (*GiftOrderResult, *providers.Failure) {
	if r, ok := f.getResults[orderID]; ok {
		return r, nil
	}
	return nil, &providers.Failure{Code: "ORDER_NOT_FOUND", Message: "order not found", StatusCode: 404}
}

func (f *fakeGiftCard) ListCampaigns(ctx context.Context) ([]GiftCampaign, *providers.Failure) {
	return f.campaigns, nil
}

type fakeBankTransfer struct {
	recipientFails map[string]*providers.Failure // keyed by recipient email
	contractFail   *providers.Failure
	contractStatus string // status for created contracts, default "booked"
	getStates      map[string]*ContractState

	created int
}

func (f *fakeBankTransfer) CreateRecipient(ctx context.Context, r BankRecipient) (*CreatedRecipient, *providers.Failure) {
	if fail, ok := f.recipientFails[r.Email]; ok {
		return nil, fail
	}
	f.created++
	return &CreatedRecipient{RecipientID: "RCP-" + r.PaymentID}, nil
}

func (f *fakeBankTransfer) CreateContract(ctx context.Context, c BankContract) (*ContractState, *providers.Failure) {
	if f.contractFail != nil {
		return nil, f.contractFail
	}
	status := f.contractStatus
	if status == "" {
		status = "booked"
	}
	return &ContractState{ContractID: "CT-" + c.Reference, Status: status}, nil
}

func (f *fakeBankTransfer) GetContract(ctx context.Context, contractID string) (*ContractState, *providers.Failure) {
	if s, ok := f.getStates[contractID]; ok {
		return s, nil
	}
	return nil, &providers.Failure{Code: "CONTRACT_NOT_FOUND", Message: "contract not found", StatusCode: 404}
}

func (f *fakeBankTransfer) CancelContract(ctx context.Context, contractID string) (*ContractState, *providers.Failure) {
	return &ContractState{ContractID: contractID, Status: "cancelled"}, nil
}

func (f *fakeBankTransfer) ApproveContract(ctx context.Context, contractID string) (*ContractState, *providers.Failure) {
	return &ContractState{ContractID: contractID, Status: "settled"}, nil
}

func (f *fakeBankTransfer) ListAccounts(ctx context.Context) ([]SettlementAccount, *providers.Failure) {
	return []SettlementAccount{{ID: "acct-usd", Currency: "USD", Name: "Main"}}, nil
}

func (f *fakeBankTransfer) FieldRequirements(ctx context.Context, country, currency string) (json.RawMessage, *providers.Failure) {
	return json.RawMessage(`{"fields":[]}`), nil
}

// gatedGiftCard holds every submission at the gate until it is closed, and
// signals entry on the first call. Used to control when a run's provider
// calls happen relative to caller-side events.
type gatedGiftCard struct {
	*fakeGiftCard
	entered chan struct{}
	gate    chan struct{}

	once sync.Once
}

func newGatedGiftCard(inner *fakeGiftCard) *gatedGiftCard {
	return &gatedGiftCard{
		fakeGiftCard: inner,
		entered:      make(chan struct{}),
		gate:         make(chan struct{}),
	}
}

func (g *gatedGiftCard) wait() {
	g.once.Do(func() { close(g.entered) })
	<-g.gate
}

func (g *gatedGiftCard) SubmitOrder(ctx context.Context, order GiftOrder) (*GiftOrderResult, *providers.Failure) {
	g.wait()
	return g.fakeGiftCard.SubmitOrder(ctx, order)
}

func (g *gatedGiftCard) SubmitBulk(ctx context.Context, orders []GiftOrder, opts BulkOptions) (*GiftBulkOutcome, *providers.Failure) {
	g.wait()
	return g.fakeGiftCard.SubmitBulk(ctx, orders, opts)
}

func testGateways() (Gateways, *fakePayPal, *fakeGiftCard, *fakeBankTransfer) {
	pp := &fakePayPal{}
	gc := &fakeGiftCard{}
	bt := &fakeBankTransfer{}
	return Gateways{PayPal: pp, GiftCard: gc, BankTransfer: bt}, pp, gc, bt
}
