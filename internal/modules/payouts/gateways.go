package payouts

import (
	"context"
	"encoding/json"
	"time"

	"github.com/zealits/bulkpayout-sub001/internal/providers"
)

// Gateway request/response shapes live here, next to the code that consumes
// them; the provider packages implement these interfaces against their real
// HTTP APIs. Gateways never return Go errors for provider or transport
// problems; those come back as *providers.Failure.

// PayoutInput is one payment row as handed to a gateway.
type PayoutInput struct {
	PaymentID      string
	RecipientName  string
	RecipientEmail string
	AmountCents    int64
	Currency       string
	Note           string
	Meta           map[string]string // provider-specific extras from upload
}

// --- PayPal ---

type PayPalOptions struct {
	EmailSubject string
	EmailMessage string
}

// PayPalItem is one line of a payout submission response. Items are
// positional: index i corresponds to request item i.
type PayPalItem struct {
	ItemID            string
	TransactionStatus string
	ErrorCode         string
	ErrorMessage      string
}

type PayPalSubmission struct {
	ProviderBatchID string
	BatchStatus     string
	Items           []PayPalItem
}

type PayPalBatchStatus struct {
	BatchStatus string
	Items       []PayPalItem // identity lookup by ItemID during sync
}

type PayPalGateway interface {
	SubmitBatch(ctx context.Context, senderBatchID string, items []PayoutInput, opts PayPalOptions) (*PayPalSubmission, *providers.Failure)
	GetBatchStatus(ctx context.Context, providerBatchID string) (*PayPalBatchStatus, *providers.Failure)
}

// --- Giftogram ---

type GiftOrder struct {
	PaymentID      string
	ExternalID     string // idempotency reference, local payment id
	CampaignID     string
	RecipientName  string
	RecipientEmail string
	AmountCents    int64
	Currency       string
	Message        string
}

// GiftOrderResult carries both status signals the provider exposes. The
// recipient-level status is the finer-grained one and wins during mapping.
type GiftOrderResult struct {
	OrderID         string
	OrderStatus     string
	RecipientStatus string
}

// GiftOrderOutcome is one slot of a bulk submission, positional with the
// request order.
type GiftOrderOutcome struct {
	ExternalID string
	Result     *GiftOrderResult
	Failure    *providers.Failure
}

type GiftBulkOutcome struct {
	TotalProcessed   int
	Successful       int
	Failed           int
	TotalAmountCents int64
	Results          []GiftOrderOutcome
}

type BulkOptions struct {
	BatchSize int           // orders per concurrent window, default 5
	Delay     time.Duration // fixed pause between windows, default 1s
}

type GiftCampaign struct {
	ID         string
	Name       string
	Active     bool
	Currencies []string
}

type GiftCardGateway interface {
	SubmitOrder(ctx context.Context, order GiftOrder) (*GiftOrderResult, *providers.Failure)
	SubmitBulk(ctx context.Context, orders []GiftOrder, opts BulkOptions) (*GiftBulkOutcome, *providers.Failure)
	GetOrder(ctx context.Context, orderID string) (*GiftOrderResult, *providers.Failure)
	ListCampaigns(ctx context.Context) ([]GiftCampaign, *providers.Failure)
}

// --- XE bank transfer ---

type BankRecipient struct {
	PaymentID     string
	Name          string
	Email         string
	Currency      string
	CountryCode   string
	AccountNumber string
	BankCode      string
}

type CreatedRecipient struct {
	RecipientID string
}

type BankContract struct {
	RecipientID  string
	AmountCents  int64
	SellCurrency string
	BuyCurrency  string
	Reference    string
}

type ContractState struct {
	ContractID string
	Status     string
}

type SettlementAccount struct {
	ID       string
	Currency string
	Name     string
}

// The provider has no batch submit primitive; the processor loops
// per-payment over CreateRecipient + CreateContract.
type BankTransferGateway interface {
	CreateRecipient(ctx context.Context, r BankRecipient) (*CreatedRecipient, *providers.Failure)
	CreateContract(ctx context.Context, c BankContract) (*ContractState, *providers.Failure)
	GetContract(ctx context.Context, contractID string) (*ContractState, *providers.Failure)
	CancelContract(ctx context.Context, contractID string) (*ContractState, *providers.Failure)
	ApproveContract(ctx context.Context, contractID string) (*ContractState, *providers.Failure)
	ListAccounts(ctx context.Context) ([]SettlementAccount, *providers.Failure)
	// FieldRequirements returns the raw required-recipient-field metadata
	// for a country/currency corridor. Cached by the API layer.
	FieldRequirements(ctx context.Context, country, currency string) (json.RawMessage, *providers.Failure)
}

// Gateways bundles the three rails for injection into the services.
type Gateways struct {
	PayPal       PayPalGateway
	GiftCard     GiftCardGateway
	BankTransfer BankTransferGateway
}
