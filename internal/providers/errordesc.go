package providers

// Descriptor is the user-facing rendition of a provider error code. The
// tables below are data, not logic: callers branch on Retryable to decide
// whether to offer a retry, and on Severity for display emphasis.
type Descriptor struct {
	Title      string
	Message    string
	Suggestion string
	Severity   string // "warning" | "error"
	Retryable  bool
	Action     string // machine hint for the UI: "retry" | "fix_funding" | "fix_recipient" | "contact_support" | "none"
}

var genericDescriptor = Descriptor{
	Title:      "Unknown error",
	Message:    "The payment provider returned an unrecognized error.",
	Suggestion: "Try again. If the problem persists, contact support with the request id.",
	Severity:   "error",
	Retryable:  true,
	Action:     "retry",
}

var paypalDescriptors = map[string]Descriptor{
	"INSUFFICIENT_FUNDS": {
		Title:      "Insufficient PayPal balance",
		Message:    "The PayPal account does not have enough funds to cover this payout.",
		Suggestion: "Add funds to the PayPal balance, then retry the batch.",
		Severity:   "error",
		Retryable:  true,
		Action:     "fix_funding",
	},
	"RECEIVER_UNREGISTERED": {
		Title:      "Recipient has no PayPal account",
		Message:    "No PayPal account exists for this email address.",
		Suggestion: "Ask the recipient to create a PayPal account, or correct the email.",
		Severity:   "warning",
		Retryable:  true,
		Action:     "fix_recipient",
	},
	"RECEIVER_UNCONFIRMED": {
		Title:      "Recipient email unconfirmed",
		Message:    "The recipient's PayPal email is not confirmed, so funds are held as unclaimed.",
		Suggestion: "The recipient must confirm their email within 30 days to claim the payment.",
		Severity:   "warning",
		Retryable:  false,
		Action:     "none",
	},
	"RISK_DECLINE": {
		Title:      "Declined by PayPal risk controls",
		Message:    "PayPal declined this payout for risk reasons.",
		Suggestion: "This decision is made by PayPal and usually cannot be retried successfully.",
		Severity:   "error",
		Retryable:  false,
		Action:     "contact_support",
	},
	"TRANSACTION_LIMIT_EXCEEDED": {
		Title:      "Transaction limit exceeded",
		Message:    "The payout amount exceeds the sender's transaction limit.",
		Suggestion: "Split the payment into smaller amounts or raise the account limit.",
		Severity:   "error",
		Retryable:  true,
		Action:     "retry",
	},
	"RECEIVING_LIMIT_EXCEEDED": {
		Title:      "Recipient limit exceeded",
		Message:    "The recipient's account cannot receive this amount.",
		Suggestion: "The recipient may need to verify their PayPal account.",
		Severity:   "warning",
		Retryable:  true,
		Action:     "fix_recipient",
	},
	"SENDER_RESTRICTED": {
		Title:      "Sending account restricted",
		Message:    "The PayPal account used for payouts is restricted.",
		Suggestion: "Resolve the restriction in the PayPal account dashboard before retrying.",
		Severity:   "error",
		Retryable:  false,
		Action:     "contact_support",
	},
	"AUTHORIZATION_ERROR": {
		Title:      "PayPal authorization failed",
		Message:    "The configured PayPal API credentials were rejected.",
		Suggestion: "Check the PayPal client id and secret for this environment.",
		Severity:   "error",
		Retryable:  false,
		Action:     "contact_support",
	},
	"VALIDATION_ERROR": {
		Title:      "Invalid payout data",
		Message:    "PayPal rejected the payout request as malformed.",
		Suggestion: "Check recipient emails and amounts, then retry.",
		Severity:   "error",
		Retryable:  true,
		Action:     "fix_recipient",
	},
	"RATE_LIMIT_REACHED": {
		Title:      "Too many requests",
		Message:    "PayPal is rate-limiting payout submissions.",
		Suggestion: "Wait a few minutes and retry.",
		Severity:   "warning",
		Retryable:  true,
		Action:     "retry",
	},
}

var giftogramDescriptors = map[string]Descriptor{
	"INVALID_API_KEY": {
		Title:      "Giftogram authentication failed",
		Message:    "The Giftogram API key was rejected.",
		Suggestion: "Check the Giftogram API key configured for this environment.",
		Severity:   "error",
		Retryable:  false,
		Action:     "contact_support",
	},
	"CAMPAIGN_NOT_FOUND": {
		Title:      "Campaign not found",
		Message:    "The selected gift card campaign does not exist or is inactive.",
		Suggestion: "Pick a campaign from the campaign list and retry.",
		Severity:   "error",
		Retryable:  true,
		Action:     "retry",
	},
	"INSUFFICIENT_FUNDS": {
		Title:      "Insufficient Giftogram balance",
		Message:    "The Giftogram account balance cannot cover this order.",
		Suggestion: "Add funds to the Giftogram account, then retry the batch.",
		Severity:   "error",
		Retryable:  true,
		Action:     "fix_funding",
	},
	"INVALID_DENOMINATION": {
		Title:      "Unsupported gift card amount",
		Message:    "The campaign does not offer a card at this amount.",
		Suggestion: "Use one of the denominations the campaign supports.",
		Severity:   "error",
		Retryable:  true,
		Action:     "retry",
	},
	"DUPLICATE_EXTERNAL_ID": {
		Title:      "Duplicate order",
		Message:    "An order with this reference id was already submitted.",
		Suggestion: "This payment may already have been sent; sync the batch to confirm.",
		Severity:   "warning",
		Retryable:  false,
		Action:     "none",
	},
	"INVALID_RECIPIENT": {
		Title:      "Invalid recipient",
		Message:    "The recipient name or email was rejected by Giftogram.",
		Suggestion: "Correct the recipient details and retry.",
		Severity:   "error",
		Retryable:  true,
		Action:     "fix_recipient",
	},
}

var xeDescriptors = map[string]Descriptor{
	"UNAUTHORIZED": {
		Title:      "XE authentication failed",
		Message:    "The XE API credentials were rejected.",
		Suggestion: "Check the XE client id and secret for this environment.",
		Severity:   "error",
		Retryable:  false,
		Action:     "contact_support",
	},
	"INVALID_ACCOUNT": {
		Title:      "Invalid bank account",
		Message:    "The recipient's bank account details failed validation.",
		Suggestion: "Verify the account number, routing/IBAN, and bank country.",
		Severity:   "error",
		Retryable:  true,
		Action:     "fix_recipient",
	},
	"INVALID_CURRENCY_PAIR": {
		Title:      "Unsupported currency route",
		Message:    "XE cannot transfer between these currencies.",
		Suggestion: "Choose a supported destination currency for this corridor.",
		Severity:   "error",
		Retryable:  false,
		Action:     "none",
	},
	"COMPLIANCE_HOLD": {
		Title:      "Transfer under compliance review",
		Message:    "XE placed this transfer on a compliance hold.",
		Suggestion: "No action needed; sync later to pick up the final status.",
		Severity:   "warning",
		Retryable:  false,
		Action:     "none",
	},
	"RECIPIENT_NOT_FOUND": {
		Title:      "Recipient not found",
		Message:    "The referenced XE recipient does not exist.",
		Suggestion: "Re-submit the payment so the recipient is created again.",
		Severity:   "error",
		Retryable:  true,
		Action:     "retry",
	},
	"CONTRACT_NOT_APPROVED": {
		Title:      "Transfer not approved",
		Message:    "The transfer contract has not been approved for settlement.",
		Suggestion: "Approve the contract, or retry the batch to re-create it.",
		Severity:   "warning",
		Retryable:  true,
		Action:     "retry",
	},
	"QUOTE_EXPIRED": {
		Title:      "Exchange rate quote expired",
		Message:    "The FX quote expired before the contract was confirmed.",
		Suggestion: "Retry the payment to obtain a fresh quote.",
		Severity:   "warning",
		Retryable:  true,
		Action:     "retry",
	},
}

// Describe maps a provider error code to its user-facing descriptor.
// Unknown codes fall back to a generic descriptor that is still retryable.
func Describe(provider, code string) Descriptor {
	var table map[string]Descriptor
	switch provider {
	case NamePayPal:
		table = paypalDescriptors
	case NameGiftogram:
		table = giftogramDescriptors
	case NameXE:
		table = xeDescriptors
	}
	if d, ok := table[code]; ok {
		return d
	}
	return genericDescriptor
}

// DescribeFailure resolves a gateway Failure to a descriptor, carrying the
// failure's own retryability when the code is unknown to the table.
func DescribeFailure(provider string, f *Failure) Descriptor {
	if f == nil {
		return genericDescriptor
	}
	var table map[string]Descriptor
	switch provider {
	case NamePayPal:
		table = paypalDescriptors
	case NameGiftogram:
		table = giftogramDescriptors
	case NameXE:
		table = xeDescriptors
	}
	if d, ok := table[f.Code]; ok {
		return d
	}
	d := genericDescriptor
	if f.Message != "" {
		d.Message = f.Message
	}
	return d
}
