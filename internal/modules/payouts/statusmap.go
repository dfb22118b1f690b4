package payouts

import "strings"

// Provider status vocabularies mapped onto the canonical set. Pure data
// transforms; unknown provider statuses map to processing, since by the time
// a status string exists the item has been accepted upstream.

var paypalItemStatus = map[string]Status{
	"SUCCESS":   StatusCompleted,
	"FAILED":    StatusFailed,
	"BLOCKED":   StatusFailed,
	"DENIED":    StatusFailed,
	"RETURNED":  StatusFailed,
	"PENDING":   StatusProcessing,
	"UNCLAIMED": StatusProcessing,
	"ONHOLD":    StatusProcessing,
	"CANCELED":  StatusCancelled,
	"REFUNDED":  StatusCancelled,
	"REVERSED":  StatusCancelled,
}

func MapPayPalStatus(s string) Status {
	if mapped, ok := paypalItemStatus[strings.ToUpper(s)]; ok {
		return mapped
	}
	return StatusProcessing
}

var giftogramStatus = map[string]Status{
	"sent":      StatusCompleted,
	"delivered": StatusCompleted,
	"redeemed":  StatusCompleted,
	"pending":   StatusProcessing,
	"queued":    StatusProcessing,
	"failed":    StatusFailed,
	"cancelled": StatusFailed,
	"canceled":  StatusFailed,
	"bounced":   StatusFailed,
}

func mapGiftogramOne(s string) (Status, bool) {
	mapped, ok := giftogramStatus[strings.ToLower(s)]
	return mapped, ok
}

// MapGiftogramStatus resolves the two status signals Giftogram exposes.
// The recipient-level status is the more specific one and takes precedence;
// the order-level status is only a fallback when no recipient status exists.
func MapGiftogramStatus(orderStatus, recipientStatus string) Status {
	if recipientStatus != "" {
		if mapped, ok := mapGiftogramOne(recipientStatus); ok {
			return mapped
		}
		return StatusProcessing
	}
	if mapped, ok := mapGiftogramOne(orderStatus); ok {
		return mapped
	}
	return StatusProcessing
}

var xeContractStatus = map[string]Status{
	"completed":      StatusCompleted,
	"settled":        StatusCompleted,
	"paid":           StatusCompleted,
	"failed":         StatusFailed,
	"rejected":       StatusFailed,
	"cancelled":      StatusCancelled,
	"canceled":       StatusCancelled,
	"pending":        StatusProcessing,
	"approved":       StatusProcessing,
	"awaiting_funds": StatusProcessing,
	"in_progress":    StatusProcessing,
	"compliance":     StatusProcessing,
}

func MapXEStatus(s string) Status {
	if mapped, ok := xeContractStatus[strings.ToLower(s)]; ok {
		return mapped
	}
	return StatusProcessing
}
