package main

import (
	"bytes"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
)

// Sends a fake PayPal payout-item webhook to a local instance. Useful for
// exercising the dedupe and status-apply paths without a provider account.

type payoutItemEvent struct {
	ID        string `json:"id"`
	EventType string `json:"event_type"`
	Resource  struct {
		PayoutItemID      string `json:"payout_item_id"`
		PayoutBatchID     string `json:"payout_batch_id"`
		TransactionStatus string `json:"transaction_status"`
		Errors            struct {
			Name    string `json:"name"`
			Message string `json:"message"`
		} `json:"errors"`
	} `json:"resource"`
}

func main() {
	url := flag.String("url", "http://localhost:8080/webhooks/paypal", "Webhook URL")
	secret := flag.String("secret", os.Getenv("WEBHOOK_SECRET"), "Shared HMAC secret (empty sends unsigned)")
	eventID := flag.String("event-id", "WH-"+randomHex(12), "Event ID")
	eventType := flag.String("type", "PAYMENT.PAYOUTS-ITEM.SUCCEEDED", "Event type")
	itemID := flag.String("item-id", "", "Payout item ID (required)")
	batchID := flag.String("batch-id", "", "Payout batch ID")
	status := flag.String("status", "", "transaction_status override (SUCCESS, FAILED, ...)")
	errName := flag.String("error-name", "", "Error name (for failure events)")
	errMsg := flag.String("error-message", "", "Error message (for failure events)")
	dryRun := flag.Bool("dry-run", false, "Only print request, don't send")

	flag.Parse()

	if *itemID == "" {
		fmt.Fprintln(os.Stderr, "Error: -item-id is required")
		os.Exit(1)
	}

	ev := payoutItemEvent{ID: *eventID, EventType: *eventType}
	ev.Resource.PayoutItemID = *itemID
	ev.Resource.PayoutBatchID = *batchID
	ev.Resource.TransactionStatus = *status
	ev.Resource.Errors.Name = *errName
	ev.Resource.Errors.Message = *errMsg

	body, err := json.Marshal(ev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling payload: %v\n", err)
		os.Exit(1)
	}

	var sig string
	if *secret != "" {
		mac := hmac.New(sha256.New, []byte(*secret))
		mac.Write(body)
		sig = hex.EncodeToString(mac.Sum(nil))
		fmt.Printf("X-Webhook-Signature: %s\n", sig)
	}
	fmt.Printf("Body: %s\n", string(body))

	if *dryRun {
		fmt.Println("\n[DRY RUN] Not sending request")
		return
	}

	fmt.Printf("\nSending to %s...\n", *url)
	req, err := http.NewRequest(http.MethodPost, *url, bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building request: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("Content-Type", "application/json")
	if sig != "" {
		req.Header.Set("X-Webhook-Signature", sig)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error sending request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	fmt.Printf("Response: %s\n%s\n", resp.Status, string(respBody))
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
