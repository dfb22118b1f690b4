package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Stands in for all three payout providers on one port. Point the API at it
// with PAYPAL_BASE_URL / GIFTOGRAM_BASE_URL / XE_BASE_URL.
//
// Recipient emails containing "fail" get a failed outcome; everything else
// succeeds immediately.

type state struct {
	mu        sync.Mutex
	batches   map[string][]gin.H // paypal batch id -> items
	orders    map[string]gin.H   // giftogram order id -> order
	contracts map[string]string  // xe contract id -> status
}

func main() {
	addr := flag.String("addr", ":9090", "Listen address")
	flag.Parse()

	st := &state{
		batches:   map[string][]gin.H{},
		orders:    map[string]gin.H{},
		contracts: map[string]string{},
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()

	// --- PayPal ---
	r.POST("/v1/oauth2/token", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"access_token": "mock-" + uuid.NewString(), "expires_in": 3600})
	})
	r.POST("/v1/payments/payouts", func(c *gin.Context) {
		var req struct {
			Items []struct {
				Receiver     string `json:"receiver"`
				SenderItemID string `json:"sender_item_id"`
			} `json:"items"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"name": "VALIDATION_ERROR", "message": err.Error()})
			return
		}

		batchID := "PB-" + uuid.NewString()[:8]
		items := make([]gin.H, len(req.Items))
		for i, it := range req.Items {
			item := gin.H{
				"payout_item_id":     "PI-" + uuid.NewString()[:8],
				"transaction_status": "SUCCESS",
				"payout_item":        gin.H{"sender_item_id": it.SenderItemID},
			}
			if strings.Contains(it.Receiver, "fail") {
				item["transaction_status"] = "FAILED"
				item["errors"] = gin.H{"name": "RECEIVER_UNREGISTERED", "message": "Receiver is unregistered"}
			}
			items[i] = item
		}

		st.mu.Lock()
		st.batches[batchID] = items
		st.mu.Unlock()

		c.JSON(http.StatusCreated, gin.H{
			"batch_header": gin.H{"payout_batch_id": batchID, "batch_status": "PENDING"},
			"items":        items,
		})
	})
	r.GET("/v1/payments/payouts/:id", func(c *gin.Context) {
		st.mu.Lock()
		items, ok := st.batches[c.Param("id")]
		st.mu.Unlock()
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"name": "INVALID_RESOURCE_ID", "message": "Batch not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"batch_header": gin.H{"payout_batch_id": c.Param("id"), "batch_status": "SUCCESS"},
			"items":        items,
		})
	})

	// --- Giftogram ---
	r.GET("/api/v1/campaigns", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"data": []gin.H{
			{"id": "camp-default", "name": "Thank You Card", "active": true, "currencies": []string{"USD"}},
		}})
	})
	r.POST("/api/v1/orders", func(c *gin.Context) {
		var req struct {
			ExternalID string `json:"external_id"`
			Recipients []struct {
				Email string `json:"email"`
			} `json:"recipients"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "VALIDATION_ERROR", "message": err.Error()}})
			return
		}
		if len(req.Recipients) > 0 && strings.Contains(req.Recipients[0].Email, "fail") {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": gin.H{"code": "INVALID_RECIPIENT", "message": "Recipient rejected"}})
			return
		}

		orderID := "GO-" + uuid.NewString()[:8]
		order := gin.H{
			"order_id": orderID,
			"status":   "sent",
			"recipients": []gin.H{
				{"status": "delivered"},
			},
		}
		st.mu.Lock()
		st.orders[orderID] = order
		st.mu.Unlock()

		c.JSON(http.StatusCreated, gin.H{"data": order})
	})
	r.GET("/api/v1/order/:id", func(c *gin.Context) {
		st.mu.Lock()
		order, ok := st.orders[c.Param("id")]
		st.mu.Unlock()
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "ORDER_NOT_FOUND", "message": "Order not found"}})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": order})
	})

	// --- XE ---
	r.POST("/v2/auth/token", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"access_token": "mock-" + uuid.NewString(), "expires_in": 3600})
	})
	r.POST("/v2/recipients", func(c *gin.Context) {
		var req struct {
			Email string `json:"email"`
		}
		_ = c.ShouldBindJSON(&req)
		if strings.Contains(req.Email, "fail") {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"code": "INVALID_ACCOUNT", "message": "Account details rejected"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"recipient_id": "RCP-" + uuid.NewString()[:8]})
	})
	r.POST("/v2/contracts", func(c *gin.Context) {
		id := "CT-" + uuid.NewString()[:8]
		st.mu.Lock()
		st.contracts[id] = "booked"
		st.mu.Unlock()
		c.JSON(http.StatusCreated, gin.H{"contract_id": id, "status": "booked"})
	})
	r.GET("/v2/contracts/:id", func(c *gin.Context) {
		contractStatus(st, c, "settled", false)
	})
	r.POST("/v2/contracts/:id/approve", func(c *gin.Context) {
		contractStatus(st, c, "settled", true)
	})
	r.POST("/v2/contracts/:id/cancel", func(c *gin.Context) {
		contractStatus(st, c, "cancelled", true)
	})
	r.GET("/v2/accounts", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"accounts": []gin.H{
			{"id": "acct-usd", "currency": "USD", "name": "Main settlement"},
		}})
	})
	r.GET("/v2/recipients/fields", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"country":  c.Query("country"),
			"currency": c.Query("currency"),
			"fields": []gin.H{
				{"name": "account_number", "required": true},
				{"name": "bank_code", "required": true},
			},
		})
	})

	fmt.Printf("mock provider listening on %s\n", *addr)
	log.Fatal(r.Run(*addr))
}

func contractStatus(st *state, c *gin.Context, next string, advance bool) {
	id := c.Param("id")
	st.mu.Lock()
	defer st.mu.Unlock()

	cur, ok := st.contracts[id]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"code": "CONTRACT_NOT_FOUND", "message": "Contract not found"})
		return
	}
	if advance && cur != "cancelled" {
		st.contracts[id] = next
		cur = next
	}
	c.JSON(http.StatusOK, gin.H{"contract_id": id, "status": cur})
}
