package handlers

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zealits/bulkpayout-sub001/internal/modules/payouts"
)

type ProcessHandler struct {
	Logger     *slog.Logger
	Processor  *payouts.Processor
	Reconciler *payouts.Reconciler
}

func NewProcessHandler(logger *slog.Logger, proc *payouts.Processor, rec *payouts.Reconciler) *ProcessHandler {
	return &ProcessHandler{Logger: logger, Processor: proc, Reconciler: rec}
}

// POST /api/v1/batches/:id/process
// Synchronous mode: the response arrives once every payment has an outcome.
func (h *ProcessHandler) Process(c *gin.Context) {
	res, err := h.Processor.Process(c.Request.Context(), c.Param("id"))
	if err != nil {
		failDomain(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /api/v1/batches/:id/process/stream
// Streaming mode: one SSE "progress" event per payment, then a final event
// carrying the batch summary. Validation failures surface as plain JSON
// errors before the stream starts.
func (h *ProcessHandler) Stream(c *gin.Context) {
	events, err := h.Processor.ProcessStream(c.Request.Context(), c.Param("id"))
	if err != nil {
		failDomain(c, err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	// The producer drives every payment to an outcome regardless of whether
	// the client is still connected; we just stop writing on disconnect.
	c.Stream(func(w io.Writer) bool {
		ev, ok := <-events
		if !ok {
			return false
		}
		c.SSEvent("progress", ev)
		return !ev.Done
	})
}

// POST /api/v1/batches/:id/sync
// Reconciles stored payment statuses against the provider's current state.
func (h *ProcessHandler) Sync(c *gin.Context) {
	res, err := h.Reconciler.Sync(c.Request.Context(), c.Param("id"))
	if err != nil {
		failDomain(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
