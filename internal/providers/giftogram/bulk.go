package giftogram

import (
	"context"
	"sync"
	"time"

	"github.com/zealits/bulkpayout-sub001/internal/modules/payouts"
	"github.com/zealits/bulkpayout-sub001/internal/providers"
)

const (
	defaultWindowSize  = 5
	defaultWindowDelay = 1000 * time.Millisecond
)

// SubmitBulk partitions orders into fixed-size windows, issues each window's
// requests concurrently, and sleeps a fixed delay before the next window.
// This is exactly "N concurrent, then pause" — a fixed-rate throttle, not an
// adaptive one. Results are positional with the input slice.
func (c *Client) SubmitBulk(ctx context.Context, orders []payouts.GiftOrder, opts payouts.BulkOptions) (*payouts.GiftBulkOutcome, *providers.Failure) {
	size := opts.BatchSize
	if size <= 0 {
		size = defaultWindowSize
	}
	delay := opts.Delay
	if delay <= 0 {
		delay = defaultWindowDelay
	}

	results := make([]payouts.GiftOrderOutcome, len(orders))

	for start := 0; start < len(orders); start += size {
		end := start + size
		if end > len(orders) {
			end = len(orders)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				result, fail := c.SubmitOrder(ctx, orders[i])
				results[i] = payouts.GiftOrderOutcome{
					ExternalID: orders[i].ExternalID,
					Result:     result,
					Failure:    fail,
				}
			}(i)
		}
		wg.Wait()

		if end < len(orders) {
			time.Sleep(delay)
		}
	}

	out := &payouts.GiftBulkOutcome{
		TotalProcessed: len(results),
		Results:        results,
	}
	for i, r := range results {
		if r.Failure != nil {
			out.Failed++
			continue
		}
		out.Successful++
		out.TotalAmountCents += orders[i].AmountCents
	}
	return out, nil
}
