// Package httpclient builds the HTTP clients the provider gateways share.
// One client per gateway instance; the timeout is the client-side ceiling on
// any single provider call.
package httpclient

import (
	"net/http"
	"time"
)

const DefaultTimeout = 30 * time.Second

func New() *http.Client {
	return NewWithTimeout(DefaultTimeout)
}

func NewWithTimeout(d time.Duration) *http.Client {
	return &http.Client{Timeout: d}
}
