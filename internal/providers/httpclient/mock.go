package httpclient

import (
	"bytes"
	"io"
	"net/http"
)

// MockTransport implements http.RoundTripper for gateway tests.
type MockTransport struct {
	RoundTripFunc func(req *http.Request) (*http.Response, error)
}

func (m *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.RoundTripFunc(req)
}

// NewMockClient returns an *http.Client whose every request is answered by fn.
func NewMockClient(fn func(req *http.Request) (*http.Response, error)) *http.Client {
	return &http.Client{Transport: &MockTransport{RoundTripFunc: fn}}
}

// NewMockResponse builds a canned response with the given status and body.
func NewMockResponse(statusCode int, body []byte) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(bytes.NewReader(body)),
		Header:     make(http.Header),
	}
}
