package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
)

// DoJSON issues one JSON request and returns the raw response. Transport
// errors come back as a *Failure; non-2xx responses are returned to the
// caller for provider-specific error parsing.
func DoJSON(ctx context.Context, client *http.Client, method, url string, headers map[string]string, body any) (int, []byte, *Failure) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, nil, &Failure{Code: "ENCODE_ERROR", Message: "failed to encode request: " + err.Error()}
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, &Failure{Code: "REQUEST_ERROR", Message: "failed to build request: " + err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, TransportFailure(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, TransportFailure(err)
	}
	return resp.StatusCode, raw, nil
}

// Retryable status: server-side trouble and throttling; 4xx apart from 429
// means the request itself is wrong.
func RetryableStatus(status int) bool {
	return status >= 500 || status == http.StatusTooManyRequests || status == 0
}
