package whttp

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const redacted = "*****"

// LoggingRoundTripper logs every outbound request and its response. Credentials
// in the Authorization header are never written out; response bodies are only
// logged when Debug is set.
type LoggingRoundTripper struct {
	Proxied http.RoundTripper
	Debug   bool
}

func (lrt LoggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	t0 := time.Now()
	ctx := req.Context()

	headers := req.Header.Clone()
	if headers.Get("Authorization") != "" {
		headers.Set("Authorization", redacted)
	}

	res, err := lrt.Proxied.RoundTrip(req)
	if err != nil {
		slog.ErrorContext(ctx, "outbound request failed",
			"error", err.Error(),
			"method", req.Method,
			"url", req.URL.Redacted(),
			"headers", headers,
			"duration_ms", time.Since(t0).Milliseconds())
		return res, err
	}

	b := bytes.NewBuffer(make([]byte, 0))
	reader := io.TeeReader(res.Body, b)

	body, _ := io.ReadAll(reader)
	defer res.Body.Close()

	res.Body = io.NopCloser(b)

	logged := "<redacted>"
	if lrt.Debug {
		logged = string(body)
	}

	slog.InfoContext(ctx, "outbound request",
		"method", req.Method,
		"url", req.URL.Redacted(),
		"headers", headers,
		"status", res.StatusCode,
		"body", logged,
		"duration_ms", time.Since(t0).Milliseconds())

	return res, nil
}

func NewLoggingClient() *http.Client {
	return NewClient(10*time.Second, false)
}

// NewClient returns a logging client with the given timeout. With debug set,
// response bodies are logged too.
func NewClient(timeout time.Duration, debug bool) *http.Client {
	return &http.Client{
		Transport: LoggingRoundTripper{Proxied: http.DefaultTransport, Debug: debug},
		Timeout:   timeout,
	}
}
