package gateway

import (
	"bytes"
	"io"
	"net/http"
	"regexp"

	"github.com/oseayemenre/bookshelf/internal/logger"
)

var inlineImage = regexp.MustCompile(`data:image/[a-zA-Z0-9.+-]+;base64,[A-Za-z0-9+/=]+`)

// LoggingTransport logs outbound requests and responses at debug level.
// Inline image payloads are elided from logged bodies.
type LoggingTransport struct {
	Base   http.RoundTripper
	Logger logger.Logger
}

func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	if t.Logger == nil {
		return base.RoundTrip(req)
	}

	var reqBody []byte
	if req.Body != nil {
		reqBody, _ = io.ReadAll(req.Body)
		req.Body.Close()
		req.Body = io.NopCloser(bytes.NewReader(reqBody))
	}

	t.Logger.Debug("outbound request",
		"method", req.Method,
		"url", req.URL.String(),
		"body", elide(reqBody),
	)

	resp, err := base.RoundTrip(req)
	if err != nil {
		t.Logger.Debug("outbound request failed", "url", req.URL.String(), "error", err.Error())
		return resp, err
	}

	respBody, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(respBody))

	t.Logger.Debug("outbound response",
		"status", resp.StatusCode,
		"url", req.URL.String(),
		"body", elide(respBody),
	)

	return resp, nil
}

func elide(body []byte) string {
	return inlineImage.ReplaceAllString(string(body), "<inline image elided>")
}
