package provider

import (
	"net"
	"net/http"
	"time"
)

const (
	defaultConnectTimeout = 10 * time.Second

	// defaultMaxOutputTokens caps completions when the caller gives no budget
	defaultMaxOutputTokens = 4096
)

// newHTTPClient creates an HTTP client for LLM API requests.
// Client-level timeout is disabled (0) to allow long-running streaming responses.
// Timeout should be controlled via context instead.
func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 0, // Disabled - use context timeout for streaming
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   defaultConnectTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}
