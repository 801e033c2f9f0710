// Package httpc builds the HTTP clients handed to the OpenAI SDK by the
// transcription, completion and synthesis backends.
package httpc

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// DefaultTimeout bounds a whole request when the caller passes zero.
const DefaultTimeout = 30 * time.Second

// All clients share one pool so fallback backends pointed at the same
// host reuse connections.
var sharedTransport = sync.OnceValue(func() *http.Transport {
	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
})

// NewClient returns a client with the given overall timeout.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout, Transport: sharedTransport()}
}
