package telegram

import (
	"net"
	"net/http"
	"time"

	"github.com/businesssandbox/regbot/core/telegram/netutil"
)

// Bot API long polls hold the connection for up to the poll timeout, so the client
// timeout sits well above it.
const (
	clientTimeout = 30 * time.Second
	dialTimeout   = 5 * time.Second
	headerTimeout = 5 * time.Second
)

var transportRetry = netutil.Policy{Attempts: 4, Backoff: 2 * time.Second, MaxBackoff: 6 * time.Second}

// BuildHTTPClient returns the client telebot uses. Requests that fail before reaching
// api.telegram.org are replayed by the transport.
func BuildHTTPClient() *http.Client {
	base := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: dialTimeout, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   dialTimeout,
		ResponseHeaderTimeout: headerTimeout,
	}
	return &http.Client{
		Timeout:   clientTimeout,
		Transport: &retryTransport{base: base, policy: transportRetry},
	}
}

type retryTransport struct {
	base   http.RoundTripper
	policy netutil.Policy
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	// A body that cannot be rewound allows a single attempt.
	policy := t.policy
	if req.Body != nil && req.GetBody == nil {
		policy.Attempts = 1
	}

	var resp *http.Response
	err := netutil.Do(req.Context(), policy, nil, func(attempt int) error {
		out := req
		if attempt > 1 {
			out = req.Clone(req.Context())
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return err
				}
				out.Body = body
			}
		}
		var err error
		resp, err = base.RoundTrip(out)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
