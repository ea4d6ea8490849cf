package sender

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"
)

var (
	tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)
	// Bot API errors end with the HTTP code in parentheses.
	codeRe = regexp.MustCompile(`\((\d{3})\)\s*$`)
)

// SanitizeError renders err with Telegram bot tokens redacted.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return tokenRe.ReplaceAllString(err.Error(), "bot<redacted>")
}

// retryAfter returns the pause demanded by a flood-control error, or 0.
func retryAfter(err error) time.Duration {
	var flood tele.FloodError
	if errors.As(err, &flood) && flood.RetryAfter > 0 {
		return time.Duration(flood.RetryAfter) * time.Second
	}
	return 0
}

// errorRules are checked in order; the first match names the err_code bucket.
var errorRules = []struct {
	code  string
	match func(error) bool
}{
	{"timeout", func(err error) bool {
		var netErr net.Error
		return errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) && netErr.Timeout()
	}},
	{"dns", func(err error) bool {
		var dnsErr *net.DNSError
		return errors.As(err, &dnsErr)
	}},
	{"dial", func(err error) bool {
		var opErr *net.OpError
		return errors.As(err, &opErr) && opErr.Op == "dial"
	}},
	{"tls", func(err error) bool {
		var alert tls.AlertError
		return errors.As(err, &alert)
	}},
	{"flood", func(err error) bool { return httpStatus(err) == http.StatusTooManyRequests }},
	{"http_5xx", func(err error) bool { return httpStatus(err) >= 500 }},
	{"http_4xx", func(err error) bool { return httpStatus(err) >= 400 }},
}

// ErrorCode buckets err for the err_code log attribute: timeout, dns, dial, tls, flood,
// http_5xx, http_4xx or unknown. A nil error yields "".
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	for _, rule := range errorRules {
		if rule.match(err) {
			return rule.code
		}
	}
	return "unknown"
}

func httpStatus(err error) int {
	var (
		apiErr *tele.Error
		flood  tele.FloodError
		group  tele.GroupError
	)
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Code
	case errors.As(err, &flood):
		return http.StatusTooManyRequests
	case errors.As(err, &group):
		return http.StatusBadRequest
	}
	m := codeRe.FindStringSubmatch(strings.TrimSpace(err.Error()))
	if m == nil {
		return 0
	}
	code, _ := strconv.Atoi(m[1])
	return code
}
