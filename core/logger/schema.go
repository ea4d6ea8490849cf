package logger

import "strings"

// Status values understood by dashboards. Unknown values are logged as given.
var knownStatus = map[string]bool{
	"ok":           true,
	"fail":         true,
	"skip":         true,
	"retry":        true,
	"rate_limited": true,
	"cancelled":    true,
}

// Outcome values; anything else is dropped from the line.
var knownOutcome = map[string]bool{
	"ok":           true,
	"fail":         true,
	"cancelled":    true,
	"rate_limited": true,
}

// normalizeLevel maps slog level names (including offsets such as "INFO+2") to
// upper-case names; "warning" becomes WARN.
func normalizeLevel(level string) string {
	level = strings.ToUpper(strings.TrimSpace(level))
	switch level {
	case "":
		return "INFO"
	case "WARNING":
		return "WARN"
	}
	return level
}

func normalizeStatus(status string) (string, bool) {
	status = strings.ToLower(strings.TrimSpace(status))
	return status, knownStatus[status]
}

func normalizeOutcome(outcome string) (string, bool) {
	outcome = strings.ToLower(strings.TrimSpace(outcome))
	return outcome, knownOutcome[outcome]
}

// defaultKeyOrder puts the identifying keys first; the rest follow alphabetically.
var defaultKeyOrder = []string{
	"ts", "level", "component", "event", "status",
	"rid", "rid_full", "ts_unix_nano",
	"update_id", "user_id", "chat_id", "chat_type", "handler",
	"op", "from", "to", "state", "inbound", "correction",
	"segment", "record_id", "sink", "outcome", "duration_ms",
	"messages", "kb", "payload", "lang", "username",
	"mode", "listen", "public_url", "http_code",
	"db", "host", "port",
	"err", "err_code", "cause", "attempts", "backoff_ms",
}
