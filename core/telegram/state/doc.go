// Package state stores per-user conversation sessions for Telegram bots. It is
// domain-agnostic: the session type is a type parameter, and values are kept either in
// process memory or in Redis as JSON.
package state
