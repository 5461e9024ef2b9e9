package redis

import "fmt"

// Redis key patterns for the application
// Following the pattern: entity:id or entity:id:attribute

// SessionKey addresses a stored sync-session record.
func SessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s", sessionID)
}

// ActiveSessionKey holds the id of the single live sync session.
func ActiveSessionKey() string {
	return "session:active"
}

// RateLimitKey addresses a fixed-window request counter.
func RateLimitKey(identifier, action string) string {
	return fmt.Sprintf("rate_limit:%s:%s", action, identifier)
}
