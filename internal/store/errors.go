package store

import "strings"

// Transient-outage signatures in store error text. Hosted databases report
// paused or suspended projects in the message body; SQLite reports lock
// contention the same way.
var unavailableSignatures = []string{
	"SQLITE_BUSY",
	"database is locked",
	"database is paused",
	"paused",
	"unavailable",
}

// IsUnavailable reports whether the error text matches a transient
// outage/pause signature. Callers surface these as retryable conditions
// rather than generic write failures.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, sig := range unavailableSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

// IsBusy reports whether the error is SQLite lock contention, which
// typically warrants a short retry.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
