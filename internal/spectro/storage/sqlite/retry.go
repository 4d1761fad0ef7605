package sqlite

import (
	"strings"
	"time"
)

const (
	busyMaxAttempts = 5
	busyBaseDelay   = 10 * time.Millisecond
)

// isSQLiteBusy reports whether err looks like SQLITE_BUSY contention from
// a concurrent writer.
func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

// retryOnBusy runs fn, retrying with exponential backoff while it fails
// with SQLITE_BUSY. Other errors return immediately.
func retryOnBusy(fn func() error) error {
	delay := busyBaseDelay
	var err error
	for attempt := 0; attempt < busyMaxAttempts; attempt++ {
		err = fn()
		if err == nil || !isSQLiteBusy(err) {
			return err
		}
		if attempt < busyMaxAttempts-1 {
			time.Sleep(delay)
			delay *= 2
		}
	}
	return err
}
