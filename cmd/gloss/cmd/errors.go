package cmd

import (
	"strings"
)

// isDBLockError returns true if the error chain contains a bbolt lock
// timeout. bbolt returns the string "timeout" when it cannot acquire the
// file lock within the configured deadline.
func isDBLockError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "timeout")
}

// diagnoseDBLock returns actionable guidance when the build state cannot be
// opened because another process holds the lock.
func diagnoseDBLock() string {
	return "build state is locked — another gloss command is probably running\n" +
		"  → wait for it to finish, or find it:  ps aux | grep gloss\n" +
		"  → then retry your command"
}
