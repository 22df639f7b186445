package authkit

import "log"

// logf covers best-effort failure paths (mail delivery, counter
// resets) that must never fail the calling flow.
func logf(format string, args ...any) {
	log.Printf("authkit: "+format, args...)
}
