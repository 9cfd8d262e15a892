package core

import "fmt"

// Assert reports a broken internal invariant. Debug builds (the vksync_debug
// build tag) panic, release builds log the failure and carry on.
func Assert(cond bool, msg string, args ...interface{}) {
	if cond {
		return
	}
	text := fmt.Sprintf(msg, args...)
	if debugAsserts {
		panic("assertion failed: " + text)
	}
	LogError("assertion failed: %s", text)
}
