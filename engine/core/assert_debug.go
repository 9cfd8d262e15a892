//go:build vksync_debug

package core

const debugAsserts = true
