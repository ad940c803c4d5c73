// Package memzero wipes secret buffers once they are no longer needed.
package memzero

import "runtime"

// Zero overwrites b with zeros. It is best-effort: copies the runtime or
// the caller made earlier are not reached.
//
//go:noinline
func Zero(b []byte) {
	if len(b) == 0 {
		return
	}
	clear(b)
	runtime.KeepAlive(&b)
}

// Key wipes a fixed-size key in place.
func Key(k *[32]byte) {
	if k == nil {
		return
	}
	Zero(k[:])
}
