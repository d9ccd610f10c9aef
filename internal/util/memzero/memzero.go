// Package memzero wipes secrets held in byte slices once they are no longer
// needed, such as passwords after they have been digested.
package memzero

import "runtime"

// Zero overwrites b with zeros.
func Zero(b []byte) {
	clear(b)
	runtime.KeepAlive(b)
}

// All zeroes every slice in bs.
func All(bs ...[]byte) {
	for _, b := range bs {
		Zero(b)
	}
}
