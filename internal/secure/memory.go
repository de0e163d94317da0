// Package secure narrows the time key material stays in memory.
//
// Go's garbage collector may copy a slice before it is zeroed, and strings
// cannot be wiped at all, so this only shortens exposure. Keep secrets in
// []byte form and zero them as soon as the derivation that needs them is done.
package secure

import "runtime"

// SecureZeroBytes overwrites data with zeros in a way the compiler will
// not elide
func SecureZeroBytes(data []byte) {
	if len(data) == 0 {
		return
	}

	clear(data)

	runtime.KeepAlive(data)
}

// ZeroBytes zeroes several byte slices at once
func ZeroBytes(byteSlices ...[]byte) {
	for _, b := range byteSlices {
		SecureZeroBytes(b)
	}
}

// Clone returns a copy of data that the caller is expected to zero
func Clone(data []byte) []byte {
	if data == nil {
		return nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out
}
