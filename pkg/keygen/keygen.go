// Package keygen generates random token sequences for account activation
// and password reset links.
package keygen

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	symbols = "q1dw3er2ty.u7io.p4a0s15df8g.h1jk9l6d8d9hz7x8v0.b9n6m0d612n3d45.67jukl89a0.qtry5io25u2f24nw"
	letters = "q1dw3er2tyu7iop4a0s15df8gh1jk9l6d8d9hz7x8v0b9n6m0d612n3d4567jukl89a0qtry5io25u2f24nw"
)

// DefaultLength is the sequence length used when none is specified.
const DefaultLength = 32

// Options adjusts sequence generation.
type Options struct {
	// UseLetters restricts the alphabet to letters and digits, with no
	// dots. Needed when the sequence ends up in a URL path segment.
	UseLetters bool
}

func alphabet(opts Options) string {
	if opts.UseLetters {
		return letters
	}
	return symbols
}

func randomSymbol(opts Options) byte {
	seq := alphabet(opts)
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(seq))))
	if err != nil {
		// crypto/rand only fails when the platform entropy source is
		// broken, which is unrecoverable here.
		panic(err)
	}
	return seq[n.Int64()]
}

func randomSymbols(length int, opts Options) string {
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		b.WriteByte(randomSymbol(opts))
	}
	return b.String()
}

// Sequence generates a random sequence of the given length. The result
// never ends with a dot and never contains consecutive dots.
func Sequence(length int, opts Options) string {
	key := randomSymbols(length, opts)

	if strings.HasSuffix(key, ".") {
		key = key[:len(key)-1] + string(randomSymbol(opts))
	}

	for strings.Contains(key, "..") {
		key = strings.Replace(key, "..", randomSymbols(2, opts), 1)
	}

	return key
}
