package memzero

import (
	"bytes"
	"testing"
)

func TestZero(t *testing.T) {
	a := []byte("secret")
	b := []byte("another")
	All(a, nil, b)
	if !bytes.Equal(a, make([]byte, len(a))) || !bytes.Equal(b, make([]byte, len(b))) {
		t.Fatalf("not wiped: %q %q", a, b)
	}
}
