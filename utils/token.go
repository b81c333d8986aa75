package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	exprand "golang.org/x/exp/rand"
)

// TokenHex returns n random bytes encoded as a 2n-character hex string.
func TokenHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("failed to read random bytes: %v", err))
	}
	return hex.EncodeToString(b)
}

// NewAuthToken generates an opaque bearer token in the form "<id>|<hex>".
func NewAuthToken() string {
	return fmt.Sprintf("%d|%s", exprand.Intn(100), TokenHex(32))
}
