package utils

import (
	"regexp"
	"testing"
)

func TestTokenHexLengthAndCharset(t *testing.T) {
	hexRe := regexp.MustCompile(`^[0-9a-f]+$`)
	for _, n := range []int{1, 6, 32} {
		got := TokenHex(n)
		if len(got) != 2*n {
			t.Fatalf("TokenHex(%d) = %q, want %d chars", n, got, 2*n)
		}
		if !hexRe.MatchString(got) {
			t.Fatalf("TokenHex(%d) = %q, not lowercase hex", n, got)
		}
	}
}

func TestTokenHexIsRandom(t *testing.T) {
	if TokenHex(16) == TokenHex(16) {
		t.Fatal("two generated tokens collided")
	}
}

func TestNewAuthTokenShape(t *testing.T) {
	re := regexp.MustCompile(`^\d{1,2}\|[0-9a-f]{64}$`)
	token := NewAuthToken()
	if !re.MatchString(token) {
		t.Fatalf("NewAuthToken() = %q, want prefix|64-hex form", token)
	}
}
