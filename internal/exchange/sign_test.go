package exchange

import "testing"

func TestSignIsDeterministic(t *testing.T) {
	a := Sign("secret", "2026-01-01T00:00:00.000Z", "POST", "/api/v5/trade/order", `{"a":1}`)
	b := Sign("secret", "2026-01-01T00:00:00.000Z", "POST", "/api/v5/trade/order", `{"a":1}`)
	if a != b {
		t.Fatalf("expected identical signatures, got %q vs %q", a, b)
	}
}

func TestSignChangesWithMessage(t *testing.T) {
	a := Sign("secret", "ts", "POST", "/path", "body1")
	b := Sign("secret", "ts", "POST", "/path", "body2")
	if a == b {
		t.Fatal("expected different bodies to produce different signatures")
	}
}

func TestSignChangesWithSecret(t *testing.T) {
	a := Sign("secret1", "ts", "GET", "/path", "")
	b := Sign("secret2", "ts", "GET", "/path", "")
	if a == b {
		t.Fatal("expected different secrets to produce different signatures")
	}
}
