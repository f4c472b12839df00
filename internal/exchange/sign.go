package exchange

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"time"
)

// Credentials holds the API key triple used to sign every private request.
type Credentials struct {
	APIKey     string
	APISecret  string
	Passphrase string
}

// Sign computes the OKX-style request signature: base64(HMAC-SHA256(secret,
// timestamp||method||requestPath||body)).
func Sign(secret, timestamp, method, requestPath, body string) string {
	msg := timestamp + method + requestPath + body
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(msg))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Timestamp returns an ISO-8601 millisecond timestamp as the exchange
// expects it in the OK-ACCESS-TIMESTAMP header.
func Timestamp(now time.Time) string {
	return now.UTC().Format("2006-01-02T15:04:05.000Z")
}
