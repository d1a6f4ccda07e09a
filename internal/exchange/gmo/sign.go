package gmo

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// sign builds the API-SIGN header value: hex HMAC-SHA256 over
// timestamp + method + path (+ raw body for POST requests).
func sign(secret, timestamp, method, path, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + method + path + body))
	return hex.EncodeToString(mac.Sum(nil))
}

// apiTimestamp is the API-TIMESTAMP header value, unix milliseconds.
func apiTimestamp(now time.Time) string {
	return strconv.FormatInt(now.UnixMilli(), 10)
}
