// Package webhook authenticates inbound Zoom webhook deliveries: payload
// signature verification and the one-time URL-validation handshake.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

// SignatureHeader is the request header carrying the payload signature.
const SignatureHeader = "X-Zm-Signature"

// Verify reports whether signature matches the HMAC-SHA256 of body under
// secret. The signature may carry a "v0=" or "sha256=" prefix; comparison is
// constant time.
func Verify(body []byte, signature, secret string) bool {
	signature = strings.TrimSpace(signature)
	if signature == "" || secret == "" {
		return false
	}
	if after, ok := strings.CutPrefix(signature, "v0="); ok {
		signature = after
	} else if after, ok := strings.CutPrefix(signature, "sha256="); ok {
		signature = after
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(signature), []byte(expected))
}

// Sign returns the "v0="-prefixed signature for body, as Zoom would send it.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "v0=" + hex.EncodeToString(mac.Sum(nil))
}

// ValidationReply is the response body for the endpoint.url_validation handshake.
type ValidationReply struct {
	PlainToken     string `json:"plainToken"`
	EncryptedToken string `json:"encryptedToken"`
}

// ValidationResponse answers the URL-ownership challenge: the plain token is
// echoed back alongside its base64-encoded HMAC-SHA256 under the shared secret.
// This handshake is distinct from payload signature verification and runs
// before any event processing.
func ValidationResponse(plainToken, secret string) ValidationReply {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(plainToken))
	return ValidationReply{
		PlainToken:     plainToken,
		EncryptedToken: base64.StdEncoding.EncodeToString(mac.Sum(nil)),
	}
}
