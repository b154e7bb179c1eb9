package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// Verifier validates the authenticity of inbound Shopify requests. Shopify
// uses two incompatible query canonicalizations: OAuth/Admin redirects carry
// an `hmac` over `&`-joined pairs, App Proxy requests carry a `signature`
// over pairs joined with no separator. Both must be preserved exactly.
// All checks fail closed and never panic on malformed input.
type Verifier struct {
	secret string
}

// NewVerifier creates a verifier keyed by the shared app secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: secret}
}

// VerifyAuthHMAC validates the `hmac` parameter of an OAuth/Admin redirect.
// The message is every query parameter except `hmac` and `signature`, keys
// sorted lexicographically, joined as `key=value` with `&`. Multi-valued
// parameters join their values with `,`.
func (v *Verifier) VerifyAuthHMAC(query url.Values) bool {
	supplied := query.Get("hmac")
	if supplied == "" {
		return false
	}

	keys := make([]string, 0, len(query))
	for k := range query {
		if k == "hmac" || k == "signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+strings.Join(query[k], ","))
	}
	message := strings.Join(pairs, "&")

	return v.compareHex(message, supplied)
}

// VerifyProxySignature validates the `signature` parameter of an App Proxy
// request. The message is every parameter except `signature`, keys sorted
// lexicographically, joined as `key=value` with NO separator between pairs.
// Multi-valued parameters use only their first value.
func (v *Verifier) VerifyProxySignature(query url.Values) bool {
	supplied := query.Get("signature")
	if supplied == "" {
		return false
	}

	keys := make([]string, 0, len(query))
	for k := range query {
		if k == "signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(query[k][0])
	}

	return v.compareHex(sb.String(), supplied)
}

// VerifyWebhook validates the base64 HMAC Shopify sends in the
// X-Shopify-Hmac-SHA256 header against the raw request body.
func (v *Verifier) VerifyWebhook(body []byte, header string) bool {
	if header == "" {
		return false
	}
	supplied, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(v.secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), supplied)
}

// compareHex computes the hex HMAC-SHA256 of message and compares it to the
// supplied hex digest in constant time. Non-hex or mismatched-length input
// fails closed.
func (v *Verifier) compareHex(message, supplied string) bool {
	decoded, err := hex.DecodeString(supplied)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(v.secret))
	mac.Write([]byte(message))
	return hmac.Equal(mac.Sum(nil), decoded)
}
