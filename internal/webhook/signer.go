package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// Signer produces the X-Ana-Signature header value for a request body.
type Signer interface {
	Sign(body []byte) string
}

// HMACSigner signs bodies with HMAC-SHA256. Used in production.
type HMACSigner struct {
	secret []byte
}

// DevSigner produces a deterministic placeholder signature so local
// receivers can verify requests without sharing a real secret.
type DevSigner struct {
	secret string
}

var (
	_ Signer = (*HMACSigner)(nil)
	_ Signer = (*DevSigner)(nil)
)

func NewHMACSigner(secret string) *HMACSigner {
	return &HMACSigner{secret: []byte(secret)}
}

func NewDevSigner(secret string) *DevSigner {
	return &DevSigner{secret: secret}
}

func (s *HMACSigner) Sign(body []byte) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func (s *DevSigner) Sign(body []byte) string {
	encoded := base64.StdEncoding.EncodeToString(append(append([]byte{}, body...), s.secret...))
	if len(encoded) > 16 {
		encoded = encoded[:16]
	}
	return "sha256=dev-" + encoded
}
