// Package signature verifies HMAC signatures on incoming webhook requests.
// Github signs payloads with SHA-256 and a "sha256=" prefixed hex digest,
// Facebook with SHA-1 and a "sha1=" prefix, Instagram with a bare SHA-1
// hex digest, Dropbox with a bare SHA-256 hex digest.
package signature

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"strings"

	"daisychain/internal/common/errors"
)

// VerifyGithub checks the X-Hub-Signature-256 header value against the body.
func VerifyGithub(secret string, body []byte, header string) error {
	digest, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return errors.ValidationError("github signature header is malformed")
	}
	if !verifyHex(sha256.New, secret, body, digest) {
		return errors.ValidationError("github signature mismatch")
	}
	return nil
}

// VerifyFacebook checks the X-Hub-Signature header value against the body.
func VerifyFacebook(secret string, body []byte, header string) error {
	digest, ok := strings.CutPrefix(header, "sha1=")
	if !ok {
		return errors.ValidationError("facebook signature header is malformed")
	}
	if !verifyHex(sha1.New, secret, body, digest) {
		return errors.ValidationError("facebook signature mismatch")
	}
	return nil
}

// VerifyInstagram checks the X-Hub-Signature header value against the body.
func VerifyInstagram(secret string, body []byte, header string) error {
	if !verifyHex(sha1.New, secret, body, header) {
		return errors.ValidationError("instagram signature mismatch")
	}
	return nil
}

// VerifyDropbox checks the X-Dropbox-Signature header value against the body.
func VerifyDropbox(secret string, body []byte, header string) error {
	if !verifyHex(sha256.New, secret, body, header) {
		return errors.ValidationError("dropbox signature mismatch")
	}
	return nil
}

// Sign returns the hex HMAC digest of body under secret with the given hash.
func Sign(newHash func() hash.Hash, secret string, body []byte) string {
	mac := hmac.New(newHash, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func verifyHex(newHash func() hash.Hash, secret string, body []byte, digest string) bool {
	expected := Sign(newHash, secret, body)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(digest)))
}
