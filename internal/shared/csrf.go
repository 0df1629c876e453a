package shared

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// CSRFHeader is the request header carrying the CSRF token.
const CSRFHeader = "X-CSRF-Token"

// CSRFManager issues and verifies CSRF tokens bound to a session token.
// Tokens are a keyed MAC over the opaque session identifier, so no
// server-side storage is needed and rotation follows the session.
type CSRFManager struct {
	secret []byte
}

// NewCSRFManager returns a CSRFManager using the provided secret key.
func NewCSRFManager(secret string) *CSRFManager {
	return &CSRFManager{secret: []byte(secret)}
}

// IssueToken derives the CSRF token for a session.
func (m *CSRFManager) IssueToken(sessionToken string) string {
	if sessionToken == "" {
		return ""
	}
	mac := hmac.New(sha256.New, m.secret)
	_, _ = mac.Write([]byte(sessionToken))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// VerifyToken compares the supplied token with the expected one.
func (m *CSRFManager) VerifyToken(sessionToken, token string) error {
	if token == "" {
		return ErrCSRFTokenMissing
	}
	expected := m.IssueToken(sessionToken)
	if expected == "" {
		return ErrCSRFTokenMissing
	}
	if !hmac.Equal([]byte(expected), []byte(token)) {
		return ErrCSRFTokenMismatch
	}
	return nil
}
