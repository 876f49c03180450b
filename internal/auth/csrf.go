package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
)

// CSRF names shared by the cookie and the header.
const (
	CSRFCookieName = "csrf_token"
	CSRFHeaderName = "X-CSRF-Token"
)

// CSRF errors. Both surface as 403.
var (
	ErrCSRFMissing  = errors.New("CSRF token header missing")
	ErrCSRFMismatch = errors.New("CSRF validation failed")
)

const csrfTokenBytes = 32

// NewCSRFToken returns 256 random bits as lowercase hex.
func NewCSRFToken() (string, error) {
	buf := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate CSRF token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// CheckCSRF accepts the request only when the header token equals the cookie token.
func CheckCSRF(cookie, header string) error {
	if header == "" {
		return ErrCSRFMissing
	}
	if cookie == "" || subtle.ConstantTimeCompare([]byte(cookie), []byte(header)) != 1 {
		return ErrCSRFMismatch
	}
	return nil
}
