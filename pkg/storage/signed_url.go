package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrTokenMalformed = errors.New("malformed download token")
	ErrTokenSignature = errors.New("download token signature mismatch")
	ErrTokenExpired   = errors.New("download token expired")
)

const tokenSeparator = "."

// Claims is what a download token binds together.
type Claims struct {
	ExportID  string
	Path      string
	ExpiresAt time.Time
}

// SignedURLSigner issues HMAC-SHA256 download tokens of the form id.expiry.path.signature.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer. A non-positive ttl means 24h.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Generate signs a token for relPath that expires after the signer's ttl.
func (s *SignedURLSigner) Generate(exportID, relPath string) (string, time.Time, error) {
	switch {
	case exportID == "" || relPath == "":
		return "", time.Time{}, errors.New("export id and path are required")
	case strings.Contains(exportID, tokenSeparator):
		return "", time.Time{}, fmt.Errorf("export id %q contains %q", exportID, tokenSeparator)
	case len(s.secret) == 0:
		return "", time.Time{}, errors.New("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	body := strings.Join([]string{
		exportID,
		strconv.FormatInt(expiresAt.Unix(), 10),
		base64.RawURLEncoding.EncodeToString([]byte(relPath)),
	}, tokenSeparator)
	return body + tokenSeparator + s.sign(body), expiresAt, nil
}

// Parse verifies token. With allowExpired the expiry check is skipped.
func (s *SignedURLSigner) Parse(token string, allowExpired bool) (Claims, error) {
	parts := strings.Split(token, tokenSeparator)
	if len(parts) != 4 {
		return Claims{}, ErrTokenMalformed
	}
	body := strings.Join(parts[:3], tokenSeparator)
	if !hmac.Equal([]byte(s.sign(body)), []byte(parts[3])) {
		return Claims{}, ErrTokenSignature
	}
	expUnix, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: expiry: %v", ErrTokenMalformed, err)
	}
	path, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return Claims{}, fmt.Errorf("%w: path: %v", ErrTokenMalformed, err)
	}
	claims := Claims{ExportID: parts[0], Path: string(path), ExpiresAt: time.Unix(expUnix, 0)}
	if !allowExpired && !s.now().Before(claims.ExpiresAt) {
		return Claims{}, ErrTokenExpired
	}
	return claims, nil
}

func (s *SignedURLSigner) sign(body string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(body))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
