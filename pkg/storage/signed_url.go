package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Signed token errors surfaced to callers. The download handler maps all of
// them onto an unauthorized response, so they stay deliberately vague.
var (
	errTokenFormat    = errors.New("invalid token format")
	errTokenSignature = errors.New("invalid token signature")
	errTokenExpired   = errors.New("token expired")
)

const defaultLinkTTL = 24 * time.Hour

// SignedURLSigner mints and validates download tokens for course materials.
// A token binds a course id and a relative file path to an expiry, so the
// download endpoint can stay public without exposing arbitrary files.
//
// Token layout: <courseID>.<unix expiry>.<base64url path>.<hex hmac>
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewSignedURLSigner constructs a signer. Non-positive TTLs fall back to a
// day so a missing config value never produces instantly-dead links.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = defaultLinkTTL
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl}
}

// Generate returns a signed token for one material of one course, plus the
// moment it stops being valid.
func (s *SignedURLSigner) Generate(courseID, relPath string) (string, time.Time, error) {
	switch {
	case courseID == "" || relPath == "":
		return "", time.Time{}, fmt.Errorf("courseID and relPath required")
	case len(s.secret) == 0:
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}

	expiresAt := time.Now().Add(s.ttl)
	exp := strconv.FormatInt(expiresAt.Unix(), 10)
	encodedPath := base64.RawURLEncoding.EncodeToString([]byte(relPath))

	sig := s.sign(courseID, exp, encodedPath)
	return strings.Join([]string{courseID, exp, encodedPath, sig}, "."), expiresAt, nil
}

// Parse checks a token's signature and expiry and returns what it refers to.
// allowExpired skips only the expiry check; cleanup uses it to resolve the
// paths behind stale links.
func (s *SignedURLSigner) Parse(token string, allowExpired bool) (courseID, relPath string, expiresAt time.Time, err error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return "", "", time.Time{}, errTokenFormat
	}
	courseID, exp, encodedPath, sig := parts[0], parts[1], parts[2], parts[3]

	// Signature first. Nothing inside the token is trusted before it holds.
	if !hmac.Equal([]byte(s.sign(courseID, exp, encodedPath)), []byte(sig)) {
		return "", "", time.Time{}, errTokenSignature
	}

	expUnix, err := strconv.ParseInt(exp, 10, 64)
	if err != nil {
		return "", "", time.Time{}, errTokenFormat
	}
	expiresAt = time.Unix(expUnix, 0)
	if !allowExpired && time.Now().After(expiresAt) {
		return "", "", time.Time{}, errTokenExpired
	}

	rawPath, err := base64.RawURLEncoding.DecodeString(encodedPath)
	if err != nil {
		return "", "", time.Time{}, errTokenFormat
	}
	return courseID, string(rawPath), expiresAt, nil
}

func (s *SignedURLSigner) sign(courseID, exp, encodedPath string) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s|%s|%s", courseID, exp, encodedPath)
	return hex.EncodeToString(mac.Sum(nil))
}
