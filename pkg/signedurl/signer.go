package signedurl

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

var (
	// ErrInvalidToken is returned for malformed or tampered tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpired is returned once a token outlives its TTL.
	ErrExpired = errors.New("token expired")
)

// Claims are the values carried by a signed token.
type Claims struct {
	Subject   string
	Scope     string
	ExpiresAt time.Time
}

// Signer issues and verifies HMAC signed, expiring URL tokens.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner constructs a signer with the provided secret and TTL.
func NewSigner(secret string, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Signer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Sign returns a URL safe token binding subject and scope until the TTL elapses.
func (s *Signer) Sign(subject, scope string) (string, time.Time, error) {
	if subject == "" || scope == "" {
		return "", time.Time{}, fmt.Errorf("subject and scope required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	payload := strings.Join([]string{
		encode(subject),
		strconv.FormatInt(expiresAt.Unix(), 10),
		encode(scope),
	}, ".")
	return payload + "." + s.mac(payload), expiresAt, nil
}

// Verify checks the signature and expiry of token and returns its claims.
func (s *Signer) Verify(token string) (*Claims, error) {
	if len(s.secret) == 0 {
		return nil, ErrInvalidToken
	}
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return nil, ErrInvalidToken
	}
	payload := strings.Join(parts[:3], ".")
	if !hmac.Equal([]byte(s.mac(payload)), []byte(parts[3])) {
		return nil, ErrInvalidToken
	}

	subject, err := decode(parts[0])
	if err != nil {
		return nil, ErrInvalidToken
	}
	scope, err := decode(parts[2])
	if err != nil {
		return nil, ErrInvalidToken
	}
	exp, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil, ErrInvalidToken
	}
	expiresAt := time.Unix(exp, 0)
	if !s.now().Before(expiresAt) {
		return nil, ErrExpired
	}
	return &Claims{Subject: subject, Scope: scope, ExpiresAt: expiresAt}, nil
}

func (s *Signer) mac(payload string) string {
	h := hmac.New(sha256.New, s.secret)
	_, _ = h.Write([]byte(payload))
	return hex.EncodeToString(h.Sum(nil))
}

func encode(v string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(v))
}

func decode(v string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(v)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
