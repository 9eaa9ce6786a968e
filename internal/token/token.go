// Package token issues and verifies signed, time-limited tokens that bind a
// record id to an email address. Tracking links and password-reset links are
// built from them.
//
// Tokens are gorilla/securecookie values: a JSON payload carrying the id, the
// email and the issue time, timestamped and HMAC-SHA256 signed under the
// process secret. The namespace is the securecookie name and is covered by
// the MAC, so a token issued for one purpose does not verify under another.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/securecookie"
)

var (
	// ErrInvalid is returned for any token that must not be honoured.
	ErrInvalid = errors.New("invalid token")
	// ErrExpired wraps ErrInvalid; callers should not tell users which one it was.
	ErrExpired = fmt.Errorf("%w: expired", ErrInvalid)
)

// Claims is the verified content of a token.
type Claims struct {
	ID       int64     `json:"id"`
	Email    string    `json:"email"`
	IssuedAt time.Time `json:"-"`
}

type payload struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Iat   int64  `json:"iat"`
}

// Issuer signs and verifies tokens for one namespace.
type Issuer struct {
	secret []byte
	name   string
	now    func() time.Time
}

// Option configures an Issuer.
type Option func(*Issuer)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

// NewIssuer returns an Issuer for namespace signing with secret.
func NewIssuer(secret []byte, namespace string, opts ...Option) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, errors.New("token: empty secret")
	}

	i := &Issuer{secret: secret, name: "farm-store/" + namespace, now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

func (i *Issuer) codec(maxAge int) *securecookie.SecureCookie {
	return securecookie.New(i.secret, nil).
		SetSerializer(securecookie.JSONEncoder{}).
		MaxAge(maxAge)
}

// Issue returns a token binding id and email, stamped with the current time.
func (i *Issuer) Issue(id int64, email string) (string, error) {
	tok, err := i.codec(0).Encode(i.name, payload{ID: id, Email: email, Iat: i.now().Unix()})
	if err != nil {
		return "", fmt.Errorf("failed to encode token: %w", err)
	}
	return tok, nil
}

// Verify checks the signature and age of tok. Tokens older than maxAge are
// rejected with ErrExpired.
func (i *Issuer) Verify(tok string, maxAge time.Duration) (*Claims, error) {
	if tok == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalid)
	}

	// The codec bounds the signed wall-clock timestamp; the embedded issue
	// time is checked against the issuer's clock below.
	var p payload
	if err := i.codec(ceilSeconds(maxAge)).Decode(i.name, tok, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	issued := time.Unix(p.Iat, 0)
	if i.now().Sub(issued) > maxAge {
		return nil, ErrExpired
	}

	return &Claims{ID: p.ID, Email: p.Email, IssuedAt: issued}, nil
}

// ceilSeconds never returns 0, which securecookie reads as "no limit".
func ceilSeconds(d time.Duration) int {
	s := int((d + time.Second - 1) / time.Second)
	if s < 1 {
		return 1
	}
	return s
}
