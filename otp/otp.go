// Package otp issues the short numeric codes customers use to join a table
// session. Codes are not globally unique; uniqueness among active sessions is
// the caller's concern (see IssueUnique).
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"
)

const (
	Digits     = 6
	DefaultTTL = 24 * time.Hour
)

var ErrIssuanceExhausted = errors.New("otp: no free code after bounded retries")

var codeSpace = big.NewInt(1_000_000)

// Code is a code and its expiry. The two always travel together.
type Code struct {
	Value     string
	ExpiresAt time.Time
}

// Source yields a number in [0, 1e6).
type Source func() (int64, error)

type Issuer struct {
	ttl    time.Duration
	now    func() time.Time
	source Source
}

type Option func(*Issuer)

func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

func WithSource(src Source) Option {
	return func(i *Issuer) { i.source = src }
}

// NewIssuer returns an Issuer; a non-positive ttl means DefaultTTL.
func NewIssuer(ttl time.Duration, opts ...Option) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	i := &Issuer{ttl: ttl, now: time.Now, source: cryptoSource}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func cryptoSource() (int64, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return 0, err
	}
	return n.Int64(), nil
}

func (i *Issuer) TTL() time.Duration { return i.ttl }

func (i *Issuer) Issue() (Code, error) {
	n, err := i.source()
	if err != nil {
		return Code{}, fmt.Errorf("otp: read random source: %w", err)
	}
	n %= codeSpace.Int64()
	if n < 0 {
		n = -n
	}
	return Code{
		Value:     fmt.Sprintf("%0*d", Digits, n),
		ExpiresAt: i.now().UTC().Add(i.ttl),
	}, nil
}

// Regenerate is Issue under another name; callers must replace code and
// expiry in one write.
func (i *Issuer) Regenerate() (Code, error) { return i.Issue() }

// IsExpired reports whether a code with the given expiry is unusable at now.
func IsExpired(expiresAt, now time.Time) bool {
	return !now.Before(expiresAt)
}

// IssueUnique draws codes until taken reports a free one, at most maxAttempts
// times.
func (i *Issuer) IssueUnique(ctx context.Context, maxAttempts int, taken func(context.Context, string) (bool, error)) (Code, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Code{}, err
		}
		code, err := i.Issue()
		if err != nil {
			return Code{}, err
		}
		used, err := taken(ctx, code.Value)
		if err != nil {
			return Code{}, err
		}
		if !used {
			return code, nil
		}
	}
	return Code{}, ErrIssuanceExhausted
}

// Valid reports whether s has the shape of a code.
func Valid(s string) bool {
	if len(s) != Digits {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
