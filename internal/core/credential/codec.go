// Package credential issues and verifies the signed, expiring token that
// proves an actor's identity and role.
//
// Tokens are HS256 JWTs. Verification failures are reported as a single
// class (ErrInvalid) so callers cannot tell a bad signature from an expired
// or garbled token.
package credential

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/acquisitions/acquisitions-api/internal/core/domain"
)

const (
	DefaultTTL = 15 * time.Minute
	issuer     = "acquisitions-api"
)

var (
	// ErrInvalid is matched by every verification failure.
	ErrInvalid = errors.New("invalid credential")

	// ErrMissingClaim is returned by Issue for an incomplete actor.
	ErrMissingClaim = errors.New("credential: missing required claim")
)

// FailureKind is the internal cause of a verification failure.
type FailureKind int

const (
	Malformed FailureKind = iota
	InvalidSignature
	Expired
)

func (k FailureKind) String() string {
	switch k {
	case InvalidSignature:
		return "invalid_signature"
	case Expired:
		return "expired"
	default:
		return "malformed"
	}
}

// VerifyError carries the cause of a failed verification. Its message is
// identical for every kind.
type VerifyError struct {
	Kind FailureKind
}

func (e *VerifyError) Error() string        { return ErrInvalid.Error() }
func (e *VerifyError) Is(target error) bool { return target == ErrInvalid }

type claims struct {
	UserID int64  `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Codec signs and verifies credentials with a single immutable key.
type Codec struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// Option configures a Codec.
type Option func(*Codec)

// WithClock overrides the time source used for issue and verify.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// New returns a Codec signing with secret. A non-positive ttl uses DefaultTTL.
func New(secret string, ttl time.Duration, opts ...Option) *Codec {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Codec{key: []byte(secret), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL is the validity window of issued credentials.
func (c *Codec) TTL() time.Duration { return c.ttl }

// Issue signs a credential for actor valid from now until now+TTL.
func (c *Codec) Issue(actor domain.Actor) (string, error) {
	if actor.ID <= 0 || actor.Email == "" || !actor.Role.Valid() {
		return "", ErrMissingClaim
	}

	now := c.now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID: actor.ID,
		Email:  actor.Email,
		Role:   string(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatInt(actor.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	})
	return t.SignedString(c.key)
}

// Verify checks the signature and validity window and returns the embedded
// actor. Any error satisfies errors.Is(err, ErrInvalid).
func (c *Codec) Verify(token string) (domain.Actor, error) {
	var cl claims
	_, err := jwt.ParseWithClaims(token, &cl, func(*jwt.Token) (any, error) {
		return c.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return domain.Actor{}, &VerifyError{Kind: classify(err)}
	}

	actor := domain.Actor{ID: cl.UserID, Email: cl.Email, Role: domain.Role(cl.Role)}
	if actor.ID <= 0 || actor.Email == "" || !actor.Role.Valid() {
		return domain.Actor{}, &VerifyError{Kind: Malformed}
	}
	return actor, nil
}

func classify(err error) FailureKind {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return InvalidSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return Expired
	default:
		return Malformed
	}
}
