package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenTTL is the lifetime of a token issued without WithTTL.
const DefaultTokenTTL = 15 * time.Minute

// Decode failures. The session gate treats all three as "anonymous".
var (
	// ErrTokenInvalid covers unparseable tokens, unexpected algorithms and
	// bad signatures.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenMalformed means the signature is good but a required claim
	// (sub, id or exp) is missing.
	ErrTokenMalformed = errors.New("malformed token")
	// ErrTokenExpired means the signature is good and exp has passed.
	ErrTokenExpired = errors.New("token expired")
)

// Claims is the signed payload: sub carries the username, id the numeric
// user id. The jti is used as the revocation key.
type Claims struct {
	jwt.RegisteredClaims
	UserID *int64 `json:"id,omitempty"`
}

// TokenInfo is what a verified token says.
type TokenInfo struct {
	ID        string
	Identity  Identity
	ExpiresAt time.Time
}

// TokenCodec issues and decodes HS256-signed session tokens. It holds no
// mutable state and is safe for concurrent use.
type TokenCodec struct {
	secret     []byte
	defaultTTL time.Duration
	now        func() time.Time
}

// CodecOption configures a TokenCodec.
type CodecOption func(*TokenCodec)

// WithClock replaces time.Now, for tests that need to move time.
func WithClock(now func() time.Time) CodecOption {
	return func(c *TokenCodec) { c.now = now }
}

// WithDefaultTTL changes the lifetime used when Issue gets no WithTTL.
func WithDefaultTTL(ttl time.Duration) CodecOption {
	return func(c *TokenCodec) { c.defaultTTL = ttl }
}

// NewTokenCodec returns a codec signing with secret.
func NewTokenCodec(secret []byte, opts ...CodecOption) (*TokenCodec, error) {
	if len(secret) == 0 {
		return nil, errors.New("empty token secret")
	}
	c := &TokenCodec{
		secret:     append([]byte(nil), secret...),
		defaultTTL: DefaultTokenTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type issueOptions struct {
	ttl time.Duration
}

// IssueOption tweaks a single Issue call.
type IssueOption func(*issueOptions)

// WithTTL sets the token lifetime. A ttl <= 0 yields a token that is already
// expired.
func WithTTL(ttl time.Duration) IssueOption {
	return func(o *issueOptions) { o.ttl = ttl }
}

// Issue signs a token for username/userID expiring ttl from now.
// Expiry is stored with one-second resolution.
func (c *TokenCodec) Issue(username string, userID int64, opts ...IssueOption) (string, error) {
	o := issueOptions{ttl: c.defaultTTL}
	for _, opt := range opts {
		opt(&o)
	}

	now := c.now()
	id := userID
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(o.ttl)),
		},
		UserID: &id,
	})

	tokenString, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return tokenString, nil
}

// Decode verifies tokenString and returns the identity it carries.
func (c *TokenCodec) Decode(tokenString string) (Identity, error) {
	info, err := c.Inspect(tokenString)
	if err != nil {
		return Identity{}, err
	}
	return info.Identity, nil
}

// Inspect is Decode plus the token id and expiry.
//
// The signature is checked before any claim is trusted: a token with a bad
// signature is ErrTokenInvalid even if it is also expired or incomplete.
func (c *TokenCodec) Inspect(tokenString string) (TokenInfo, error) {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
	)

	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return TokenInfo{}, ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return TokenInfo{}, ErrTokenMalformed
	default:
		return TokenInfo{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if claims.Subject == "" || claims.UserID == nil {
		return TokenInfo{}, ErrTokenMalformed
	}

	return TokenInfo{
		ID:        claims.ID,
		Identity:  Identity{Username: claims.Subject, UserID: *claims.UserID},
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
