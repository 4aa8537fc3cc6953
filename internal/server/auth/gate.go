package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/gotodo/internal/logging"
	"github.com/dmitrijs2005/gotodo/internal/server/metrics"
)

// RevocationChecker reports whether a token id has been revoked before its
// natural expiry.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// ErrTokenRevoked is returned by Resolve for a revoked token.
var ErrTokenRevoked = errors.New("token revoked")

// errNoToken marks a request that carries no access_token cookie at all.
var errNoToken = errors.New("no token")

// SessionGate turns the access_token cookie of a request into an Identity.
// Every failure mode (missing, invalid, malformed, expired, revoked) means
// "anonymous"; the caller decides what anonymous may do.
type SessionGate struct {
	codec        *TokenCodec
	revocations  RevocationChecker
	logger       logging.Logger
	secureCookie bool
}

// GateOption configures a SessionGate.
type GateOption func(*SessionGate)

// WithRevocations makes the gate reject tokens whose id has been revoked.
func WithRevocations(r RevocationChecker) GateOption {
	return func(g *SessionGate) { g.revocations = r }
}

// WithGateLogger sets the logger used for rejected tokens.
func WithGateLogger(l logging.Logger) GateOption {
	return func(g *SessionGate) { g.logger = l }
}

// WithSecureCookie marks cookies cleared by the gate as Secure.
func WithSecureCookie(secure bool) GateOption {
	return func(g *SessionGate) { g.secureCookie = secure }
}

func NewSessionGate(codec *TokenCodec, opts ...GateOption) *SessionGate {
	g := &SessionGate{codec: codec, logger: logging.Nop{}}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ResolveIdentity returns the identity behind r's access_token cookie.
// ok is false for anonymous requests; that is not an error.
func (g *SessionGate) ResolveIdentity(r *http.Request) (Identity, bool) {
	id, err := g.resolve(r)
	return id, err == nil
}

func (g *SessionGate) resolve(r *http.Request) (Identity, error) {
	token := TokenFromRequest(r)
	if token == "" {
		return Identity{}, errNoToken
	}

	info, err := g.codec.Inspect(token)
	if err != nil {
		return Identity{}, err
	}

	if g.revocations != nil {
		revoked, err := g.revocations.IsRevoked(r.Context(), info.ID)
		if err != nil {
			// fail closed
			g.logger.Error(r.Context(), "revocation lookup failed", "error", err)
			return Identity{}, err
		}
		if revoked {
			return Identity{}, ErrTokenRevoked
		}
	}

	return info.Identity, nil
}

// Middleware resolves the identity once per request and stores it in the
// request context. A cookie that is present but unusable is cleared on the
// response so the browser stops sending it.
func (g *SessionGate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := g.resolve(r)
		switch {
		case err == nil:
			metrics.GateDecisions.WithLabelValues("authenticated").Inc()
			r = r.WithContext(WithIdentity(r.Context(), id))
		case errors.Is(err, errNoToken):
			metrics.GateDecisions.WithLabelValues("anonymous").Inc()
		default:
			metrics.GateDecisions.WithLabelValues(rejectReason(err)).Inc()
			g.logger.Debug(r.Context(), "rejected session token", "reason", rejectReason(err))
			ClearTokenCookie(w, g.secureCookie)
		}
		next.ServeHTTP(w, r)
	})
}

// RequireIdentity lets a request through only when Middleware has put an
// Identity in its context; otherwise it redirects to loginURL before the
// wrapped handler can touch any data.
func RequireIdentity(loginURL string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := IdentityFromContext(r.Context()); !ok {
				http.Redirect(w, r, loginURL, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, ErrTokenRevoked):
		return "revoked"
	case errors.Is(err, ErrTokenInvalid):
		return "invalid"
	default:
		return "error"
	}
}
