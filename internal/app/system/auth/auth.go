package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/dalemusser/clubhub/internal/app/system/apperr"
	"github.com/gorilla/securecookie"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// CookieName is the signed identity cookie issued by the identity
// verifier in front of this service. The engine never performs logins
// itself; it only decodes and trusts this cookie.
const CookieName = "clubhub-identity"

// Identity is the trusted caller identity decoded from the cookie and
// passed explicitly into every policy and store call. There is no
// ambient current-user state anywhere else.
type Identity struct {
	UserID primitive.ObjectID
	Name   string
	Role   string // admin | member
}

// IsSiteAdmin reports whether the caller holds the site-wide admin role
// (distinct from per-group admin sets).
func (id Identity) IsSiteAdmin() bool { return id.Role == "admin" }

// identityClaims is the cookie payload.
type identityClaims struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

type ctxKey string

const identityKey ctxKey = "identity"

// Verifier decodes identity cookies.
type Verifier struct {
	sc  *securecookie.SecureCookie
	log *zap.Logger
}

// NewVerifier builds a Verifier from the shared signing key.
func NewVerifier(signingKey string, logger *zap.Logger) (*Verifier, error) {
	if signingKey == "" {
		return nil, fmt.Errorf("identity signing key is empty; provide ≥32 random chars")
	}
	if len(signingKey) < 32 {
		logger.Warn("identity signing key is short; 32+ chars recommended",
			zap.Int("length", len(signingKey)))
	}
	return &Verifier{
		sc:  securecookie.New([]byte(signingKey), nil),
		log: logger,
	}, nil
}

// Encode signs an identity into a cookie value. Used by tests and by
// trusted internal callers; the production cookie comes from the
// external identity verifier sharing the same key.
func (v *Verifier) Encode(id Identity) (string, error) {
	return v.sc.Encode(CookieName, identityClaims{
		UserID: id.UserID.Hex(),
		Name:   id.Name,
		Role:   strings.ToLower(id.Role),
	})
}

// LoadIdentity injects the caller identity into the request context when
// a valid cookie is present. Invalid or absent cookies leave the request
// anonymous; RequireSignedIn decides whether that matters.
func (v *Verifier) LoadIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(CookieName)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		var claims identityClaims
		if err := v.sc.Decode(CookieName, cookie.Value, &claims); err != nil {
			v.log.Debug("identity cookie rejected", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		uid, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			// Malformed user ID in a validly signed cookie - fail closed.
			v.log.Warn("identity cookie carries malformed user id")
			next.ServeHTTP(w, r)
			return
		}

		id := Identity{UserID: uid, Name: claims.Name, Role: strings.ToLower(claims.Role)}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, id)))
	})
}

// CurrentIdentity returns the caller identity and a found flag.
// ok=true guarantees a valid, non-nil user ObjectID.
func CurrentIdentity(r *http.Request) (Identity, bool) {
	id, ok := r.Context().Value(identityKey).(Identity)
	if !ok || id.UserID == primitive.NilObjectID {
		return Identity{}, false
	}
	return id, true
}

// WithIdentity returns a request carrying the given identity. Test helper.
func WithIdentity(r *http.Request, id Identity) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), identityKey, id))
}

// RequireSignedIn rejects anonymous requests with a 401 JSON error.
func RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentIdentity(r); !ok {
			apperr.WriteError(w, apperr.Unauthorized("sign in required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects callers whose role is not in the allowed set.
func RequireRole(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		set[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := CurrentIdentity(r)
			if !ok {
				apperr.WriteError(w, apperr.Unauthorized("sign in required"))
				return
			}
			if _, has := set[id.Role]; !has {
				apperr.WriteError(w, apperr.Forbidden("role %q may not perform this action", id.Role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
