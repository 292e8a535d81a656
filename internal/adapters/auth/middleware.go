package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/okian/commitquest/internal/domain/model"
	"github.com/okian/commitquest/pkg/errs"
)

// SessionCookie is read when no Authorization header is present.
const SessionCookie = "commitquest_session"

type contextKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity stored by Authenticate.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok && id.UserID != uuid.Nil
}

// RoleLookup returns the current role of a user. It lets a promotion apply
// without reissuing tokens.
type RoleLookup func(ctx context.Context, userID uuid.UUID) (model.Role, error)

// ErrorWriter renders an authentication or authorization failure.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

type middlewareOptions struct {
	lookup  RoleLookup
	onError ErrorWriter
}

// MiddlewareOption configures Authenticate and RequireRole.
type MiddlewareOption func(*middlewareOptions)

// WithRoleLookup refreshes the role claim from the store on every request.
func WithRoleLookup(lookup RoleLookup) MiddlewareOption {
	return func(o *middlewareOptions) { o.lookup = lookup }
}

// WithErrorWriter replaces the default JSON error body.
func WithErrorWriter(fn ErrorWriter) MiddlewareOption {
	return func(o *middlewareOptions) {
		if fn != nil {
			o.onError = fn
		}
	}
}

func buildOptions(opts []MiddlewareOption) middlewareOptions {
	o := middlewareOptions{onError: defaultErrorWriter}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Authenticate rejects requests without a valid session token with 401.
func Authenticate(v Verifier, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	o := buildOptions(opts)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := tokenFromRequest(r)
			if raw == "" {
				o.onError(w, r, ErrMissingToken)
				return
			}
			id, err := v.Verify(raw)
			if err != nil {
				o.onError(w, r, err)
				return
			}
			if o.lookup != nil {
				role, err := o.lookup(r.Context(), id.UserID)
				if err != nil {
					if errors.Is(err, errs.ErrNotFound) {
						err = ErrInvalidToken
					}
					o.onError(w, r, err)
					return
				}
				id.Role = role
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireRole lets through only identities holding one of roles. It must run
// after Authenticate.
func RequireRole(roles []model.Role, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	o := buildOptions(opts)
	allowed := make(map[model.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := FromContext(r.Context())
			if !ok {
				o.onError(w, r, ErrMissingToken)
				return
			}
			if _, ok := allowed[id.Role]; !ok {
				o.onError(w, r, ErrInsufficientRole)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func tokenFromRequest(r *http.Request) string {
	if h := strings.TrimSpace(r.Header.Get("Authorization")); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

func defaultErrorWriter(w http.ResponseWriter, _ *http.Request, err error) {
	status, code := http.StatusUnauthorized, "unauthorized"
	if errors.Is(err, errs.ErrForbidden) {
		status, code = http.StatusForbidden, "forbidden"
	} else if !errors.Is(err, errs.ErrUnauthorized) {
		status, code = http.StatusInternalServerError, "internal"
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"code": code, "message": err.Error()})
}
