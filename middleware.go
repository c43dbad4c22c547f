package adminkit

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

// DenyReason classifies a negative Decision.
type DenyReason string

const (
	DenyNone       DenyReason = ""
	DenyAccess     DenyReason = "access_denied"
	DenyPermission DenyReason = "permission_denied"
	DenyInternal   DenyReason = "internal"
)

// MatchMode selects how the permissions of a Requirement combine.
type MatchMode int

const (
	// MatchAll requires every listed permission. It is the zero value.
	MatchAll MatchMode = iota
	// MatchAny requires at least one listed permission.
	MatchAny
)

// Requirement is what a route demands of the caller.
type Requirement struct {
	Permissions []Permission
	Mode        MatchMode
	SuperAdmin  bool
}

// AnyAdmin is satisfied by every active admin.
func AnyAdmin() Requirement {
	return Requirement{}
}

// SuperAdmin is satisfied by active super admins only.
func SuperAdmin() Requirement {
	return Requirement{SuperAdmin: true}
}

// AllOf requires every permission in perms.
func AllOf(perms ...Permission) Requirement {
	return Requirement{Permissions: perms, Mode: MatchAll}
}

// AnyOf requires at least one permission in perms.
func AnyOf(perms ...Permission) Requirement {
	return Requirement{Permissions: perms, Mode: MatchAny}
}

// Decision is the outcome of one authorization check. When Allowed is false,
// Err explains why and matches one of the error kinds.
type Decision struct {
	Allowed bool
	Context *AuthorizationContext
	Reason  DenyReason
	Missing []Permission
	Err     error
}

// Authorizer enforces Requirements on requests. It resolves the principal,
// loads the admin record and evaluates the requirement against a fresh
// AuthorizationContext on every call.
type Authorizer struct {
	service      *Service
	resolver     PrincipalResolver
	logger       logrus.FieldLogger
	errorHandler func(http.ResponseWriter, *http.Request, error)
}

// AuthorizerOption configures the Authorizer.
type AuthorizerOption func(*Authorizer)

// NewAuthorizer creates a new Authorizer. Without options the principal is
// read from the request context (see WithIdentityID) and failures are
// written as JSON problem responses.
//
// Example:
//
//	authz := adminkit.NewAuthorizer(service,
//	    adminkit.WithResolver(adminkit.BearerResolver{Verifier: verifier}),
//	)
//	router.With(authz.Require(adminkit.AllOf(adminkit.PermListingsApprove))).
//	    Post("/admin/listings/{id}/approve", approveHandler)
func NewAuthorizer(service *Service, opts ...AuthorizerOption) *Authorizer {
	a := &Authorizer{
		service:      service,
		resolver:     ContextResolver{},
		logger:       service.logger,
		errorHandler: DefaultErrorHandler,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// WithResolver sets how the request principal is resolved.
func WithResolver(resolver PrincipalResolver) AuthorizerOption {
	return func(a *Authorizer) {
		a.resolver = resolver
	}
}

// WithErrorHandler sets a custom error handler for denied requests.
func WithErrorHandler(fn func(http.ResponseWriter, *http.Request, error)) AuthorizerOption {
	return func(a *Authorizer) {
		a.errorHandler = fn
	}
}

// Authorize resolves the principal of r and checks req.
func (a *Authorizer) Authorize(r *http.Request, req Requirement) Decision {
	ctx, cancel := a.lookupContext(r.Context())
	defer cancel()

	identityID, err := a.resolve(ctx, r)
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			return a.finish(ctx, "", deny(DenyAccess, err))
		}
		return a.finish(ctx, "", deny(DenyInternal, err))
	}
	return a.AuthorizeIdentity(ctx, identityID, req)
}

// lookupContext bounds principal resolution by the service lookup timeout.
func (a *Authorizer) lookupContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.service.lookupTimeout > 0 {
		return context.WithTimeout(ctx, a.service.lookupTimeout)
	}
	return ctx, func() {}
}

// resolve runs the resolver under ctx. Any failure other than
// ErrUnauthenticated is an identity provider error, and so is every failure
// once ctx has run out.
func (a *Authorizer) resolve(ctx context.Context, r *http.Request) (string, error) {
	identityID, err := a.resolver.Resolve(r.WithContext(ctx))
	switch {
	case err == nil:
		return identityID, nil
	case ctx.Err() != nil:
		return "", NewError(ErrIdentityProvider, "ResolvePrincipal").WithCause(ctx.Err())
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrInternal):
		return "", err
	}
	return "", NewError(ErrIdentityProvider, "ResolvePrincipal").WithCause(err)
}

// AuthorizeIdentity checks req for an already resolved identity.
func (a *Authorizer) AuthorizeIdentity(ctx context.Context, identityID string, req Requirement) Decision {
	if identityID == "" {
		return a.finish(ctx, identityID, deny(DenyAccess, ErrUnauthenticated))
	}

	authz, err := a.service.LoadContext(ctx, identityID)
	if err != nil {
		return a.finish(ctx, identityID, deny(DenyInternal, err))
	}
	return a.finish(ctx, identityID, Evaluate(authz, req))
}

// Evaluate decides req against an already built context. It never touches
// the store.
func Evaluate(authz *AuthorizationContext, req Requirement) Decision {
	switch {
	case authz.Record() == nil:
		return deny(DenyAccess, ErrNoAdminRecord)
	case authz.Status() != StatusActive:
		return deny(DenyAccess, ErrAdminInactive)
	case !authz.IsAdmin():
		return deny(DenyAccess, NewError(ErrAccessDenied, "admin record has an unknown role").
			WithIdentity(authz.IdentityID()))
	}

	if req.SuperAdmin && !authz.IsSuperAdmin() {
		d := deny(DenyPermission, NewError(ErrPermissionDenied, "super admin required").
			WithIdentity(authz.IdentityID()).
			WithRole(RoleSuperAdmin))
		d.Context = authz
		return d
	}

	var missing []Permission
	switch req.Mode {
	case MatchAny:
		if len(req.Permissions) > 0 && !authz.HasAny(req.Permissions...) {
			missing = append(missing, req.Permissions...)
		}
	default:
		missing = authz.Missing(req.Permissions...)
	}
	if len(missing) > 0 {
		d := deny(DenyPermission, NewError(ErrPermissionDenied, "missing required permission").
			WithIdentity(authz.IdentityID()).
			WithPermission(missing[0]))
		d.Context = authz
		d.Missing = missing
		return d
	}

	return Decision{Allowed: true, Context: authz}
}

func deny(reason DenyReason, err error) Decision {
	return Decision{Reason: reason, Err: err}
}

func (a *Authorizer) finish(ctx context.Context, identityID string, d Decision) Decision {
	a.service.metrics.recordDecision(d)
	if d.Allowed {
		return d
	}

	log := a.logger.WithFields(logrus.Fields{
		"identity_id": identityID,
		"reason":      d.Reason,
		"request_id":  GetRequestID(ctx),
	})
	if len(d.Missing) > 0 {
		log = log.WithField("missing", d.Missing)
	}
	if d.Reason == DenyInternal {
		log.WithField("error", d.Err.Error()).Error("authorization failed")
	} else {
		log.Debug("authorization denied")
	}
	return d
}

// Require creates middleware that enforces req. On success the decided
// AuthorizationContext is available to handlers through AuthorizationFrom.
//
// Example:
//
//	router.With(authz.Require(adminkit.AnyOf(adminkit.PermBookingsRefund, adminkit.PermPaymentsRefund))).
//	    Post("/admin/refunds", refundHandler)
func (a *Authorizer) Require(req Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := a.Authorize(r, req)
			if !d.Allowed {
				a.errorHandler(w, r, d.Err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAuthorization(r.Context(), d.Context)))
		})
	}
}

// RequireAdmin requires an active admin of any role.
func (a *Authorizer) RequireAdmin() func(http.Handler) http.Handler {
	return a.Require(AnyAdmin())
}

// RequireSuperAdmin requires an active super admin.
func (a *Authorizer) RequireSuperAdmin() func(http.Handler) http.Handler {
	return a.Require(SuperAdmin())
}

// RequireAll requires every permission in perms.
func (a *Authorizer) RequireAll(perms ...Permission) func(http.Handler) http.Handler {
	return a.Require(AllOf(perms...))
}

// RequireAny requires at least one permission in perms.
func (a *Authorizer) RequireAny(perms ...Permission) func(http.Handler) http.Handler {
	return a.Require(AnyOf(perms...))
}

// LoadContext creates middleware that loads the caller's AuthorizationContext
// without enforcing anything. Use this when a handler renders different
// views per permission; the handler still has to check with Has.
func (a *Authorizer) LoadContext() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := a.lookupContext(r.Context())
			identityID, err := a.resolve(ctx, r)
			cancel()
			if err != nil || identityID == "" {
				if err != nil && !errors.Is(err, ErrUnauthenticated) {
					a.logger.WithField("error", err.Error()).Warn("failed to resolve principal")
				}
				next.ServeHTTP(w, r)
				return
			}

			authz, err := a.service.LoadContext(r.Context(), identityID)
			if err != nil {
				a.logger.WithFields(logrus.Fields{
					"identity_id": identityID,
					"error":       err.Error(),
				}).Warn("failed to load authorization context")
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAuthorization(r.Context(), authz)))
		})
	}
}

// InjectAuditContext creates middleware that extracts audit information from
// the request and adds it to the context for role-management operations.
//
// Example:
//
//	router.Use(authz.InjectAuditContext())
func (a *Authorizer) InjectAuditContext() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithAuditContext(r.Context(), AuditContext{
				IPAddress: clientIP(r),
				UserAgent: r.UserAgent(),
				RequestID: r.Header.Get("X-Request-ID"),
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// Problem is the JSON body written by DefaultErrorHandler.
type Problem struct {
	Status     int        `json:"status"`
	Error      Kind       `json:"error"`
	Message    string     `json:"message"`
	Permission Permission `json:"permission,omitempty"`
}

// DefaultErrorHandler writes err as a JSON Problem. Access denials share one
// message so that callers cannot tell a missing record from an inactive one.
func DefaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	p := Problem{Error: KindOf(err)}
	switch p.Error {
	case KindAccessDenied:
		p.Status, p.Message = http.StatusForbidden, "access denied"
	case KindPermissionDenied:
		p.Status, p.Message = http.StatusForbidden, "missing required permission"
		p.Permission, _ = MissingPermission(err)
	case KindValidation:
		p.Status, p.Message = http.StatusBadRequest, err.Error()
	case KindConflict:
		p.Status, p.Message = http.StatusConflict, "admin record was modified concurrently, retry"
		w.Header().Set("Retry-After", "1")
	default:
		p.Status, p.Error, p.Message = http.StatusInternalServerError, KindInternal, "internal error"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}
