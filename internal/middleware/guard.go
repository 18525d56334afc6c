package middleware

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"saasbackend/internal/rbac"
	"saasbackend/internal/token"
	"saasbackend/pkg/response"
)

// Access is what the gates of one request have established so far.
type Access struct {
	Claims    *token.Claims
	Principal *rbac.Principal
}

// Outcome is a short-circuit decision. A gate returning a non-nil Outcome
// stops the chain and the request never reaches its handler.
type Outcome struct {
	Status  int
	Kind    string
	Message string
}

// Gate is one step of a guard chain.
type Gate struct {
	Name  string
	Check func(r *http.Request, acc Access) (Access, *Outcome)
}

// Guard authenticates bearer tokens and authorizes principals against the
// access matrix.
type Guard struct {
	codec    *token.Codec
	resolver *rbac.Resolver
	engine   *rbac.Engine
	log      logrus.FieldLogger
	metrics  *Metrics
}

// NewGuard builds a guard. metrics may be nil.
func NewGuard(codec *token.Codec, resolver *rbac.Resolver, engine *rbac.Engine, log logrus.FieldLogger, metrics *Metrics) *Guard {
	return &Guard{codec: codec, resolver: resolver, engine: engine, log: log, metrics: metrics}
}

// Protect runs gates in order and, when all pass, hands the request to the
// next handler with the principal in its context. Authenticate is prepended
// when the chain does not start with it.
func (g *Guard) Protect(gates ...Gate) gin.HandlerFunc {
	if len(gates) == 0 || gates[0].Name != gateAuthenticate {
		gates = append([]Gate{g.Authenticate()}, gates...)
	}

	return func(c *gin.Context) {
		acc, out := g.Run(c.Request, gates...)
		if out != nil {
			response.Abort(c, out.Status, out.Message)
			return
		}

		ctx := withClaims(c.Request.Context(), *acc.Claims)
		ctx = WithPrincipal(ctx, *acc.Principal)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// Run evaluates gates against r. On success the returned Access always holds
// both claims and a resolved principal.
func (g *Guard) Run(r *http.Request, gates ...Gate) (Access, *Outcome) {
	var acc Access
	for _, gate := range gates {
		next, out := gate.Check(r, acc)
		if out != nil {
			g.metrics.observe(gate.Name, out.Kind)
			return acc, out
		}
		g.metrics.observe(gate.Name, OutcomeAllow)
		acc = next
	}

	acc, out := g.resolve(r.Context(), acc)
	if out != nil {
		g.metrics.observe(gateResolve, out.Kind)
	}
	return acc, out
}

// Identify verifies a raw token and resolves its principal, for callers that
// do not receive it in an Authorization header.
func (g *Guard) Identify(ctx context.Context, raw string) (rbac.Principal, error) {
	claims, err := g.codec.Verify(raw)
	if err != nil {
		return rbac.Principal{}, err
	}
	res, err := g.resolver.Resolve(ctx, claims)
	if err != nil {
		return rbac.Principal{}, err
	}
	return rbac.NewPrincipal(claims, res), nil
}

const (
	gateAuthenticate = "authenticate"
	gateKind         = "kind"
	gateRole         = "role"
	gatePermission   = "permission"
	gateResolve      = "resolve"
)

// Authenticate verifies the bearer token of the request.
func (g *Guard) Authenticate() Gate {
	return Gate{Name: gateAuthenticate, Check: func(r *http.Request, acc Access) (Access, *Outcome) {
		header := r.Header.Get("Authorization")
		if header == "" {
			return acc, unauthenticated("Authorization token is missing")
		}
		raw, ok := bearerToken(header)
		if !ok {
			return acc, unauthenticated("Invalid authorization header format")
		}

		claims, err := g.codec.Verify(raw)
		if err != nil {
			reason := "malformed"
			if errors.Is(err, token.ErrTokenExpired) {
				reason = "expired"
			}
			g.log.WithError(err).WithField("reason", reason).Debug("token rejected")
			return acc, unauthenticated("Invalid or expired token")
		}

		acc.Claims = claims
		acc.Principal = nil
		return acc, nil
	}}
}

// RequireKind admits only the listed principal kinds.
func (g *Guard) RequireKind(kinds ...token.PrincipalKind) Gate {
	return Gate{Name: gateKind, Check: func(r *http.Request, acc Access) (Access, *Outcome) {
		if acc.Claims == nil {
			return acc, unauthenticated("Authentication required")
		}
		if !slices.Contains(kinds, acc.Claims.Kind) {
			g.log.WithFields(logrus.Fields{"kind": acc.Claims.Kind, "subject": acc.Claims.SubjectID}).Info("principal kind rejected")
			return acc, forbidden("Unauthorized access")
		}
		return acc, nil
	}}
}

// RequireRole admits principals whose resolved role is one of roles.
func (g *Guard) RequireRole(roles ...rbac.Role) Gate {
	return Gate{Name: gateRole, Check: func(r *http.Request, acc Access) (Access, *Outcome) {
		acc, out := g.resolve(r.Context(), acc)
		if out != nil {
			return acc, out
		}
		if !slices.Contains(roles, acc.Principal.Role) {
			err := &rbac.DeniedError{Role: acc.Principal.Role, Allowed: roles}
			g.log.WithFields(logrus.Fields{"role": acc.Principal.Role, "subject": acc.Principal.SubjectID}).Info("role rejected")
			return acc, forbidden(err.Error())
		}
		return acc, nil
	}}
}

// RequirePermission admits principals whose role may perform action on resource.
func (g *Guard) RequirePermission(resource, action string) Gate {
	return Gate{Name: gatePermission, Check: func(r *http.Request, acc Access) (Access, *Outcome) {
		acc, out := g.resolve(r.Context(), acc)
		if out != nil {
			return acc, out
		}

		p := acc.Principal
		err := g.engine.Authorize(r.Context(), p.Role, p.TenantID, resource, action)
		var denied *rbac.DeniedError
		switch {
		case err == nil:
			return acc, nil
		case errors.As(err, &denied):
			g.log.WithFields(logrus.Fields{
				"role":     p.Role,
				"resource": resource,
				"action":   action,
				"subject":  p.SubjectID,
			}).Info("permission denied")
			return acc, forbidden(denied.Error())
		default:
			g.log.WithError(err).WithFields(logrus.Fields{"resource": resource, "action": action}).Error("permission check failed")
			return acc, &Outcome{Status: http.StatusInternalServerError, Kind: OutcomeError, Message: "Failed to verify permissions"}
		}
	}}
}

// resolve fills acc.Principal from the verified claims once per request.
func (g *Guard) resolve(ctx context.Context, acc Access) (Access, *Outcome) {
	if acc.Claims == nil {
		return acc, unauthenticated("Authentication required")
	}
	if acc.Principal != nil {
		return acc, nil
	}

	res, err := g.resolver.Resolve(ctx, acc.Claims)
	if err != nil {
		if errors.Is(err, rbac.ErrRoleUnresolvable) {
			g.log.WithError(err).WithField("subject", acc.Claims.SubjectID).Info("role unresolvable")
			return acc, forbidden("Unable to determine user role")
		}
		g.log.WithError(err).Error("role resolution failed")
		return acc, &Outcome{Status: http.StatusInternalServerError, Kind: OutcomeError, Message: "Failed to resolve user role"}
	}

	p := rbac.NewPrincipal(acc.Claims, res)
	acc.Principal = &p
	return acc, nil
}

func bearerToken(header string) (string, bool) {
	scheme, raw, ok := strings.Cut(header, " ")
	raw = strings.TrimSpace(raw)
	if !ok || !strings.EqualFold(scheme, "Bearer") || raw == "" {
		return "", false
	}
	return raw, true
}

func unauthenticated(msg string) *Outcome {
	return &Outcome{Status: http.StatusUnauthorized, Kind: OutcomeUnauthenticated, Message: msg}
}

func forbidden(msg string) *Outcome {
	return &Outcome{Status: http.StatusForbidden, Kind: OutcomeForbidden, Message: msg}
}
