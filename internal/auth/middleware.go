package auth

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/kallkeyy/storefront-api/internal/domain"
	"github.com/kallkeyy/storefront-api/internal/observability"
	apperrors "github.com/kallkeyy/storefront-api/pkg/util/errorutil"
)

// RejectionRecorder counts rejected requests.
type RejectionRecorder interface {
	RecordAuthRejection(domain, kind string)
}

// CookieConfig names the identity cookie of a domain and the attributes
// needed to expire it.
type CookieConfig struct {
	Name     string
	Domain   string
	Secure   bool
	SameSite string
}

var userMessages = map[Kind]string{
	KindMissing:  "No authentication token, access denied",
	KindExpired:  "Session expired. Please login again.",
	KindInvalid:  "Token is not valid",
	KindNotFound: "User not found",
}

var adminMessages = map[Kind]string{
	KindMissing:       "Access denied. Admin authentication required.",
	KindExpired:       "Session expired. Please login again.",
	KindInvalid:       "Invalid authentication token.",
	KindAdminRequired: "Access denied. Admin privileges required.",
	KindNotFound:      "Admin not found. Please login again.",
	KindDeactivated:   "Your admin account has been deactivated.",
}

// pipeline holds what both identity domains share: extraction, verification,
// CORS on rejection, cookie clearing and the response envelope.
type pipeline struct {
	domain      domain.Domain
	cookie      CookieConfig
	verifier    *Verifier
	cors        *CORSResolver
	revocations RevocationStore
	logger      *zap.Logger
	metrics     RejectionRecorder
	messages    map[Kind]string
	// envelope adds the admin console's "success" field to bodies.
	envelope bool
}

// Dependencies wires a pipeline.
type Dependencies struct {
	Verifier    *Verifier
	CORS        *CORSResolver
	Cookie      CookieConfig
	Revocations RevocationStore
	Logger      *zap.Logger
	Metrics     RejectionRecorder
}

func newPipeline(d domain.Domain, deps Dependencies, messages map[Kind]string, envelope bool) pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return pipeline{
		domain:      d,
		cookie:      deps.Cookie,
		verifier:    deps.Verifier,
		cors:        deps.CORS,
		revocations: deps.Revocations,
		logger:      logger.With(zap.String("component", "auth"), zap.String("domain", string(d))),
		metrics:     deps.Metrics,
		messages:    messages,
		envelope:    envelope,
	}
}

// authenticate extracts and verifies the credential. The returned token is
// nil when no credential was presented.
func (p *pipeline) authenticate(c *fiber.Ctx) (*Token, *Claims, error) {
	tok, ok := ExtractToken(c, p.cookie.Name)
	if !ok {
		return nil, nil, newError(KindMissing, nil)
	}
	claims, err := p.verifier.Verify(c.UserContext(), tok.Value)
	if err != nil {
		return &tok, nil, err
	}
	return &tok, claims, nil
}

func (p *pipeline) reject(c *fiber.Ctx, tok *Token, err error) error {
	kind := KindOf(err)
	p.cors.Apply(c)

	if tok != nil && tok.Source == SourceCookie && clearsCookie(kind) {
		p.clearCookie(c)
	}

	fields := []zap.Field{
		zap.String("kind", kind.String()),
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.String("request_id", observability.RequestID(c)),
		zap.Error(err),
	}
	if tok != nil {
		fields = append(fields, zap.Stringer("token_source", tok.Source))
	}
	if kind == KindInternal {
		p.logger.Error("auth pipeline failure", fields...)
	} else {
		p.logger.Debug("request rejected", fields...)
	}
	if p.metrics != nil {
		p.metrics.RecordAuthRejection(string(p.domain), kind.String())
	}

	return c.Status(kind.Status()).JSON(p.body(false, p.message(kind, err)))
}

// clearsCookie lists the verification failures that mean the stored cookie
// can never succeed again.
func clearsCookie(kind Kind) bool {
	switch kind {
	case KindExpired, KindInvalid, KindAdminRequired:
		return true
	}
	return false
}

func (p *pipeline) message(kind Kind, err error) string {
	var authErr *Error
	if errors.As(err, &authErr) && authErr.Detail != "" {
		return authErr.Detail
	}
	if msg, ok := p.messages[kind]; ok {
		return msg
	}
	return p.messages[KindInvalid]
}

func (p *pipeline) body(success bool, message string) fiber.Map {
	if p.envelope {
		return fiber.Map{"success": success, "message": message}
	}
	return fiber.Map{"message": message}
}

func (p *pipeline) clearCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     p.cookie.Name,
		Value:    "",
		Path:     "/",
		Domain:   p.cookie.Domain,
		Expires:  time.Unix(0, 0),
		Secure:   p.cookie.Secure,
		HTTPOnly: true,
		SameSite: p.cookie.SameSite,
	})
}

// Logout revokes the bound token when revocation is enabled and clears the
// identity cookie. It must run behind the domain's Handle.
func (p *pipeline) Logout(c *fiber.Ctx) error {
	if principal, ok := PrincipalFromContext(c); ok && p.revocations != nil {
		err := RevokeClaims(c.UserContext(), p.revocations, principal.Claims)
		if err != nil && !errors.Is(err, ErrNotRevocable) {
			return apperrors.NewInternalError(err)
		}
	}
	p.clearCookie(c)
	return c.JSON(p.body(true, "Logged out successfully"))
}

// UserAuth authenticates storefront customers.
type UserAuth struct {
	pipeline
	users *UserResolver
}

// NewUserAuth builds the user pipeline.
func NewUserAuth(deps Dependencies, users *UserResolver) *UserAuth {
	return &UserAuth{pipeline: newPipeline(domain.DomainUser, deps, userMessages, false), users: users}
}

// Handle enforces user authentication for protected routes.
func (m *UserAuth) Handle(c *fiber.Ctx) error {
	tok, claims, err := m.authenticate(c)
	if err != nil {
		return m.reject(c, tok, err)
	}

	user, err := m.users.Resolve(c.UserContext(), claims)
	if err != nil {
		return m.reject(c, tok, err)
	}

	Bind(c, &Principal{Domain: domain.DomainUser, ID: user.ID, User: user, Claims: claims})
	return c.Next()
}

// AdminAuth authenticates admin console operators.
type AdminAuth struct {
	pipeline
	admins *AdminResolver
}

// NewAdminAuth builds the admin pipeline. deps.Verifier should come from
// NewAdminVerifier.
func NewAdminAuth(deps Dependencies, admins *AdminResolver) *AdminAuth {
	return &AdminAuth{pipeline: newPipeline(domain.DomainAdmin, deps, adminMessages, true), admins: admins}
}

// Handle enforces admin authentication for protected routes.
func (m *AdminAuth) Handle(c *fiber.Ctx) error {
	tok, claims, err := m.authenticate(c)
	if err != nil {
		return m.reject(c, tok, err)
	}

	admin, err := m.admins.Resolve(c.UserContext(), claims)
	if err != nil {
		return m.reject(c, tok, err)
	}

	Bind(c, &Principal{Domain: domain.DomainAdmin, ID: admin.ID, Admin: admin, Claims: claims})
	return c.Next()
}

// Require gates a route on the given roles. It must run after Handle.
func (m *AdminAuth) Require(roles RoleSet) fiber.Handler {
	return func(c *fiber.Ctx) error {
		admin, ok := AdminFromContext(c)
		if !ok {
			return m.reject(c, nil, newError(KindMissing, nil))
		}
		if err := Authorize(admin, roles); err != nil {
			return m.reject(c, nil, err)
		}
		return c.Next()
	}
}
