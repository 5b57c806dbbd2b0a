package auth

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gopkg.in/yaml.v3"
)

// Fixed CORS allow-lists sent with every allowed origin.
const (
	AllowedMethods = "GET,HEAD,PUT,PATCH,POST,DELETE,OPTIONS"
	AllowedHeaders = "Content-Type, Authorization, X-Requested-With, Accept, Origin"
)

const preflightMaxAge = "86400"

// OriginPolicy is the static origin configuration: exact origins plus
// anchored regular expressions.
type OriginPolicy struct {
	Origins  []string `yaml:"origins"`
	Patterns []string `yaml:"patterns"`
}

// DefaultOriginPolicy lists the production and staging storefront and admin
// console origins. Patterns cover preview deployments, brand subdomains and
// local development.
func DefaultOriginPolicy() OriginPolicy {
	return OriginPolicy{
		Origins: []string{
			"https://kallkeyy.vercel.app",
			"https://kallkeyy-admin.vercel.app",
			"https://kallkeyy.com",
			"https://www.kallkeyy.com",
			"https://admin.kallkeyy.com",
		},
		Patterns: []string{
			`^https://kallkeyy(-[a-z0-9-]+)?\.vercel\.app$`,
			`^https://([a-z0-9-]+\.)+kallkeyy\.com$`,
			`^http://localhost(:[0-9]{1,5})?$`,
			`^http://127\.0\.0\.1(:[0-9]{1,5})?$`,
		},
	}
}

// LoadOriginPolicy reads a YAML policy file. The file replaces the default
// policy entirely.
func LoadOriginPolicy(path string) (OriginPolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return OriginPolicy{}, fmt.Errorf("read cors policy: %w", err)
	}

	var policy OriginPolicy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return OriginPolicy{}, fmt.Errorf("invalid cors policy yaml: %w", err)
	}
	if len(policy.Origins) == 0 && len(policy.Patterns) == 0 {
		return OriginPolicy{}, fmt.Errorf("cors policy %s allows no origins", path)
	}
	return policy, nil
}

// OriginDecision is the per-request CORS outcome.
type OriginDecision struct {
	Allowed bool
	Origin  string
}

// CORSResolver decides which declared origins receive credentialed CORS
// headers. It is immutable after construction and safe for concurrent use.
type CORSResolver struct {
	exact    map[string]struct{}
	patterns []*regexp.Regexp
}

// NewCORSResolver validates and compiles policy. Exact origins must not be
// wildcards and patterns must be anchored.
func NewCORSResolver(policy OriginPolicy) (*CORSResolver, error) {
	r := &CORSResolver{exact: make(map[string]struct{}, len(policy.Origins))}
	for _, origin := range policy.Origins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "" {
			continue
		}
		if strings.Contains(origin, "*") {
			return nil, fmt.Errorf("cors origin %q: wildcards are not allowed with credentials", origin)
		}
		r.exact[origin] = struct{}{}
	}
	for _, expr := range policy.Patterns {
		if !strings.HasPrefix(expr, "^") || !strings.HasSuffix(expr, "$") {
			return nil, fmt.Errorf("cors pattern %q must be anchored with ^ and $", expr)
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("cors pattern %q: %w", expr, err)
		}
		r.patterns = append(r.patterns, re)
	}
	return r, nil
}

// Resolve decides for a declared origin. An empty origin is never allowed
// and never emits headers.
func (r *CORSResolver) Resolve(origin string) OriginDecision {
	if origin == "" {
		return OriginDecision{}
	}
	if _, ok := r.exact[origin]; ok {
		return OriginDecision{Allowed: true, Origin: origin}
	}
	for _, re := range r.patterns {
		if re.MatchString(origin) {
			return OriginDecision{Allowed: true, Origin: origin}
		}
	}
	return OriginDecision{Origin: origin}
}

// Apply writes CORS headers for the request's Origin onto the response.
// Denied and empty origins get only Vary: Origin.
func (r *CORSResolver) Apply(c *fiber.Ctx) OriginDecision {
	decision := r.Resolve(c.Get(fiber.HeaderOrigin))
	c.Vary(fiber.HeaderOrigin)
	if !decision.Allowed {
		return decision
	}
	c.Set(fiber.HeaderAccessControlAllowOrigin, decision.Origin)
	c.Set(fiber.HeaderAccessControlAllowCredentials, "true")
	c.Set(fiber.HeaderAccessControlAllowMethods, AllowedMethods)
	c.Set(fiber.HeaderAccessControlAllowHeaders, AllowedHeaders)
	return decision
}

// Middleware applies the resolver at the edge of the server and answers
// preflight requests.
func (r *CORSResolver) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		decision := r.Apply(c)
		if c.Method() == fiber.MethodOptions && c.Get(fiber.HeaderAccessControlRequestMethod) != "" {
			if decision.Allowed {
				c.Set(fiber.HeaderAccessControlMaxAge, preflightMaxAge)
			}
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.Next()
	}
}
