package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// TokenSource records where a credential was found.
type TokenSource int

const (
	SourceHeader TokenSource = iota + 1
	SourceCookie
)

func (s TokenSource) String() string {
	if s == SourceCookie {
		return "cookie"
	}
	return "header"
}

// Token is a raw credential taken from the request.
type Token struct {
	Value  string
	Source TokenSource
}

// ExtractToken prefers an "Authorization: Bearer" header and falls back to
// the named cookie of the identity domain.
func ExtractToken(c *fiber.Ctx, cookieName string) (Token, bool) {
	if value, ok := bearerToken(c.Get(fiber.HeaderAuthorization)); ok {
		return Token{Value: value, Source: SourceHeader}, true
	}
	if cookieName != "" {
		if value := strings.TrimSpace(c.Cookies(cookieName)); value != "" {
			return Token{Value: value, Source: SourceCookie}, true
		}
	}
	return Token{}, false
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
