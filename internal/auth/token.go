package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims describes the JWT payload issued by the storefront login flows.
// SubjectID is the "id" claim; "sub" is accepted as a fallback.
type Claims struct {
	SubjectID string `json:"id,omitempty"`
	IsAdmin   bool   `json:"isAdmin,omitempty"`
	jwt.RegisteredClaims
}

// Identifier returns the subject identifier carried by the token.
func (c *Claims) Identifier() string {
	if c.SubjectID != "" {
		return c.SubjectID
	}
	return c.Subject
}

// TokenID returns the jti claim, empty for tokens minted without one.
func (c *Claims) TokenID() string {
	return c.RegisteredClaims.ID
}

// Verifier validates HS256 tokens against a single secret.
type Verifier struct {
	secret       []byte
	requireAdmin bool
	revocations  RevocationStore
	now          func() time.Time
}

// VerifierOption customizes a Verifier.
type VerifierOption func(*Verifier)

// WithRevocations rejects tokens whose jti is present in store.
func WithRevocations(store RevocationStore) VerifierOption {
	return func(v *Verifier) {
		v.revocations = store
	}
}

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) {
		v.now = now
	}
}

// NewVerifier builds a verifier for user tokens.
func NewVerifier(secret string, opts ...VerifierOption) *Verifier {
	v := &Verifier{secret: []byte(secret), now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// NewAdminVerifier builds a verifier that additionally requires isAdmin=true.
func NewAdminVerifier(secret string, opts ...VerifierOption) *Verifier {
	v := NewVerifier(secret, opts...)
	v.requireAdmin = true
	return v
}

// Verify checks signature, expiry, subject and (for admin verifiers) the
// admin flag. Failures are *Error with KindExpired, KindInvalid or
// KindAdminRequired; a revocation lookup failure is KindInternal.
func (v *Verifier) Verify(ctx context.Context, tokenStr string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		// jwt/v5 checks the signature before claims, so an expiry error
		// implies the signature was good.
		if errors.Is(err, jwt.ErrTokenExpired) && !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, newError(KindExpired, err)
		}
		return nil, newError(KindInvalid, err)
	}
	if !parsed.Valid {
		return nil, newError(KindInvalid, errors.New("token not valid"))
	}
	if claims.Identifier() == "" {
		return nil, newError(KindInvalid, errors.New("token carries no subject id"))
	}
	if v.requireAdmin && !claims.IsAdmin {
		return nil, newError(KindAdminRequired, nil)
	}

	if v.revocations != nil && claims.TokenID() != "" {
		revoked, err := v.revocations.IsRevoked(ctx, claims.TokenID())
		if err != nil {
			return nil, newError(KindInternal, fmt.Errorf("revocation lookup: %w", err))
		}
		if revoked {
			return nil, newError(KindInvalid, errors.New("token revoked"))
		}
	}
	return claims, nil
}

// Signer mints tokens in the storefront format. Production tokens are issued
// by the login service; this is used by the devtoken command and tests.
type Signer struct {
	secret []byte
	ttl    time.Duration
}

// NewSigner builds a signer.
func NewSigner(secret string, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Signer{secret: []byte(secret), ttl: ttl}
}

// SignUser mints a user token.
func (s *Signer) SignUser(userID string) (string, time.Time, error) {
	return s.sign(userID, false)
}

// SignAdmin mints an admin token.
func (s *Signer) SignAdmin(adminID string) (string, time.Time, error) {
	return s.sign(adminID, true)
}

func (s *Signer) sign(subjectID string, isAdmin bool) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.ttl)
	claims := &Claims{
		SubjectID: subjectID,
		IsAdmin:   isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subjectID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	tokenString, err := s.SignClaims(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// SignClaims signs arbitrary claims with HS256.
func (s *Signer) SignClaims(claims *Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}
