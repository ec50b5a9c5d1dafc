// Package auth issues and verifies HS256 operator tokens for the station's
// mutating API routes.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Roles.
const (
	RoleViewer   = "viewer"
	RoleOperator = "operator"
)

// DefaultIssuer is the iss claim of station tokens.
const DefaultIssuer = "go-mecanum"

// Sentinel errors for common error conditions.
var (
	// ErrNoSecret is returned when an Issuer or Verifier is built without a secret.
	ErrNoSecret = errors.New("auth: secret required")

	// ErrInvalidToken is returned for malformed, expired or foreign tokens.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrForbidden is returned when a valid token lacks the required role.
	ErrForbidden = errors.New("auth: insufficient role")
)

// Claims are the station token claims.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Issuer signs tokens.
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an issuer whose tokens expire after ttl.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	return &Issuer{secret: []byte(secret), issuer: DefaultIssuer, ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for subject with role.
func (i *Issuer) Issue(subject, role string) (string, error) {
	now := i.now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign: %w", err)
	}
	return signed, nil
}

// Verifier checks tokens signed by an Issuer with the same secret.
type Verifier struct {
	secret []byte
	issuer string
}

// NewVerifier creates a verifier for secret.
func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	return &Verifier{secret: []byte(secret), issuer: DefaultIssuer}, nil
}

// Verify parses and validates a token.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidToken)
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// HasRole reports whether the claims grant role. Operators may do anything
// viewers can.
func (c *Claims) HasRole(role string) bool {
	if c.Role == role {
		return true
	}
	return role == RoleViewer && c.Role == RoleOperator
}

// claimsKey is the fiber Locals key holding verified claims.
const claimsKey = "auth.claims"

// Require returns middleware that admits requests bearing a valid token with role.
func (v *Verifier) Require(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "bearer token required"})
		}
		claims, err := v.Verify(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
		}
		if !claims.HasRole(role) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": ErrForbidden.Error()})
		}
		c.Locals(claimsKey, claims)
		return c.Next()
	}
}

// FromContext returns the claims stored by Require, if any.
func FromContext(c *fiber.Ctx) (*Claims, bool) {
	claims, ok := c.Locals(claimsKey).(*Claims)
	return claims, ok
}
