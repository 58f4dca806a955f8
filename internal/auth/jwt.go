package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the verified content of a session token. Role references arrive
// in either of the shapes RoleRef accepts, normalized during decode. They
// reflect the subject's assignment at issuance time and are not refreshed
// mid-lifetime; destructive operations must re-resolve roles from storage
// (see Authorizer).
type Claims struct {
	DisplayName string    `json:"name,omitempty"`
	Roles       []RoleRef `json:"roles"`
	jwt.RegisteredClaims
}

// SubjectID returns the subject identifier embedded in the token.
func (c *Claims) SubjectID() string {
	if c == nil {
		return ""
	}
	return c.Subject
}

// RoleNames returns the normalized role names carried by the token.
func (c *Claims) RoleNames() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.Roles))
	for _, role := range c.Roles {
		if role.Name != "" {
			names = append(names, role.Name)
		}
	}
	return names
}

var (
	// ErrMissingToken: no credential was presented at all.
	ErrMissingToken = errors.New("missing token")
	// ErrMalformedToken: the credential cannot be parsed or its signature
	// does not verify.
	ErrMalformedToken = errors.New("malformed token")
	// ErrTokenExpired: signature is valid but the expiry has passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrInvalidClaims: parseable and signed, but structurally unusable
	// (e.g. no subject id).
	ErrInvalidClaims = errors.New("invalid claims")
)

// TokenManager issues and verifies signed session tokens. Tokens are
// stateless: validity is a pure function of the signing secret, the token,
// and the clock. There is no revocation; a compromised token stays valid
// until its natural expiry. That gap is deliberate (no server-side session
// store) and is documented rather than worked around here.
type TokenManager struct {
	secret []byte
	expiry time.Duration
	issuer string
}

func NewTokenManager(secret string, expiry time.Duration, issuer string) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		expiry: expiry,
		issuer: issuer,
	}
}

// Issue produces a signed credential for the subject. Two calls at different
// instants differ at least in the issued-at claim.
func (m *TokenManager) Issue(subjectID, displayName string, roles []string, now time.Time) (string, error) {
	if subjectID == "" {
		return "", ErrInvalidClaims
	}

	refs := make([]RoleRef, 0, len(roles))
	for _, name := range NormalizeRoleNames(roles) {
		refs = append(refs, RoleRef{Name: name})
	}

	claims := &Claims{
		DisplayName: displayName,
		Roles:       refs,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify checks signature integrity and expiry against the supplied clock.
// Failure modes are distinct so callers can render the right response:
// ErrMissingToken, ErrTokenExpired, ErrMalformedToken, ErrInvalidClaims.
func (m *TokenManager) Verify(tokenString string, now time.Time) (*Claims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, ErrMissingToken
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrMalformedToken
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return now }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrMalformedToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrMalformedToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidClaims
	}
	return claims, nil
}

// Expiry returns the configured token lifetime.
func (m *TokenManager) Expiry() time.Duration {
	return m.expiry
}

// TokenFromHeader extracts the credential from an Authorization header value.
// Accepts the standard "Bearer <token>" form and, for compatibility with
// older clients, a raw token value. An empty header is ErrMissingToken,
// distinct from every invalid-token case.
func TokenFromHeader(authHeader string) (string, error) {
	header := strings.TrimSpace(authHeader)
	if header == "" {
		return "", ErrMissingToken
	}

	parts := strings.Fields(header)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1], nil
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return "", ErrMalformedToken
}
