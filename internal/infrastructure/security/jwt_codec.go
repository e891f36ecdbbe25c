package security

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ruby/userauth-service/internal/core/domain"
)

// DefaultIssuer is stamped into the iss claim unless configured otherwise.
const DefaultIssuer = "Ruby-auth-service"

// tokenClaims is the wire form of domain.Claims.
type tokenClaims struct {
	Scope []string `json:"scope"`
	jwt.RegisteredClaims
}

// JWTCodec signs and verifies HS256 tokens with a single symmetric key.
type JWTCodec struct {
	key    []byte
	issuer string
}

// NewJWTCodec returns a codec bound to key. The key must be at least KeySize
// bytes long.
func NewJWTCodec(key []byte, issuer string) (*JWTCodec, error) {
	if len(key) < KeySize {
		return nil, fmt.Errorf("signing key must be at least %d bytes, got %d", KeySize, len(key))
	}
	if issuer == "" {
		issuer = DefaultIssuer
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &JWTCodec{key: k, issuer: issuer}, nil
}

// Encode signs claims. The codec's issuer always replaces claims.Issuer.
func (c *JWTCodec) Encode(claims domain.Claims) (string, error) {
	tc := tokenClaims{
		Scope: claims.Scope,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        claims.ID,
			Subject:   claims.Subject,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tc).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature and structure of token. Time-based claims
// are deliberately left to the caller's clock.
func (c *JWTCodec) Decode(token string) (domain.Claims, error) {
	tc := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, tc, func(t *jwt.Token) (interface{}, error) {
		return c.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return domain.Claims{}, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}
	if !parsed.Valid {
		return domain.Claims{}, domain.ErrTokenInvalid
	}

	switch {
	case tc.Issuer != c.issuer:
		return domain.Claims{}, fmt.Errorf("%w: unexpected issuer %q", domain.ErrTokenInvalid, tc.Issuer)
	case tc.Subject == "":
		return domain.Claims{}, fmt.Errorf("%w: missing subject", domain.ErrTokenInvalid)
	case tc.ExpiresAt == nil || tc.IssuedAt == nil:
		return domain.Claims{}, fmt.Errorf("%w: missing timestamps", domain.ErrTokenInvalid)
	}

	return domain.Claims{
		ID:        tc.ID,
		Subject:   tc.Subject,
		Issuer:    tc.Issuer,
		Scope:     tc.Scope,
		IssuedAt:  tc.IssuedAt.Time.UTC(),
		ExpiresAt: tc.ExpiresAt.Time.UTC(),
	}, nil
}
