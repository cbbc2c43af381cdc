package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/seu-repo/wasteledger/internal/ports"
)

var ErrTokenRevoked = errors.New("token revoked")

// Claims are the claims the identity service puts in manager tokens.
type Claims struct {
	jwt.RegisteredClaims
	Role    string `json:"role,omitempty"`
	StoreID string `json:"store_id,omitempty"`
}

// TokenValidator checks bearer tokens issued elsewhere. Tokens are never
// minted here; revocations are read from the shared cache under
// revoked_token:{jti}, where the issuer writes them.
type TokenValidator struct {
	secret string
	issuer string
	cache  ports.Cache
	log    *zap.Logger
}

// NewTokenValidator accepts a nil cache, which disables the revocation check.
func NewTokenValidator(secret, issuer string, cache ports.Cache, log *zap.Logger) *TokenValidator {
	log.Info("JWT validation enabled", zap.String("issuer", issuer), zap.Bool("revocation_check", cache != nil))
	return &TokenValidator{
		secret: secret,
		issuer: issuer,
		cache:  cache,
		log:    log,
	}
}

func (v *TokenValidator) Validate(ctx context.Context, tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(v.secret), nil
	}, opts...)
	if err != nil {
		v.log.Debug("token validation failed", zap.Error(err))
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	if claims.ID != "" && v.isRevoked(ctx, claims.ID) {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

func (v *TokenValidator) isRevoked(ctx context.Context, tokenID string) bool {
	if v.cache == nil {
		return false
	}
	val, err := v.cache.Get(ctx, "revoked_token:"+tokenID)
	if err != nil {
		// fail open on cache errors
		if !errors.Is(err, ports.ErrCacheMiss) {
			v.log.Warn("revocation lookup failed", zap.Error(err))
		}
		return false
	}
	return val == "revoked"
}
