package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/suman7063/Restaurant-Managment-sub002/policy"
)

const tokenIssuer = "RestaurantSessionCore"

type CustomClaims struct {
	Role         string `json:"role"`
	RestaurantID uint   `json:"restaurant_id"`
	SessionID    uint   `json:"session_id,omitempty"`
	jwt.RegisteredClaims
}

// Actor converts verified claims into the identity the policy engine sees.
func (c *CustomClaims) Actor() policy.Actor {
	return policy.Actor{
		Role:       policy.ParseRole(c.Role),
		TenantID:   c.RestaurantID,
		IdentityID: c.Subject,
	}
}

// GenerateToken signs an HS256 token for actor. sessionID is only set for
// customer tokens.
func GenerateToken(secret []byte, actor policy.Actor, sessionID uint, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &CustomClaims{
		Role:         string(actor.Role),
		RestaurantID: actor.TenantID,
		SessionID:    sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.IdentityID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func ParseToken(secret []byte, tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	}, jwt.WithIssuer(tokenIssuer))

	if err != nil || !token.Valid {
		return nil, errors.New("invalid or expired token")
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || claims.RestaurantID == 0 {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}
