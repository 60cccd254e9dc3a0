package middleware

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v4"
)

type contextKey string

const adminClaimsKey contextKey = "admin_claims"

func AdminClaimsFromContext(ctx context.Context) (jwt.MapClaims, error) {
	claims, ok := ctx.Value(adminClaimsKey).(jwt.MapClaims)
	if !ok {
		return nil, errors.New("admin claims not found in context or invalid type")
	}
	return claims, nil
}
