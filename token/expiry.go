package token

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// AccessExpiry reads the exp claim of a JWT access token without verifying its
// signature. The client cannot verify tokens; the value is informational only and is
// never used to decide when to refresh.
func AccessExpiry(raw string) (time.Time, bool) {
	claims := jwtlib.RegisteredClaims{}
	if _, _, err := jwtlib.NewParser().ParseUnverified(raw, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
