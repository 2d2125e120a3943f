package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/golang-jwt/jwt/v5"

	pkgmw "github.com/utafrali/customerdash/pkg/middleware"
)

var errNoUserClaim = errors.New("token carries no user_id or sub claim")

// JWTValidator verifies HS256 tokens signed with secret. The user
// id comes from the user_id claim, falling back to sub.
func JWTValidator(secret string, logger *slog.Logger) pkgmw.TokenValidator {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	return func(tokenString string) (*pkgmw.Claims, error) {
		claims := jwt.MapClaims{}
		_, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
			return []byte(secret), nil
		})
		if err != nil {
			logger.Warn("invalid JWT token", slog.String("error", err.Error()))
			return nil, err
		}

		userID, _ := claims["user_id"].(string)
		if userID == "" {
			userID, _ = claims["sub"].(string)
		}
		if userID == "" {
			return nil, errNoUserClaim
		}

		return &pkgmw.Claims{UserID: userID}, nil
	}
}

// CurrentUser resolves the viewing customer from a bearer token or the
// auth cookie. Requests without a token pass through anonymously; an
// invalid token is rejected with 401.
func CurrentUser(secret, cookieName string, logger *slog.Logger) func(http.Handler) http.Handler {
	return pkgmw.Auth(JWTValidator(secret, logger), pkgmw.AuthOptions{
		CookieName: cookieName,
		Optional:   true,
	})
}
