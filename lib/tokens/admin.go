package tokens

import (
	"crypto/subtle"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/crypto/bcrypt"
)

// AdminTokenMiddleware guards operator endpoints with a bearer key. A bcrypt
// hash takes precedence over the plain token. With neither configured every
// request is rejected.
func AdminTokenMiddleware(token, hash string) echo.MiddlewareFunc {
	return middleware.KeyAuth(func(auth string, c echo.Context) (bool, error) {
		return CheckAdminToken(auth, token, hash), nil
	})
}

func CheckAdminToken(auth, token, hash string) bool {
	if auth == "" {
		return false
	}
	if hash != "" {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(auth)) == nil
	}
	if token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(auth), []byte(token)) == 1
}
