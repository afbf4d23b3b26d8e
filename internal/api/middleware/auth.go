package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// JWTAuth verifies the Bearer token and stashes the caller's identity on the
// echo context under "user_id" and "role". Tokens are HS256 with the shared
// secret; anything else is rejected.
func JWTAuth(secret string) echo.MiddlewareFunc {
	secretBytes := []byte(secret)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if header == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "missing authorization header"})
			}

			tokenStr := strings.TrimPrefix(header, "Bearer ")
			if tokenStr == header {
				return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "malformed authorization header"})
			}

			token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return secretBytes, nil
			})
			if err != nil || !token.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "invalid token"})
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "invalid token claims"})
			}

			userID, _ := claims["sub"].(string)
			if userID == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "token missing subject"})
			}
			role, _ := claims["role"].(string)

			c.Set("user_id", userID)
			c.Set("role", role)

			return next(c)
		}
	}
}

// RequireRoles ensures the requester's role is one of the allowed roles.
// Usage: route(..., RequireRoles("admin"))
func RequireRoles(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get("role").(string)
			if role == "" {
				return c.JSON(http.StatusForbidden, echo.Map{"success": false, "error": "role missing"})
			}

			for _, r := range roles {
				if role == r {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, echo.Map{"success": false, "error": "access denied"})
		}
	}
}
