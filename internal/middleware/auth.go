package middleware // middleware provides shared request processing for handlers

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/agrilink/farm-market-api/internal/token"
)

// Context keys under which the identity claims are stored for handlers.
const (
    CtxUserID = "user_id"
    CtxEmail  = "email"
    CtxRole   = "role"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and injects the verified claims into the request context.  A request with
// no credential at all is rejected with 401; a credential that fails
// verification (bad signature or expired, not distinguished) with 403.
// The guard performs no mutation: it only accepts or rejects.
func JWTAuth(tokens *token.Service) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"message": "no token"})
            }
            raw := strings.TrimPrefix(auth, "Bearer ")

            claims, err := tokens.Verify(raw)
            if err != nil {
                return c.JSON(http.StatusForbidden, echo.Map{"message": "invalid or expired token"})
            }

            // Downstream handlers and the role gate read these via c.Get().
            c.Set(CtxUserID, claims.UserID())
            c.Set(CtxEmail, claims.Email)
            c.Set(CtxRole, claims.Role)
            return next(c)
        }
    }
}

// RequireRole returns a middleware that enforces that the authenticated
// user holds one of the given roles.  It assumes JWTAuth ran earlier and
// stored the role in the context; a missing or unknown role is rejected
// with 403.
func RequireRole(roles ...string) echo.MiddlewareFunc {
    allowed := make(map[string]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            role, ok := c.Get(CtxRole).(string)
            if !ok || !allowed[role] {
                return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
            }
            return next(c)
        }
    }
}
