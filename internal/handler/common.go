package handler // handler defines the HTTP handlers of the API

import (
    "errors"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/agrilink/farm-market-api/internal/middleware"
)

// getUserID extracts the authenticated user's ID from the echo context.
// JWTAuth stores it as uint64; the other branches tolerate values set by
// tests or future middleware changes.
func getUserID(c echo.Context) (uint64, error) {
    switch t := c.Get(middleware.CtxUserID).(type) {
    case uint64:
        return t, nil
    case int:
        return uint64(t), nil
    case int64:
        return uint64(t), nil
    case float64:
        return uint64(t), nil
    case string:
        if n, err := strconv.ParseUint(t, 10, 64); err == nil {
            return n, nil
        }
    }
    return 0, errors.New("invalid user_id in context")
}

// pathID parses the numeric :id path parameter.
func pathID(c echo.Context) (uint64, error) {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return 0, errors.New("invalid id")
    }
    return id, nil
}
