package handler

import (
    "context"
    "database/sql"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/agrilink/farm-market-api/internal/config"
    "github.com/agrilink/farm-market-api/internal/repository"
    "github.com/agrilink/farm-market-api/internal/token"
)

// refreshCookieName is the HTTP-only cookie carrying the refresh token.
// It is scoped to the auth routes so it never travels with API calls.
const refreshCookieName = "refresh_token"

// AuthHandler bundles dependencies for the auth endpoints.
type AuthHandler struct {
    Cfg    config.Config
    Users  *repository.UserRepo
    Tokens *token.Service
}

func NewAuthHandler(cfg config.Config, users *repository.UserRepo, tokens *token.Service) *AuthHandler {
    return &AuthHandler{Cfg: cfg, Users: users, Tokens: tokens}
}

// ----- DTOs -----

type registerReq struct {
    Name     string `json:"name"`
    Email    string `json:"email"`
    Password string `json:"password"`
    Role     string `json:"role"` // buyer | farmer
}
type loginReq struct {
    Email    string `json:"email"`
    Password string `json:"password"`
}

// userPart is the password-stripped user projection returned to clients.
type userPart struct {
    ID    uint64 `json:"id"`
    Name  string `json:"name"`
    Email string `json:"email"`
    Role  string `json:"role"`
}

// setRefreshCookie attaches the refresh token as an HTTP-only, SameSite=Lax
// cookie.  Secure is only set in production-like environments so local
// development over plain HTTP keeps working.
func (h *AuthHandler) setRefreshCookie(c echo.Context, raw string) {
    c.SetCookie(&http.Cookie{
        Name:     refreshCookieName,
        Value:    raw,
        Path:     "/api/auth",
        MaxAge:   h.Cfg.RefreshTTLDays * 24 * 60 * 60,
        HttpOnly: true,
        SameSite: http.SameSiteLaxMode,
        Secure:   h.Cfg.Env == "prod",
    })
}

// Register: create user, return the access token and set the refresh cookie.
func (h *AuthHandler) Register(c echo.Context) error {
    var req registerReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
    }
    req.Name = strings.TrimSpace(req.Name)
    req.Email = strings.ToLower(strings.TrimSpace(req.Email))
    if req.Name == "" || req.Email == "" || req.Password == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "name, email and password are required"})
    }
    // Only an explicit farmer request grants the farmer role.
    role := repository.RoleBuyer
    if strings.ToLower(strings.TrimSpace(req.Role)) == repository.RoleFarmer {
        role = repository.RoleFarmer
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    uid, err := h.Users.Create(ctx, req.Name, req.Email, req.Password, role, h.Cfg.BcryptCost)
    if err != nil {
        if err == repository.ErrEmailExists {
            return c.JSON(http.StatusBadRequest, echo.Map{"message": "email already registered"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"message": "create user failed"})
    }

    access, _, err := h.Tokens.IssueAccess(uid, req.Email, role)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"message": "issue token failed"})
    }
    refresh, _, err := h.Tokens.IssueRefresh(uid, req.Email, role)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"message": "issue token failed"})
    }
    h.setRefreshCookie(c, refresh)

    return c.JSON(http.StatusCreated, echo.Map{
        "token": access,
        "user":  userPart{ID: uid, Name: req.Name, Email: req.Email, Role: role},
    })
}

// Login: verify credentials, return a fresh token pair.  Unknown email and
// wrong password produce the same message on purpose.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
    }
    req.Email = strings.ToLower(strings.TrimSpace(req.Email))
    if req.Email == "" || req.Password == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "email and password are required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    u, err := h.Users.GetByEmail(ctx, req.Email)
    if err != nil {
        if err == sql.ErrNoRows {
            return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid credentials"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"message": "query failed"})
    }
    if !repository.VerifyPassword(u.PasswordHash, req.Password) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid credentials"})
    }

    access, _, err := h.Tokens.IssueAccess(u.ID, u.Email, u.Role)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"message": "issue token failed"})
    }
    refresh, _, err := h.Tokens.IssueRefresh(u.ID, u.Email, u.Role)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"message": "issue token failed"})
    }
    h.setRefreshCookie(c, refresh)

    return c.JSON(http.StatusOK, echo.Map{
        "token": access,
        "user":  userPart{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role},
    })
}

// Refresh: mint a new access token from the refresh cookie.  The refresh
// token itself is not rotated.  The cookie is the only accepted carrier;
// refresh tokens in the Authorization header are ignored.
func (h *AuthHandler) Refresh(c echo.Context) error {
    cookie, err := c.Cookie(refreshCookieName)
    if err != nil || cookie.Value == "" {
        return c.JSON(http.StatusUnauthorized, echo.Map{"message": "no refresh token"})
    }

    claims, err := h.Tokens.Verify(cookie.Value)
    if err != nil {
        return c.JSON(http.StatusForbidden, echo.Map{"message": "invalid or expired refresh token"})
    }

    access, _, err := h.Tokens.IssueAccess(claims.UserID(), claims.Email, claims.Role)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"message": "issue token failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"token": access})
}

// Me returns the authenticated user's profile without the password hash.
func (h *AuthHandler) Me(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    u, err := h.Users.GetByID(ctx, uid)
    if err != nil {
        if err == sql.ErrNoRows {
            return c.JSON(http.StatusNotFound, echo.Map{"message": "user not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"message": "query failed"})
    }
    return c.JSON(http.StatusOK, userPart{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role})
}
