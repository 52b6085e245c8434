// Package router wires HTTP routes to their handlers and middleware.  Role
// requirements live here, next to the route definitions, so the table in
// this file is the single place to read the API's authorization rules.
package router

import (
    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"
    "github.com/redis/go-redis/v9"

    "github.com/agrilink/farm-market-api/internal/config"
    "github.com/agrilink/farm-market-api/internal/handler"
    "github.com/agrilink/farm-market-api/internal/middleware"
    "github.com/agrilink/farm-market-api/internal/repository"
    "github.com/agrilink/farm-market-api/internal/token"
)

// Handlers groups the handler sets the router mounts.
type Handlers struct {
    Auth     *handler.AuthHandler
    Products *handler.ProductHandler
    Orders   *handler.OrderHandler
}

// Register mounts every route of the API on the Echo instance.  The rdb
// client may be nil, in which case rate limiting and catalog caching are
// silently disabled.
func Register(e *echo.Echo, cfg config.Config, tokens *token.Service, h Handlers, rdb *redis.Client) {
    e.GET("/healthz", handler.Health)

    // Browsers send credentials (the refresh cookie), so the CORS layer
    // must name the origin rather than wildcard it.
    e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
        AllowOrigins:     []string{cfg.FrontendOrigin},
        AllowMethods:     []string{echo.GET, echo.POST, echo.PATCH, echo.DELETE},
        AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
        AllowCredentials: cfg.FrontendOrigin != "*",
    }))

    api := e.Group("/api")
    api.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

    // Session endpoints: no token required.  Refresh authenticates with the
    // HTTP-only cookie, never a header.
    auth := api.Group("/auth")
    auth.POST("/register", h.Auth.Register)
    auth.POST("/login", h.Auth.Login)
    auth.POST("/refresh", h.Auth.Refresh)

    guard := middleware.JWTAuth(tokens)

    api.GET("/me", h.Auth.Me, guard)

    // Public catalog, cached; everything else product-side is farmer-only.
    catalogCache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
    api.GET("/products", h.Products.Catalog, catalogCache)

    farmer := middleware.RequireRole(repository.RoleFarmer)
    api.POST("/products", h.Products.Create, guard, farmer)
    api.GET("/products/my", h.Products.ListMine, guard, farmer)
    api.PATCH("/products/:id", h.Products.Update, guard, farmer)
    api.DELETE("/products/:id", h.Products.Delete, guard, farmer)

    buyer := middleware.RequireRole(repository.RoleBuyer)
    api.POST("/orders", h.Orders.Create, guard, buyer)
    api.GET("/orders/my", h.Orders.Mine, guard, buyer)
    api.GET("/orders/incoming", h.Orders.Incoming, guard, farmer)
    api.PATCH("/orders/:id", h.Orders.UpdateStatus, guard, farmer)
    api.DELETE("/orders/:id", h.Orders.Cancel, guard, buyer)
}
