package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/agrilink/farm-market-api/internal/config"
	"github.com/agrilink/farm-market-api/internal/database"
	"github.com/agrilink/farm-market-api/internal/handler"
	"github.com/agrilink/farm-market-api/internal/queue"
	"github.com/agrilink/farm-market-api/internal/repository"
	"github.com/agrilink/farm-market-api/internal/router"
	"github.com/agrilink/farm-market-api/internal/token"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load() // exits if JWT_SECRET or DB settings are missing

	ctx := context.Background()
	db, err := database.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Optional: rate limiting and catalog caching degrade to no-ops when
	// Redis is unreachable.
	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		log.Println("redis unavailable; rate limiting and catalog cache disabled")
	} else {
		defer rdb.Close()
	}

	tokens := token.NewService(cfg.JWTSecret,
		time.Duration(cfg.AccessTTLMin)*time.Minute,
		time.Duration(cfg.RefreshTTLDays)*24*time.Hour)

	users := repository.NewUserRepo(db)
	products := repository.NewProductRepo(db)
	orders := repository.NewOrderRepo(db)

	e := echo.New()
	e.HideBanner = true
	router.Register(e, cfg, tokens, router.Handlers{
		Auth:     handler.NewAuthHandler(cfg, users, tokens),
		Products: handler.NewProductHandler(products),
		Orders:   handler.NewOrderHandler(orders, products),
	}, rdb)

	// Background consumer appending order events to logs/orders.log.  It
	// reconnects forever on its own; a missing broker never blocks the API.
	go func() {
		if err := queue.StartOrderConsumer(); err != nil {
			log.Printf("order consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	go func() {
		log.Printf("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil {
			log.Printf("server stopped: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
