package main

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/learnsphere/auth-service/config"
	"github.com/learnsphere/auth-service/db"
	"github.com/learnsphere/auth-service/internal/auth/handler"
	"github.com/learnsphere/auth-service/internal/auth/notifier"
	repo "github.com/learnsphere/auth-service/internal/auth/repository/postgres"
	"github.com/learnsphere/auth-service/internal/auth/service"
)

func main() {
	cfg := config.Load()

	dbPool, err := db.NewPostgresPool(context.Background(), cfg.DBURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer dbPool.Close()

	store := repo.NewPostgresRepository(dbPool)
	tokenService := service.NewTokenService(cfg.TokenSecret, cfg.AccessExpiryMin, cfg.RefreshExpiryMin)
	userService := service.NewUserService(store, tokenService, notifier.NewLogNotifier(), cfg)
	authHandler := handler.NewAuthHandler(userService, tokenService)

	app := fiber.New()
	handler.RegisterRoutes(app, authHandler)

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("server: %v", err)
	}
}
