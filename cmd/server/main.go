package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/filmreview/film-manager/internal/config"
	"github.com/filmreview/film-manager/internal/coordinator"
	"github.com/filmreview/film-manager/internal/database"
	"github.com/filmreview/film-manager/internal/handler"
	"github.com/filmreview/film-manager/internal/middleware"
	"github.com/filmreview/film-manager/internal/presence"
	"github.com/filmreview/film-manager/internal/queue"
	"github.com/filmreview/film-manager/internal/repository"
	"github.com/filmreview/film-manager/internal/router"
	"github.com/filmreview/film-manager/internal/service/status_publisher"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	rlCfg := config.LoadRateLimitConfig()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient() // nil when Redis is unreachable; degraded mode

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	films := repository.NewFilmRepo(db)
	reviews := repository.NewReviewRepo(db)
	selections := repository.NewSelectionRepo(db)

	hub := presence.NewHub(cfg.ReplayOnConnect)
	defer hub.Close()

	view := queue.NewStatusView()
	go queue.StartBridge(view)

	publisher := status_publisher.New(rdb)

	// Seed the status channel from storage so watchers that connect before
	// any selection happens still see the current holders.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		sels, err := selections.FilmSelections(ctx)
		if err != nil {
			log.Printf("initial selections load failed: %v", err)
			return
		}
		publisher.PublishInitialSelections(ctx, sels)
	}()

	coord := coordinator.New(selections, hub, publisher)

	authH := handler.NewAuthHandler(cfg, users, tokens, selections, hub)
	userH := handler.NewUserHandler(users)
	filmH := handler.NewFilmHandler(films, publisher)
	reviewH := handler.NewReviewHandler(reviews)
	selectH := handler.NewSelectionHandler(coord)
	wsH := handler.NewWSHandler(hub)
	statusH := handler.NewStatusHandler(view, rdb, hub)

	e := echo.New()
	limiter := middleware.NewTokenBucket(rlCfg, rdb)
	router.RegisterRoutes(e, wsH, statusH)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterAPI(e, cfg.JWTSecret, limiter, userH, filmH, reviewH, selectH)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
