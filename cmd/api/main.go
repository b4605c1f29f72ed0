package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"portfolio/internal/config"
	"portfolio/internal/database"
	"portfolio/internal/domain/auth"
	"portfolio/internal/domain/media"
	"portfolio/internal/middleware"
	jwtsvc "portfolio/internal/pkg/jwt"
	"portfolio/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	if err := db.AutoMigrate(&media.Media{}); err != nil {
		log.Fatal(err)
	}

	store, err := storage.New(cfg.Storage)
	if err != nil {
		log.Fatal(err)
	}

	j := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL)

	mediaRepo := media.NewRepository(db)
	mediaService := media.NewService(mediaRepo, store)

	dispatcher := media.NewDispatcher(mediaService, cfg.Workers)
	dispatcher.Start(context.Background())
	defer dispatcher.Stop()

	mediaHandler := media.NewHandler(mediaService, dispatcher)
	authHandler := auth.NewHandler(j, cfg.AdminEmail, cfg.AdminPasswordHash)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.CORS(), middleware.ErrorLogger())

	v1 := r.Group("/api/v1")
	{
		auth.RegisterRoutes(v1, authHandler)
		media.RegisterPublicRoutes(v1, mediaHandler)

		protected := v1.Group("/")
		protected.Use(middleware.Auth(j))
		{
			media.RegisterProtectedRoutes(protected, mediaHandler)
		}
	}

	srv := &http.Server{Addr: cfg.Addr, Handler: r}

	go func() {
		log.Printf("listening on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
}
