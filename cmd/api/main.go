package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"rollcall/internal/attendance"
	"rollcall/internal/config"
	"rollcall/internal/directory"
	"rollcall/internal/facematch"
	"rollcall/internal/httpapi"
	"rollcall/internal/httpmiddleware"
	"rollcall/internal/imagestore"
	"rollcall/internal/queue"
	"rollcall/internal/report"
	"rollcall/internal/store"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Printf("warning: db not reachable: %v", err)
	}
	defer func() {
		if db != nil {
			_ = db.Close()
		}
	}()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "rollcall:absences")
	}

	images, err := newImageStore(cfg)
	if err != nil {
		return err
	}
	matcher, err := newMatcher(cfg)
	if err != nil {
		return err
	}

	records := attendance.NewRepository(db.Client)
	dir := directory.NewRepository(db.Client)
	users := directory.NewUsers(dir, images)
	engine := attendance.NewService(images, matcher, records, q, cfg.MatchThreshold, cfg.CallTimeout)
	reports := report.NewService(records, dir)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(httpmiddleware.CORS())
	r.Use(httpmiddleware.SecurityHeaders())
	r.Use(httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	srv := &httpapi.Server{
		Engine:        engine,
		Users:         users,
		Dir:           dir,
		Reports:       reports,
		Redis:         redisClient,
		DB:            db,
		JWTIssuer:     cfg.JWTIssuer,
		JWTSigningKey: cfg.JWTSigningKey,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
	}
	srv.Register(r)

	httpSrv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("starting server on :%s (matcher=%s, images=%s)", cfg.HTTPPort, matcher.Name(), cfg.ImageBackend)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down server...")

	// Give outstanding requests 10 seconds to complete.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced shutdown: %v", err)
	}

	log.Println("server exited")
	return nil
}

func newImageStore(cfg config.App) (imagestore.Store, error) {
	if cfg.ImageBackend == "cloudinary" {
		log.Println("image store: cloudinary", cfg.CloudinaryCloudName)
		return imagestore.NewCloudinary(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder), nil
	}
	log.Printf("image store: s3 bucket %s (%s)", cfg.S3Bucket, cfg.S3Region)
	return imagestore.NewS3(cfg.S3Bucket, cfg.S3Region, cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey)
}

func newMatcher(cfg config.App) (facematch.Matcher, error) {
	if cfg.FaceBackend == "http" {
		client := facematch.NewHTTPClient(cfg.FaceServiceURL, cfg.MatchThreshold, false)
		if err := client.Health(context.Background()); err != nil {
			log.Printf("WARNING: face service not available: %v", err)
		}
		return client, nil
	}
	return facematch.NewRekognition(cfg.S3Region, cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, cfg.MatchThreshold)
}
