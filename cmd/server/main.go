package main

import (
	"context"
	"encoding/base64"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/webstream-tools/pwi-gateway/internal/api"
	"github.com/webstream-tools/pwi-gateway/internal/browser"
	"github.com/webstream-tools/pwi-gateway/internal/imagehost"
	"github.com/webstream-tools/pwi-gateway/internal/portal"
	"github.com/webstream-tools/pwi-gateway/internal/ratelimit"
	"github.com/webstream-tools/pwi-gateway/internal/scrape"
	"github.com/webstream-tools/pwi-gateway/internal/session"
	"github.com/webstream-tools/pwi-gateway/internal/static"
	"github.com/webstream-tools/pwi-gateway/internal/store"
	"github.com/webstream-tools/pwi-gateway/internal/vault"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	log.Println("Starting PWI Gateway...")

	addr := envOr("LISTEN_ADDR", ":8080")
	portalURL := envOr("PORTAL_BASE_URL", portal.DefaultBaseURL)
	redisAddr := envOr("REDIS_ADDR", "localhost:6379")
	redisPassword := os.Getenv("REDIS_PASSWORD")
	headless := envOr("HEADLESS", "true") != "false"

	vaultKey, err := base64.StdEncoding.DecodeString(os.Getenv("VAULT_KEY"))
	if err != nil || len(vaultKey) != 32 {
		log.Fatal("VAULT_KEY must be 32 bytes, base64 encoded")
	}

	// One shared browser process for the service's lifetime
	pool, err := browser.Launch(headless)
	if err != nil {
		log.Fatalf("Failed to launch browser: %v", err)
	}
	log.Println("✓ Browser process launched")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	docs, err := store.NewRedis(ctx, redisAddr, redisPassword)
	cancel()
	if err != nil {
		log.Fatalf("Failed to connect to document store: %v", err)
	}
	log.Println("✓ Document store connected")

	secrets, err := vault.New(vaultKey, docs)
	if err != nil {
		log.Fatalf("Failed to initialize vault: %v", err)
	}
	log.Println("✓ Credential vault initialized")

	pwi := portal.New(portalURL)

	// Rate limiter (30 captcha requests/hour per identifier, burst of 5)
	limiter := ratelimit.NewLimiter(30, 5)
	log.Println("✓ Rate limiter initialized (30 captchas/hour per identifier)")

	sessionMgr := session.NewManager(pool, pwi, docs, secrets, limiter)
	log.Println("✓ Session manager initialized")

	images := imagehost.New(os.Getenv("IMAGE_HOST_KEY"), os.Getenv("IMAGE_HOST_URL"))

	engine := scrape.NewEngine(sessionMgr, docs, pwi, images)
	log.Printf("✓ Scrape engine initialized (%d categories)", len(engine.Names()))

	catalog := static.NewCatalog()
	snapCtx, snapCancel := context.WithTimeout(context.Background(), 10*time.Second)
	catalog.WriteSnapshots(snapCtx, docs)
	snapCancel()
	log.Println("✓ Static catalogs loaded")

	handler := api.NewHandler(sessionMgr, engine, catalog)
	router := handler.SetupRoutes()
	log.Println("✓ HTTP routes configured")

	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in background
	go func() {
		log.Printf("🚀 Server starting on %s", addr)
		log.Printf("🎓 Portal: %s", portalURL)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("⏳ Shutting down server gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server stopped cleanly")
}

func envOr(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
