package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/robfig/cron/v3"
	"github.com/termgate/termgate/internal/config"
	"github.com/termgate/termgate/internal/database"
	"github.com/termgate/termgate/internal/grant"
	"github.com/termgate/termgate/internal/handlers"
	"github.com/termgate/termgate/internal/logging"
)

func main() {
	config.Load()
	logging.Init()

	if err := database.Init(); err != nil {
		log.Fatalf("Database init: %v", err)
	}
	defer database.Close()

	if config.Cfg.DevicesFile != "" {
		if err := database.LoadDevicesFile(config.Cfg.DevicesFile); err != nil {
			log.Printf("WARNING: load devices file: %v", err)
		}
	}

	grants := grant.NewStore(config.GrantTTLDuration())
	gateway := handlers.NewGateway(grants)
	log.Printf("Gateway initialized (grant ttl=%s)", config.GrantTTLDuration())

	// Periodic cleanup of unredeemed grants
	jobs := cron.New()
	if _, err := jobs.AddFunc("@every 1m", func() { sweepGrants(grants) }); err != nil {
		log.Fatalf("Schedule grant sweep: %v", err)
	}
	jobs.Start()
	defer jobs.Stop()

	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.Get("/health", handlers.HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/terminal/handshake", gateway.Handshake)
		r.Get("/terminal/ws", gateway.TerminalWS)
		r.Get("/terminal/sessions", gateway.ListSessions)
		r.Delete("/terminal/sessions/{token}", gateway.CloseSession)
	})

	srv := &http.Server{
		Addr:    config.Cfg.ListenAddr,
		Handler: r,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Server starting on %s", config.Cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-sigCtx.Done()
	log.Println("Shutting down...")

	gateway.Tracker.CloseAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Shutdown error: %v", err)
	}
	log.Println("Server stopped")
}
