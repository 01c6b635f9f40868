package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/spf13/afero"
	"golang.org/x/time/rate"

	"homestead/api"
	"homestead/handlers"
	"homestead/internal/config"
	"homestead/internal/database"
	"homestead/internal/logging"
	"homestead/models"
	"homestead/services/listings"
	"homestead/services/sessions"
	"homestead/services/stats"
	"homestead/services/users"
	"homestead/utils"
)

const (
	shutdownTimeout        = 10 * time.Second
	sessionCleanupInterval = time.Hour
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logSink := logging.Setup(cfg.LogFile, os.Getenv("HOMESTEAD_DEBUG") != "")
	defer logSink.Close()

	if err := cfg.EnsureDirs(); err != nil {
		slog.Error("failed to create data directories", "error", err)
		os.Exit(1)
	}

	db, err := database.NewDB(database.Config{DatabasePath: cfg.DatabasePath})
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	usersSvc, err := users.NewService(cfg.DataDir)
	if err != nil {
		slog.Error("failed to initialize users service", "error", err)
		os.Exit(1)
	}
	if usersSvc.HasDefaultPassword() {
		slog.Warn("admin account still uses the default password, change it after first login")
	}

	sessionsSvc, err := sessions.NewService(cfg.DataDir, cfg.SessionTTL)
	if err != nil {
		slog.Error("failed to initialize sessions service", "error", err)
		os.Exit(1)
	}

	listingsSvc := listings.NewService(database.NewHouseRepository(db.Connection()))
	statsSvc := stats.NewService(database.NewHouseRepository(db.Connection()), usersSvc)
	photoFS := afero.NewBasePathFs(afero.NewOsFs(), cfg.PhotosDir)

	router := buildRouter(cfg, usersSvc, sessionsSvc, listingsSvc, statsSvc, photoFS)

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg conc.WaitGroup
	wg.Go(func() {
		slog.Info("server listening", "addr", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			stop()
		}
	})
	wg.Go(func() {
		cleanupSessions(ctx, sessionsSvc)
	})

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	wg.Wait()
}

// buildRouter wires all handlers onto the base router.
func buildRouter(
	cfg *config.Config,
	usersSvc *users.Service,
	sessionsSvc *sessions.Service,
	listingsSvc *listings.Service,
	statsSvc *stats.Service,
	photoFS afero.Fs,
) http.Handler {
	router := utils.NewRouter(cfg.ExtraOrigins)

	authHandler := handlers.NewAuthHandler(usersSvc, sessionsSvc)
	listingsHandler := handlers.NewListingsHandler(listingsSvc, usersSvc)
	photosHandler := handlers.NewPhotosHandler(listingsSvc, usersSvc, photoFS)
	usersHandler := handlers.NewUsersHandler(usersSvc, sessionsSvc)
	statsHandler := handlers.NewStatsHandler(statsSvc)

	router.HandleFunc("/version", handlers.Version).Methods(http.MethodGet, http.MethodOptions)

	// Credential endpoints are rate limited per IP, 10 attempts per minute
	loginLimiter := api.NewIPRateLimiter(rate.Every(6*time.Second), 10)
	router.HandleFunc("/auth/login", api.RateLimit(loginLimiter, authHandler.Login)).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/auth/register", api.RateLimit(loginLimiter, authHandler.Register)).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/auth/logout", authHandler.Logout).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/auth/me", authHandler.Me).Methods(http.MethodGet, http.MethodOptions)

	// Browsing listings is public
	router.HandleFunc("/houses", listingsHandler.List).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/houses/{houseID}", listingsHandler.Get).Methods(http.MethodGet, http.MethodOptions)

	protected := router.NewRoute().Subrouter()
	protected.Use(api.RequireAuth(sessionsSvc))
	protected.HandleFunc("/houses", listingsHandler.Create).Methods(http.MethodPost, http.MethodOptions)
	protected.HandleFunc("/houses/{houseID}", listingsHandler.Update).Methods(http.MethodPut, http.MethodOptions)
	protected.HandleFunc("/houses/{houseID}", listingsHandler.Delete).Methods(http.MethodDelete, http.MethodOptions)
	protected.HandleFunc("/houses/{houseID}/photos", photosHandler.Upload).Methods(http.MethodPost, http.MethodOptions)

	admin := router.PathPrefix("/admin").Subrouter()
	admin.Use(api.RequireAuth(sessionsSvc), api.RequireRole(models.RoleAdmin))
	admin.HandleFunc("/users", usersHandler.List).Methods(http.MethodGet, http.MethodOptions)
	admin.HandleFunc("/users/{userID}/role", usersHandler.SetRole).Methods(http.MethodPut, http.MethodOptions)
	admin.HandleFunc("/users/{userID}/active", usersHandler.SetActive).Methods(http.MethodPut, http.MethodOptions)
	admin.HandleFunc("/users/{userID}/password", usersHandler.ResetPassword).Methods(http.MethodPost, http.MethodOptions)
	admin.HandleFunc("/stats", statsHandler.Dashboard).Methods(http.MethodGet, http.MethodOptions)

	return router
}

// cleanupSessions periodically removes expired sessions until ctx is done.
func cleanupSessions(ctx context.Context, sessionsSvc *sessions.Service) {
	ticker := time.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := sessionsSvc.Cleanup(); removed > 0 {
				slog.Info("removed expired sessions", "count", removed)
			}
		}
	}
}
