// canvasd serves the design canvas backend: auth, the document library and
// WebSocket editor sessions.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/latticeapp/lattice/backend-go/internal/auth"
	"github.com/latticeapp/lattice/backend-go/internal/config"
	"github.com/latticeapp/lattice/backend-go/internal/library"
	mw "github.com/latticeapp/lattice/backend-go/internal/middleware"
	"github.com/latticeapp/lattice/backend-go/internal/session"
	"github.com/latticeapp/lattice/backend-go/internal/storage"
)

// fullStore is what both storage backends provide.
type fullStore interface {
	storage.Store
	storage.UserStore
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("open store", "driver", cfg.StorageDriver, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	authService := auth.NewService(store, cfg.JWTSecret)
	authHandler := auth.NewHandler(authService)

	libraryService := library.NewService(store)
	libraryHandler := library.NewHandler(libraryService)

	origins := strings.Split(cfg.AllowedOrigins, ",")
	saveDebounce := time.Duration(cfg.AutosaveDebounceMS) * time.Millisecond
	sessionHandler := session.NewHandler(libraryService, authService, origins, saveDebounce)

	r := mux.NewRouter()

	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	r.HandleFunc("/auth/register", authHandler.Register).Methods("POST", "OPTIONS")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.RequireAuth)

	api.HandleFunc("/me", authHandler.Me).Methods("GET")
	api.HandleFunc("/documents", libraryHandler.List).Methods("GET")
	api.HandleFunc("/documents", libraryHandler.Create).Methods("POST")
	api.HandleFunc("/documents/import", libraryHandler.Import).Methods("POST")
	api.HandleFunc("/documents/{docId}", libraryHandler.Get).Methods("GET")
	api.HandleFunc("/documents/{docId}", libraryHandler.Rename).Methods("PATCH")
	api.HandleFunc("/documents/{docId}", libraryHandler.Delete).Methods("DELETE")
	api.HandleFunc("/documents/{docId}/export", libraryHandler.Export).Methods("GET")

	r.HandleFunc("/ws/session/{docId}", sessionHandler.Serve)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "storage", cfg.StorageDriver)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg *config.Config) (fullStore, error) {
	switch cfg.StorageDriver {
	case "sqlite":
		return storage.OpenSQLite(cfg.SQLitePath)
	case "postgres":
		return storage.OpenPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
