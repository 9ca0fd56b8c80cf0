package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"melody/cache"
	"melody/config"
	"melody/core/ingest"
	"melody/db"
	"melody/logger"
	"melody/repository"
	"melody/storage"
)

// Start wires the catalog service together and serves HTTP until an
// interrupt arrives, then shuts down gracefully.
func Start(cfg *config.Config) {
	gdb, err := db.Connect(cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", logger.ErrorField(err))
	}
	defer db.Close(gdb)

	if err := db.Migrate(gdb); err != nil {
		logger.Fatal("failed to migrate database", logger.ErrorField(err))
	}

	// The cache is optional: without Redis the service still serves every
	// request, just without the hot-query shortcut.
	var songCache *cache.SongCache
	if redisClient, err := db.ConnectRedis(cfg); err != nil {
		logger.Warn("redis unavailable, running without cache", logger.ErrorField(err))
	} else {
		defer redisClient.Close()
		songCache = cache.NewSongCache(redisClient, cfg.CacheTTL)
		logger.Info("connected to redis")
	}

	store, err := newStore(cfg)
	if err != nil {
		logger.Fatal("failed to initialize object storage", logger.ErrorField(err))
	}

	repo := repository.NewMySQLSongRepository(gdb)
	pipeline := ingest.NewPipeline(repo, store)
	apiHandler := NewAPIHandler(repo, pipeline, songCache)

	router := NewRouter(apiHandler)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  5 * time.Minute, // uploads can be large
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", logger.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", logger.ErrorField(err))
	}
	logger.Info("server stopped")
}

// newStore selects the object-store backend from configuration.
func newStore(cfg *config.Config) (storage.Store, error) {
	if cfg.StorageBackend == "b2" {
		return storage.NewB2Store(storage.B2Config{
			KeyID:          cfg.B2KeyID,
			ApplicationKey: cfg.B2ApplicationKey,
			BucketID:       cfg.B2BucketID,
			BucketName:     cfg.B2BucketName,
			CDNDomain:      cfg.CDNDomain,
		})
	}
	return storage.NewMinioStore(cfg)
}

// NewRouter builds the API router with CORS enabled.
func NewRouter(h *APIHandler) *mux.Router {
	router := mux.NewRouter()

	router.Use(corsMiddleware)

	api := router.PathPrefix("/api/music").Subrouter()
	api.HandleFunc("/songs", h.GetSongsHandler).Methods(http.MethodGet)
	api.HandleFunc("/songs/{id}", h.GetSongHandler).Methods(http.MethodGet)
	api.HandleFunc("/stream/{id}", h.StreamHandler).Methods(http.MethodGet)
	api.HandleFunc("/exists/{hash}", h.ExistsHandler).Methods(http.MethodGet)
	api.HandleFunc("/upload", h.UploadHandler).Methods(http.MethodPost)
	api.HandleFunc("/search", h.SearchHandler).Methods(http.MethodGet)
	api.HandleFunc("/artists/{artist}/songs", h.ArtistSongsHandler).Methods(http.MethodGet)
	api.HandleFunc("/albums/{album}/songs", h.AlbumSongsHandler).Methods(http.MethodGet)
	api.HandleFunc("/genres/{genre}/songs", h.GenreSongsHandler).Methods(http.MethodGet)
	api.HandleFunc("/popular/artists", h.PopularArtistsHandler).Methods(http.MethodGet)
	api.HandleFunc("/popular/genres", h.PopularGenresHandler).Methods(http.MethodGet)
	api.HandleFunc("/recent", h.RecentSongsHandler).Methods(http.MethodGet)

	router.HandleFunc("/health", h.HealthHandler).Methods(http.MethodGet)

	return router
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Range")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
