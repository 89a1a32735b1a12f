package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/chronicle-app/chronicle/internal/api/handlers"
	"github.com/chronicle-app/chronicle/internal/api/middleware"
	"github.com/chronicle-app/chronicle/internal/config"
	"github.com/chronicle-app/chronicle/internal/domain"
	"github.com/chronicle-app/chronicle/internal/logger"
	"github.com/chronicle-app/chronicle/internal/scribe"
	"github.com/chronicle-app/chronicle/internal/scribe/queue"
	"github.com/chronicle-app/chronicle/internal/service"
	"github.com/chronicle-app/chronicle/internal/store"
	"github.com/chronicle-app/chronicle/internal/store/firestore"
	"github.com/chronicle-app/chronicle/internal/store/memory"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New("info", false)
		fallback.Fatal().Err(err).Msg("Failed to load config")
	}

	log := logger.New(cfg.LogLevel, cfg.PrettyLogs)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Backend).Msg("Failed to open store")
	}
	defer st.Close()

	if err := seedCategories(ctx, st); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed categories")
	}

	svc := service.New(st, log)

	// Post subscriptions that came due while the server was down.
	if posted, err := svc.PostDueSubscriptions(ctx, cfg.DefaultAccountID); err != nil {
		log.Error().Err(err).Msg("Failed to post due subscriptions")
	} else if posted > 0 {
		log.Info().Int("posted", posted).Msg("Posted due subscriptions")
	}

	var scribeHandler *handlers.ScribeHandler
	if os.Getenv("GEMINI_API_KEY") != "" {
		q, err := queue.Open(cfg.QueuePath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.QueuePath).Msg("Failed to open note queue")
		}
		client, err := scribe.NewClient(ctx, cfg.ScribeModel)
		if err != nil {
			log.Warn().Err(err).Msg("Scribe disabled: client init failed")
		} else {
			scribeHandler = handlers.NewScribeHandler(client, q, st, cfg.DefaultAccountID, log)
			drainQueue(ctx, scribeHandler, q, log)
		}
	} else {
		log.Warn().Msg("No GEMINI_API_KEY set - natural language entry disabled")
	}

	h := handlers.New(svc, scribeHandler, log)
	handler := middleware.Chain(h.Routes(),
		middleware.Recovery(log),
		middleware.RequestLog(log),
		middleware.CORS,
	)

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr).Str("backend", cfg.Backend).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	switch cfg.Backend {
	case config.BackendFirestore:
		return firestore.New(ctx, cfg.ProjectID, cfg.UserID)
	default:
		return memory.New(), nil
	}
}

// seedCategories installs the default category set on an empty store.
func seedCategories(ctx context.Context, st store.Store) error {
	existing, err := st.Categories(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	var ws store.WriteSet
	for _, c := range domain.DefaultCategories() {
		ws.Put(store.Categories, c.ID, c)
	}
	return st.Apply(ctx, ws)
}

// drainQueue replays notes that were queued while the model was unreachable.
func drainQueue(ctx context.Context, sh *handlers.ScribeHandler, q *queue.Queue, log zerolog.Logger) {
	if q.Len() == 0 {
		return
	}
	drained, err := sh.Drain(ctx)
	if err != nil {
		log.Warn().Err(err).Int("drained", drained).Int("remaining", q.Len()).Msg("Note queue drain stopped")
		return
	}
	log.Info().Int("drained", drained).Msg("Drained note queue")
}
