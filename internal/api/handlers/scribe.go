package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/chronicle-app/chronicle/internal/api/middleware"
	"github.com/chronicle-app/chronicle/internal/scribe"
	"github.com/chronicle-app/chronicle/internal/scribe/queue"
	"github.com/chronicle-app/chronicle/internal/store"
)

// ScribeHandler wires the model client and offline queue to HTTP. When
// interpretation fails for transient reasons the note is queued instead of
// lost; a later drain replays it.
type ScribeHandler struct {
	client         *scribe.Client
	queue          *queue.Queue
	store          store.Store
	defaultAccount string
	log            zerolog.Logger
}

// NewScribeHandler builds the scribe routes' backing state.
func NewScribeHandler(client *scribe.Client, q *queue.Queue, st store.Store, defaultAccount string, log zerolog.Logger) *ScribeHandler {
	return &ScribeHandler{client: client, queue: q, store: st, defaultAccount: defaultAccount, log: log}
}

// Process interprets one note and applies the resulting actions.
func (s *ScribeHandler) Process(ctx context.Context, note string) (int, error) {
	accounts, err := s.store.Accounts(ctx)
	if err != nil {
		return 0, err
	}
	categories, err := s.store.Categories(ctx)
	if err != nil {
		return 0, err
	}
	now := time.Now()
	actions, err := s.client.Interpret(ctx, note, scribe.Context{
		Categories:     categories,
		Accounts:       accounts,
		DefaultAccount: s.defaultAccount,
		Now:            now,
	})
	if err != nil {
		return 0, err
	}
	if err := scribe.Apply(ctx, s.store, actions, s.defaultAccount, now); err != nil {
		return 0, err
	}
	return len(actions), nil
}

// Drain replays queued notes in order, stopping at the first failure.
func (s *ScribeHandler) Drain(ctx context.Context) (int, error) {
	return s.queue.Drain(ctx, func(ctx context.Context, e queue.Entry) error {
		n, err := s.Process(ctx, e.Note)
		if err != nil {
			return err
		}
		s.log.Info().Str("entry", e.ID).Int("actions", n).Msg("queued note applied")
		return nil
	})
}

func (h *Handler) scribeInterpret(w http.ResponseWriter, r *http.Request) {
	if h.scribe == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "scribe is not configured")
		return
	}
	var req struct {
		Note string `json:"note"`
		// Defer skips the model and queues the note directly.
		Defer bool `json:"defer"`
	}
	if err := decode(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	if req.Note == "" {
		middleware.WriteError(w, http.StatusBadRequest, "note is required")
		return
	}

	if req.Defer {
		entry, err := h.scribe.queue.Enqueue(req.Note, time.Now())
		if err != nil {
			h.fail(w, err)
			return
		}
		middleware.WriteJSON(w, http.StatusAccepted, entry)
		return
	}

	n, err := h.scribe.Process(r.Context(), req.Note)
	if err != nil {
		// The note is preserved for a later drain rather than dropped.
		entry, qerr := h.scribe.queue.Enqueue(req.Note, time.Now())
		if qerr != nil {
			h.fail(w, qerr)
			return
		}
		h.scribe.log.Warn().Err(err).Str("entry", entry.ID).Msg("note queued after failure")
		middleware.WriteJSON(w, http.StatusAccepted, map[string]any{
			"queued": entry,
			"error":  err.Error(),
		})
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]int{"actionsApplied": n})
}

func (h *Handler) scribeQueue(w http.ResponseWriter, r *http.Request) {
	if h.scribe == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "scribe is not configured")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, h.scribe.queue.Pending())
}

func (h *Handler) scribeDrain(w http.ResponseWriter, r *http.Request) {
	if h.scribe == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "scribe is not configured")
		return
	}
	n, err := h.scribe.Drain(r.Context())
	if err != nil {
		middleware.WriteJSON(w, http.StatusOK, map[string]any{
			"drained": n,
			"stopped": err.Error(),
		})
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]int{"drained": n})
}

func (h *Handler) scribeDequeue(w http.ResponseWriter, r *http.Request) {
	if h.scribe == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "scribe is not configured")
		return
	}
	if err := h.scribe.queue.Remove(r.PathValue("id")); err != nil {
		middleware.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
