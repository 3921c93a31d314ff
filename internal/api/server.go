package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"mochibot/internal/account"
	"mochibot/internal/catalog"
	"mochibot/internal/config"
)

// Server is the operator-facing HTTP surface: health, happiness, the bond
// leaderboard, account inspection, and catalog reload. It is meant to sit on
// a private port, guarded by a shared key.
type Server struct {
	cfg     config.AdminConfig
	log     *slog.Logger
	store   account.Store
	catalog *catalog.Catalog
	mux     *chi.Mux
}

func New(cfg config.AdminConfig, logger *slog.Logger, store account.Store, cat *catalog.Catalog) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:     cfg,
		log:     logger,
		store:   store,
		catalog: cat,
		mux:     chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.keyMiddleware)
		r.Get("/happiness", s.handleHappiness)
		r.Get("/leaderboard", s.handleLeaderboard)
		r.Get("/accounts/{id}", s.handleAccount)
		r.Post("/catalog/reload", s.handleReload)
	})
}

// keyMiddleware checks the shared admin key. An empty configured key leaves
// the API open, which is only sane behind a loopback bind.
func (s *Server) keyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Key != "" && r.Header.Get("X-Admin-Key") != s.cfg.Key {
			writeError(w, http.StatusUnauthorized, "missing or invalid admin key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHappiness(w http.ResponseWriter, r *http.Request) {
	value, err := s.store.GetField(r.Context(), account.MascotID, account.FieldBondLevel)
	if err != nil && !errors.Is(err, account.ErrNoAccount) {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"happiness": value})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			writeError(w, http.StatusBadRequest, "limit must be in [1,100]")
			return
		}
		limit = n
	}
	rows, err := s.store.GetTopByColumn(r.Context(), account.FieldBondLevel, account.FieldBondLevel, limit, account.MascotID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	type row struct {
		UserID string `json:"user_id"`
		Name   string `json:"name"`
		Bond   int64  `json:"bond"`
	}
	out := make([]row, 0, len(rows))
	for _, e := range rows {
		out = append(out, row{UserID: e.UserID, Name: e.Name, Bond: e.Value})
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": out})
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	fields := map[string]int64{}
	for _, f := range []string{
		account.FieldAffection,
		account.FieldBondLevel,
		account.FieldBondsAvailable,
		account.FieldFreeFeedUsed,
		account.FieldOwnsFeather,
		account.FieldOwnsBrush,
		account.FieldOwnsScratcher,
		account.FieldLastFedAt,
		account.FieldCreatedAt,
	} {
		v, err := s.store.GetField(r.Context(), id, f)
		if err != nil {
			if errors.Is(err, account.ErrNoAccount) {
				writeError(w, http.StatusNotFound, "no such account")
			} else {
				writeError(w, http.StatusInternalServerError, err.Error())
			}
			return
		}
		fields[f] = v
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "fields": fields})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.Reload(); err != nil {
		s.log.Error("catalog reload via admin api failed", "err", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	snap := s.catalog.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":         true,
		"activities": len(snap.Activities),
		"gifts":      len(snap.Gifts),
		"permanent":  len(snap.Permanent),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}
