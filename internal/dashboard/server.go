// Package dashboard serves the guild settings JSON API.
package dashboard

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/keshon/herald/internal/discord"
	"github.com/keshon/herald/internal/registry"
	"github.com/keshon/herald/internal/storage"
)

const maxBodyBytes = 64 << 10

// Options configures a Server.
type Options struct {
	Addr     string
	Token    string
	Store    *storage.Storage
	Registry *registry.Registry
	Events   *discord.EventBus
	Manifest registry.ManifestOptions
	Log      zerolog.Logger
}

// Server is the dashboard HTTP server.
type Server struct {
	opts Options
	mux  *http.ServeMux
}

// New builds the server and its routes.
func New(opts Options) *Server {
	s := &Server{opts: opts, mux: http.NewServeMux()}

	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	s.mux.Handle("GET /api/commands", s.checkAuth(http.HandlerFunc(s.handleCommands)))
	s.mux.Handle("GET /api/guilds/{id}/settings", s.checkAuth(http.HandlerFunc(s.handleGetSettings)))
	s.mux.Handle("PATCH /api/guilds/{id}/settings", s.checkAuth(http.HandlerFunc(s.handlePatchSettings)))
	s.mux.Handle("POST /api/guilds/{id}/commands/refresh", s.checkAuth(http.HandlerFunc(s.handleRefresh)))
	return s
}

// Handler returns the routes wrapped in request logging.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

// Run listens on the configured address until ctx is done, then shuts the
// server down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.opts.Log.Info().Msg("Shutting down dashboard server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.opts.Log.Info().Str("addr", s.opts.Addr).Msg("Dashboard listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// checkAuth requires "Authorization: Bearer <token>". Without a configured
// token every API request is refused.
func (s *Server) checkAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if s.opts.Token == "" || !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.opts.Token)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleCommands(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.opts.Registry.Manifest(s.opts.Manifest))
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	g, err := s.opts.Store.Settings(r.PathValue("id"))
	if err != nil {
		s.opts.Log.Error().Err(err).Msg("Failed to read settings")
		writeError(w, http.StatusInternalServerError, "failed to read settings")
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// settingsPatch holds the fields a PATCH may change. Absent fields are kept.
type settingsPatch struct {
	Prefix                *string   `json:"prefix"`
	ApplicationLogChannel *string   `json:"application_log_channel"`
	DisabledCategories    *[]string `json:"disabled_categories"`
}

// patchError is a client mistake in the patch body.
type patchError struct{ error }

func (p settingsPatch) apply(g *storage.GuildSettings) error {
	if p.Prefix != nil {
		if err := storage.ValidatePrefix(*p.Prefix); err != nil {
			return patchError{err}
		}
		g.Prefix = *p.Prefix
	}
	if p.ApplicationLogChannel != nil {
		g.ApplicationLogChannel = strings.TrimSpace(*p.ApplicationLogChannel)
	}
	if p.DisabledCategories != nil {
		cats := make([]string, 0, len(*p.DisabledCategories))
		for _, c := range *p.DisabledCategories {
			c = strings.ToUpper(strings.TrimSpace(c))
			if c != "" && !slices.Contains(cats, c) {
				cats = append(cats, c)
			}
		}
		g.DisabledCategories = cats
	}
	return nil
}

func (s *Server) handlePatchSettings(w http.ResponseWriter, r *http.Request) {
	var patch settingsPatch
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	guildID := r.PathValue("id")
	g, err := s.opts.Store.UpdateSettings(guildID, patch.apply)
	var bad patchError
	switch {
	case errors.As(err, &bad):
		writeError(w, http.StatusBadRequest, bad.Error())
		return
	case err != nil:
		s.opts.Log.Error().Err(err).Str("guild", guildID).Msg("Failed to update settings")
		writeError(w, http.StatusInternalServerError, "failed to update settings")
		return
	}
	s.opts.Log.Info().Str("guild", guildID).Msg("Settings updated from dashboard")
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	guildID := r.PathValue("id")
	if s.opts.Events == nil || !s.opts.Events.Publish(discord.SystemEvent{
		Type:    discord.SystemEventRefreshCommands,
		GuildID: guildID,
	}) {
		writeError(w, http.StatusServiceUnavailable, "refresh queue is full")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.opts.Log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("took", time.Since(start)).
			Msg("Dashboard request")
	})
}
