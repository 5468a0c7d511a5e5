package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tagscout/tagscout/internal/scan"
	"github.com/tagscout/tagscout/internal/setup/config"
	"go.uber.org/zap"
)

// NotSet is shown for credentials that are not configured.
const NotSet = "Not set"

// ConfigSavedMessage is returned after the credentials file was rewritten.
const ConfigSavedMessage = "Configuration updated. Restart the scanner to apply it."

const maxBodyBytes = 64 << 10

// ErrInvalidBody indicates that a request body could not be decoded.
var ErrInvalidBody = errors.New("invalid request body")

// Controller starts scans on request.
type Controller interface {
	Toggle(ctx context.Context) scan.ToggleResult
}

// APIResult is the generic outcome of a mutating API call.
type APIResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ConfigResponse is the masked view of the configured credentials.
type ConfigResponse struct {
	Token   string `json:"token"`
	Webhook string `json:"webhook"`
}

// ConfigUpdate carries new credentials. Empty fields are left unchanged.
type ConfigUpdate struct {
	Token   string `json:"token"`
	Webhook string `json:"webhook"`
}

// Deps are the collaborators of the dashboard server.
type Deps struct {
	Store      *Store
	Hub        *Hub
	Controller Controller
	Config     *config.Config
	EnvStore   *config.EnvStore
	Registry   *prometheus.Registry
}

// Server serves the dashboard page, its JSON API and the websocket feed.
type Server struct {
	deps   Deps
	page   []byte
	router chi.Router
	logger *zap.Logger
}

// NewServer builds the router and links the store to the hub.
func NewServer(deps Deps, logger *zap.Logger) (*Server, error) {
	page, err := RenderPage()
	if err != nil {
		return nil, err
	}

	s := &Server{
		deps:   deps,
		page:   page,
		logger: logger.Named("dashboard"),
	}

	deps.Store.Subscribe(deps.Hub.Publish)

	allowedOrigin := deps.Config.Dashboard.AllowedOrigin
	if allowedOrigin == "" {
		allowedOrigin = "*"
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware(s.logger))
	r.Use(CORSMiddleware(allowedOrigin))

	r.Get("/", s.handleIndex)
	r.Get("/ws", s.handleWebsocket)
	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Post("/scan/toggle", s.handleToggle)
		r.Get("/config", s.handleGetConfig)
		r.Post("/config", s.handlePostConfig)
	})

	if deps.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{Registry: deps.Registry}))
	}

	s.router = r

	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("Dashboard listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("dashboard server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down dashboard: %w", err)
	}

	s.deps.Hub.Close()

	return nil
}

// Addr joins host and port for the listener.
func Addr(cfg *config.Dashboard) string {
	return net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := sonic.Marshal(v)
	if err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(s.page)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.deps.Store.Snapshot())
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("Scan toggle requested", zap.String("remoteAddr", r.RemoteAddr))
	s.writeJSON(w, http.StatusOK, s.deps.Controller.Toggle(r.Context()))
}

// MaskSecret hides all but the last keep characters of a credential.
func MaskSecret(value string, keep int) string {
	if value == "" {
		return NotSet
	}

	runes := []rune(value)
	if len(runes) > keep {
		runes = runes[len(runes)-keep:]
	}

	return "***" + string(runes)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, ConfigResponse{
		Token:   MaskSecret(s.deps.Config.Discord.Token, 4),
		Webhook: MaskSecret(s.deps.Config.Webhook.URL, 20),
	})
}

func (s *Server) handlePostConfig(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, APIResult{Success: false, Message: ErrInvalidBody.Error()})
		return
	}

	var update ConfigUpdate
	if err := sonic.Unmarshal(body, &update); err != nil {
		s.writeJSON(w, http.StatusBadRequest, APIResult{Success: false, Message: ErrInvalidBody.Error()})
		return
	}

	if err := s.deps.EnvStore.Update(map[string]string{
		config.EnvDiscordToken: update.Token,
		config.EnvWebhookURL:   update.Webhook,
	}); err != nil {
		s.logger.Error("Failed to update credentials file", zap.Error(err))
		s.writeJSON(w, http.StatusInternalServerError, APIResult{Success: false, Message: "Failed to save configuration"})

		return
	}

	s.logger.Info("Credentials file updated",
		zap.String("path", s.deps.EnvStore.Path()),
		zap.Bool("token", update.Token != ""),
		zap.Bool("webhook", update.Webhook != ""))

	s.writeJSON(w, http.StatusOK, APIResult{Success: true, Message: ConfigSavedMessage})
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	attach, err := s.deps.Hub.Upgrade(w, r)
	if err != nil {
		s.logger.Debug("Websocket upgrade failed", zap.Error(err))
		return
	}

	s.deps.Store.View(func(snapshot Snapshot) {
		payload, err := EncodeState(snapshot)
		if err != nil {
			s.logger.Error("Failed to encode state", zap.Error(err))
			payload = nil
		}

		attach(payload)
	})
}
