package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"lina/internal/conversation"
	"lina/internal/messaging"
	"lina/internal/models"
	"lina/internal/relay"
)

// ServiceName identifies this service in status responses.
const ServiceName = "Lina WhatsApp Agent"

// Version is the reported service version.
const Version = "1.0"

// maxWebhookBodyBytes caps how much of a webhook body is read.
const maxWebhookBodyBytes = 1 << 20

// Server holds the HTTP handlers and their collaborators.
type Server struct {
	relay             *relay.Relay
	store             *conversation.Store
	normalizeCfg      messaging.NormalizeConfig
	gatewayConfigured bool
	llmConfigured     bool
}

// NewServer creates the API server.
func NewServer(rl *relay.Relay, store *conversation.Store, cfg messaging.NormalizeConfig, gatewayConfigured, llmConfigured bool) *Server {
	return &Server{
		relay:             rl,
		store:             store,
		normalizeCfg:      cfg,
		gatewayConfigured: gatewayConfigured,
		llmConfigured:     llmConfigured,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", s.webhookHandler)
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/", s.homeHandler)
	return mux
}

// Run starts the HTTP server on addr and blocks until it stops.
func (s *Server) Run(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("Server.Run: API server listening", "addr", addr)
	return srv.ListenAndServe()
}

func (s *Server) webhookHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.webhookHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
	if err != nil {
		slog.Warn("Server.webhookHandler: failed to read body", "error", err)
		writeJSONResponse(w, http.StatusOK, models.Ignored())
		return
	}

	msg, err := messaging.Normalize(body, s.normalizeCfg)
	if err != nil {
		if errors.Is(err, models.ErrIgnored) {
			slog.Debug("Server.webhookHandler: payload ignored", "reason", err)
			writeJSONResponse(w, http.StatusOK, models.Ignored())
			return
		}
		slog.Warn("Server.webhookHandler: normalization failed", "error", err)
		writeJSONResponse(w, http.StatusOK, models.Ignored())
		return
	}
	slog.Info("Server.webhookHandler: inbound message accepted", "from", msg.From, "kind", msg.Kind)

	outcome := s.relay.Process(context.Background(), msg)
	switch outcome.State {
	case relay.StateFailed:
		writeJSONResponse(w, http.StatusOK, models.Error(outcome.Reason))
	case relay.StateDelivered:
		if !outcome.Delivered {
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to send message"))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.Success(nil))
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"service":   ServiceName,
		"timestamp": time.Now().Format(time.RFC3339),
		"environment": map[string]bool{
			"gateway_configured": s.gatewayConfigured,
			"llm_configured":     s.llmConfigured,
		},
		"active_sessions": s.store.ActiveSessionCount(),
	})
}

func (s *Server) homeHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"agent":   "Lina",
		"version": Version,
		"status":  "online",
		"endpoints": map[string]string{
			"webhook": "/webhook",
			"health":  "/health",
		},
	})
}
