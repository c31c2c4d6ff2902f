package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/yourorg/apiscout/internal/chooser"
	"github.com/yourorg/apiscout/internal/config"
	"github.com/yourorg/apiscout/internal/matcher"
	"github.com/yourorg/apiscout/internal/openapi"
	"github.com/yourorg/apiscout/internal/resolver"
	"github.com/yourorg/apiscout/pkg/types"
)

// Server is the HTTP front door over the matching core. It holds the
// immutable document and shares it read-only across requests.
type Server struct {
	cfg     *config.Config
	doc     *openapi.Document
	chooser *chooser.Chooser
	logger  *slog.Logger
	mux     *http.ServeMux
}

// New constructs a new Server with routes registered.
func New(cfg *config.Config, doc *openapi.Document, ch *chooser.Chooser, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if doc == nil {
		return nil, errors.New("document is nil")
	}
	if ch == nil {
		return nil, errors.New("chooser is nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	srv := &Server{
		cfg:     cfg,
		doc:     doc,
		chooser: ch,
		logger:  logger,
		mux:     http.NewServeMux(),
	}
	srv.registerRoutes()
	return srv, nil
}

// Handler returns the http handler.
func (s *Server) Handler() http.Handler {
	return s.withRequestID(s.mux)
}

// ListenAndServe starts the server on addr.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/api/candidates", s.handleCandidates)
	s.mux.HandleFunc("/api/choose", s.handleChoose)
	s.mux.HandleFunc("/api/resolve/", s.handleResolve)
}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		s.logger.Info("request", "request_id", id, "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCandidates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Q    string `json:"q"`
		TopK int    `json:"top_k"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Q) == "" {
		http.Error(w, "missing question", http.StatusBadRequest)
		return
	}
	topK := req.TopK
	if topK <= 0 {
		topK = s.cfg.Match.TopK
	}
	cands := matcher.FindCandidates(s.doc, req.Q, topK)
	writeJSON(w, http.StatusOK, map[string]any{"candidates": cands})
}

func (s *Server) handleChoose(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Q          string            `json:"q"`
		Candidates []types.Candidate `json:"candidates"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Q) == "" {
		http.Error(w, "missing question", http.StatusBadRequest)
		return
	}

	candidates := req.Candidates
	if len(candidates) == 0 {
		candidates = matcher.FindCandidates(s.doc, req.Q, s.cfg.Match.TopK)
	}

	choice, outcome := s.chooser.Choose(r.Context(), req.Q, candidates)
	if choice.None {
		writeJSON(w, http.StatusOK, map[string]string{"error": "No matching endpoint found"})
		return
	}

	summary, err := resolver.ResolveSummary(s.doc, choice.Route, choice.Method)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]string{
			"error":  "Chosen endpoint not found in spec",
			"route":  choice.Route,
			"method": choice.Method,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"route":       summary.Route,
		"method":      summary.Method,
		"summary":     summary.Summary,
		"operationId": summary.OperationID,
		"schema_refs": summary.SchemaRefs,
		"outcome":     outcome.String(),
	})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	kind, tail, ok := splitPath(r.URL.Path, "/api/resolve/")
	if !ok || kind == "" || tail != "" {
		http.NotFound(w, r)
		return
	}
	route := r.URL.Query().Get("route")
	method := r.URL.Query().Get("method")
	if route == "" || method == "" {
		http.Error(w, "route and method are required", http.StatusBadRequest)
		return
	}

	var (
		result any
		err    error
	)
	switch kind {
	case "summary":
		result, err = resolver.ResolveSummary(s.doc, route, method)
	case "schemas":
		result, err = resolver.ResolveSchemas(s.doc, route, method)
	case "sample":
		result, err = resolver.ResolveSample(s.doc, route, method)
	case "curl":
		result, err = resolver.ResolveCurl(s.doc, route, method)
	default:
		http.NotFound(w, r)
		return
	}

	if errors.Is(err, openapi.ErrOperationNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "operation not found"})
		return
	}
	if errors.Is(err, resolver.ErrNoRequestBody) {
		writeJSON(w, http.StatusOK, map[string]string{"error": "no request body schema found"})
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func splitPath(fullPath, prefix string) (string, string, bool) {
	if !strings.HasPrefix(fullPath, prefix) {
		return "", "", false
	}
	rest := strings.TrimPrefix(fullPath, prefix)
	rest = strings.Trim(rest, "/")
	if rest == "" {
		return "", "", false
	}
	parts := strings.Split(rest, "/")
	head := parts[0]
	tail := ""
	if len(parts) > 1 {
		tail = strings.Join(parts[1:], "/")
	}
	return head, tail, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
