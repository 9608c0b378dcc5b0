package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"sentinel/internal/adapters"
	"sentinel/internal/engine"
	"sentinel/internal/logger"
	"sentinel/internal/metrics"
	"sentinel/internal/stream"
)

// Server exposes the investigation and shopping flows over HTTP. Each
// POST endpoint validates its request synchronously, then switches to an
// SSE stream; after the stream opens, failures are terminal error events
// only.
type Server struct {
	engine       *engine.Engine
	streamBuffer int
	metricsOn    bool
}

// New creates a server around an engine.
func New(e *engine.Engine, streamBuffer int, metricsOn bool) *Server {
	return &Server{engine: e, streamBuffer: streamBuffer, metricsOn: metricsOn}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/investigate", s.handleInvestigate)
	mux.HandleFunc("POST /api/deepen", s.handleDeepen)
	mux.HandleFunc("POST /api/search", s.handleSearch)
	mux.HandleFunc("POST /api/compare", s.handleCompare)
	mux.HandleFunc("GET /api/investigations", s.handleRecent)
	mux.HandleFunc("GET /api/investigations/{id}", s.handleLookup)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metricsOn {
		mux.Handle("GET /metrics", metrics.Handler())
	}
	return mux
}

func (s *Server) handleInvestigate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if req.URL == "" {
		badRequest(w, "url is required")
		return
	}
	subject, err := adapters.ParseURLSubject(req.URL)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	s.stream(w, r, func(ctx context.Context, pub *stream.Publisher) {
		s.engine.Investigate(ctx, subject, pub)
	})
}

func (s *Server) handleDeepen(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InvestigationID string          `json:"investigationId"`
		Focus           string          `json:"focus"`
		ExistingCards   json.RawMessage `json:"existingCards"` // accepted, server state is authoritative
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if req.InvestigationID == "" {
		badRequest(w, "investigationId is required")
		return
	}

	s.stream(w, r, func(ctx context.Context, pub *stream.Publisher) {
		s.engine.Deepen(ctx, req.InvestigationID, req.Focus, pub)
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req engine.ShopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if len(req.Queries()) == 0 {
		if req.Image != "" {
			badRequest(w, "image search requires an accompanying query")
			return
		}
		badRequest(w, "provide a query, a url or searchQueries")
		return
	}

	s.stream(w, r, func(ctx context.Context, pub *stream.Publisher) {
		s.engine.Shop(ctx, req, pub)
	})
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if req.URL == "" {
		badRequest(w, "url is required")
		return
	}
	subject, err := adapters.ParseURLSubject(req.URL)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	s.stream(w, r, func(ctx context.Context, pub *stream.Publisher) {
		s.engine.Compare(ctx, subject, pub)
	})
}

// handleLookup rehydrates an investigation by id, falling back to the
// archive when the live session has been swept.
func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess, ok, err := s.engine.Lookup(r.Context(), id)
	if err != nil {
		logger.Errorf("Lookup of investigation %s failed: %v", id, err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "archive lookup failed"})
		return
	}
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "unknown investigation id"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sess)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit := int64(20)
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			limit = n
		}
	}
	ids, err := s.engine.RecentIDs(r.Context(), limit)
	if err != nil {
		logger.Errorf("Recent investigation listing failed: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "archive listing failed"})
		return
	}
	if ids == nil {
		ids = []string{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][]string{"ids": ids})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// stream opens the SSE response and runs the producer, consuming events
// until the terminal one or client disconnect.
func (s *Server) stream(w http.ResponseWriter, r *http.Request, run func(ctx context.Context, pub *stream.Publisher)) {
	pub := stream.NewPublisher(s.streamBuffer)
	sw := stream.NewSSEWriter(w)

	metrics.ActiveStreams.Inc()
	defer metrics.ActiveStreams.Dec()

	ctx := r.Context()
	go func() {
		defer pub.Abort()
		run(ctx, pub)
	}()

	if outcome := pub.Run(ctx, sw); outcome == "" {
		logger.Debugf("Stream from %s ended without a terminal event", r.RemoteAddr)
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
