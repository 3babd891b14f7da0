package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/wricardo/crucible/search/engine"
	"github.com/wricardo/crucible/search/puzzle"
	"github.com/wricardo/crucible/search/service"
	"github.com/wricardo/crucible/transport/websocket"
)

// maxBodyBytes bounds request bodies; a 512x512 layout fits comfortably
const maxBodyBytes = 4 << 20

// Server represents the REST API server
type Server struct {
	service service.SolveService
	hub     *websocket.Hub
	router  *mux.Router
	logger  *zap.Logger
	started time.Time
}

// NewServer creates a new API server. hub may be nil when no event stream
// is wanted.
func NewServer(solveService service.SolveService, hub *websocket.Hub, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		service: solveService,
		hub:     hub,
		router:  mux.NewRouter(),
		logger:  logger,
		started: time.Now(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Use(s.logRequests)

	api := s.router.PathPrefix("/api").Subrouter()

	// Solving
	api.HandleFunc("/solve", s.handleSolve).Methods("POST")
	api.HandleFunc("/solve/batch", s.handleSolveBatch).Methods("POST")

	// Run history
	api.HandleFunc("/runs", s.handleListRuns).Methods("GET")
	api.HandleFunc("/runs/{id}", s.handleGetRun).Methods("GET")
	api.HandleFunc("/runs/{id}", s.handleDeleteRun).Methods("DELETE")

	// Puzzles
	api.HandleFunc("/puzzles", s.handleListPuzzles).Methods("GET")
	api.HandleFunc("/puzzles", s.handleCreatePuzzle).Methods("POST")
	api.HandleFunc("/puzzles/{name}", s.handleGetPuzzle).Methods("GET")
	api.HandleFunc("/puzzles/{name}/solve", s.handleSolvePuzzle).Methods("POST")

	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Router exposes the mux so callers can mount extra handlers
func (s *Server) Router() *mux.Router {
	return s.router
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusFor maps service errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrRunNotFound),
		errors.Is(err, puzzle.ErrPuzzleNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrInput),
		errors.Is(err, engine.ErrConfig),
		errors.Is(err, puzzle.ErrInvalidPuzzle),
		errors.Is(err, puzzle.ErrInvalidName),
		errors.Is(err, service.ErrEmptyBatch),
		errors.Is(err, service.ErrBatchTooLarge):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %v", err)
	}
	return nil
}

// Solve Handlers

func (s *Server) handleSolve(w http.ResponseWriter, r *http.Request) {
	var req service.SolveRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.solve(w, r, req)
}

func (s *Server) handleSolvePuzzle(w http.ResponseWriter, r *http.Request) {
	var req service.SolveRequest

	// The body is optional and only carries overrides
	if r.ContentLength != 0 {
		if err := decodeBody(w, r, &req); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	req.PuzzleID = strings.TrimSuffix(mux.Vars(r)["name"], ".json")
	req.Layout = nil
	s.solve(w, r, req)
}

func (s *Server) solve(w http.ResponseWriter, r *http.Request, req service.SolveRequest) {
	result, err := s.service.Solve(r.Context(), req)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleSolveBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Requests []service.SolveRequest `json:"requests"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	batch, err := s.service.SolveBatch(r.Context(), req.Requests)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, batch)
}

// Run Handlers

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.service.ListRuns(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	total := len(runs)

	query := r.URL.Query()
	puzzleID := query.Get("puzzle")
	outcome := query.Get("outcome")

	if puzzleID != "" || outcome != "" {
		filtered := runs[:0]
		for _, run := range runs {
			if puzzleID != "" && !strings.EqualFold(run.PuzzleID, puzzleID) {
				continue
			}
			if outcome != "" && string(run.Outcome) != outcome {
				continue
			}
			filtered = append(filtered, run)
		}
		runs = filtered
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(runs) {
			runs = runs[:l]
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(runs),
		"total": total,
		"runs":  runs,
	})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.service.GetRun(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, run)
}

func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]

	if err := s.service.DeleteRun(r.Context(), runID); err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Run %s deleted", runID),
	})
}

// Puzzle Handlers

func (s *Server) handleListPuzzles(w http.ResponseWriter, r *http.Request) {
	puzzles, err := s.service.ListPuzzles(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, puzzles)
}

func (s *Server) handleGetPuzzle(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSuffix(mux.Vars(r)["name"], ".json")

	p, err := s.service.GetPuzzle(r.Context(), name)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleCreatePuzzle(w http.ResponseWriter, r *http.Request) {
	var p puzzle.Puzzle
	if err := decodeBody(w, r, &p); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if strings.TrimSpace(p.Name) == "" {
		respondError(w, http.StatusBadRequest, "Puzzle name is required")
		return
	}

	puzzleID := r.URL.Query().Get("id")
	if puzzleID == "" {
		puzzleID = slug(p.Name)
	}

	if err := s.service.SavePuzzle(r.Context(), puzzleID, &p); err != nil {
		respondError(w, statusFor(err), fmt.Sprintf("Failed to save puzzle: %v", err))
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":   "Puzzle saved successfully",
		"puzzle_id": puzzleID,
	})
}

// slug turns a display name into a puzzle ID
func slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('_')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "event stream disabled", http.StatusServiceUnavailable)
		return
	}

	channel := r.URL.Query().Get("channel")
	if channel == "" {
		channel = websocket.ChannelAll
	}

	s.hub.ServeWS(w, r, channel)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	clients := 0
	if s.hub != nil {
		clients = s.hub.TotalClients()
	}

	runs, _ := s.service.ListRuns(r.Context())

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "healthy",
		"uptime":     time.Since(s.started).Round(time.Second).String(),
		"runs":       len(runs),
		"ws_clients": clients,
	})
}

// logRequests logs one line per request
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
