package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mark3labs/mcp-go/server"

	"github.com/brensch/kalah/analysis"
	"github.com/brensch/kalah/mcpserver"
)

// Server holds shared state for HTTP handlers.
type Server struct {
	roots    []string
	debugDir string
	dbCache  *DBCache
	mcp      *server.MCPServer
	hub      *Hub
}

func NewServer(roots []string, debugDir string) *Server {
	return &Server{
		roots:    roots,
		debugDir: debugDir,
		dbCache:  NewDBCache(roots, 30*time.Second),
		mcp:      mcpserver.New(),
		hub:      NewHub(),
	}
}

// Handler returns the router for the API, the MCP endpoint and the live
// feed. Unmatched paths fall through to static when it is non-nil.
func (s *Server) Handler(static http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Route("/api", func(r chi.Router) {
		r.Get("/games", s.handleGames)
		r.Get("/games/{id}/turns", s.handleGameTurns)
		r.Get("/stats", s.handleStats)
		r.Post("/analyze", s.handleAnalyze)
		r.Get("/debug_games", s.handleDebugGamesList)
		r.Get("/debug_games/{id}", s.handleDebugGame)
		r.Get("/live", s.handleLive)
	})
	r.Post("/mcp", s.handleMCP)

	if static != nil {
		r.NotFound(static.ServeHTTP)
	}
	return r
}

func (s *Server) Close() error {
	return s.dbCache.Close()
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		withCORS(w, r)
		if r.Method == http.MethodOptions {
			return
		}
		next.ServeHTTP(w, r)
	})
}

func pathID(r *http.Request) (string, error) {
	id, err := url.PathUnescape(chi.URLParam(r, "id"))
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", errors.New("empty id")
	}
	return id, nil
}

func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	// Force DB refresh to ensure we see the latest games from disk.
	if err := s.dbCache.Refresh(); err != nil {
		http.Error(w, fmt.Sprintf("failed to refresh db: %v", err), http.StatusInternalServerError)
		return
	}
	db, err := s.dbCache.Get()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	limit := parseIntQuery(r, "limit", 200)
	offset := parseIntQuery(r, "offset", 0)
	sortKey := strings.TrimSpace(r.URL.Query().Get("sort"))
	sortDir := strings.TrimSpace(r.URL.Query().Get("dir"))

	total, err := queryGamesTotal(r.Context(), db)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	games, err := queryGames(r.Context(), db, s.roots, limit, offset, sortKey, sortDir)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, GamesResponse{Total: total, Games: games})
}

func (s *Server) handleGameTurns(w http.ResponseWriter, r *http.Request) {
	gameID, err := pathID(r)
	if err != nil {
		http.Error(w, "bad game id", http.StatusBadRequest)
		return
	}

	db, err := s.dbCache.Get()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	rows, err := queryTurns(r.Context(), db, gameID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	turns := make([]Turn, 0, len(rows))
	for _, row := range rows {
		turns = append(turns, turnFromRow(row))
	}
	writeJSON(w, turns)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	db, err := s.dbCache.Get()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	snap, err := statsSnapshot(r.Context(), db)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, snap)
}

// handleAnalyze searches a posted position. Nothing is played or stored.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analysis.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	resp, err := analysis.Analyze(req, true)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, resp)
}

// handleMCP answers one JSON-RPC message per request.
func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		http.Error(w, "failed to read request", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	response := s.mcp.HandleMessage(r.Context(), body)
	if response == nil {
		// Notifications have no reply.
		w.WriteHeader(http.StatusAccepted)
		return
	}
	data, err := json.Marshal(response)
	if err != nil {
		http.Error(w, "failed to marshal response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(data); err != nil {
		slog.Debug("mcp write failed", "err", err)
	}
}

// handleDebugGamesList returns a list of available debug games.
func (s *Server) handleDebugGamesList(w http.ResponseWriter, r *http.Request) {
	games, err := listDebugGames(s.debugDir)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, games)
}

// handleDebugGame returns the full data for a specific debug game.
func (s *Server) handleDebugGame(w http.ResponseWriter, r *http.Request) {
	gameID, err := pathID(r)
	if err != nil {
		http.Error(w, "bad game id", http.StatusBadRequest)
		return
	}

	game, err := loadDebugGame(s.debugDir, gameID)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, game)
}
