package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/AlrightyTighty/baddle-backend/internal"
	"github.com/AlrightyTighty/baddle-backend/internal/storage"
	"github.com/AlrightyTighty/baddle-backend/internal/utils"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

func (s *Server) RegisterRoutes() http.Handler {
	r := mux.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(s.corsMiddleware)

	// Clients connect on the root path with query parameters.
	r.HandleFunc("/", s.RootHandler)
	r.Handle("/ws", s.ws)

	r.HandleFunc("/health", s.HealthHandler).Methods(http.MethodGet)
	r.HandleFunc("/rooms-available", s.GetRoomToJoin).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/rooms/{code}", s.GetRoomInfo).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/leaderboard", s.GetLeaderboard).Methods(http.MethodGet, http.MethodOptions)

	return r
}

// CORS middleware
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// If it's a websocket upgrade, the upgrader checks the origin
		if strings.ToLower(r.Header.Get("Upgrade")) == "websocket" {
			next.ServeHTTP(w, r)
			return
		}

		allowOrigin := "*"
		if len(s.origins) > 0 {
			origin := r.Header.Get("Origin")
			if !s.checkOrigin(r) || origin == "" {
				origin = s.origins[0]
			}
			allowOrigin = origin
			w.Header().Set("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type")
		w.Header().Set("Access-Control-Allow-Credentials", "false")

		// Handle preflight OPTIONS requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) RootHandler(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		s.ws.ServeHTTP(w, r)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "baddle backend"})
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":    true,
		"rooms": s.registry.Len(),
	})
}

// GetRoomToJoin finds a lobby with a free seat.
func (s *Server) GetRoomToJoin(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()

	var resp internal.Response
	if code, ok := s.registry.JoinableRoom(); ok {
		resp = internal.Response{
			StatusCode:    http.StatusOK,
			RespStartTime: startTime,
			Data:          code,
		}
	} else {
		resp = internal.Response{
			StatusCode:    http.StatusNotFound,
			RespStartTime: startTime,
			Data:          "No joinable rooms available",
		}
	}

	s.writeResponse(w, resp)
}

// GetRoomInfo reports the public game info of one room.
func (s *Server) GetRoomInfo(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()
	code := strings.ToUpper(mux.Vars(r)["code"])

	resp := internal.Response{
		StatusCode:    http.StatusNotFound,
		RespStartTime: startTime,
		Data:          "There is no room with that code.",
	}
	if utils.IsRoomCode(code) {
		if sess, err := s.registry.Lookup(code); err == nil {
			resp.StatusCode = http.StatusOK
			resp.Data = sess.Info()
		}
	}

	s.writeResponse(w, resp)
}

type leaderboardData struct {
	GamesPlayed int                        `json:"games_played"`
	Entries     []storage.LeaderboardEntry `json:"entries"`
}

// GetLeaderboard lists the best archived scores.
func (s *Server) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()

	if s.leaderboard == nil {
		s.writeResponse(w, internal.Response{
			StatusCode:    http.StatusServiceUnavailable,
			RespStartTime: startTime,
			Data:          "Leaderboard is not enabled",
		})
		return
	}

	limit := defaultLeaderboardLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeResponse(w, internal.Response{
				StatusCode:    http.StatusBadRequest,
				RespStartTime: startTime,
				Data:          "limit must be a positive number",
			})
			return
		}
		limit = min(n, maxLeaderboardLimit)
	}

	entries, err := s.leaderboard.Leaderboard(r.Context(), limit)
	if err != nil {
		s.log.Error().Err(err).Msg("load leaderboard")
		s.writeResponse(w, internal.Response{
			StatusCode:    http.StatusInternalServerError,
			RespStartTime: startTime,
			Data:          "Internal server error",
		})
		return
	}
	games, err := s.leaderboard.GamesPlayed(r.Context())
	if err != nil {
		s.log.Warn().Err(err).Msg("count games")
	}

	if entries == nil {
		entries = []storage.LeaderboardEntry{}
	}
	data := leaderboardData{GamesPlayed: games, Entries: entries}

	s.writeResponse(w, internal.Response{
		StatusCode:    http.StatusOK,
		RespStartTime: startTime,
		Data:          data,
	})
}

// writeResponse stamps the timing fields and encodes resp.
func (s *Server) writeResponse(w http.ResponseWriter, resp internal.Response) {
	endTime := time.Now().UnixMilli()
	resp.RespEndTime = endTime
	resp.NetRespTime = endTime - resp.RespStartTime

	writeJSON(w, resp.StatusCode, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
