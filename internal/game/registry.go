package game

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/AlrightyTighty/baddle-backend/internal"
	"github.com/AlrightyTighty/baddle-backend/internal/utils"
)

const maxCodeAttempts = 1000

// =============================================================================
// ROOM MANAGEMENT
// =============================================================================

// Registry maps room codes to live sessions.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	cfg      SessionConfig
	log      zerolog.Logger
	newCode  func() string
}

func NewRegistry(cfg SessionConfig) *Registry {
	cfg = cfg.withDefaults()
	return &Registry{
		sessions: make(map[string]*Session),
		cfg:      cfg,
		log:      cfg.Logger.With().Str("component", "registry").Logger(),
		newCode:  utils.GenerateRoomCode,
	}
}

// Create opens a new room hosted by host and starts its loop.
func (r *Registry) Create(host *internal.Player) (*Session, error) {
	r.mu.Lock()
	code, err := r.allocateCodeLocked()
	if err != nil {
		r.mu.Unlock()
		r.log.Error().Err(err).Int("rooms", len(r.sessions)).Msg("allocate room code")
		return nil, err
	}
	s := newSession(code, r.cfg, host)
	s.onClose = r.remove
	r.sessions[code] = s
	r.mu.Unlock()

	go s.run()
	return s, nil
}

// allocateCodeLocked samples codes until one is free. r.mu must be held.
func (r *Registry) allocateCodeLocked() (string, error) {
	for range maxCodeAttempts {
		code := r.newCode()
		if _, taken := r.sessions[code]; !taken {
			return code, nil
		}
	}
	return "", ErrNoCodeAvailable
}

// Lookup finds a live room by code. Codes are matched case-insensitively.
func (r *Registry) Lookup(code string) (*Session, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, ErrCodeRequired
	}

	r.mu.Lock()
	s, ok := r.sessions[code]
	r.mu.Unlock()
	if !ok {
		return nil, ErrRoomNotFound
	}
	return s, nil
}

// Join admits p to the room with the given code.
func (r *Registry) Join(ctx context.Context, code string, p *internal.Player) (*Session, error) {
	s, err := r.Lookup(code)
	if err != nil {
		return nil, err
	}
	if err := s.Join(ctx, p); err != nil {
		if ctx.Err() != nil {
			// The join may still be applied after we stop waiting.
			s.Leave(p.ID)
		}
		return nil, err
	}
	return s, nil
}

// JoinableRoom returns the code of a lobby with a free seat.
func (r *Registry) JoinableRoom() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for code, s := range r.sessions {
		info := s.Info()
		if !info.Started && info.Joinable() {
			r.log.Debug().Str("room", code).Int("players", info.PlayerCount).Msg("found joinable room")
			return code, true
		}
	}
	return "", false
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// remove drops s from the registry if its code still points at it.
func (r *Registry) remove(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.sessions[s.code]; ok && cur == s {
		delete(r.sessions, s.code)
	}
}

// CloseAll closes every room and waits for their loops to exit.
func (r *Registry) CloseAll(ctx context.Context, code int, reason string) error {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	r.log.Info().Int("rooms", len(sessions)).Msg("closing all rooms")

	for _, s := range sessions {
		s.Close(code, reason)
	}
	for _, s := range sessions {
		select {
		case <-s.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
