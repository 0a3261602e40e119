package game

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"slices"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/AlrightyTighty/baddle-backend/internal"
)

const inboxSize = 64

// WordSource supplies secret words.
type WordSource interface {
	RandomWord() string
}

// ResultRecorder archives finished games.
type ResultRecorder interface {
	RecordGame(ctx context.Context, result internal.GameResult) error
}

// SessionConfig holds what every session of a registry shares.
type SessionConfig struct {
	Defaults    internal.Options
	SettleDelay time.Duration
	Words       WordSource
	Clock       Clock
	Recorder    ResultRecorder
	Logger      *zerolog.Logger
}

func (c SessionConfig) withDefaults() SessionConfig {
	if !c.Defaults.Valid() {
		c.Defaults = internal.DefaultOptions()
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = internal.SettleDelay
	}
	if c.Clock == nil {
		c.Clock = RealClock()
	}
	if c.Logger == nil {
		l := log.Logger
		c.Logger = &l
	}
	return c
}

// =============================================================================
// SESSION EVENTS
// =============================================================================

type joinEvent struct {
	player *internal.Player
	reply  chan error
}

type messageEvent struct {
	playerID string
	data     []byte
}

type leaveEvent struct {
	playerID string
}

type closeEvent struct {
	code   int
	reason string
}

// =============================================================================
// SESSION
// =============================================================================

// Session is one room. All game state is owned by the goroutine running
// run; other goroutines talk to it through the inbox.
type Session struct {
	code    string
	cfg     SessionConfig
	clock   Clock
	log     zerolog.Logger
	onClose func(*Session)

	started       bool
	phase         internal.GamePhase
	players       []*internal.Player
	host          *internal.Player
	secret        string
	letterCounts  map[byte]int
	roundsPlayed  int
	options       internal.Options
	timer         Stopper
	timerGen      uint64
	roundDeadline time.Time
	closed        bool

	inbox   chan any
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	summary atomic.Pointer[internal.GameInfo]
}

func newSession(code string, cfg SessionConfig, host *internal.Player) *Session {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	s := &Session{
		code:    code,
		cfg:     cfg,
		clock:   cfg.Clock,
		log:     cfg.Logger.With().Str("room", code).Logger(),
		phase:   internal.PhaseLobby,
		options: cfg.Defaults,
		inbox:   make(chan any, inboxSize),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	host.RoomCode = code
	host.IsHost = true
	host.CanGuess = false
	s.players = []*internal.Player{host}
	s.host = host
	s.publish()

	return s
}

func (s *Session) Code() string { return s.code }

// Info returns the game summary published after the last processed event.
func (s *Session) Info() internal.GameInfo {
	return *s.summary.Load()
}

// Done is closed once the session loop has exited.
func (s *Session) Done() <-chan struct{} { return s.done }

// Join asks the session to admit p and waits for the verdict.
func (s *Session) Join(ctx context.Context, p *internal.Player) error {
	reply := make(chan error, 1)
	if err := s.post(joinEvent{player: p, reply: reply}); err != nil {
		return err
	}

	select {
	case err := <-reply:
		return err
	case <-s.done:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Deliver hands a raw client packet to the session.
func (s *Session) Deliver(playerID string, data []byte) error {
	return s.post(messageEvent{playerID: playerID, data: data})
}

// Leave removes a player. Unknown ids are ignored.
func (s *Session) Leave(playerID string) {
	_ = s.post(leaveEvent{playerID: playerID})
}

// Close disconnects every player with the given close frame and tears the
// session down.
func (s *Session) Close(code int, reason string) {
	_ = s.post(closeEvent{code: code, reason: reason})
}

func (s *Session) post(ev any) error {
	select {
	case <-s.ctx.Done():
		return ErrRoomClosed
	default:
	}

	select {
	case s.inbox <- ev:
		return nil
	case <-s.ctx.Done():
		return ErrRoomClosed
	}
}

func (s *Session) run() {
	defer close(s.done)

	s.log.Info().Str("host", s.host.ID).Msg("room created")
	s.broadcastAllInfo()

	for {
		select {
		case ev := <-s.inbox:
			s.dispatch(ev)
			if s.closed {
				return
			}
		case <-s.ctx.Done():
			return
		}
	}
}

// dispatch handles one event to completion. A panic is contained to the
// event that caused it.
func (s *Session) dispatch(ev any) {
	defer s.publish()
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("session handler panicked")
		}
	}()

	switch e := ev.(type) {
	case joinEvent:
		err := ErrRoomClosed
		defer func() {
			s.publish()
			e.reply <- err
		}()
		err = s.handleJoin(e.player)
	case messageEvent:
		if err := s.handleMessage(e.playerID, e.data); err != nil {
			s.log.Debug().Err(err).Str("player", e.playerID).Msg("message rejected")
		}
	case leaveEvent:
		s.removePlayer(e.playerID)
	case timerEvent:
		s.handleTimer(e)
	case closeEvent:
		s.shutdown(e.code, e.reason)
	default:
		s.log.Warn().Str("event", fmt.Sprintf("%T", ev)).Msg("unknown session event")
	}
}

func (s *Session) publish() {
	info := s.gameInfo()
	s.summary.Store(&info)
}

func (s *Session) gameInfo() internal.GameInfo {
	return internal.GameInfo{
		Started:      s.started,
		Code:         s.code,
		Options:      s.options,
		Time:         s.secondsRemaining(),
		RoundsPlayed: s.roundsPlayed,
		Phase:        s.phase,
		PlayerCount:  len(s.players),
	}
}

// =============================================================================
// MEMBERSHIP
// =============================================================================

func (s *Session) handleJoin(p *internal.Player) error {
	if s.closed {
		return ErrRoomClosed
	}
	if len(s.players) >= s.options.RoomSize {
		s.log.Info().Str("name", p.Name).Int("players", len(s.players)).Msg("join rejected: room full")
		return ErrRoomFull
	}
	if s.started && !s.options.AllowLateJoin {
		s.log.Info().Str("name", p.Name).Msg("join rejected: game in progress")
		return ErrLateJoinDisabled
	}

	p.RoomCode = s.code
	p.IsHost = false
	p.CanGuess = false
	p.ClearRoundState()
	s.players = append(s.players, p)

	s.log.Info().
		Str("player", p.ID).
		Str("name", p.Name).
		Int("players", len(s.players)).
		Msg("player joined")

	s.broadcastAllInfo()
	return nil
}

func (s *Session) player(id string) *internal.Player {
	for _, p := range s.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (s *Session) removePlayer(id string) {
	idx := slices.IndexFunc(s.players, func(p *internal.Player) bool { return p.ID == id })
	if idx < 0 {
		return
	}

	p := s.players[idx]
	s.players = slices.Delete(s.players, idx, idx+1)
	p.CanGuess = false

	s.log.Info().
		Str("player", p.ID).
		Str("name", p.Name).
		Int("players", len(s.players)).
		Msg("player left")

	if len(s.players) == 0 {
		s.teardown()
		return
	}

	if p.IsHost {
		p.IsHost = false
		s.host = s.players[0]
		s.host.IsHost = true
		s.log.Info().Str("player", s.host.ID).Str("name", s.host.Name).Msg("host promoted")
	}

	s.broadcastAllInfo()

	if s.phase == internal.PhaseRoundActive && s.everyoneFinished() {
		s.endRound()
	}
}

// shutdown closes every connection and tears the session down.
func (s *Session) shutdown(code int, reason string) {
	for _, p := range s.players {
		p.CanGuess = false
		if p.Conn == nil {
			continue
		}
		if err := p.Conn.Close(code, reason); err != nil {
			s.log.Debug().Err(err).Str("player", p.ID).Msg("close connection")
		}
	}
	s.players = nil
	s.teardown()
}

// teardown cancels pending timers and releases the room code.
func (s *Session) teardown() {
	if s.closed {
		return
	}
	s.closed = true
	s.cancelTimer()
	s.phase = internal.PhaseLobby
	s.started = false
	s.secret = ""
	s.letterCounts = nil
	s.host = nil
	s.cancel()

	if s.onClose != nil {
		s.onClose(s)
	}
	s.log.Info().Msg("room closed")
}

// =============================================================================
// MESSAGE DISPATCH
// =============================================================================

func (s *Session) handleMessage(playerID string, data []byte) error {
	p := s.player(playerID)
	if p == nil {
		return ErrUnknownPlayer
	}

	var in internal.Inbound
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPacket, err)
	}

	switch in.ID {
	case internal.PacketGuess:
		return s.handleGuess(p, in.Guess)
	case internal.PacketOptions:
		return s.handleOptions(p, in.Options)
	case internal.PacketStart:
		return s.handleStart(p)
	case internal.PacketChat:
		return s.handleChat(p, in.Message)
	case internal.PacketAllInfo:
		s.send(p, s.allInfoPacket())
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrUnknownPacket, in.ID)
	}
}

func (s *Session) handleChat(p *internal.Player, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return ErrEmptyChat
	}
	if utf8.RuneCountInString(message) > internal.MaxChatLength {
		message = string([]rune(message)[:internal.MaxChatLength])
	}

	s.broadcast(internal.ChatPacket{
		ID:      internal.PacketChat,
		UUID:    p.ID,
		Message: message,
	})
	return nil
}
