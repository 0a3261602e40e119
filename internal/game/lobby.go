package game

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AlrightyTighty/baddle-backend/internal"
)

const recordTimeout = 10 * time.Second

// =============================================================================
// GAME FLOW - LOBBY
// =============================================================================

// handleStart begins the first round. Only the host may start, and only
// from the lobby.
func (s *Session) handleStart(p *internal.Player) error {
	if !p.IsHost {
		return ErrNotHost
	}
	if s.started {
		return ErrAlreadyStarted
	}

	s.started = true
	s.roundsPlayed = 0
	s.log.Info().
		Int("players", len(s.players)).
		Int("rounds", s.options.NumRounds).
		Msg("game started")

	s.startRound()
	return nil
}

// handleOptions applies a host's options update. Fields missing from raw
// keep their current values.
func (s *Session) handleOptions(p *internal.Player, raw json.RawMessage) error {
	if !p.IsHost {
		return ErrNotHost
	}
	if s.started {
		return ErrAlreadyStarted
	}
	if len(raw) == 0 {
		return ErrInvalidOptions
	}

	opts := s.options
	if err := json.Unmarshal(raw, &opts); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	if !opts.Valid() {
		return fmt.Errorf("%w: %+v", ErrInvalidOptions, opts)
	}

	s.options = opts
	s.log.Info().Interface("options", opts).Msg("options updated")

	s.broadcast(internal.OptionsPacket{
		ID:      internal.PacketOptions,
		Options: opts,
	})
	return nil
}

// resetToLobby finishes the game: final standings are recorded, scores
// are zeroed and the room goes back to waiting for a start.
func (s *Session) resetToLobby() {
	result := CalculateFinalResults(s.code, s.options.NumRounds, s.players, s.clock.Now())

	// 1. Cancel timers and clear round state
	s.cancelTimer()
	s.secret = ""
	s.letterCounts = nil

	// 2. Back to lobby
	s.started = false
	s.phase = internal.PhaseLobby
	s.roundsPlayed = 0

	// 3. Clear scores
	for _, p := range s.players {
		p.Score = 0
		p.CanGuess = false
		p.ClearRoundState()
	}

	s.log.Info().Int("players", len(result.Standings)).Msg("game over")

	s.broadcast(internal.SignalPacket{ID: internal.PacketGameOver})
	s.broadcastAllInfo()

	s.recordResult(result)
}

// recordResult archives result off the session loop.
func (s *Session) recordResult(result internal.GameResult) {
	rec := s.cfg.Recorder
	if rec == nil || len(result.Standings) == 0 {
		return
	}

	logger := s.log
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()

		if err := rec.RecordGame(ctx, result); err != nil {
			logger.Warn().Err(err).Msg("record game result")
			return
		}
		logger.Debug().Msg("game result recorded")
	}()
}
