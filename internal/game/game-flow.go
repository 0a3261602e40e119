package game

import (
	"github.com/AlrightyTighty/baddle-backend/internal"
)

const RoundOverMessage = "Round over! Setting up for next round..."

// =============================================================================
// GAME FLOW - ROUND MANAGEMENT
// =============================================================================

// startRound moves to the next round, or to game over once every
// configured round has been played.
func (s *Session) startRound() {
	for _, p := range s.players {
		p.ClearRoundState()
	}

	s.roundsPlayed++
	if s.roundsPlayed > s.options.NumRounds {
		s.resetToLobby()
		return
	}

	s.secret = s.cfg.Words.RandomWord()
	s.letterCounts = LetterCounts(s.secret)
	for _, p := range s.players {
		p.CanGuess = true
	}
	s.phase = internal.PhaseRoundActive
	s.scheduleTimer(timerRound, s.options.RoundDuration())

	s.log.Info().
		Int("round", s.roundsPlayed).
		Int("of", s.options.NumRounds).
		Msg("round started")

	s.broadcast(internal.SignalPacket{ID: internal.PacketNewRound})
	s.broadcastAllInfo()
}

// endRound closes the active round and schedules the next one after the
// settle delay.
func (s *Session) endRound() {
	if s.phase != internal.PhaseRoundActive {
		return
	}

	for _, p := range s.players {
		p.CanGuess = false
	}
	s.phase = internal.PhaseRoundEnding
	s.scheduleTimer(timerSettle, s.cfg.SettleDelay)

	s.log.Info().Int("round", s.roundsPlayed).Msg("round over")
	s.broadcastInfo(RoundOverMessage)
}

// everyoneFinished reports whether no player can still guess this round.
func (s *Session) everyoneFinished() bool {
	for _, p := range s.players {
		if p.CanGuess {
			return false
		}
	}
	return true
}
