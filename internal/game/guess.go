package game

import (
	"fmt"

	"github.com/AlrightyTighty/baddle-backend/internal"
)

// =============================================================================
// GUESS HANDLING
// =============================================================================

// handleGuess scores a guess and finishes the player's round on a win or
// once all guesses are spent. The round ends early when nobody can guess.
func (s *Session) handleGuess(p *internal.Player, raw string) error {
	if s.phase != internal.PhaseRoundActive {
		return ErrNoActiveRound
	}
	if !p.CanGuess {
		return ErrNotEligible
	}
	guess, ok := NormalizeGuess(raw)
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidGuess, raw)
	}

	hint := diffWithCounts(s.secret, guess, s.letterCounts)
	p.Score += p.RecordGuess(guess, hint)

	correct := p.IsWinningHint(hint)
	var progress string
	switch {
	case correct:
		p.Score += WinBonus(p.GuessesUsed())
		p.CanGuess = false
		progress = fmt.Sprintf("%s has guessed the word in %d guesses!", p.Name, p.GuessesUsed())
	case p.OutOfGuesses():
		p.CanGuess = false
		progress = fmt.Sprintf("%s failed to guess the word in %d guesses.", p.Name, internal.MaxGuessesPerRound)
	}

	s.log.Debug().
		Str("player", p.ID).
		Int("guesses", p.GuessesUsed()).
		Bool("correct", correct).
		Int("score", p.Score).
		Msg("guess scored")

	s.broadcastPlayerUpdate(p)
	s.send(p, p.PrivateUpdate())
	s.send(p, internal.HintPacket{
		ID:      internal.PacketHint,
		Guess:   guess,
		Hints:   hint,
		Correct: correct,
	})

	if progress == "" {
		return nil
	}

	s.broadcastInfo(progress)
	if s.everyoneFinished() {
		s.endRound()
	}
	return nil
}
