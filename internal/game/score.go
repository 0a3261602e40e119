package game

import (
	"slices"
	"strings"
	"time"

	"github.com/AlrightyTighty/baddle-backend/internal"
	"github.com/AlrightyTighty/baddle-backend/internal/utils"
)

// =============================================================================
// SCORING
// =============================================================================

// LetterCounts counts the occurrences of each letter in word.
func LetterCounts(word string) map[byte]int {
	counts := make(map[byte]int, len(word))
	for i := 0; i < len(word); i++ {
		counts[word[i]]++
	}
	return counts
}

// Diff classifies every letter of guess against secret. Both words must
// have the same length; callers validate guesses first.
func Diff(secret, guess string) internal.Hint {
	return diffWithCounts(secret, guess, LetterCounts(secret))
}

// diffWithCounts runs the two-pass comparison against a copy of counts.
// Exact matches consume a letter's budget before elsewhere matches do.
func diffWithCounts(secret, guess string, counts map[byte]int) internal.Hint {
	remaining := make(map[byte]int, len(counts))
	for k, v := range counts {
		remaining[k] = v
	}

	hint := make(internal.Hint, len(guess))

	// 1. Exact matches
	for i := 0; i < len(guess); i++ {
		if guess[i] == secret[i] {
			hint[i] = internal.HintSolved
			remaining[guess[i]]--
		}
	}

	// 2. Everything else, left to right
	for i := 0; i < len(guess); i++ {
		if hint[i] == internal.HintSolved {
			continue
		}
		if remaining[guess[i]] > 0 {
			hint[i] = internal.HintKnownElsewhere
			remaining[guess[i]]--
		} else {
			hint[i] = internal.HintAbsent
		}
	}

	return hint
}

// NormalizeGuess lower-cases raw and checks it is a playable word.
func NormalizeGuess(raw string) (string, bool) {
	guess := strings.ToLower(strings.TrimSpace(raw))
	if !utils.IsPlayableWord(guess) {
		return "", false
	}
	return guess, true
}

// WinBonus is awarded on top of the guess score when a player solves the
// word after using the given number of guesses.
func WinBonus(guessesUsed int) int {
	return internal.WinBonusPerGuess * (internal.MaxGuessesPerRound - guessesUsed)
}

// CalculateFinalResults compiles the standings of a finished game. Ties keep
// join order.
func CalculateFinalResults(code string, rounds int, players []*internal.Player, finishedAt time.Time) internal.GameResult {
	standings := make([]internal.Standing, 0, len(players))
	for _, p := range players {
		standings = append(standings, internal.Standing{
			PlayerID: p.ID,
			Name:     p.Name,
			Score:    p.Score,
		})
	}

	slices.SortStableFunc(standings, func(a, b internal.Standing) int {
		return b.Score - a.Score
	})
	for idx := range standings {
		standings[idx].Position = idx + 1
	}

	return internal.GameResult{
		Code:       code,
		Rounds:     rounds,
		Standings:  standings,
		FinishedAt: finishedAt,
	}
}
