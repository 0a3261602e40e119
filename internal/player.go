package internal

import (
	"encoding/json"
	"errors"
	"time"
)

var ErrNoConnection = errors.New("player has no connection")

// Conn is the outbound half of a player's transport. Implementations must
// preserve the order of Send calls.
type Conn interface {
	Send(data []byte) error
	Close(code int, reason string) error
}

type Player struct {
	ID       string
	Name     string
	Icon     string
	RoomCode string
	JoinedAt time.Time
	Conn     Conn

	IsHost   bool
	CanGuess bool
	Score    int

	// Round state
	Guesses   []string
	Hints     []Hint
	BestHint  Hint
	BestScore int
}

type PublicPlayer struct {
	Name          string `json:"name"`
	BestGuessHint Hint   `json:"bestGuessHint"`
	IsHost        bool   `json:"isHost"`
	UUID          string `json:"uuid"`
	Score         int    `json:"score"`
	Icon          string `json:"icon"`
}

func NewPlayer(id, name, icon string, conn Conn) *Player {
	return &Player{
		ID:       id,
		Name:     name,
		Icon:     icon,
		Conn:     conn,
		JoinedAt: time.Now(),
		Guesses:  []string{},
		Hints:    []Hint{},
		BestHint: EmptyHint(),
	}
}

// RecordGuess appends the guess and its hint and returns the guess score.
// The best hint only moves on a strictly higher score, so the earliest of
// equally scored hints is kept.
func (p *Player) RecordGuess(guess string, hint Hint) int {
	p.Guesses = append(p.Guesses, guess)
	p.Hints = append(p.Hints, hint)

	score := hint.Score()
	if score > p.BestScore {
		p.BestScore = score
		p.BestHint = hint
	}
	return score
}

func (p *Player) GuessesUsed() int {
	return len(p.Hints)
}

func (p *Player) OutOfGuesses() bool {
	return len(p.Hints) >= MaxGuessesPerRound
}

func (p *Player) IsWinningHint(hint Hint) bool {
	return hint.IsWinning()
}

// ClearRoundState resets guesses, hints and the best hint. Score and
// eligibility belong to the session.
func (p *Player) ClearRoundState() {
	p.Guesses = []string{}
	p.Hints = []Hint{}
	p.BestHint = EmptyHint()
	p.BestScore = 0
}

func (p *Player) ToPublicPlayer() PublicPlayer {
	return PublicPlayer{
		Name:          p.Name,
		BestGuessHint: p.BestHint,
		IsHost:        p.IsHost,
		UUID:          p.ID,
		Score:         p.Score,
		Icon:          p.Icon,
	}
}

func (p *Player) PrivateUpdate() PrivateUpdatePacket {
	return PrivateUpdatePacket{
		ID:       PacketPrivateUpdate,
		Guesses:  append([]string(nil), p.Guesses...),
		Hints:    append([]Hint(nil), p.Hints...),
		CanGuess: p.CanGuess,
	}
}

// SendJSON marshals v and queues it on the player's connection.
func (p *Player) SendJSON(v any) error {
	if p.Conn == nil {
		return ErrNoConnection
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.Conn.Send(data)
}
