package internal

import "time"

const (
	WordLength         = 5
	MaxGuessesPerRound = 6
	RoomCodeLength     = 5
	SettleDelay        = 3 * time.Second
	WinBonusPerGuess   = 10
	MaxChatLength      = 200
)

// Option bounds accepted from the host.
const (
	MinRoundLength = 10
	MaxRoundLength = 600
	MinRoomSize    = 1
	MaxRoomSize    = 16
	MinNumRounds   = 1
	MaxNumRounds   = 20
)

type GamePhase string

const (
	PhaseLobby       GamePhase = "lobby"
	PhaseRoundActive GamePhase = "round_active"
	PhaseRoundEnding GamePhase = "round_ending"
)

// HintStatus classifies a single letter of a guess. The numeric values are
// part of the client protocol.
type HintStatus int

const (
	HintUnknown        HintStatus = 0
	HintAbsent         HintStatus = 1
	HintKnownElsewhere HintStatus = 2
	HintSolved         HintStatus = 4
)

// Points is the per-letter contribution of a status to a guess score.
func (h HintStatus) Points() int {
	return int(h) / 2
}

type Hint []HintStatus

func EmptyHint() Hint {
	h := make(Hint, WordLength)
	for i := range h {
		h[i] = HintUnknown
	}
	return h
}

// Score sums the letter points of the hint.
func (h Hint) Score() int {
	total := 0
	for _, s := range h {
		total += s.Points()
	}
	return total
}

// IsWinning reports whether every position is solved.
func (h Hint) IsWinning() bool {
	if len(h) == 0 {
		return false
	}
	for _, s := range h {
		if s != HintSolved {
			return false
		}
	}
	return true
}

type Options struct {
	RoundLength   int  `json:"roundLength"`
	RoomSize      int  `json:"roomSize"`
	AllowLateJoin bool `json:"allowLateJoin"`
	NumRounds     int  `json:"numRounds"`
}

func DefaultOptions() Options {
	return Options{
		RoundLength:   180,
		RoomSize:      10,
		AllowLateJoin: false,
		NumRounds:     3,
	}
}

func (o Options) RoundDuration() time.Duration {
	return time.Duration(o.RoundLength) * time.Second
}

func (o Options) Valid() bool {
	return o.RoundLength >= MinRoundLength && o.RoundLength <= MaxRoundLength &&
		o.RoomSize >= MinRoomSize && o.RoomSize <= MaxRoomSize &&
		o.NumRounds >= MinNumRounds && o.NumRounds <= MaxNumRounds
}

// GameInfo is the public part of a session sent inside snapshots.
type GameInfo struct {
	Started      bool      `json:"started"`
	Code         string    `json:"code"`
	Options      Options   `json:"options"`
	Time         int       `json:"time"`
	RoundsPlayed int       `json:"roundsPlayed"`
	Phase        GamePhase `json:"phase"`
	PlayerCount  int       `json:"playerCount"`
}

// Joinable reports whether a new player could be admitted right now.
func (g GameInfo) Joinable() bool {
	if g.PlayerCount >= g.Options.RoomSize {
		return false
	}
	return !g.Started || g.Options.AllowLateJoin
}

type Standing struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
	Position int    `json:"position"`
}

// GameResult is the record of a finished game.
type GameResult struct {
	Code       string     `json:"code"`
	Rounds     int        `json:"rounds"`
	Standings  []Standing `json:"standings"`
	FinishedAt time.Time  `json:"finished_at"`
}

type Response struct {
	StatusCode    int   `json:"status_code"`
	RespStartTime int64 `json:"resp_time_start_ms"`
	RespEndTime   int64 `json:"resp_time_end_ms"`
	NetRespTime   int64 `json:"net_resp_time_ms"`
	Data          any   `json:"data"`
}
