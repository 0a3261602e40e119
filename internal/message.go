package internal

import "encoding/json"

// PacketID is the numeric kind carried in the "id" field of every packet.
type PacketID int

const (
	PacketGuess         PacketID = 0
	PacketHint          PacketID = 1
	PacketOptions       PacketID = 2
	PacketStart         PacketID = 3
	PacketChat          PacketID = 4
	PacketPlayerUpdate  PacketID = 5
	PacketPrivateUpdate PacketID = 6
	PacketAllInfo       PacketID = 7
	PacketNewRound      PacketID = 8
	PacketInfo          PacketID = 9
	PacketGameOver      PacketID = 10
)

// Inbound is the union of every client to server packet.
type Inbound struct {
	ID      PacketID        `json:"id"`
	Guess   string          `json:"guess,omitempty"`
	Options json.RawMessage `json:"options,omitempty"`
	Message string          `json:"message,omitempty"`
}

type HintPacket struct {
	ID      PacketID `json:"id"`
	Guess   string   `json:"guess"`
	Hints   Hint     `json:"hints"`
	Correct bool     `json:"correct"`
}

type OptionsPacket struct {
	ID      PacketID `json:"id"`
	Options Options  `json:"options"`
}

type ChatPacket struct {
	ID      PacketID `json:"id"`
	UUID    string   `json:"uuid"`
	Message string   `json:"message"`
}

type PlayerUpdatePacket struct {
	ID     PacketID     `json:"id"`
	UUID   string       `json:"uuid"`
	Player PublicPlayer `json:"player"`
}

type PrivateUpdatePacket struct {
	ID       PacketID `json:"id"`
	Guesses  []string `json:"guesses"`
	Hints    []Hint   `json:"hints"`
	CanGuess bool     `json:"canGuess"`
}

type AllInfoPacket struct {
	ID      PacketID       `json:"id"`
	Players []PublicPlayer `json:"players"`
	Game    GameInfo       `json:"game"`
}

type InfoPacket struct {
	ID      PacketID `json:"id"`
	Message string   `json:"message"`
}

// SignalPacket carries no payload beyond its id (new round, game over).
type SignalPacket struct {
	ID PacketID `json:"id"`
}
