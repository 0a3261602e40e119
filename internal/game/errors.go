package game

import "errors"

// Connection-time errors. These end the connection with a close reason.
var (
	ErrNameRequired     = errors.New("name required")
	ErrCodeRequired     = errors.New("room code required")
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomFull         = errors.New("room full")
	ErrLateJoinDisabled = errors.New("late join disabled")
	ErrRoomClosed       = errors.New("room closed")
	ErrNoCodeAvailable  = errors.New("no room code available")
)

// In-session errors. These are logged and dropped by the session loop.
var (
	ErrNotHost         = errors.New("not host")
	ErrAlreadyStarted  = errors.New("game already started")
	ErrNotEligible     = errors.New("player cannot guess")
	ErrNoActiveRound   = errors.New("no active round")
	ErrInvalidGuess    = errors.New("invalid guess")
	ErrInvalidOptions  = errors.New("invalid options")
	ErrUnknownPacket   = errors.New("unknown packet id")
	ErrEmptyChat       = errors.New("empty chat message")
	ErrUnknownPlayer   = errors.New("unknown player")
	ErrMalformedPacket = errors.New("malformed packet")
)

const (
	CloseProtocolError = 1002
	CloseGoingAway     = 1001
)

// CloseReason maps a connection-time error to the text shown to the client.
func CloseReason(err error) string {
	switch {
	case errors.Is(err, ErrNameRequired):
		return "You must enter a name."
	case errors.Is(err, ErrCodeRequired):
		return "If you aren't hosting, you must provide a room code to join."
	case errors.Is(err, ErrRoomNotFound), errors.Is(err, ErrRoomClosed):
		return "There is no room with that code."
	case errors.Is(err, ErrRoomFull), errors.Is(err, ErrLateJoinDisabled):
		return "This lobby isn't currently accepting players."
	case errors.Is(err, ErrNoCodeAvailable):
		return "The server can't open any more rooms right now."
	default:
		return "Unable to join."
	}
}
