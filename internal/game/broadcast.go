package game

import (
	"encoding/json"

	"github.com/AlrightyTighty/baddle-backend/internal"
)

// =============================================================================
// BROADCASTING & MESSAGING
// =============================================================================

// broadcast marshals msg once and queues it for every player in join order.
// Delivery failures are logged; the player is removed by its own read pump.
func (s *Session) broadcast(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.log.Error().Err(err).Msg("marshal broadcast")
		return
	}

	successCount := 0
	for _, p := range s.players {
		if p.Conn == nil {
			continue
		}
		if err := p.Conn.Send(data); err != nil {
			s.log.Warn().Err(err).Str("player", p.ID).Str("name", p.Name).Msg("broadcast failed")
			continue
		}
		successCount++
	}

	s.log.Trace().
		RawJSON("packet", data).
		Int("sent", successCount).
		Int("players", len(s.players)).
		Msg("broadcast")
}

// send queues msg for one player only.
func (s *Session) send(p *internal.Player, msg any) {
	if err := p.SendJSON(msg); err != nil {
		s.log.Warn().Err(err).Str("player", p.ID).Str("name", p.Name).Msg("send failed")
	}
}

func (s *Session) allInfoPacket() internal.AllInfoPacket {
	players := make([]internal.PublicPlayer, 0, len(s.players))
	for _, p := range s.players {
		players = append(players, p.ToPublicPlayer())
	}
	return internal.AllInfoPacket{
		ID:      internal.PacketAllInfo,
		Players: players,
		Game:    s.gameInfo(),
	}
}

// broadcastAllInfo sends the full snapshot to everyone in the room.
func (s *Session) broadcastAllInfo() {
	s.broadcast(s.allInfoPacket())
}

func (s *Session) broadcastPlayerUpdate(p *internal.Player) {
	s.broadcast(internal.PlayerUpdatePacket{
		ID:     internal.PacketPlayerUpdate,
		UUID:   p.ID,
		Player: p.ToPublicPlayer(),
	})
}

func (s *Session) broadcastInfo(message string) {
	s.broadcast(internal.InfoPacket{
		ID:      internal.PacketInfo,
		Message: message,
	})
}
