package api

import (
	"github.com/craftwatch/core/bridge"
)

// Player is one known player of the server.
type Player struct {
	Name     string `json:"name"`
	Online   bool   `json:"online"`
	LastSeen int64  `json:"last_seen"` // unix timestamp, 0 if never seen
}

// UnmarshalPlayers converts bridge players to their API representation.
func UnmarshalPlayers(players []bridge.Player) []Player {
	result := make([]Player, 0, len(players))

	for _, p := range players {
		player := Player{
			Name:   p.Name,
			Online: p.Online,
		}

		if !p.LastSeen.IsZero() {
			player.LastSeen = p.LastSeen.Unix()
		}

		result = append(result, player)
	}

	return result
}
