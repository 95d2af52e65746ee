package api

import (
	"github.com/craftwatch/core/console"
)

// ConsoleEntry is one line of console output.
type ConsoleEntry struct {
	ID        uint64 `json:"id"`
	Origin    string `json:"origin"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"` // unix timestamp
}

// ConsoleEvents is a batch of console lines after a cursor. Clients poll
// with the returned last_id; a changed generation invalidates their cursor.
type ConsoleEvents struct {
	Entries    []ConsoleEntry `json:"entries"`
	LastID     uint64         `json:"last_id"`
	Generation uint64         `json:"generation"`
}

// Unmarshal converts buffer entries to their API representation.
func (e *ConsoleEvents) Unmarshal(entries []console.Entry, lastID, generation uint64) {
	e.Entries = make([]ConsoleEntry, 0, len(entries))
	e.LastID = lastID
	e.Generation = generation

	for _, entry := range entries {
		e.Entries = append(e.Entries, ConsoleEntry{
			ID:        entry.ID,
			Origin:    string(entry.Origin),
			Text:      entry.Text,
			Timestamp: entry.Timestamp.Unix(),
		})
	}
}

// Command is a console or RCON command request.
type Command struct {
	Command string `json:"command"`
}

// CommandResponse is the reply to an RCON command.
type CommandResponse struct {
	Response string `json:"response"`
}
