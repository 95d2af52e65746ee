package bridge

import (
	"regexp"
	"sort"
	"sync"
	"time"
)

// Player is one known player, online or not.
type Player struct {
	Name     string    `json:"name"`
	Online   bool      `json:"online"`
	LastSeen time.Time `json:"last_seen"`
}

// Join and leave patterns of the conventional server console dialect,
// e.g. "[14:08:06 INFO]: Kai[/24.198.181.134:25162] logged in with
// entity id 687" and "[INFO]: Kai left the game".
var joinPattern = regexp.MustCompile(`(?i)]:\s*([A-Za-z0-9_]+)\[/[0-9A-Fa-f\.:]+:\d+\]\s+logged in with entity id`)
var quitPattern = regexp.MustCompile(`(?i)]:\s*([A-Za-z0-9_]+)\s+(?:lost connection|disconnected|left the game|timed out)`)

// tracker keeps the online set and last-seen history of players. It is
// fed from console join/leave lines and from remote console list polls,
// the latter replacing the online set wholesale when they succeed.
type tracker struct {
	lock     sync.Mutex
	online   map[string]struct{}
	lastSeen map[string]time.Time
}

func newTracker() *tracker {
	return &tracker{
		online:   map[string]struct{}{},
		lastSeen: map[string]time.Time{},
	}
}

// observe parses one console line for join/leave events. Lines that match
// neither pattern are ignored.
func (t *tracker) observe(line string, now time.Time) {
	if m := joinPattern.FindStringSubmatch(line); m != nil {
		t.lock.Lock()
		t.online[m[1]] = struct{}{}
		t.lastSeen[m[1]] = now
		t.lock.Unlock()

		return
	}

	if m := quitPattern.FindStringSubmatch(line); m != nil {
		t.lock.Lock()
		delete(t.online, m[1])
		t.lastSeen[m[1]] = now
		t.lock.Unlock()
	}
}

// setOnline replaces the online set with an authoritative player list.
func (t *tracker) setOnline(names []string, now time.Time) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.online = map[string]struct{}{}

	for _, name := range names {
		t.online[name] = struct{}{}
		t.lastSeen[name] = now
	}
}

// players returns all online players sorted by name.
func (t *tracker) players() []Player {
	t.lock.Lock()
	defer t.lock.Unlock()

	players := make([]Player, 0, len(t.online))

	for name := range t.online {
		players = append(players, Player{
			Name:     name,
			Online:   true,
			LastSeen: t.lastSeen[name],
		})
	}

	sort.Slice(players, func(i, j int) bool { return players[i].Name < players[j].Name })

	return players
}

// recent returns up to limit players sorted by last-seen, most recent
// first.
func (t *tracker) recent(limit int) []Player {
	t.lock.Lock()
	defer t.lock.Unlock()

	players := make([]Player, 0, len(t.lastSeen))

	for name, seen := range t.lastSeen {
		_, online := t.online[name]

		players = append(players, Player{
			Name:     name,
			Online:   online,
			LastSeen: seen,
		})
	}

	sort.Slice(players, func(i, j int) bool { return players[i].LastSeen.After(players[j].LastSeen) })

	if limit > 0 && len(players) > limit {
		players = players[:limit]
	}

	return players
}
