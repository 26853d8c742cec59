package runtime

import (
	"pairchat/contract"
	"pairchat/domain"
	"sort"
	"sync"
	"time"
)

var _ contract.IPresence = (*Presence)(nil)

// presence is the mutable state behind one PresenceEntry.
// connections maps every live connection to the order it connected in.
type presence struct {
	identity    domain.Identity
	connections map[domain.ConnectionID]uint64
	active      domain.ConnectionID
	lastSeen    time.Time
}

func (p *presence) entry() domain.PresenceEntry {
	return domain.PresenceEntry{
		Identity:           p.identity,
		Online:             len(p.connections) > 0,
		LastSeen:           p.lastSeen,
		ActiveConnectionID: p.active,
	}
}

// Presence tracks which identities hold at least one live connection.
// An identity is online while any of its connections is open. The active connection
// is the most recent one still open.
type Presence struct {
	mu      sync.RWMutex
	entries map[domain.UserID]*presence
	seq     uint64
	now     func() time.Time
}

func NewPresence() *Presence {
	return &Presence{entries: make(map[domain.UserID]*presence), now: time.Now}
}

// Seed adds an offline entry for every user not tracked yet, so the snapshot
// includes users who never connected since startup.
func (p *Presence) Seed(users []domain.User) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, user := range users {
		if _, ok := p.entries[user.ID]; ok {
			continue
		}
		p.entries[user.ID] = &presence{
			identity:    user.Identity(),
			connections: make(map[domain.ConnectionID]uint64),
			lastSeen:    user.LastSeen,
		}
	}
}

func (p *Presence) RecordConnect(identity domain.Identity, conn domain.ConnectionID) domain.PresenceEntry {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.entries[identity.ID]
	if !ok {
		entry = &presence{connections: make(map[domain.ConnectionID]uint64)}
		p.entries[identity.ID] = entry
	}
	p.seq++
	entry.identity = identity
	entry.connections[conn] = p.seq
	entry.active = conn
	entry.lastSeen = p.now().UTC()
	return entry.entry()
}

// RecordDisconnect forgets conn and reports whether it was tracked.
// A connection that is unknown, already gone or belongs to an unknown identity leaves presence untouched.
func (p *Presence) RecordDisconnect(identity domain.Identity, conn domain.ConnectionID) (domain.PresenceEntry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.entries[identity.ID]
	if !ok {
		return domain.PresenceEntry{}, false
	}
	if _, live := entry.connections[conn]; !live {
		return entry.entry(), false
	}
	delete(entry.connections, conn)
	entry.lastSeen = p.now().UTC()
	if entry.active == conn {
		entry.active = latest(entry.connections)
	}
	return entry.entry(), true
}

func latest(connections map[domain.ConnectionID]uint64) domain.ConnectionID {
	var (
		newest domain.ConnectionID
		order  uint64
	)
	for conn, seq := range connections {
		if seq > order {
			newest, order = conn, seq
		}
	}
	return newest
}

// Snapshot returns every entry ordered by username, then by id.
func (p *Presence) Snapshot() []domain.PresenceEntry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	entries := make([]domain.PresenceEntry, 0, len(p.entries))
	for _, entry := range p.entries {
		entries = append(entries, entry.entry())
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Identity.Username != entries[j].Identity.Username {
			return entries[i].Identity.Username < entries[j].Identity.Username
		}
		return entries[i].Identity.ID < entries[j].Identity.ID
	})
	return entries
}

func (p *Presence) Get(id domain.UserID) (domain.PresenceEntry, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	entry, ok := p.entries[id]
	if !ok {
		return domain.PresenceEntry{}, false
	}
	return entry.entry(), true
}

// Online counts the identities holding at least one connection.
func (p *Presence) Online() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	n := 0
	for _, entry := range p.entries {
		if len(entry.connections) > 0 {
			n++
		}
	}
	return n
}
