package repositories

import (
	"bytes"
	"fmt"
	"time"
)

// Entry is a readable view of one stored key, used by debugging tools.
type Entry struct {
	Kind   string
	Owner  string
	Detail string
	At     time.Time
}

// DescribeEntry decodes a raw key/value pair of the store.
func DescribeEntry(key, value []byte) Entry {
	switch {
	case bytes.HasPrefix(key, []byte("msgid:")):
		return Entry{Kind: "index", Owner: string(key[len("msgid:"):]), Detail: string(value)}
	case bytes.HasPrefix(key, []byte("msg:")):
		m, err := decodeMessage(value)
		if err != nil {
			return Entry{Kind: "message", Detail: err.Error()}
		}
		detail := m.Content
		if m.File != nil {
			detail = fmt.Sprintf("[%s %s] %s", m.Type, m.File.OriginalName, m.Content)
		}
		if m.Edited {
			detail += " (edited)"
		}
		return Entry{Kind: "message", Owner: string(m.Room()), Detail: detail, At: m.CreatedAt}
	case bytes.HasPrefix(key, []byte("username:")):
		return Entry{Kind: "username", Owner: string(key[len("username:"):]), Detail: string(value)}
	case bytes.HasPrefix(key, []byte("user:")):
		u, err := decodeUser(value)
		if err != nil {
			return Entry{Kind: "user", Detail: err.Error()}
		}
		status := "offline"
		if u.IsOnline {
			status = "online"
		}
		return Entry{Kind: "user", Owner: u.Username, Detail: status, At: u.LastSeen}
	default:
		return Entry{Kind: "raw", Detail: fmt.Sprintf("%d bytes", len(value))}
	}
}
