package model

import "time"

// Person is a server-side identity: one or more client-supplied distinct IDs
// that have been reconciled into a single record, plus a property bag set by
// the identify path. Within a team no distinct ID should belong to two
// persons at once, though that is best-effort under concurrent first sight.
type Person struct {
	ID          string     `json:"id"`
	TeamID      int64      `json:"team_id"`
	DistinctIDs []string   `json:"distinct_ids"`
	Properties  Properties `json:"properties,omitempty"`
	// UserID links the person to an authenticated end user, when known.
	UserID    string    `json:"user_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasDistinctID reports whether the person already owns the given distinct ID.
func (p *Person) HasDistinctID(distinctID string) bool {
	for _, id := range p.DistinctIDs {
		if id == distinctID {
			return true
		}
	}
	return false
}
