package model

import "time"

// Properties is the open property bag carried by events and persons. Keys are
// strings; values are whatever JSON the SDK sent. The shape is intentionally
// unvalidated because SDK versions extend it freely.
type Properties map[string]any

// Event is one ingested occurrence. Events are written once and never
// mutated by the capture path.
type Event struct {
	ID         string     `json:"id"`
	TeamID     int64      `json:"team_id"`
	Name       string     `json:"event"`
	Properties Properties `json:"properties"`
	IP         string     `json:"ip,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
