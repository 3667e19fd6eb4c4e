// Package model defines the persisted types for the capture pipeline.
package model

import "time"

// Team is the tenant boundary. Every ingested event, person, and element is
// scoped to exactly one team, and the client SDK identifies the team by its
// API token.
type Team struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	APIToken  string    `json:"api_token"`
	CreatedAt time.Time `json:"created_at"`
}
