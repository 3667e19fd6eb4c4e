package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/steveyackey/posthog/internal/model"
	"github.com/steveyackey/posthog/internal/store"
)

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version    string    `json:"version"`
	Type       string    `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	TeamCount  int       `json:"team_count"`
	EventCount int       `json:"event_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// exportedEvent is an event with its element chain embedded, as written to
// the archive.
type exportedEvent struct {
	*model.Event
	Elements []*model.Element `json:"elements,omitempty"`
}

// ExportJSONL writes every team's events from the store as JSONL to w.
// Events keep their store order (oldest first) and embed their element chains.
func ExportJSONL(ctx context.Context, s store.Store, w io.Writer) error {
	teams, err := s.ListTeams(ctx)
	if err != nil {
		return fmt.Errorf("list teams: %w", err)
	}

	var exported []record
	for _, team := range teams {
		events, err := s.ListEvents(ctx, team.ID, 0)
		if err != nil {
			return fmt.Errorf("list events for team %d: %w", team.ID, err)
		}
		for _, ev := range events {
			elements, err := s.GetElements(ctx, ev.ID)
			if err != nil {
				return fmt.Errorf("get elements for %s: %w", ev.ID, err)
			}
			exported = append(exported, record{
				Type: "event",
				Data: exportedEvent{Event: ev, Elements: elements},
			})
		}
	}

	enc := json.NewEncoder(w)
	if err := enc.Encode(header{
		Version:    "1",
		Type:       "header",
		Timestamp:  time.Now().UTC(),
		TeamCount:  len(teams),
		EventCount: len(exported),
	}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, rec := range exported {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	return nil
}
