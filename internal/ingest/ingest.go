// Package ingest implements the capture pipeline behind the HTTP surface:
// resolving teams from API tokens, recording events with their element
// chains, and maintaining the person identity registry.
package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/steveyackey/posthog/internal/events"
	"github.com/steveyackey/posthog/internal/idgen"
	"github.com/steveyackey/posthog/internal/model"
	"github.com/steveyackey/posthog/internal/store"
)

var (
	// ErrUnknownTeam indicates an API token no team owns. Callers must not
	// echo this distinction to unauthenticated clients, but it stays a
	// distinct error so operators can alert on misconfigured SDKs.
	ErrUnknownTeam = errors.New("unknown team token")

	// ErrPersonNotFound indicates an identify call for a distinct ID that no
	// prior track call has registered.
	ErrPersonNotFound = errors.New("person not found")
)

// Service orchestrates the store and the event bus for one capture request.
type Service struct {
	store     store.Store
	publisher events.Publisher
}

// NewService returns a Service backed by the given store and publisher.
func NewService(s store.Store, p events.Publisher) *Service {
	return &Service{store: s, publisher: p}
}

// ResolveTeam maps an API token to its team. An empty or unknown token fails
// closed with ErrUnknownTeam.
func (s *Service) ResolveTeam(ctx context.Context, token string) (*model.Team, error) {
	if token == "" {
		return nil, ErrUnknownTeam
	}
	team, err := s.store.GetTeamByToken(ctx, token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUnknownTeam
	}
	if err != nil {
		return nil, fmt.Errorf("resolve team: %w", err)
	}
	return team, nil
}

// RecordEvent persists one event and, when an element chain accompanied it,
// bulk inserts the elements linked to the new event. The event row must exist
// before its elements so the foreign key holds.
func (s *Service) RecordEvent(ctx context.Context, team *model.Team, name string, properties model.Properties, ip string, elements []*model.Element) (*model.Event, error) {
	id, err := idgen.NewEventID()
	if err != nil {
		return nil, fmt.Errorf("generate event id: %w", err)
	}

	event := &model.Event{
		ID:         id,
		TeamID:     team.ID,
		Name:       name,
		Properties: properties,
		IP:         ip,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.CreateEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	if len(elements) > 0 {
		for _, el := range elements {
			el.EventID = event.ID
			el.TeamID = team.ID
		}
		if err := s.store.BulkCreateElements(ctx, elements); err != nil {
			return nil, fmt.Errorf("create elements: %w", err)
		}
	}

	s.publish(ctx, events.TopicEventIngested, events.EventIngested{
		Event:        event,
		ElementCount: len(elements),
	})

	return event, nil
}

// FindOrCreatePerson registers a distinct ID on first sight. The existence
// check and insert run inside one store transaction: two concurrent first
// sights of the same distinct ID can still both pass the check, but the
// window is bounded to the transaction rather than the whole request.
// Repeated calls for a known distinct ID are no-ops.
func (s *Service) FindOrCreatePerson(ctx context.Context, team *model.Team, distinctID, userID string) (*model.Person, error) {
	var person *model.Person
	var created bool

	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		existing, err := tx.FindPersonByDistinctID(ctx, team.ID, distinctID)
		if err != nil {
			return fmt.Errorf("find person: %w", err)
		}
		if existing != nil {
			person = existing
			return nil
		}

		id, err := idgen.NewPersonID()
		if err != nil {
			return fmt.Errorf("generate person id: %w", err)
		}
		now := time.Now().UTC()
		person = &model.Person{
			ID:          id,
			TeamID:      team.ID,
			DistinctIDs: []string{distinctID},
			Properties:  model.Properties{},
			UserID:      userID,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.CreatePerson(ctx, person); err != nil {
			return fmt.Errorf("create person: %w", err)
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if created {
		s.publish(ctx, events.TopicPersonCreated, events.PersonCreated{Person: person})
	}
	return person, nil
}

// MergeProperties applies an identify property patch: the person's property
// bag is replaced wholesale, not deep-merged. A nil or empty patch means no
// patch was supplied and leaves the bag untouched. Unlike the track path, an
// unknown distinct ID is not registered here; identify assumes a prior track
// call created the person.
func (s *Service) MergeProperties(ctx context.Context, team *model.Team, distinctID string, patch model.Properties) (*model.Person, error) {
	person, err := s.store.FindPersonByDistinctID(ctx, team.ID, distinctID)
	if err != nil {
		return nil, fmt.Errorf("find person: %w", err)
	}
	if person == nil {
		return nil, ErrPersonNotFound
	}
	if len(patch) == 0 {
		return person, nil
	}

	person.Properties = patch
	if err := s.store.SavePerson(ctx, person); err != nil {
		return nil, fmt.Errorf("save person: %w", err)
	}

	s.publish(ctx, events.TopicPersonIdentified, events.PersonIdentified{Person: person})
	return person, nil
}

// publish sends an event to the bus. Failures are logged but never block
// ingestion.
func (s *Service) publish(ctx context.Context, topic string, event any) {
	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		slog.Warn("failed to publish event", "topic", topic, "error", err)
	}
}
