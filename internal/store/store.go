package store

import (
	"context"

	"github.com/steveyackey/posthog/internal/model"
)

// Store defines the persistence interface for the capture pipeline.
type Store interface {
	// Teams
	GetTeamByToken(ctx context.Context, token string) (*model.Team, error) // sql.ErrNoRows when absent
	CreateTeam(ctx context.Context, team *model.Team) error
	ListTeams(ctx context.Context) ([]*model.Team, error)

	// Events and elements
	CreateEvent(ctx context.Context, event *model.Event) error
	BulkCreateElements(ctx context.Context, elements []*model.Element) error
	ListEvents(ctx context.Context, teamID int64, limit int) ([]*model.Event, error)
	GetElements(ctx context.Context, eventID string) ([]*model.Element, error)

	// Persons
	FindPersonByDistinctID(ctx context.Context, teamID int64, distinctID string) (*model.Person, error) // nil, nil when absent
	CreatePerson(ctx context.Context, person *model.Person) error
	SavePerson(ctx context.Context, person *model.Person) error // full overwrite of mutable fields

	// Transaction support
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	// Lifecycle
	Close() error
}
