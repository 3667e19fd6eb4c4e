package server

import (
	"context"
	"database/sql"

	"github.com/steveyackey/posthog/internal/model"
	"github.com/steveyackey/posthog/internal/store"
)

// memStore is a minimal in-memory store.Store for handler tests.
type memStore struct {
	teams    map[string]*model.Team
	events   []*model.Event
	elements []*model.Element
	persons  []*model.Person
}

func newMemStore() *memStore {
	return &memStore{teams: make(map[string]*model.Team)}
}

func (m *memStore) addTeam(id int64, token string) *model.Team {
	team := &model.Team{ID: id, Name: "team", APIToken: token}
	m.teams[token] = team
	return team
}

func (m *memStore) GetTeamByToken(_ context.Context, token string) (*model.Team, error) {
	team, ok := m.teams[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return team, nil
}

func (m *memStore) CreateTeam(_ context.Context, team *model.Team) error {
	m.teams[team.APIToken] = team
	return nil
}

func (m *memStore) ListTeams(_ context.Context) ([]*model.Team, error) {
	var teams []*model.Team
	for _, t := range m.teams {
		teams = append(teams, t)
	}
	return teams, nil
}

func (m *memStore) CreateEvent(_ context.Context, event *model.Event) error {
	m.events = append(m.events, event)
	return nil
}

func (m *memStore) BulkCreateElements(_ context.Context, elements []*model.Element) error {
	m.elements = append(m.elements, elements...)
	return nil
}

func (m *memStore) ListEvents(_ context.Context, teamID int64, limit int) ([]*model.Event, error) {
	var events []*model.Event
	for _, e := range m.events {
		if e.TeamID == teamID {
			events = append(events, e)
		}
	}
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

func (m *memStore) GetElements(_ context.Context, eventID string) ([]*model.Element, error) {
	var elements []*model.Element
	for _, el := range m.elements {
		if el.EventID == eventID {
			elements = append(elements, el)
		}
	}
	return elements, nil
}

func (m *memStore) FindPersonByDistinctID(_ context.Context, teamID int64, distinctID string) (*model.Person, error) {
	for _, p := range m.persons {
		if p.TeamID == teamID && p.HasDistinctID(distinctID) {
			return p, nil
		}
	}
	return nil, nil
}

func (m *memStore) CreatePerson(_ context.Context, person *model.Person) error {
	m.persons = append(m.persons, person)
	return nil
}

func (m *memStore) SavePerson(_ context.Context, person *model.Person) error {
	for i, p := range m.persons {
		if p.ID == person.ID {
			m.persons[i] = person
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *memStore) RunInTransaction(_ context.Context, fn func(tx store.Store) error) error {
	return fn(m)
}

func (m *memStore) Close() error { return nil }
