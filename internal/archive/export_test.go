package archive

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/steveyackey/posthog/internal/model"
	"github.com/steveyackey/posthog/internal/store"
)

// exportStore is a fixed-content store.Store for export tests.
type exportStore struct {
	teams    []*model.Team
	events   []*model.Event
	elements []*model.Element
}

func (m *exportStore) ListTeams(_ context.Context) ([]*model.Team, error) {
	return m.teams, nil
}

func (m *exportStore) ListEvents(_ context.Context, teamID int64, _ int) ([]*model.Event, error) {
	var events []*model.Event
	for _, e := range m.events {
		if e.TeamID == teamID {
			events = append(events, e)
		}
	}
	return events, nil
}

func (m *exportStore) GetElements(_ context.Context, eventID string) ([]*model.Element, error) {
	var elements []*model.Element
	for _, el := range m.elements {
		if el.EventID == eventID {
			elements = append(elements, el)
		}
	}
	return elements, nil
}

func (m *exportStore) GetTeamByToken(_ context.Context, _ string) (*model.Team, error) {
	return nil, sql.ErrNoRows
}
func (m *exportStore) CreateTeam(_ context.Context, _ *model.Team) error        { return nil }
func (m *exportStore) CreateEvent(_ context.Context, _ *model.Event) error      { return nil }
func (m *exportStore) BulkCreateElements(_ context.Context, _ []*model.Element) error {
	return nil
}
func (m *exportStore) FindPersonByDistinctID(_ context.Context, _ int64, _ string) (*model.Person, error) {
	return nil, nil
}
func (m *exportStore) CreatePerson(_ context.Context, _ *model.Person) error { return nil }
func (m *exportStore) SavePerson(_ context.Context, _ *model.Person) error   { return nil }
func (m *exportStore) RunInTransaction(_ context.Context, fn func(tx store.Store) error) error {
	return fn(m)
}
func (m *exportStore) Close() error { return nil }

func newExportStore() *exportStore {
	return &exportStore{
		teams: []*model.Team{
			{ID: 1, Name: "alpha", APIToken: "phc_a"},
			{ID: 2, Name: "beta", APIToken: "phc_b"},
		},
		events: []*model.Event{
			{ID: "ev-1", TeamID: 1, Name: "$pageview", Properties: model.Properties{"distinct_id": "u1"}},
			{ID: "ev-2", TeamID: 1, Name: "$autocapture", Properties: model.Properties{"distinct_id": "u1"}},
			{ID: "ev-3", TeamID: 2, Name: "$pageview", Properties: model.Properties{"distinct_id": "u2"}},
		},
		elements: []*model.Element{
			{ID: 1, EventID: "ev-2", TeamID: 1, TagName: "a", Order: 0},
			{ID: 2, EventID: "ev-2", TeamID: 1, TagName: "div", Order: 1},
		},
	}
}

func TestExportJSONL(t *testing.T) {
	st := newExportStore()

	var buf bytes.Buffer
	if err := ExportJSONL(context.Background(), st, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	scanner := bufio.NewScanner(&buf)
	if !scanner.Scan() {
		t.Fatal("missing header line")
	}
	var hdr header
	if err := json.Unmarshal(scanner.Bytes(), &hdr); err != nil {
		t.Fatalf("decoding header: %v", err)
	}
	if hdr.Type != "header" || hdr.Version != "1" {
		t.Errorf("unexpected header: %+v", hdr)
	}
	if hdr.TeamCount != 2 || hdr.EventCount != 3 {
		t.Errorf("header counts = %d teams, %d events, want 2 and 3", hdr.TeamCount, hdr.EventCount)
	}

	type line struct {
		Type string `json:"type"`
		Data struct {
			ID       string           `json:"id"`
			Name     string           `json:"name"`
			Elements []*model.Element `json:"elements"`
		} `json:"data"`
	}
	var lines []line
	for scanner.Scan() {
		var l line
		if err := json.Unmarshal(scanner.Bytes(), &l); err != nil {
			t.Fatalf("decoding record: %v", err)
		}
		lines = append(lines, l)
	}
	if len(lines) != 3 {
		t.Fatalf("got %d event records, want 3", len(lines))
	}
	for _, l := range lines {
		if l.Type != "event" {
			t.Errorf("record type = %q, want event", l.Type)
		}
	}

	// ev-2 carries its element chain; the others embed none.
	byID := make(map[string]line)
	for _, l := range lines {
		byID[l.Data.ID] = l
	}
	if got := len(byID["ev-2"].Data.Elements); got != 2 {
		t.Errorf("ev-2 elements = %d, want 2", got)
	}
	if got := len(byID["ev-1"].Data.Elements); got != 0 {
		t.Errorf("ev-1 elements = %d, want 0", got)
	}
}

func TestExportJSONL_Empty(t *testing.T) {
	st := &exportStore{}

	var buf bytes.Buffer
	if err := ExportJSONL(context.Background(), st, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var hdr header
	if err := json.NewDecoder(&buf).Decode(&hdr); err != nil {
		t.Fatalf("decoding header: %v", err)
	}
	if hdr.TeamCount != 0 || hdr.EventCount != 0 {
		t.Errorf("header counts = %+v, want zeros", hdr)
	}
}

// memDestination collects writes for scheduler tests.
type memDestination struct {
	mu     sync.Mutex
	writes [][]byte
}

func (d *memDestination) Write(_ context.Context, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writes = append(d.writes, append([]byte(nil), data...))
	return nil
}

func (d *memDestination) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.writes)
}

func TestSchedulerExportsOnStart(t *testing.T) {
	st := newExportStore()
	dest := &memDestination{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	sched := NewScheduler(st, []Destination{dest}, time.Hour, logger)
	sched.Start()
	defer sched.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for dest.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for initial export")
		}
		time.Sleep(10 * time.Millisecond)
	}

	dest.mu.Lock()
	first := dest.writes[0]
	dest.mu.Unlock()
	if !bytes.Contains(first, []byte(`"type":"header"`)) {
		t.Errorf("export payload missing header: %s", first)
	}
}
