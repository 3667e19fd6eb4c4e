package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/steveyackey/posthog/internal/model"
	"github.com/steveyackey/posthog/internal/store"
)

// newMockDB creates a sqlmock database with automatic cleanup and expectation checking.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
		db.Close()
	})
	return db, mock
}

var teamColumns = []string{"id", "name", "api_token", "created_at"}

var eventRowColumns = []string{"id", "team_id", "event", "properties", "ip", "created_at"}

var elementRowColumns = []string{
	"id", "event_id", "team_id", "tag_name", "text", "href", "attr_id",
	"nth_child", "nth_of_type", "attributes", "order",
}

var personRowColumns = []string{
	"id", "team_id", "distinct_ids", "properties", "user_id", "created_at", "updated_at",
}

func TestQueryGetTeamByToken(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows(teamColumns).
		AddRow(int64(1), "Acme", "phc_token123", now)
	mock.ExpectQuery("SELECT id, name, api_token, created_at FROM teams WHERE api_token = \\$1").
		WithArgs("phc_token123").
		WillReturnRows(rows)

	team, err := queryGetTeamByToken(context.Background(), db, "phc_token123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if team.ID != 1 || team.Name != "Acme" || team.APIToken != "phc_token123" {
		t.Errorf("unexpected team: %+v", team)
	}
}

func TestQueryGetTeamByToken_NotFound(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("SELECT id, name, api_token, created_at FROM teams WHERE api_token = \\$1").
		WithArgs("phc_unknown").
		WillReturnRows(sqlmock.NewRows(teamColumns))

	_, err := queryGetTeamByToken(context.Background(), db, "phc_unknown")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("err = %v, want sql.ErrNoRows", err)
	}
}

func TestQueryCreateTeam(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()

	mock.ExpectQuery("INSERT INTO teams").
		WithArgs("Acme", "phc_token123").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), now))

	team := &model.Team{Name: "Acme", APIToken: "phc_token123"}
	if err := queryCreateTeam(context.Background(), db, team); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if team.ID != 7 || !team.CreatedAt.Equal(now) {
		t.Errorf("returned columns not applied: %+v", team)
	}
}

func TestQueryCreateEvent(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()

	event := &model.Event{
		ID:         "ev-abc",
		TeamID:     1,
		Name:       "$pageview",
		Properties: model.Properties{"distinct_id": "u1", "token": "phc_x"},
		IP:         "10.0.0.1",
		CreatedAt:  now,
	}

	mock.ExpectExec("INSERT INTO events").
		WithArgs("ev-abc", int64(1), "$pageview",
			[]byte(`{"distinct_id":"u1","token":"phc_x"}`), "10.0.0.1", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := queryCreateEvent(context.Background(), db, event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestQueryBulkCreateElements(t *testing.T) {
	db, mock := newMockDB(t)
	two := 2

	elements := []*model.Element{
		{
			EventID: "ev-abc", TeamID: 1, TagName: "a",
			Text: "Sign up", Href: "/signup", AttrID: "cta",
			NthChild:   &two,
			Attributes: model.Properties{"href": "/signup"},
			Order:      0,
		},
		{EventID: "ev-abc", TeamID: 1, TagName: "div", Order: 1},
	}

	mock.ExpectExec("INSERT INTO elements").
		WithArgs(
			"ev-abc", int64(1), "a", "Sign up", "/signup", "cta", int64(2), nil, []byte(`{"href":"/signup"}`), 0,
			"ev-abc", int64(1), "div", nil, nil, nil, nil, nil, []byte(`{}`), 1,
		).
		WillReturnResult(sqlmock.NewResult(0, 2))

	if err := queryBulkCreateElements(context.Background(), db, elements); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestQueryBulkCreateElements_Empty(t *testing.T) {
	db, _ := newMockDB(t)
	if err := queryBulkCreateElements(context.Background(), db, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestQueryGetElements(t *testing.T) {
	db, mock := newMockDB(t)

	rows := sqlmock.NewRows(elementRowColumns).
		AddRow(int64(1), "ev-abc", int64(1), "a", "Sign up", "/signup", nil, 2, nil, []byte(`{"href":"/signup"}`), 0).
		AddRow(int64(2), "ev-abc", int64(1), "div", nil, nil, nil, nil, nil, []byte(`{}`), 1)
	mock.ExpectQuery(`SELECT .+ FROM elements WHERE event_id = \$1 ORDER BY "order" ASC`).
		WithArgs("ev-abc").
		WillReturnRows(rows)

	elements, err := queryGetElements(context.Background(), db, "ev-abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(elements) != 2 {
		t.Fatalf("got %d elements, want 2", len(elements))
	}
	first := elements[0]
	if first.TagName != "a" || first.Text != "Sign up" || first.Href != "/signup" {
		t.Errorf("unexpected element: %+v", first)
	}
	if first.NthChild == nil || *first.NthChild != 2 {
		t.Errorf("nth_child = %v, want 2", first.NthChild)
	}
	if elements[1].Order != 1 {
		t.Errorf("order = %d, want 1", elements[1].Order)
	}
}

func TestQueryFindPersonByDistinctID(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows(personRowColumns).
		AddRow("ps-abc", int64(1), pq.StringArray{"u1", "u2"}, []byte(`{"plan":"pro"}`), nil, now, now)
	mock.ExpectQuery(`SELECT .+ FROM persons WHERE team_id = \$1 AND distinct_ids @> ARRAY\[\$2\]`).
		WithArgs(int64(1), "u1").
		WillReturnRows(rows)

	person, err := queryFindPersonByDistinctID(context.Background(), db, 1, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if person == nil {
		t.Fatal("expected a person")
	}
	if len(person.DistinctIDs) != 2 || person.DistinctIDs[0] != "u1" {
		t.Errorf("distinct_ids = %v", person.DistinctIDs)
	}
	if person.Properties["plan"] != "pro" {
		t.Errorf("properties = %v", person.Properties)
	}
}

func TestQueryFindPersonByDistinctID_Absent(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`SELECT .+ FROM persons WHERE team_id = \$1 AND distinct_ids @> ARRAY\[\$2\]`).
		WithArgs(int64(1), "stranger").
		WillReturnRows(sqlmock.NewRows(personRowColumns))

	person, err := queryFindPersonByDistinctID(context.Background(), db, 1, "stranger")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if person != nil {
		t.Fatalf("expected nil person, got %+v", person)
	}
}

func TestQueryCreatePerson(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()

	person := &model.Person{
		ID:          "ps-abc",
		TeamID:      1,
		DistinctIDs: []string{"u1"},
		Properties:  model.Properties{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	mock.ExpectExec("INSERT INTO persons").
		WithArgs("ps-abc", int64(1), pq.Array([]string{"u1"}), []byte(`{}`), nil, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := queryCreatePerson(context.Background(), db, person); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestQuerySavePerson(t *testing.T) {
	db, mock := newMockDB(t)
	later := time.Now().UTC()

	person := &model.Person{
		ID:          "ps-abc",
		TeamID:      1,
		DistinctIDs: []string{"u1"},
		Properties:  model.Properties{"plan": "pro"},
	}

	mock.ExpectQuery("UPDATE persons SET").
		WithArgs("ps-abc", pq.Array([]string{"u1"}), []byte(`{"plan":"pro"}`), nil).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(later))

	if err := querySavePerson(context.Background(), db, person); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !person.UpdatedAt.Equal(later) {
		t.Errorf("UpdatedAt = %v, want %v", person.UpdatedAt, later)
	}
}

func TestQueryListEvents(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows(eventRowColumns).
		AddRow("ev-1", int64(1), "$pageview", []byte(`{"distinct_id":"u1"}`), "10.0.0.1", now).
		AddRow("ev-2", int64(1), "$autocapture", []byte(`{}`), nil, now)
	mock.ExpectQuery(`SELECT .+ FROM events WHERE team_id = \$1 ORDER BY created_at ASC LIMIT \$2`).
		WithArgs(int64(1), 10).
		WillReturnRows(rows)

	events, err := queryListEvents(context.Background(), db, 1, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Name != "$pageview" || events[0].Properties["distinct_id"] != "u1" {
		t.Errorf("unexpected event: %+v", events[0])
	}
	if events[1].IP != "" {
		t.Errorf("IP = %q, want empty", events[1].IP)
	}
}

func TestRunInTransaction_Commit(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO persons").
		WithArgs("ps-abc", int64(1), pq.Array([]string{"u1"}), []byte(`{}`), nil, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	s := &PostgresStore{db: db}
	err := s.RunInTransaction(context.Background(), func(tx store.Store) error {
		return tx.CreatePerson(context.Background(), &model.Person{
			ID: "ps-abc", TeamID: 1, DistinctIDs: []string{"u1"},
			Properties: model.Properties{}, CreatedAt: now, UpdatedAt: now,
		})
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunInTransaction_Rollback(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	s := &PostgresStore{db: db}
	wantErr := errors.New("boom")
	err := s.RunInTransaction(context.Background(), func(tx store.Store) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
}

func TestScanHelpers(t *testing.T) {
	// nullString
	if nullString("").Valid {
		t.Error("nullString(\"\") should be invalid")
	}
	if ns := nullString("hello"); !ns.Valid || ns.String != "hello" {
		t.Errorf("nullString(\"hello\") = %v", ns)
	}

	// nullIntPtr
	if nullIntPtr(nil).Valid {
		t.Error("nullIntPtr(nil) should be invalid")
	}
	n := 3
	if ni := nullIntPtr(&n); !ni.Valid || ni.Int64 != 3 {
		t.Errorf("nullIntPtr(3) = %v", ni)
	}

	// jsonbProperties
	if string(jsonbProperties(nil)) != `{}` {
		t.Errorf("jsonbProperties(nil) = %s", jsonbProperties(nil))
	}
	got := string(jsonbProperties(model.Properties{"key": "value"}))
	if got != `{"key":"value"}` {
		t.Errorf("jsonbProperties = %s", got)
	}
}
