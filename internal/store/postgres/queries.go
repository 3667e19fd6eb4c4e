package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/steveyackey/posthog/internal/model"
)

// eventColumns is the column list used for SELECT statements on the events table.
const eventColumns = `id, team_id, event, properties, ip, created_at`

// elementColumns is the column list used for SELECT statements on the elements table.
const elementColumns = `id, event_id, team_id, tag_name, text, href, attr_id,
	nth_child, nth_of_type, attributes, "order"`

// personColumns is the column list used for SELECT statements on the persons table.
const personColumns = `id, team_id, distinct_ids, properties, user_id, created_at, updated_at`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryGetTeamByToken(ctx context.Context, db executor, token string) (*model.Team, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, name, api_token, created_at
		FROM teams
		WHERE api_token = $1`,
		token,
	)
	return scanTeam(row)
}

func queryCreateTeam(ctx context.Context, db executor, t *model.Team) error {
	return db.QueryRowContext(ctx, `
		INSERT INTO teams (name, api_token)
		VALUES ($1, $2)
		RETURNING id, created_at`,
		t.Name, t.APIToken,
	).Scan(&t.ID, &t.CreatedAt)
}

func queryListTeams(ctx context.Context, db executor) ([]*model.Team, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, api_token, created_at
		FROM teams
		ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTeams(rows)
}

func queryCreateEvent(ctx context.Context, db executor, e *model.Event) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO events (id, team_id, event, properties, ip, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID,
		e.TeamID,
		e.Name,
		jsonbProperties(e.Properties),
		nullString(e.IP),
		e.CreatedAt,
	)
	return err
}

// queryBulkCreateElements inserts the whole element chain in a single
// multi-row INSERT so the request does not pay one round trip per element.
func queryBulkCreateElements(ctx context.Context, db executor, elements []*model.Element) error {
	if len(elements) == 0 {
		return nil
	}

	const cols = 10
	placeholders := make([]string, 0, len(elements))
	args := make([]any, 0, len(elements)*cols)
	for i, el := range elements {
		base := i * cols
		ph := make([]string, cols)
		for j := range ph {
			ph[j] = fmt.Sprintf("$%d", base+j+1)
		}
		placeholders = append(placeholders, "("+strings.Join(ph, ", ")+")")
		args = append(args,
			el.EventID,
			el.TeamID,
			el.TagName,
			nullString(el.Text),
			nullString(el.Href),
			nullString(el.AttrID),
			nullIntPtr(el.NthChild),
			nullIntPtr(el.NthOfType),
			jsonbProperties(el.Attributes),
			el.Order,
		)
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO elements (event_id, team_id, tag_name, text, href, attr_id,
			nth_child, nth_of_type, attributes, "order")
		VALUES `+strings.Join(placeholders, ", "),
		args...,
	)
	return err
}

func queryListEvents(ctx context.Context, db executor, teamID int64, limit int) ([]*model.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events WHERE team_id = $1 ORDER BY created_at ASC`
	args := []any{teamID}
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func queryGetElements(ctx context.Context, db executor, eventID string) ([]*model.Element, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+elementColumns+`
		FROM elements
		WHERE event_id = $1
		ORDER BY "order" ASC`,
		eventID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanElements(rows)
}

// queryFindPersonByDistinctID returns the first person in the team whose
// distinct ID set contains distinctID, or nil when none does. Taking the
// oldest match papers over the rare duplicate created under a concurrent
// first-sight race.
func queryFindPersonByDistinctID(ctx context.Context, db executor, teamID int64, distinctID string) (*model.Person, error) {
	row := db.QueryRowContext(ctx, `
		SELECT `+personColumns+`
		FROM persons
		WHERE team_id = $1 AND distinct_ids @> ARRAY[$2]
		ORDER BY created_at ASC
		LIMIT 1`,
		teamID, distinctID,
	)
	p, err := scanPerson(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func queryCreatePerson(ctx context.Context, db executor, p *model.Person) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO persons (id, team_id, distinct_ids, properties, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID,
		p.TeamID,
		pq.Array(p.DistinctIDs),
		jsonbProperties(p.Properties),
		nullString(p.UserID),
		p.CreatedAt,
		p.UpdatedAt,
	)
	return err
}

func querySavePerson(ctx context.Context, db executor, p *model.Person) error {
	return db.QueryRowContext(ctx, `
		UPDATE persons SET
			distinct_ids = $2,
			properties = $3,
			user_id = $4,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID,
		pq.Array(p.DistinctIDs),
		jsonbProperties(p.Properties),
		nullString(p.UserID),
	).Scan(&p.UpdatedAt)
}
