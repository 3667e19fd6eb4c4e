package postgres

import (
	"database/sql"
	"encoding/json"

	"github.com/lib/pq"

	"github.com/steveyackey/posthog/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanTeam scans a single row into a model.Team.
func scanTeam(row scannable) (*model.Team, error) {
	var t model.Team
	if err := row.Scan(&t.ID, &t.Name, &t.APIToken, &t.CreatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// scanTeams scans multiple rows into a slice of model.Team pointers.
func scanTeams(rows *sql.Rows) ([]*model.Team, error) {
	var teams []*model.Team
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return teams, nil
}

// scanEvent scans a single row into a model.Event.
// The row must contain columns in the order defined by eventColumns.
func scanEvent(row scannable) (*model.Event, error) {
	var e model.Event
	var (
		properties []byte
		ip         sql.NullString
	)
	err := row.Scan(&e.ID, &e.TeamID, &e.Name, &properties, &ip, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.IP = ip.String
	if len(properties) > 0 {
		if err := json.Unmarshal(properties, &e.Properties); err != nil {
			return nil, err
		}
	}
	return &e, nil
}

// scanEvents scans multiple rows into a slice of model.Event pointers.
func scanEvents(rows *sql.Rows) ([]*model.Event, error) {
	var events []*model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// scanElement scans a single row into a model.Element.
// The row must contain columns in the order defined by elementColumns.
func scanElement(row scannable) (*model.Element, error) {
	var el model.Element
	var (
		text       sql.NullString
		href       sql.NullString
		attrID     sql.NullString
		nthChild   sql.NullInt64
		nthOfType  sql.NullInt64
		attributes []byte
	)
	err := row.Scan(
		&el.ID,
		&el.EventID,
		&el.TeamID,
		&el.TagName,
		&text,
		&href,
		&attrID,
		&nthChild,
		&nthOfType,
		&attributes,
		&el.Order,
	)
	if err != nil {
		return nil, err
	}

	el.Text = text.String
	el.Href = href.String
	el.AttrID = attrID.String
	if nthChild.Valid {
		n := int(nthChild.Int64)
		el.NthChild = &n
	}
	if nthOfType.Valid {
		n := int(nthOfType.Int64)
		el.NthOfType = &n
	}
	if len(attributes) > 0 {
		if err := json.Unmarshal(attributes, &el.Attributes); err != nil {
			return nil, err
		}
	}

	return &el, nil
}

// scanElements scans multiple rows into a slice of model.Element pointers.
func scanElements(rows *sql.Rows) ([]*model.Element, error) {
	var elements []*model.Element
	for rows.Next() {
		el, err := scanElement(rows)
		if err != nil {
			return nil, err
		}
		elements = append(elements, el)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return elements, nil
}

// scanPerson scans a single row into a model.Person.
// The row must contain columns in the order defined by personColumns.
func scanPerson(row scannable) (*model.Person, error) {
	var p model.Person
	var (
		distinctIDs pq.StringArray
		properties  []byte
		userID      sql.NullString
	)
	err := row.Scan(
		&p.ID,
		&p.TeamID,
		&distinctIDs,
		&properties,
		&userID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.DistinctIDs = []string(distinctIDs)
	p.UserID = userID.String
	if len(properties) > 0 {
		if err := json.Unmarshal(properties, &p.Properties); err != nil {
			return nil, err
		}
	}

	return &p, nil
}

// nullString converts a string to sql.NullString; empty string is null.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullIntPtr converts a *int to a sql.NullInt64.
func nullIntPtr(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}

// jsonbProperties marshals a property bag into bytes for a JSONB column.
// A nil bag is stored as an empty object rather than NULL.
func jsonbProperties(p model.Properties) []byte {
	if len(p) == 0 {
		return []byte(`{}`)
	}
	b, err := json.Marshal(p)
	if err != nil {
		return []byte(`{}`)
	}
	return b
}
