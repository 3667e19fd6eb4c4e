// Package postgres implements the store.Store interface backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/steveyackey/posthog/internal/model"
	"github.com/steveyackey/posthog/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements store.Store backed by a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// Compile-time check that PostgresStore implements store.Store.
var _ store.Store = (*PostgresStore)(nil)

// New opens a connection to the PostgreSQL database at the given URL,
// configures the connection pool, and runs any pending migrations.
func New(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) GetTeamByToken(ctx context.Context, token string) (*model.Team, error) {
	return queryGetTeamByToken(ctx, s.db, token)
}

func (s *PostgresStore) CreateTeam(ctx context.Context, team *model.Team) error {
	return queryCreateTeam(ctx, s.db, team)
}

func (s *PostgresStore) ListTeams(ctx context.Context) ([]*model.Team, error) {
	return queryListTeams(ctx, s.db)
}

func (s *PostgresStore) CreateEvent(ctx context.Context, event *model.Event) error {
	return queryCreateEvent(ctx, s.db, event)
}

func (s *PostgresStore) BulkCreateElements(ctx context.Context, elements []*model.Element) error {
	return queryBulkCreateElements(ctx, s.db, elements)
}

func (s *PostgresStore) ListEvents(ctx context.Context, teamID int64, limit int) ([]*model.Event, error) {
	return queryListEvents(ctx, s.db, teamID, limit)
}

func (s *PostgresStore) GetElements(ctx context.Context, eventID string) ([]*model.Element, error) {
	return queryGetElements(ctx, s.db, eventID)
}

func (s *PostgresStore) FindPersonByDistinctID(ctx context.Context, teamID int64, distinctID string) (*model.Person, error) {
	return queryFindPersonByDistinctID(ctx, s.db, teamID, distinctID)
}

func (s *PostgresStore) CreatePerson(ctx context.Context, person *model.Person) error {
	return queryCreatePerson(ctx, s.db, person)
}

func (s *PostgresStore) SavePerson(ctx context.Context, person *model.Person) error {
	return querySavePerson(ctx, s.db, person)
}

// RunInTransaction begins a database transaction, creates a txStore that
// delegates to it, calls fn, and commits on success or rolls back on error.
func (s *PostgresStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txS := &txStore{tx: tx}
	if err := fn(txS); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// txStore implements store.Store using a *sql.Tx.
type txStore struct {
	tx *sql.Tx
}

// Compile-time check that txStore implements store.Store.
var _ store.Store = (*txStore)(nil)

func (s *txStore) GetTeamByToken(ctx context.Context, token string) (*model.Team, error) {
	return queryGetTeamByToken(ctx, s.tx, token)
}

func (s *txStore) CreateTeam(ctx context.Context, team *model.Team) error {
	return queryCreateTeam(ctx, s.tx, team)
}

func (s *txStore) ListTeams(ctx context.Context) ([]*model.Team, error) {
	return queryListTeams(ctx, s.tx)
}

func (s *txStore) CreateEvent(ctx context.Context, event *model.Event) error {
	return queryCreateEvent(ctx, s.tx, event)
}

func (s *txStore) BulkCreateElements(ctx context.Context, elements []*model.Element) error {
	return queryBulkCreateElements(ctx, s.tx, elements)
}

func (s *txStore) ListEvents(ctx context.Context, teamID int64, limit int) ([]*model.Event, error) {
	return queryListEvents(ctx, s.tx, teamID, limit)
}

func (s *txStore) GetElements(ctx context.Context, eventID string) ([]*model.Element, error) {
	return queryGetElements(ctx, s.tx, eventID)
}

func (s *txStore) FindPersonByDistinctID(ctx context.Context, teamID int64, distinctID string) (*model.Person, error) {
	return queryFindPersonByDistinctID(ctx, s.tx, teamID, distinctID)
}

func (s *txStore) CreatePerson(ctx context.Context, person *model.Person) error {
	return queryCreatePerson(ctx, s.tx, person)
}

func (s *txStore) SavePerson(ctx context.Context, person *model.Person) error {
	return querySavePerson(ctx, s.tx, person)
}

// RunInTransaction on a txStore reuses the existing transaction (no nesting).
func (s *txStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(s)
}

// Close is a no-op for a transaction store; the parent store owns the connection.
func (s *txStore) Close() error {
	return nil
}
