package treatment

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const schema = `
CREATE TABLE IF NOT EXISTS treatments (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	common_name      TEXT UNIQUE NOT NULL,
	symptoms         TEXT NOT NULL,
	cultural_control TEXT NOT NULL,
	chemical_control TEXT NOT NULL
)`

const upsert = `
INSERT INTO treatments (common_name, symptoms, cultural_control, chemical_control)
VALUES (?, ?, ?, ?)
ON CONFLICT(common_name) DO UPDATE SET
	symptoms         = excluded.symptoms,
	cultural_control = excluded.cultural_control,
	chemical_control = excluded.chemical_control`

// Store keeps guidance in a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path, creates the schema and upserts the built-in
// records. Use ":memory:" for a throwaway store.
//
// Arguments:
//   - ctx: Bounds the migration and seeding.
//   - path: The database file.
//
// Returns:
//   - *Store: The open store; the caller must Close it.
//   - error: If the database cannot be opened, migrated or seeded.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open treatments database %s", path)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create treatments table")
	}

	seeds, err := Seeds()
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := s.Upsert(ctx, seeds...); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Upsert inserts or replaces records by common name in a single transaction.
func (s *Store) Upsert(ctx context.Context, records ...Treatment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin seed transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, upsert)
	if err != nil {
		return errors.Wrap(err, "prepare upsert")
	}
	defer stmt.Close()

	for _, r := range records {
		if r.CommonName == "" {
			return errors.New("treatment without common name")
		}
		if _, err := stmt.ExecContext(ctx, r.CommonName, r.Symptoms, r.CulturalControl, r.ChemicalControl); err != nil {
			return errors.Wrapf(err, "upsert %q", r.CommonName)
		}
	}
	return errors.Wrap(tx.Commit(), "commit seed transaction")
}

// Lookup returns the guidance stored under commonName, or ErrNotFound.
func (s *Store) Lookup(ctx context.Context, commonName string) (*Treatment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, common_name, symptoms, cultural_control, chemical_control
		   FROM treatments WHERE common_name = ?`, commonName)

	var t Treatment
	err := row.Scan(&t.ID, &t.CommonName, &t.Symptoms, &t.CulturalControl, &t.ChemicalControl)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrNotFound, "%q", commonName)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "lookup %q", commonName)
	}
	return &t, nil
}

// List returns every stored record ordered by common name.
func (s *Store) List(ctx context.Context) ([]Treatment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, common_name, symptoms, cultural_control, chemical_control
		   FROM treatments ORDER BY common_name`)
	if err != nil {
		return nil, errors.Wrap(err, "list treatments")
	}
	defer rows.Close()

	var out []Treatment
	for rows.Next() {
		var t Treatment
		if err := rows.Scan(&t.ID, &t.CommonName, &t.Symptoms, &t.CulturalControl, &t.ChemicalControl); err != nil {
			return nil, errors.Wrap(err, "scan treatment")
		}
		out = append(out, t)
	}
	return out, errors.Wrap(rows.Err(), "list treatments")
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
