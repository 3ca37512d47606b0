// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync/atomic"

	"github.com/poiesic/permitsearch/core"
	"github.com/poiesic/permitsearch/storage"

	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// schemaVersion is the value stored in PRAGMA user_version once migrations have run.
const schemaVersion = 1

// columns lists the permit table columns in scan order.
var columns = []string{
	"locationid", "applicant", "facility_type", "cnn", "location_description",
	"address", "blocklot", "block", "lot", "permit", "status", "food_items",
	"x", "y", "latitude", "longitude", "schedule", "dayshours", "noi_sent",
	"approved", "received", "prior_permit", "expiration_date", "location",
	"fire_prevention_districts", "police_districts", "supervisor_districts",
	"zip_codes", "neighborhoods_old",
}

// Store implements storage.PermitRepository on SQLite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	closed atomic.Bool
}

var _ storage.PermitRepository = (*Store)(nil)

// Option configures a Store.
type Option func(*Store) error

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		s.logger = logger
		return nil
	}
}

// Open opens the SQLite database at path and brings its schema up to date.
// Use MemoryPath for a throwaway database.
func Open(path string, opts ...Option) (*Store, error) {
	dsn := path
	if path != MemoryPath {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if path == MemoryPath {
		// Each connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	s := &Store{
		db:     db,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			db.Close()
			return nil, err
		}
	}
	s.logger = s.logger.With("repository", "sqlite")

	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version >= schemaVersion {
		s.logger.Debug("schema up to date", "version", version)
		return nil
	}

	defs := make([]string, 0, len(columns))
	for _, c := range columns {
		switch c {
		case "locationid":
			defs = append(defs, "locationid INTEGER PRIMARY KEY")
		case "latitude", "longitude":
			defs = append(defs, c+" REAL")
		default:
			defs = append(defs, c+" TEXT NOT NULL DEFAULT ''")
		}
	}
	stmts := []string{
		"CREATE TABLE IF NOT EXISTS permits (" + strings.Join(defs, ", ") + ")",
		"CREATE INDEX IF NOT EXISTS idx_permits_status ON permits(status)",
		"CREATE INDEX IF NOT EXISTS idx_permits_applicant ON permits(applicant)",
		fmt.Sprintf("PRAGMA user_version = %d", schemaVersion),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate schema: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.logger.Info("migrated schema", "from", version, "to", schemaVersion)
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

func (s *Store) checkOpen() error {
	if s.closed.Load() {
		return storage.ErrStorageClosed
	}
	return nil
}

// UpsertPermits inserts or replaces permits keyed by ID in one transaction.
func (s *Store) UpsertPermits(ctx context.Context, permits ...*core.Permit) (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	if len(permits) == 0 {
		return 0, nil
	}
	for _, p := range permits {
		if err := core.ValidatePermit(p); err != nil {
			return 0, err
		}
		if uint64(p.ID) > math.MaxInt64 {
			return 0, fmt.Errorf("%w: id %d out of range", core.ErrInvalidPermit, p.ID)
		}
	}

	updates := make([]string, 0, len(columns)-1)
	for _, c := range columns[1:] {
		updates = append(updates, c+" = excluded."+c)
	}
	query := "INSERT INTO permits (" + strings.Join(columns, ", ") + ") VALUES (" +
		strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ") " +
		"ON CONFLICT(locationid) DO UPDATE SET " + strings.Join(updates, ", ")

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, p := range permits {
		if _, err := stmt.ExecContext(ctx, permitArgs(p)...); err != nil {
			return 0, fmt.Errorf("upsert permit %d: %w", p.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(permits), nil
}

// GetPermit retrieves a permit by ID. Returns storage.ErrNotFound if absent.
func (s *Store) GetPermit(ctx context.Context, id core.ID) (*core.Permit, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx,
		"SELECT "+strings.Join(columns, ", ")+" FROM permits WHERE locationid = ?", int64(id))
	permit, err := scanPermit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("permit %d: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return permit, nil
}

// DeletePermits removes permits by ID. Missing IDs are ignored.
func (s *Store) DeletePermits(ctx context.Context, ids ...core.ID) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, "DELETE FROM permits WHERE locationid = ?", int64(id)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// CountPermits returns the number of stored permits.
func (s *Store) CountPermits(ctx context.Context) (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM permits").Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// ScanPermits returns every permit matching filter in ascending ID order.
//
// Status is compared exactly in SQL. Substring terms are pushed down as LIKE
// only when they are plain ASCII, since SQLite folds case for ASCII alone;
// every row is checked against filter.Match before it is returned.
func (s *Store) ScanPermits(ctx context.Context, filter core.Filter) ([]*core.Permit, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	for _, term := range []struct{ column, value string }{
		{"applicant", filter.ApplicantName},
		{"address", filter.StreetName},
	} {
		if term.value == "" || !isASCII(term.value) {
			continue
		}
		where = append(where, term.column+` LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(term.value)+"%")
	}

	query := "SELECT " + strings.Join(columns, ", ") + " FROM permits"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY locationid"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	permits := make([]*core.Permit, 0)
	for rows.Next() {
		permit, err := scanPermit(rows)
		if err != nil {
			return nil, err
		}
		if filter.Match(permit) {
			permits = append(permits, permit)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	s.logger.Debug("scanned permits", "matched", len(permits))
	return permits, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPermit(row rowScanner) (*core.Permit, error) {
	var (
		p        core.Permit
		id       int64
		lat, lon sql.NullFloat64
	)
	dest := []any{&id}
	text := p.TextFields()
	// latitude and longitude sit between y and schedule
	dest = append(dest, anyPtrs(text[:13])...)
	dest = append(dest, &lat, &lon)
	dest = append(dest, anyPtrs(text[13:])...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	p.ID = core.ID(id)
	if lat.Valid {
		p.Latitude = core.Float64(lat.Float64)
	}
	if lon.Valid {
		p.Longitude = core.Float64(lon.Float64)
	}
	return &p, nil
}

func permitArgs(p *core.Permit) []any {
	args := []any{int64(p.ID)}
	text := p.TextFields()
	for _, f := range text[:13] {
		args = append(args, *f)
	}
	args = append(args, nullFloat(p.Latitude), nullFloat(p.Longitude))
	for _, f := range text[13:] {
		args = append(args, *f)
	}
	return args
}

func anyPtrs(fields []*string) []any {
	out := make([]any, len(fields))
	for i, f := range fields {
		out[i] = f
	}
	return out
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
