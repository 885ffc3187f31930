// Package sqlstore implements storage.Driver on top of database/sql. The
// sqlite and postgres packages open the connection and pick a Dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/papercomputeco/bazi/pkg/bazi"
	"github.com/papercomputeco/bazi/pkg/storage"
)

// Dialect describes the differences between SQL backends.
type Dialect struct {
	Name string

	// Numbered switches "?" placeholders to "$1", "$2", ...
	Numbered bool

	// Upsert is the statement used by Put, written with "?" placeholders.
	Upsert string
}

const createTable = `CREATE TABLE IF NOT EXISTS readings (
	id         TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	birth      TEXT NOT NULL,
	gender     TEXT NOT NULL,
	chart      TEXT NOT NULL,
	model      TEXT NOT NULL,
	question   TEXT NOT NULL DEFAULT '',
	thinking   TEXT NOT NULL DEFAULT '',
	content    TEXT NOT NULL,
	created_at BIGINT NOT NULL
)`

const createIndex = `CREATE INDEX IF NOT EXISTS readings_created_at ON readings (created_at)`

const columns = `id, kind, birth, gender, chart, model, question, thinking, content, created_at`

// UpsertSQL is the portable upsert shared by SQLite and PostgreSQL.
const UpsertSQL = `INSERT INTO readings (` + columns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	kind = excluded.kind,
	birth = excluded.birth,
	gender = excluded.gender,
	chart = excluded.chart,
	model = excluded.model,
	question = excluded.question,
	thinking = excluded.thinking,
	content = excluded.content,
	created_at = excluded.created_at`

// Store is a storage.Driver backed by a *sql.DB.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// New creates the schema if needed and returns a Store that owns db.
func New(ctx context.Context, db *sql.DB, dialect Dialect) (*Store, error) {
	s := &Store{db: db, dialect: dialect}

	for _, stmt := range []string{createTable, createIndex} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return s, nil
}

// DB exposes the underlying connection pool.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Put inserts or replaces a reading.
func (s *Store) Put(ctx context.Context, r *storage.Reading) error {
	if r == nil {
		return storage.ErrNilReading
	}

	chart, err := json.Marshal(r.Chart)
	if err != nil {
		return fmt.Errorf("encoding chart: %w", err)
	}

	_, err = s.db.ExecContext(ctx, s.rebind(s.dialect.Upsert),
		r.ID,
		string(r.Kind),
		r.Birth.Format(time.RFC3339),
		string(r.Gender),
		string(chart),
		r.Model,
		r.Question,
		r.Thinking,
		r.Content,
		r.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("storing reading %s: %w", r.ID, err)
	}

	return nil
}

// Get retrieves a reading by ID.
func (s *Store) Get(ctx context.Context, id string) (*storage.Reading, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+columns+` FROM readings WHERE id = ?`), id)

	r, err := scanReading(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("loading reading %s: %w", id, err)
	}

	return r, nil
}

// List returns readings newest first.
func (s *Store) List(ctx context.Context, opts storage.ListOptions) ([]*storage.Reading, error) {
	query := `SELECT ` + columns + ` FROM readings`
	var args []any

	if opts.Kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, string(opts.Kind))
	}
	query += ` ORDER BY created_at DESC, id ASC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("listing readings: %w", err)
	}
	defer rows.Close()

	var result []*storage.Reading
	for rows.Next() {
		r, err := scanReading(rows)
		if err != nil {
			return nil, fmt.Errorf("listing readings: %w", err)
		}
		result = append(result, r)
	}

	return result, rows.Err()
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// rebind rewrites "?" placeholders for dialects that number them.
func (s *Store) rebind(query string) string {
	if !s.dialect.Numbered {
		return query
	}

	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReading(sc scanner) (*storage.Reading, error) {
	var (
		r         storage.Reading
		kind      string
		birth     string
		gender    string
		chart     string
		createdAt int64
	)

	err := sc.Scan(&r.ID, &kind, &birth, &gender, &chart, &r.Model, &r.Question, &r.Thinking, &r.Content, &createdAt)
	if err != nil {
		return nil, err
	}

	r.Kind = storage.Kind(kind)
	r.Gender = bazi.Gender(gender)
	r.CreatedAt = time.UnixMilli(createdAt).UTC()

	r.Birth, err = time.Parse(time.RFC3339, birth)
	if err != nil {
		return nil, fmt.Errorf("parsing birth time: %w", err)
	}

	if err := json.Unmarshal([]byte(chart), &r.Chart); err != nil {
		return nil, fmt.Errorf("decoding chart: %w", err)
	}

	return &r, nil
}
