package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
)

// schemaVersion is stored in SQLite's user_version pragma. Bump it whenever
// the tables change; Open recreates the schema on mismatch.
const schemaVersion = 1

// sqliteBusyTimeout is how long SQLite waits on a locked database before
// returning SQLITE_BUSY.
const sqliteBusyTimeout = 10000 // milliseconds

// SQLite stores items in a single table.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (or creates) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), dirPerms); err != nil {
		return nil, fmt.Errorf("open store: create directory: %w", err)
	}

	db, err := openSqlite(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	version, err := userVersion(ctx, db)
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("open store: %w", err)
	}

	if version != schemaVersion {
		if err := recreateSchema(ctx, db); err != nil {
			_ = db.Close()

			return nil, fmt.Errorf("open store: %w", err)
		}
	}

	return &SQLite{db: db, now: time.Now}, nil
}

func openSqlite(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()

		return nil, err
	}

	return db, nil
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf(`
		PRAGMA busy_timeout = %d;
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = NORMAL;
		PRAGMA temp_store = MEMORY;
	`, sqliteBusyTimeout))
	if err != nil {
		return fmt.Errorf("apply pragmas: %w", err)
	}

	return nil
}

func userVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version int

	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("read user_version: %w", err)
	}

	return version, nil
}

func recreateSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	statements := []string{
		"DROP TABLE IF EXISTS items",
		`CREATE TABLE items (
			id TEXT PRIMARY KEY,
			parent_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			fields TEXT NOT NULL,
			created_at INTEGER NOT NULL
		) WITHOUT ROWID`,
		"CREATE INDEX idx_items_parent ON items(parent_id, kind)",
		fmt.Sprintf("PRAGMA user_version = %d", schemaVersion),
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}

	return nil
}

const itemColumns = "id, parent_id, kind, fields, created_at"

func scanItem(row interface{ Scan(dest ...any) error }) (Item, error) {
	var (
		it      Item
		kind    string
		fields  string
		created int64
	)

	if err := row.Scan(&it.ID, &it.ParentID, &kind, &fields, &created); err != nil {
		return Item{}, err
	}

	it.Kind = ItemKind(kind)
	it.CreatedAt = time.Unix(0, created).UTC()

	if fields != "" && fields != "null" {
		if err := json.Unmarshal([]byte(fields), &it.Fields); err != nil {
			return Item{}, fmt.Errorf("decode fields of %s: %w", it.ID, err)
		}
	}

	return it, nil
}

func (s *SQLite) List(ctx context.Context, filter Filter) ([]Item, error) {
	var (
		where []string
		args  []any
	)

	if filter.ParentID != "" {
		where = append(where, "parent_id = ?")
		args = append(args, filter.ParentID)
	}

	if filter.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(filter.Kind))
	}

	query := "SELECT " + itemColumns + " FROM items"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	query += " ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Item

	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("list items: %w", err)
		}

		out = append(out, it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	return out, nil
}

func (s *SQLite) Get(ctx context.Context, id string) (Item, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+itemColumns+" FROM items WHERE id = ?", id)

	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Item{}, ErrNotFound
	}

	if err != nil {
		return Item{}, fmt.Errorf("get item: %w", err)
	}

	return it, nil
}

func (s *SQLite) Save(ctx context.Context, item Item) (Item, error) {
	stamped := item.CreatedAt.IsZero()

	item, err := prepare(item, s.now())
	if err != nil {
		return Item{}, err
	}

	fields, err := json.Marshal(item.Fields)
	if err != nil {
		return Item{}, fmt.Errorf("encode fields: %w", err)
	}

	// An update without an explicit creation time keeps the stored one.
	var createdAt int64

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO items (`+itemColumns+`) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			parent_id = excluded.parent_id,
			kind = excluded.kind,
			fields = excluded.fields,
			created_at = CASE WHEN ? THEN items.created_at ELSE excluded.created_at END
		RETURNING created_at`,
		item.ID, item.ParentID, string(item.Kind), string(fields), item.CreatedAt.UnixNano(), stamped,
	).Scan(&createdAt)
	if err != nil {
		return Item{}, fmt.Errorf("save item: %w", err)
	}

	item.CreatedAt = time.Unix(0, createdAt).UTC()

	return item, nil
}

func (s *SQLite) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM items WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}

	if n == 0 {
		return ErrNotFound
	}

	return nil
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close sqlite: %w", err)
	}

	return nil
}
