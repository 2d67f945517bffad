// Package placestest builds small places.sqlite fixtures for tests.
package placestest

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// Schema is the subset of the Firefox places schema the reader touches.
const Schema = `
	CREATE TABLE moz_places (
		id INTEGER PRIMARY KEY,
		url TEXT NOT NULL
	);
	CREATE TABLE moz_bookmarks (
		id INTEGER PRIMARY KEY,
		type INTEGER NOT NULL,
		fk INTEGER DEFAULT NULL,
		parent INTEGER,
		position INTEGER,
		title TEXT,
		dateAdded INTEGER
	);
	INSERT INTO moz_bookmarks (id, type, parent, position, title) VALUES
		(1, 2, 0, 0, ''),
		(2, 2, 1, 0, 'menu'),
		(3, 2, 1, 1, 'toolbar'),
		(4, 2, 1, 2, 'tags'),
		(5, 2, 1, 3, 'unfiled');
`

// Entry is a bookmark to insert into a fixture.
type Entry struct {
	URL     string
	Title   string
	AddedAt time.Time
}

// DB is an open fixture database.
type DB struct {
	Path string
	conn *sql.DB
	t    testing.TB
}

// New creates places.sqlite inside dir with the base schema.
// The connection is closed when the test ends.
func New(t testing.TB, dir string) *DB {
	t.Helper()

	path := filepath.Join(dir, "places.sqlite")
	conn, err := sql.Open("sqlite3", "file:"+filepath.ToSlash(path))
	if err != nil {
		t.Fatalf("failed to open fixture database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if _, err := conn.Exec(Schema); err != nil {
		t.Fatalf("failed to create fixture schema: %v", err)
	}

	return &DB{Path: path, conn: conn, t: t}
}

// Folder creates a folder named title under parent and returns its id.
func (db *DB) Folder(title string, parent int64) int64 {
	db.t.Helper()

	res, err := db.conn.Exec(`INSERT INTO moz_bookmarks (type, parent, position, title) VALUES (2, ?, 0, ?)`, parent, title)
	if err != nil {
		db.t.Fatalf("failed to insert folder %q: %v", title, err)
	}
	id, _ := res.LastInsertId()
	return id
}

// Add inserts bookmarks into the folder with the given id.
func (db *DB) Add(folder int64, entries ...Entry) {
	db.t.Helper()

	tx, err := db.conn.Begin()
	if err != nil {
		db.t.Fatalf("failed to begin: %v", err)
	}
	defer tx.Rollback()

	for i, e := range entries {
		res, err := tx.Exec(`INSERT INTO moz_places (url) VALUES (?)`, e.URL)
		if err != nil {
			db.t.Fatalf("failed to insert place %q: %v", e.URL, err)
		}
		placeID, _ := res.LastInsertId()

		added := e.AddedAt
		if added.IsZero() {
			added = time.Now()
		}
		_, err = tx.Exec(
			`INSERT INTO moz_bookmarks (type, fk, parent, position, title, dateAdded) VALUES (1, ?, ?, ?, ?, ?)`,
			placeID, folder, i, e.Title, added.UnixMicro(),
		)
		if err != nil {
			db.t.Fatalf("failed to insert bookmark %q: %v", e.Title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		db.t.Fatalf("failed to commit: %v", err)
	}
}

// Remove deletes every bookmark with the given title.
func (db *DB) Remove(title string) {
	db.t.Helper()

	if _, err := db.conn.Exec(`DELETE FROM moz_bookmarks WHERE type = 1 AND title = ?`, title); err != nil {
		db.t.Fatalf("failed to remove bookmark %q: %v", title, err)
	}
}
