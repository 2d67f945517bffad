// Package places reads a bookmark folder out of a Firefox places.sqlite database.
//
// The browser keeps places.sqlite open and may lock it, so every query runs
// against a private byte-for-byte copy that is discarded as soon as the query
// returns:
//
//	src := places.NewSource("/path/to/profile/places.sqlite")
//	bookmarks, err := src.Snapshot(ctx, "R")
//	if err != nil {
//	    return err
//	}
//
// The live database is never opened and never written.
package places

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/otiai10/copy"

	"github.com/bookmirror/bookmirror/internal/bookmark"
)

const (
	// DatabaseName is the file name of the places database inside a profile.
	DatabaseName = "places.sqlite"

	// WALSuffix is appended to DatabaseName for the write-ahead log sidecar.
	WALSuffix = "-wal"

	// ToolbarRoot is the moz_bookmarks id of the bookmarks toolbar.
	ToolbarRoot int64 = 3
)

const folderQuery = `SELECT id FROM moz_bookmarks WHERE title = ? AND parent = ?`

const bookmarksQuery = `
	SELECT moz_places.url, moz_bookmarks.title, moz_bookmarks.dateAdded
	FROM moz_bookmarks
	JOIN moz_places ON moz_bookmarks.fk = moz_places.id
	WHERE moz_bookmarks.parent IN (
		SELECT id FROM moz_bookmarks
		WHERE title = ? AND parent = ?
	)`

// Source reads bookmark folders from one places database.
type Source struct {
	// Path is the live places.sqlite file.
	Path string

	// ToolbarRoot is the parent id the folder must sit under.
	ToolbarRoot int64

	// TempDir is where private copies are made. Empty means os.TempDir().
	TempDir string
}

// NewSource returns a Source for the database at path using the default toolbar root.
func NewSource(path string) *Source {
	return &Source{Path: path, ToolbarRoot: ToolbarRoot}
}

// Snapshot returns every bookmark directly inside the named folder, in
// database row order.
func (s *Source) Snapshot(ctx context.Context, folder string) ([]bookmark.Bookmark, error) {
	var bookmarks []bookmark.Bookmark
	err := s.withCopy(ctx, func(conn *sql.DB) error {
		if err := s.requireFolder(ctx, conn, folder); err != nil {
			return err
		}

		rows, err := conn.QueryContext(ctx, bookmarksQuery+` ORDER BY moz_bookmarks.id`, folder, s.ToolbarRoot)
		if err != nil {
			return fmt.Errorf("failed to query bookmarks: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			b, err := scanBookmark(rows)
			if err != nil {
				return err
			}
			bookmarks = append(bookmarks, b)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return bookmarks, nil
}

// Latest returns the most recently added bookmark in the named folder.
// It returns nil when the folder exists but is empty.
func (s *Source) Latest(ctx context.Context, folder string) (*bookmark.Bookmark, error) {
	var latest *bookmark.Bookmark
	err := s.withCopy(ctx, func(conn *sql.DB) error {
		if err := s.requireFolder(ctx, conn, folder); err != nil {
			return err
		}

		rows, err := conn.QueryContext(ctx, bookmarksQuery+` ORDER BY moz_bookmarks.dateAdded DESC LIMIT 1`, folder, s.ToolbarRoot)
		if err != nil {
			return fmt.Errorf("failed to query latest bookmark: %w", err)
		}
		defer rows.Close()

		if rows.Next() {
			b, err := scanBookmark(rows)
			if err != nil {
				return err
			}
			latest = &b
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return latest, nil
}

// Count returns the number of bookmarks in the named folder.
func (s *Source) Count(ctx context.Context, folder string) (int, error) {
	var count int
	err := s.withCopy(ctx, func(conn *sql.DB) error {
		if err := s.requireFolder(ctx, conn, folder); err != nil {
			return err
		}

		query := `SELECT COUNT(*) FROM (` + bookmarksQuery + `)`
		if err := conn.QueryRowContext(ctx, query, folder, s.ToolbarRoot).Scan(&count); err != nil {
			return fmt.Errorf("failed to count bookmarks: %w", err)
		}
		return nil
	})
	return count, err
}

// requireFolder fails with ErrSourceUnavailable when no folder of that name
// sits directly under the toolbar root.
func (s *Source) requireFolder(ctx context.Context, conn *sql.DB, folder string) error {
	var id int64
	err := conn.QueryRowContext(ctx, folderQuery, folder, s.ToolbarRoot).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: folder %q not found under toolbar root %d", bookmark.ErrSourceUnavailable, folder, s.ToolbarRoot)
	}
	if err != nil {
		return fmt.Errorf("%w: folder lookup: %v", bookmark.ErrSourceUnavailable, err)
	}
	return nil
}

func scanBookmark(rows *sql.Rows) (bookmark.Bookmark, error) {
	var (
		url   string
		title sql.NullString
		added sql.NullInt64
	)
	if err := rows.Scan(&url, &title, &added); err != nil {
		return bookmark.Bookmark{}, fmt.Errorf("failed to scan bookmark: %w", err)
	}

	b := bookmark.Bookmark{URL: url, Title: title.String}
	if added.Valid {
		// dateAdded is stored in microseconds since the epoch
		b.AddedAt = time.UnixMicro(added.Int64).UTC()
	}
	return b, nil
}

// withCopy duplicates the database (and its WAL, if any) into a private
// directory, opens the copy, runs fn, and removes the copy whatever happens.
func (s *Source) withCopy(ctx context.Context, fn func(*sql.DB) error) error {
	if _, err := os.Stat(s.Path); err != nil {
		return fmt.Errorf("%w: %v", bookmark.ErrSourceUnavailable, err)
	}

	dir, err := os.MkdirTemp(s.TempDir, "bookmirror-places-*")
	if err != nil {
		return fmt.Errorf("%w: failed to create temp dir: %v", bookmark.ErrSourceUnavailable, err)
	}
	defer os.RemoveAll(dir)

	dst := filepath.Join(dir, DatabaseName)
	if err := copy.Copy(s.Path, dst); err != nil {
		return fmt.Errorf("%w: failed to copy database: %v", bookmark.ErrSourceUnavailable, err)
	}

	wal := s.Path + WALSuffix
	if _, err := os.Stat(wal); err == nil {
		if err := copy.Copy(wal, dst+WALSuffix); err != nil {
			return fmt.Errorf("%w: failed to copy WAL: %v", bookmark.ErrSourceUnavailable, err)
		}
	}

	conn, err := sql.Open("sqlite3", "file:"+filepath.ToSlash(dst)+"?_pragma=query_only(1)")
	if err != nil {
		return fmt.Errorf("%w: failed to open copy: %v", bookmark.ErrSourceUnavailable, err)
	}
	defer conn.Close()

	if err := conn.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: failed to open copy: %v", bookmark.ErrSourceUnavailable, err)
	}

	if err := fn(conn); err != nil {
		if errors.Is(err, bookmark.ErrSourceUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %v", bookmark.ErrSourceUnavailable, err)
	}
	return nil
}
