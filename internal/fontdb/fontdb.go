// Package fontdb keeps a persistent index of font files on disk so family
// names can be resolved without parsing every font at startup.
package fontdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/mgpai22/subrender/internal/fonts"
	"github.com/mgpai22/subrender/internal/logging"
)

var errClosed = errors.New("font index is not open")

var fontExtensions = map[string]bool{
	".ttf": true,
	".otf": true,
	".ttc": true,
	".otc": true,
}

// Stats summarizes an Index run.
type Stats struct {
	Scanned int
	Indexed int
	Skipped int
	Removed int
	Failed  int
}

// Store wraps the SQLite database holding the index.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	logger *logging.Logger
}

// Open opens (and initializes) the index at path.
func Open(path string, logger *logging.Logger) (*Store, error) {
	if path == "" {
		return nil, errors.New("font index path must not be empty")
	}
	if logger == nil {
		logger = logging.Nop()
	}

	if dir := filepath.Dir(filepath.Clean(path)); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to ensure font index directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open font index: %w", err)
	}

	if err := bootstrap(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, logger: logger}, nil
}

func bootstrap(db *sql.DB) error {
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		return fmt.Errorf("failed to configure database: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS files (
			path TEXT PRIMARY KEY,
			size INTEGER NOT NULL,
			mtime INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS faces (
			path TEXT NOT NULL REFERENCES files(path) ON DELETE CASCADE,
			face_index INTEGER NOT NULL,
			name TEXT NOT NULL,
			family TEXT NOT NULL,
			subfamily TEXT NOT NULL,
			bold INTEGER NOT NULL,
			italic INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS faces_name ON faces(name);
	`); err != nil {
		return fmt.Errorf("failed to create font index tables: %w", err)
	}

	return nil
}

// Index walks dirs and records every font file found. Files whose size and
// modification time are unchanged since the last run are skipped, and
// indexed files that no longer exist under dirs are dropped.
func (s *Store) Index(ctx context.Context, dirs ...string) (Stats, error) {
	var stats Stats
	if s == nil || s.db == nil {
		return stats, errClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	known, err := s.knownFiles(ctx)
	if err != nil {
		return stats, err
	}

	seen := make(map[string]bool)
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		root, err := filepath.Abs(dir)
		if err != nil {
			return stats, fmt.Errorf("failed to resolve font directory: %w", err)
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if walkErr != nil {
				if d != nil && d.IsDir() && path != root {
					s.logger.Warnw("Skipping unreadable directory", "path", path, "error", walkErr)
					return fs.SkipDir
				}
				return walkErr
			}
			if d.IsDir() || !fontExtensions[strings.ToLower(filepath.Ext(path))] {
				return nil
			}

			stats.Scanned++
			seen[path] = true

			info, err := d.Info()
			if err != nil {
				stats.Failed++
				return nil
			}
			if prev, ok := known[path]; ok && prev.size == info.Size() && prev.mtime == info.ModTime().Unix() {
				stats.Skipped++
				return nil
			}

			if err := s.indexFile(ctx, path, info); err != nil {
				s.logger.Warnw("Failed to index font", "path", path, "error", err)
				stats.Failed++
				return nil
			}
			stats.Indexed++
			return nil
		})
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				s.logger.Warnw("Font directory does not exist", "path", root)
				continue
			}
			return stats, fmt.Errorf("failed to scan %s: %w", root, err)
		}
	}

	for path := range known {
		if seen[path] || !underAny(path, dirs) {
			continue
		}
		if err := s.remove(ctx, path); err != nil {
			return stats, err
		}
		stats.Removed++
	}

	return stats, nil
}

type fileStamp struct {
	size  int64
	mtime int64
}

func (s *Store) knownFiles(ctx context.Context) (map[string]fileStamp, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path, size, mtime FROM files`)
	if err != nil {
		return nil, fmt.Errorf("failed to query indexed files: %w", err)
	}
	defer rows.Close()

	known := make(map[string]fileStamp)
	for rows.Next() {
		var (
			path  string
			stamp fileStamp
		)
		if err := rows.Scan(&path, &stamp.size, &stamp.mtime); err != nil {
			return nil, fmt.Errorf("failed to scan indexed file: %w", err)
		}
		known[path] = stamp
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating indexed files: %w", err)
	}
	return known, nil
}

func (s *Store) indexFile(ctx context.Context, path string, info fs.FileInfo) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	faces, err := fonts.ParseFaces(path, data)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM faces WHERE path = ?`, path); err != nil {
		return fmt.Errorf("failed to clear faces: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO files (path, size, mtime) VALUES (?, ?, ?)`,
		path, info.Size(), info.ModTime().Unix(),
	); err != nil {
		return fmt.Errorf("failed to record file: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO faces (path, face_index, name, family, subfamily, bold, italic)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare face insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range faces {
		for _, name := range f.Names() {
			if _, err := stmt.ExecContext(ctx, path, f.Index, name, f.Family, f.Subfamily, f.Bold, f.Italic); err != nil {
				return fmt.Errorf("failed to record face: %w", err)
			}
		}
	}

	return tx.Commit()
}

func (s *Store) remove(ctx context.Context, path string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM faces WHERE path = ?`, path); err != nil {
		return fmt.Errorf("failed to remove faces: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE path = ?`, path); err != nil {
		return fmt.Errorf("failed to remove file: %w", err)
	}
	s.logger.Debugw("Removed vanished font", "path", path)
	return nil
}

// Lookup returns the files holding faces that answer to family.
// It satisfies fonts.Provider.
func (s *Store) Lookup(family string) ([]fonts.Location, error) {
	if s == nil || s.db == nil {
		return nil, errClosed
	}
	name := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(family), "@"))
	if name == "" {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT DISTINCT path, face_index FROM faces WHERE name = ? ORDER BY path, face_index`,
		name,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to look up %q: %w", family, err)
	}
	defer rows.Close()

	var locations []fonts.Location
	for rows.Next() {
		var loc fonts.Location
		if err := rows.Scan(&loc.Path, &loc.Index); err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		locations = append(locations, loc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating locations: %w", err)
	}
	return locations, nil
}

// Families lists the distinct family names in the index.
func (s *Store) Families() ([]string, error) {
	if s == nil || s.db == nil {
		return nil, errClosed
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT DISTINCT family FROM faces WHERE family != '' ORDER BY family COLLATE NOCASE`)
	if err != nil {
		return nil, fmt.Errorf("failed to list families: %w", err)
	}
	defer rows.Close()

	var families []string
	for rows.Next() {
		var family string
		if err := rows.Scan(&family); err != nil {
			return nil, fmt.Errorf("failed to scan family: %w", err)
		}
		families = append(families, family)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating families: %w", err)
	}
	return families, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func underAny(path string, dirs []string) bool {
	for _, dir := range dirs {
		root, err := filepath.Abs(dir)
		if err != nil || dir == "" {
			continue
		}
		rel, err := filepath.Rel(root, path)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
