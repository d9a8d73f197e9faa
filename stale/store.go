package stale

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/chazu/cfc/model"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store keeps the digest of every declaration file as of the last
// successful write. A unit is stale when its digest changed or its
// generated header is gone.
type Store struct {
	db          *sql.DB
	path        string
	includeDest string
}

var _ model.StalenessOracle = (*Store)(nil)

// Run records one successful generation.
type Run struct {
	ID         string
	FinishedAt time.Time
	Units      int
}

// Open opens or creates the state database at path.
func Open(path, includeDest string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating state dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening state database: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS units (
			path   TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			run_id TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS runs (
			id          TEXT PRIMARY KEY,
			finished_at INTEGER NOT NULL,
			units       INTEGER NOT NULL
		)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating tables: %w", err)
		}
	}
	return &Store{db: db, path: path, includeDest: includeDest}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database file.
func (s *Store) Path() string { return s.path }

func digest(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// NeedsRegen implements model.StalenessOracle.
func (s *Store) NeedsRegen(f *model.File) (bool, error) {
	if f.SourcePath == "" {
		return true, nil
	}
	h := f.HPath(s.includeDest)
	if _, err := os.Stat(h); errors.Is(err, fs.ErrNotExist) {
		return true, nil
	} else if err != nil {
		return false, &model.Error{Kind: model.KindIO, Path: h, Err: err}
	}
	current, err := digest(f.SourcePath)
	if err != nil {
		return false, &model.Error{Kind: model.KindIO, Path: f.SourcePath, Err: err}
	}
	var recorded string
	err = s.db.QueryRow("SELECT digest FROM units WHERE path = ?", f.Path).Scan(&recorded)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("querying digest for %s: %w", f.Path, err)
	}
	if recorded != current {
		log.Debugf("%s: digest changed", f.Path)
		return true, nil
	}
	return false, nil
}

// Commit records the current digest of every file with a source path
// under a fresh run id.
func (s *Store) Commit(files []*model.File) (string, error) {
	runID := uuid.NewString()
	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("beginning commit: %w", err)
	}
	defer tx.Rollback()

	n := 0
	for _, f := range files {
		if f.SourcePath == "" || f.Included {
			continue
		}
		d, err := digest(f.SourcePath)
		if err != nil {
			return "", &model.Error{Kind: model.KindIO, Path: f.SourcePath, Err: err}
		}
		if _, err := tx.Exec(
			"INSERT OR REPLACE INTO units (path, digest, run_id) VALUES (?, ?, ?)",
			f.Path, d, runID,
		); err != nil {
			return "", fmt.Errorf("recording %s: %w", f.Path, err)
		}
		n++
	}
	if _, err := tx.Exec(
		"INSERT INTO runs (id, finished_at, units) VALUES (?, ?, ?)",
		runID, time.Now().UnixNano(), n,
	); err != nil {
		return "", fmt.Errorf("recording run: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing run: %w", err)
	}
	log.Infof("recorded run %s (%d units)", runID, n)
	return runID, nil
}

// LastRun returns the most recent run, or false if none is recorded.
func (s *Store) LastRun() (Run, bool, error) {
	var (
		r  Run
		ns int64
	)
	err := s.db.QueryRow(
		"SELECT id, finished_at, units FROM runs ORDER BY finished_at DESC LIMIT 1",
	).Scan(&r.ID, &ns, &r.Units)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, fmt.Errorf("querying last run: %w", err)
	}
	r.FinishedAt = time.Unix(0, ns)
	return r, true, nil
}
