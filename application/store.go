// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Oct 16th 2026
// Project: A Monte-Carlo Analysis of OLS and Instrumental-Variables Estimators
// Class: 02-613 at Caregie Mellon University

package main

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite" // SQLite driver
)

// EnsembleStore archives Monte-Carlo ensembles in a SQLite file so runs can
// be compared later without re-simulating.
type EnsembleStore struct {
	db     *sql.DB
	dbPath string
}

// RunInfo describes one archived ensemble without its estimates.
type RunInfo struct {
	ID           int64
	Name         string
	Method       string
	SampleSize   int
	Replications int
	Skipped      int
	Seed         uint64
	CreatedAt    time.Time
}

// OpenStore opens or creates the archive ivsim.db inside dir.
func OpenStore(dir string) (*EnsembleStore, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, errors.Wrapf(err, "creating store directory %s", dir)
	}
	dbPath := filepath.Join(dir, AppName+".db")

	db, err := sql.Open("sqlite", dbPath+"?mode=rwc")
	if err != nil {
		return nil, errors.Wrap(err, "opening store")
	}
	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &EnsembleStore{db: db, dbPath: dbPath}

	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "enabling WAL mode")
	}
	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "creating tables")
	}
	return s, nil
}

// Close closes the database connection.
func (s *EnsembleStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *EnsembleStore) Path() string {
	return s.dbPath
}

func (s *EnsembleStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		method TEXT NOT NULL,
		coef_names TEXT NOT NULL,
		sample_size INTEGER NOT NULL,
		replications INTEGER NOT NULL,
		skipped INTEGER NOT NULL,
		seed TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS estimates (
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		replication INTEGER NOT NULL,
		coef INTEGER NOT NULL,
		value REAL NOT NULL,
		PRIMARY KEY (run_id, replication, coef)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_name ON runs(name);
	`
	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// SaveEnsemble stores e and returns its run id.
func (s *EnsembleStore) SaveEnsemble(ctx context.Context, e *Ensemble) (int64, error) {
	if e == nil {
		return 0, configErr("ensemble", "not provided")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	// seed is a uint64 and may not fit an SQLite INTEGER
	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (name, method, coef_names, sample_size, replications, skipped, seed)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Name, e.Method.String(), strings.Join(e.Names, ","),
		e.SampleSize, e.Replications, e.Skipped, strconv.FormatUint(e.Seed, 10))
	if err != nil {
		return 0, errors.Wrapf(err, "inserting run %q", e.Name)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "reading run id")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO estimates (run_id, replication, coef, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, errors.Wrap(err, "preparing estimate insert")
	}
	defer stmt.Close()

	for r, b := range e.Estimates {
		for j, v := range b {
			if _, err := stmt.ExecContext(ctx, id, r, j, v); err != nil {
				return 0, errors.Wrapf(err, "inserting estimate %d/%d", r, j)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "committing run")
	}
	return id, nil
}

// LoadEnsemble reads back the ensemble stored under id.
func (s *EnsembleStore) LoadEnsemble(ctx context.Context, id int64) (*Ensemble, error) {
	var (
		info      RunInfo
		coefNames string
		seed      string
		created   string
	)
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, method, coef_names, sample_size, replications, skipped, seed, created_at
		 FROM runs WHERE id = ?`, id)
	if err := row.Scan(&info.ID, &info.Name, &info.Method, &coefNames,
		&info.SampleSize, &info.Replications, &info.Skipped, &seed, &created); err != nil {
		return nil, errors.Wrapf(err, "loading run %d", id)
	}
	parsedSeed, err := strconv.ParseUint(seed, 10, 64)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing seed of run %d", id)
	}

	e := &Ensemble{
		Name:         info.Name,
		Method:       parseMethod(info.Method),
		SampleSize:   info.SampleSize,
		Replications: info.Replications,
		Skipped:      info.Skipped,
		Seed:         parsedSeed,
	}
	if coefNames != "" {
		e.Names = strings.Split(coefNames, ",")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT replication, coef, value FROM estimates WHERE run_id = ? ORDER BY replication, coef`, id)
	if err != nil {
		return nil, errors.Wrapf(err, "loading estimates of run %d", id)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			r, j int
			v    float64
		)
		if err := rows.Scan(&r, &j, &v); err != nil {
			return nil, errors.Wrapf(err, "scanning estimate of run %d", id)
		}
		for len(e.Estimates) <= r {
			e.Estimates = append(e.Estimates, nil)
		}
		for len(e.Estimates[r]) <= j {
			e.Estimates[r] = append(e.Estimates[r], 0)
		}
		e.Estimates[r][j] = v
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "iterating estimates of run %d", id)
	}
	return e, nil
}

// ListRuns returns every archived run, newest first.
func (s *EnsembleStore) ListRuns(ctx context.Context) ([]RunInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, method, sample_size, replications, skipped, seed, created_at
		 FROM runs ORDER BY id DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "listing runs")
	}
	defer rows.Close()

	var out []RunInfo
	for rows.Next() {
		var (
			info    RunInfo
			seed    string
			created string
		)
		if err := rows.Scan(&info.ID, &info.Name, &info.Method, &info.SampleSize,
			&info.Replications, &info.Skipped, &seed, &created); err != nil {
			return nil, errors.Wrap(err, "scanning run")
		}
		info.CreatedAt = parseTimestamp(created)
		if info.Seed, err = strconv.ParseUint(seed, 10, 64); err != nil {
			return nil, errors.Wrapf(err, "parsing seed of run %d", info.ID)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// SQLite hands DATETIME columns back in more than one layout
var timestampFormats = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
}

func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func parseMethod(s string) Method {
	if s == MethodIV.String() {
		return MethodIV
	}
	return MethodOLS
}
