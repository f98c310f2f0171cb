// Package store persists scans and subdomain records in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure Go SQLite driver, no CGO

	"github.com/Mrutyunjaya98Gouda/CyberEye/internal/engine"
)

// Scan state values.
const (
	StatePending   = "pending"
	StateRunning   = "running"
	StateCompleted = "completed"
	StateFailed    = "failed"
	StateStopped   = "stopped"
)

// ErrNotFound is returned when a scan ID has no row.
var ErrNotFound = errors.New("scan not found")

// Scan is one stored scan row.
type Scan struct {
	ID           string             `json:"scan_id"`
	TargetDomain string             `json:"target_domain"`
	Options      engine.Options     `json:"options"`
	State        string             `json:"state"`
	Failure      string             `json:"failure,omitempty"`
	Summary      engine.ScanSummary `json:"summary"`
	CreatedAt    time.Time          `json:"created_at"`
	StartedAt    *time.Time         `json:"started_at,omitempty"`
	FinishedAt   *time.Time         `json:"finished_at,omitempty"`
}

// SQLite implements engine.Store on a local database file.
type SQLite struct {
	db *sql.DB
}

// Open opens (and initializes) the database at path. ":memory:" works
// for tests.
func Open(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	// WAL tolerates a writer pool alongside readers.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

// Close releases the database handle.
func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) initSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS scans (
	id                  TEXT PRIMARY KEY,
	target_domain       TEXT NOT NULL,
	options             TEXT NOT NULL,
	state               TEXT NOT NULL DEFAULT 'pending',
	failure             TEXT NOT NULL DEFAULT '',
	stop_requested      INTEGER NOT NULL DEFAULT 0,
	total               INTEGER NOT NULL DEFAULT 0,
	active              INTEGER NOT NULL DEFAULT 0,
	anomalies           INTEGER NOT NULL DEFAULT 0,
	cloud_assets        INTEGER NOT NULL DEFAULT 0,
	takeover_vulnerable INTEGER NOT NULL DEFAULT 0,
	created_at          TIMESTAMP NOT NULL,
	started_at          TIMESTAMP,
	finished_at         TIMESTAMP
);

CREATE TABLE IF NOT EXISTS subdomains (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	scan_id             TEXT NOT NULL REFERENCES scans(id),
	name                TEXT NOT NULL,
	sources             TEXT NOT NULL DEFAULT '[]',
	ips                 TEXT NOT NULL DEFAULT '[]',
	cname               TEXT NOT NULL DEFAULT '',
	http_status         INTEGER NOT NULL DEFAULT 0,
	https_status        INTEGER NOT NULL DEFAULT 0,
	server              TEXT NOT NULL DEFAULT '',
	technologies        TEXT NOT NULL DEFAULT '[]',
	cloud_provider      TEXT NOT NULL DEFAULT '',
	is_anomaly          INTEGER NOT NULL DEFAULT 0,
	anomaly_reason      TEXT NOT NULL DEFAULT '',
	takeover_vulnerable INTEGER NOT NULL DEFAULT 0,
	takeover_type       TEXT NOT NULL DEFAULT '',
	takeover_verified   INTEGER NOT NULL DEFAULT 0,
	risk_score          INTEGER NOT NULL DEFAULT 0,
	status              TEXT NOT NULL DEFAULT 'inactive',
	historical_urls     TEXT NOT NULL DEFAULT '[]',
	first_seen          TIMESTAMP NOT NULL,
	last_seen           TIMESTAMP NOT NULL,
	UNIQUE(scan_id, name)
);

CREATE INDEX IF NOT EXISTS idx_subdomains_scan ON subdomains(scan_id);
`)
	return err
}

// CreateScan inserts a pending scan row for the request.
func (s *SQLite) CreateScan(ctx context.Context, req engine.ScanRequest) error {
	opts, err := json.Marshal(req.Options)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO scans (id, target_domain, options, state, created_at) VALUES (?, ?, ?, ?, ?)`,
		req.ScanID, req.TargetDomain, string(opts), StatePending, time.Now().UTC())
	return err
}

// MarkRunning transitions a scan to running.
func (s *SQLite) MarkRunning(ctx context.Context, scanID string) error {
	return s.setState(ctx, scanID, StateRunning, "started_at")
}

// MarkCompleted transitions a scan to completed and stores the summary.
func (s *SQLite) MarkCompleted(ctx context.Context, scanID string, summary engine.ScanSummary) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scans SET state = ?, finished_at = ?, total = ?, active = ?, anomalies = ?,
		 cloud_assets = ?, takeover_vulnerable = ? WHERE id = ?`,
		StateCompleted, time.Now().UTC(),
		summary.Total, summary.Active, summary.Anomalies,
		summary.CloudAssets, summary.TakeoverVulnerable, scanID)
	if err != nil {
		return err
	}
	return checkAffected(res, scanID)
}

// MarkFailed transitions a scan to failed with the internal detail.
// The detail never leaves the store and the server logs.
func (s *SQLite) MarkFailed(ctx context.Context, scanID string, reason string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scans SET state = ?, failure = ?, finished_at = ? WHERE id = ?`,
		StateFailed, reason, time.Now().UTC(), scanID)
	if err != nil {
		return err
	}
	return checkAffected(res, scanID)
}

// RequestStop flips the stop flag and marks the terminal state. Workers
// already in flight finish naturally; their results are not persisted.
func (s *SQLite) RequestStop(ctx context.Context, scanID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scans SET stop_requested = 1, state = ?, finished_at = ? WHERE id = ? AND state IN (?, ?)`,
		StateStopped, time.Now().UTC(), scanID, StatePending, StateRunning)
	if err != nil {
		return err
	}
	return checkAffected(res, scanID)
}

// Stopped reports whether an external stop was requested for the scan.
func (s *SQLite) Stopped(ctx context.Context, scanID string) (bool, error) {
	var stop int
	err := s.db.QueryRowContext(ctx, `SELECT stop_requested FROM scans WHERE id = ?`, scanID).Scan(&stop)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, err
	}
	return stop != 0, nil
}

// InsertRecords writes one batch of subdomain records in a transaction.
func (s *SQLite) InsertRecords(ctx context.Context, scanID string, recs []engine.SubdomainRecord) error {
	if len(recs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO subdomains (
	scan_id, name, sources, ips, cname, http_status, https_status, server,
	technologies, cloud_provider, is_anomaly, anomaly_reason,
	takeover_vulnerable, takeover_type, takeover_verified,
	risk_score, status, historical_urls, first_seen, last_seen
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(scan_id, name) DO UPDATE SET last_seen = excluded.last_seen`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range recs {
		r := &recs[i]
		if _, err := stmt.ExecContext(ctx,
			scanID, r.Name, mustJSON(r.Sources), mustJSON(r.IPs), r.CNAME,
			r.HTTPStatus, r.HTTPSStatus, r.Server,
			mustJSON(r.Technologies), r.CloudProvider,
			boolInt(r.IsAnomaly), r.AnomalyReason,
			boolInt(r.TakeoverVulnerable), r.TakeoverType, boolInt(r.TakeoverVerified),
			r.RiskScore, r.Status, mustJSON(r.HistoricalURLs),
			r.FirstSeen, r.LastSeen,
		); err != nil {
			return fmt.Errorf("insert %s: %w", r.Name, err)
		}
	}

	return tx.Commit()
}

// GetScan loads one scan row.
func (s *SQLite) GetScan(ctx context.Context, scanID string) (*Scan, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, target_domain, options, state, failure,
       total, active, anomalies, cloud_assets, takeover_vulnerable,
       created_at, started_at, finished_at
FROM scans WHERE id = ?`, scanID)

	var sc Scan
	var opts string
	var started, finished sql.NullTime
	err := row.Scan(&sc.ID, &sc.TargetDomain, &opts, &sc.State, &sc.Failure,
		&sc.Summary.Total, &sc.Summary.Active, &sc.Summary.Anomalies,
		&sc.Summary.CloudAssets, &sc.Summary.TakeoverVulnerable,
		&sc.CreatedAt, &started, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(opts), &sc.Options); err != nil {
		return nil, fmt.Errorf("scan %s: corrupt options column: %w", scanID, err)
	}
	if started.Valid {
		sc.StartedAt = &started.Time
	}
	if finished.Valid {
		sc.FinishedAt = &finished.Time
	}
	return &sc, nil
}

// GetRecords loads every record of a scan, highest risk first.
func (s *SQLite) GetRecords(ctx context.Context, scanID string) ([]engine.SubdomainRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT name, sources, ips, cname, http_status, https_status, server,
       technologies, cloud_provider, is_anomaly, anomaly_reason,
       takeover_vulnerable, takeover_type, takeover_verified,
       risk_score, status, historical_urls, first_seen, last_seen
FROM subdomains WHERE scan_id = ? ORDER BY risk_score DESC, name ASC`, scanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []engine.SubdomainRecord
	for rows.Next() {
		var r engine.SubdomainRecord
		var sources, ips, techs, urls string
		var isAnomaly, vulnerable, verified int
		if err := rows.Scan(&r.Name, &sources, &ips, &r.CNAME,
			&r.HTTPStatus, &r.HTTPSStatus, &r.Server,
			&techs, &r.CloudProvider, &isAnomaly, &r.AnomalyReason,
			&vulnerable, &r.TakeoverType, &verified,
			&r.RiskScore, &r.Status, &urls, &r.FirstSeen, &r.LastSeen,
		); err != nil {
			return nil, err
		}
		r.ScanID = scanID
		_ = json.Unmarshal([]byte(sources), &r.Sources)
		_ = json.Unmarshal([]byte(ips), &r.IPs)
		_ = json.Unmarshal([]byte(techs), &r.Technologies)
		_ = json.Unmarshal([]byte(urls), &r.HistoricalURLs)
		r.IsAnomaly = isAnomaly != 0
		r.TakeoverVulnerable = vulnerable != 0
		r.TakeoverVerified = verified != 0
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

func (s *SQLite) setState(ctx context.Context, scanID, state, tsColumn string) error {
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE scans SET state = ?, %s = ? WHERE id = ?`, tsColumn),
		state, time.Now().UTC(), scanID)
	if err != nil {
		return err
	}
	return checkAffected(res, scanID)
}

func checkAffected(res sql.Result, scanID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, scanID)
	}
	return nil
}

func mustJSON(v any) string {
	if v == nil {
		return "[]"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
