package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Sample is one aggregated slot of a channel.
type Sample struct {
	Profile   string
	Channel   string
	Proto     string
	Timestamp int64
	Flows     int64
	Packets   int64
	Bytes     int64
}

type Store struct {
	db *sql.DB
}

func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA busy_timeout=5000;")
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Store) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS profiles (
		name    TEXT PRIMARY KEY,
		type    INTEGER NOT NULL DEFAULT 0,
		expire  INTEGER NOT NULL DEFAULT 0,
		maxsize INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS samples (
		profile TEXT NOT NULL,
		channel TEXT NOT NULL,
		proto   TEXT NOT NULL,
		ts      INTEGER NOT NULL,
		flows   INTEGER NOT NULL DEFAULT 0,
		packets INTEGER NOT NULL DEFAULT 0,
		bytes   INTEGER NOT NULL DEFAULT 0
	);
	CREATE UNIQUE INDEX IF NOT EXISTS uq_samples_slot ON samples(profile, channel, proto, ts);
	CREATE INDEX IF NOT EXISTS idx_samples_profile_ts ON samples(profile, ts);

	CREATE TABLE IF NOT EXISTS nav_state (
		session TEXT NOT NULL,
		profile TEXT NOT NULL,
		wsize   INTEGER NOT NULL,
		tend    INTEGER NOT NULL,
		tleft   INTEGER NOT NULL,
		tright  INTEGER NOT NULL,
		updated INTEGER NOT NULL,
		PRIMARY KEY (session, profile)
	);
	CREATE TABLE IF NOT EXISTS nav_active (
		session TEXT PRIMARY KEY,
		profile TEXT NOT NULL,
		options TEXT NOT NULL DEFAULT '',
		updated INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS collector_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		inserted INTEGER NOT NULL,
		error TEXT,
		source TEXT NOT NULL DEFAULT ''
	);
	`
	_, err := s.db.Exec(query)
	return err
}

func (s *Store) SaveProfile(p Profile) error {
	query := `
	INSERT INTO profiles (name, type, expire, maxsize)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(name) DO UPDATE SET
		type = excluded.type,
		expire = excluded.expire,
		maxsize = excluded.maxsize;
	`
	_, err := s.db.Exec(query, NormalizeProfileName(p.Name), int(p.Type), p.ExpireHours, p.MaxSize)
	return err
}

func (s *Store) GetProfile(ctx context.Context, name string) (*Profile, error) {
	row := s.db.QueryRowContext(ctx, "SELECT name, type, expire, maxsize FROM profiles WHERE name = ?", NormalizeProfileName(name))
	var p Profile
	var typ int
	if err := row.Scan(&p.Name, &typ, &p.ExpireHours, &p.MaxSize); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUnknownProfile
		}
		return nil, err
	}
	p.Type = ProfileType(typ)
	return &p, nil
}

// ListProfiles returns all profiles ordered by group and name.
func (s *Store) ListProfiles(ctx context.Context) ([]Profile, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name, type, expire, maxsize FROM profiles ORDER BY name ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Profile
	for rows.Next() {
		var p Profile
		var typ int
		if err := rows.Scan(&p.Name, &typ, &p.ExpireHours, &p.MaxSize); err != nil {
			return nil, err
		}
		p.Type = ProfileType(typ)
		res = append(res, p)
	}
	return res, rows.Err()
}

func (s *Store) DeleteProfile(name string) error {
	name = NormalizeProfileName(name)
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	for _, q := range []string{
		"DELETE FROM samples WHERE profile = ?",
		"DELETE FROM nav_state WHERE profile = ?",
		"DELETE FROM profiles WHERE name = ?",
	} {
		if _, err := tx.Exec(q, name); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// ProfileBounds returns the first and last slot stored for a profile.
func (s *Store) ProfileBounds(ctx context.Context, profile string) (Bounds, error) {
	var lo, hi sql.NullInt64
	err := s.db.QueryRowContext(ctx, "SELECT MIN(ts), MAX(ts) FROM samples WHERE profile = ?", NormalizeProfileName(profile)).Scan(&lo, &hi)
	if err != nil {
		return Bounds{}, err
	}
	if !lo.Valid || !hi.Valid {
		return Bounds{}, ErrNoData
	}
	return Bounds{Start: lo.Int64, End: hi.Int64}, nil
}

// Channels lists the channels present in a profile.
func (s *Store) Channels(ctx context.Context, profile string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT channel FROM samples WHERE profile = ? ORDER BY channel ASC", NormalizeProfileName(profile))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

const upsertSample = `
	INSERT INTO samples (profile, channel, proto, ts, flows, packets, bytes)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(profile, channel, proto, ts) DO UPDATE SET
		flows = flows + excluded.flows,
		packets = packets + excluded.packets,
		bytes = bytes + excluded.bytes;
	`

// AddSample adds the counters of smp onto its slot.
func (s *Store) AddSample(smp Sample) error {
	_, err := s.db.Exec(upsertSample, NormalizeProfileName(smp.Profile), smp.Channel, smp.Proto, smp.Timestamp, smp.Flows, smp.Packets, smp.Bytes)
	return err
}

func (s *Store) BulkInsert(samples []Sample) error {
	if len(samples) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(upsertSample)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, smp := range samples {
		if _, err := stmt.Exec(NormalizeProfileName(smp.Profile), smp.Channel, smp.Proto, smp.Timestamp, smp.Flows, smp.Packets, smp.Bytes); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func metricColumn(metric string) (string, error) {
	switch metric {
	case "flows":
		return "flows", nil
	case "packets":
		return "packets", nil
	case "traffic", "bytes", "":
		return "bytes", nil
	}
	return "", fmt.Errorf("unknown metric %q", metric)
}

// FindPeak returns the slot with the largest metric sum within [start, end]
// for the selected channels and protocol. Ties go to the earliest slot.
func (s *Store) FindPeak(ctx context.Context, profile string, sel GraphSelect, start, end int64) (int64, error) {
	col, err := metricColumn(sel.Metric)
	if err != nil {
		return 0, err
	}
	query := "SELECT ts, SUM(" + col + ") AS total FROM samples WHERE profile = ? AND ts >= ? AND ts <= ?"
	args := []interface{}{NormalizeProfileName(profile), start, end}
	if sel.Proto != "" && sel.Proto != "any" {
		query += " AND proto = ?"
		args = append(args, sel.Proto)
	}
	if len(sel.Channels) > 0 {
		query += " AND channel IN (?" + strings.Repeat(",?", len(sel.Channels)-1) + ")"
		for _, c := range sel.Channels {
			args = append(args, c)
		}
	}
	query += " GROUP BY ts HAVING total > 0 ORDER BY total DESC, ts ASC LIMIT 1"

	var ts, total int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&ts, &total); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrPeakNotFound
		}
		return 0, err
	}
	return ts, nil
}

// Peaks binds FindPeak to one profile and series.
func (s *Store) Peaks(profile string, sel GraphSelect) PeakFinder {
	return storePeaks{store: s, profile: profile, sel: sel}
}

type storePeaks struct {
	store   *Store
	profile string
	sel     GraphSelect
}

func (p storePeaks) FindPeak(ctx context.Context, start, end int64) (int64, error) {
	return p.store.FindPeak(ctx, p.profile, p.sel, start, end)
}

func (s *Store) CountSamples() (int64, error) {
	var count int64
	if err := s.db.QueryRow("SELECT COUNT(*) FROM samples").Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) PruneOlderThan(ts int64) (int64, error) {
	res, err := s.db.Exec("DELETE FROM samples WHERE ts < ?", ts)
	if err != nil {
		return 0, err
	}
	affected, _ := res.RowsAffected()
	return affected, nil
}

// PruneExpired removes samples of profiles with an expiry that are older
// than their expiry relative to now.
func (s *Store) PruneExpired(ctx context.Context, now time.Time) (int64, error) {
	profiles, err := s.ListProfiles(ctx)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, p := range profiles {
		if p.ExpireHours <= 0 {
			continue
		}
		cutoff := now.Add(-time.Duration(p.ExpireHours) * time.Hour).Unix()
		res, err := s.db.ExecContext(ctx, "DELETE FROM samples WHERE profile = ? AND ts < ?", p.Name, cutoff)
		if err != nil {
			return total, err
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

type CollectorRun struct {
	Timestamp  int64  `json:"timestamp"`
	DurationMs int64  `json:"duration_ms"`
	Inserted   int64  `json:"inserted"`
	Error      string `json:"error"`
	Source     string `json:"source"`
}

func (s *Store) LogCollectorRun(ts int64, durationMs int64, inserted int64, errStr string, source string) {
	_, _ = s.db.Exec("INSERT INTO collector_runs (ts, duration_ms, inserted, error, source) VALUES (?, ?, ?, ?, ?)", ts, durationMs, inserted, errStr, source)
}

func (s *Store) GetCollectorRuns(limit int) ([]CollectorRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query("SELECT ts, duration_ms, inserted, COALESCE(error,''), source FROM collector_runs ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []CollectorRun
	for rows.Next() {
		var r CollectorRun
		if err := rows.Scan(&r.Timestamp, &r.DurationMs, &r.Inserted, &r.Error, &r.Source); err != nil {
			return nil, err
		}
		res = append(res, r)
	}
	return res, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
