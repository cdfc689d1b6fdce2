package core

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// SessionKey identifies the navigation state of one session in one profile.
type SessionKey struct {
	Session string
	Profile string
}

// SessionStore persists navigation state between requests. Concurrent
// saves for the same key are last-write-wins.
type SessionStore interface {
	LoadSession(ctx context.Context, key SessionKey) (State, bool, error)
	SaveSession(ctx context.Context, key SessionKey, st State) error
}

func (s *Store) LoadSession(ctx context.Context, key SessionKey) (State, bool, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT wsize, tend, tleft, tright FROM nav_state WHERE session = ? AND profile = ?",
		key.Session, NormalizeProfileName(key.Profile))
	var st State
	if err := row.Scan(&st.Scale, &st.WindowEnd, &st.CursorLeft, &st.CursorRight); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return State{}, false, nil
		}
		return State{}, false, err
	}
	// WindowStart is rederived by Navigator.Advance
	st.WindowStart = st.WindowEnd - FullRange(st.Scale, DefaultCycleTime)
	return st, true, nil
}

func (s *Store) SaveSession(ctx context.Context, key SessionKey, st State) error {
	query := `
	INSERT INTO nav_state (session, profile, wsize, tend, tleft, tright, updated)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(session, profile) DO UPDATE SET
		wsize = excluded.wsize,
		tend = excluded.tend,
		tleft = excluded.tleft,
		tright = excluded.tright,
		updated = excluded.updated;
	`
	_, err := s.db.ExecContext(ctx, query, key.Session, NormalizeProfileName(key.Profile),
		st.Scale, st.WindowEnd, st.CursorLeft, st.CursorRight, time.Now().Unix())
	return err
}

// ActiveSession returns the profile a session looked at last together
// with its detail options. ok is false for a new session.
func (s *Store) ActiveSession(ctx context.Context, session string) (profile string, opts DetailOptions, ok bool, err error) {
	var raw string
	err = s.db.QueryRowContext(ctx, "SELECT profile, options FROM nav_active WHERE session = ?", session).Scan(&profile, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return "", DefaultDetailOptions(), false, nil
	}
	if err != nil {
		return "", DefaultDetailOptions(), false, err
	}
	opts = DefaultDetailOptions()
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &opts); err != nil {
			return profile, DefaultDetailOptions(), true, nil
		}
	}
	return profile, opts, true, nil
}

func (s *Store) SetActiveSession(ctx context.Context, session, profile string, opts DetailOptions) error {
	raw, err := json.Marshal(opts)
	if err != nil {
		return err
	}
	query := `
	INSERT INTO nav_active (session, profile, options, updated) VALUES (?, ?, ?, ?)
	ON CONFLICT(session) DO UPDATE SET
		profile = excluded.profile,
		options = excluded.options,
		updated = excluded.updated;
	`
	_, err = s.db.ExecContext(ctx, query, session, NormalizeProfileName(profile), string(raw), time.Now().Unix())
	return err
}

// PruneSessions drops navigation state not touched since before.
func (s *Store) PruneSessions(before time.Time) (int64, error) {
	var total int64
	for _, q := range []string{
		"DELETE FROM nav_state WHERE updated < ?",
		"DELETE FROM nav_active WHERE updated < ?",
	} {
		res, err := s.db.Exec(q, before.Unix())
		if err != nil {
			return total, err
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}
