package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/roneel47/4Sure-sub000/domain"
	"github.com/roneel47/4Sure-sub000/migrations"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists rooms in a local sqlite file. Writes are optimistic: an update
// only lands if the row still carries the version that was read, otherwise
// domain.ErrStaleRoom is returned and nothing is written.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// sqlite has a single writer; one connection avoids SQLITE_BUSY between our own writes
	db.SetMaxOpenConns(1)

	if err := migrations.Up(ctx, db, goose.DialectSQLite3); err != nil {
		db.Close()
		return nil, err
	}

	log.Info().Str("path", dbPath).Msg("sqlite room store ready")
	return &SQLiteStore{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, roomID string) (*domain.Room, error) {
	room, err := s.read(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, domain.ErrRoomNotFound
	}
	return room, nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, roomID string, mutate domain.Mutation) (*domain.Room, error) {
	current, err := s.read(ctx, roomID)
	if err != nil {
		return nil, err
	}

	next, write, err := runMutation(current, mutate, s.now())
	if err != nil || !write {
		return next, err
	}

	data, err := encodeRoom(next)
	if err != nil {
		return nil, err
	}

	var res sql.Result
	if current == nil {
		res, err = s.db.ExecContext(ctx, `
			INSERT INTO rooms (id, state, status, version, connected_count, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`, roomID, string(data), string(next.Status), next.Version, len(next.ConnectedHandles()), next.CreatedAt, next.UpdatedAt)
	} else {
		res, err = s.db.ExecContext(ctx, `
			UPDATE rooms
			SET state = ?, status = ?, version = ?, connected_count = ?, updated_at = ?
			WHERE id = ? AND version = ?
		`, string(data), string(next.Status), next.Version, len(next.ConnectedHandles()), next.UpdatedAt, roomID, current.Version)
	}
	if err != nil {
		return nil, s.classify(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, s.classify(err)
	}
	if affected == 0 {
		return nil, domain.ErrStaleRoom
	}
	return next, nil
}

func (s *SQLiteStore) Retire(ctx context.Context, idleBefore time.Time) (int, error) {
	// timestamps are stored as UTC text, so the cutoff must be UTC for the comparison
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM rooms
		WHERE (status = ? AND connected_count = 0) OR updated_at < ?
	`, string(domain.StatusGameOver), idleBefore.UTC())
	if err != nil {
		return 0, s.classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, s.classify(err)
	}
	return int(n), nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) read(ctx context.Context, roomID string) (*domain.Room, error) {
	var data string
	err := s.db.QueryRowContext(ctx, "SELECT state FROM rooms WHERE id = ?", roomID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, s.classify(err)
	}
	return decodeRoom([]byte(data))
}

func (s *SQLiteStore) classify(err error) error {
	if isContextErr(err) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
}
