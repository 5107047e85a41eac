package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/roneel47/4Sure-sub000/domain"
)

// PostgresRepo stores rooms in postgres. Every Upsert runs in one transaction holding
// the room row lock, and the write is additionally guarded by the version read.
type PostgresRepo struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewPostgresRepo(ctx context.Context, connString string) (*PostgresRepo, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return &PostgresRepo{pool: pool, now: time.Now}, nil
}

func (pg *PostgresRepo) Get(ctx context.Context, roomID string) (*domain.Room, error) {
	var data []byte
	err := pg.pool.QueryRow(ctx, "SELECT state FROM rooms WHERE id = $1", roomID).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, classifyPg(err)
	}
	return decodeRoom(data)
}

func (pg *PostgresRepo) Upsert(ctx context.Context, roomID string, mutate domain.Mutation) (*domain.Room, error) {
	tx, err := pg.pool.Begin(ctx)
	if err != nil {
		return nil, classifyPg(err)
	}
	defer tx.Rollback(ctx)

	var current *domain.Room
	var data []byte
	err = tx.QueryRow(ctx, "SELECT state FROM rooms WHERE id = $1 FOR UPDATE", roomID).Scan(&data)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return nil, classifyPg(err)
	default:
		if current, err = decodeRoom(data); err != nil {
			return nil, err
		}
	}

	next, write, err := runMutation(current, mutate, pg.now())
	if err != nil || !write {
		return next, err
	}

	encoded, err := encodeRoom(next)
	if err != nil {
		return nil, err
	}

	var tag pgconn.CommandTag
	if current == nil {
		// No row to lock yet: two creators race on the primary key and the loser
		// comes back as stale.
		tag, err = tx.Exec(ctx, `
			INSERT INTO rooms (id, state, status, version, connected_count, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO NOTHING
		`, roomID, string(encoded), string(next.Status), next.Version, len(next.ConnectedHandles()), next.CreatedAt, next.UpdatedAt)
	} else {
		tag, err = tx.Exec(ctx, `
			UPDATE rooms
			SET state = $2, status = $3, version = $4, connected_count = $5, updated_at = $6
			WHERE id = $1 AND version = $7
		`, roomID, string(encoded), string(next.Status), next.Version, len(next.ConnectedHandles()), next.UpdatedAt, current.Version)
	}
	if err != nil {
		return nil, classifyPg(err)
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrStaleRoom
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, classifyPg(err)
	}
	return next, nil
}

func (pg *PostgresRepo) Retire(ctx context.Context, idleBefore time.Time) (int, error) {
	tag, err := pg.pool.Exec(ctx, `
		DELETE FROM rooms
		WHERE (status = $1 AND connected_count = 0) OR updated_at < $2
	`, string(domain.StatusGameOver), idleBefore)
	if err != nil {
		return 0, classifyPg(err)
	}
	return int(tag.RowsAffected()), nil
}

func (pg *PostgresRepo) Close() error {
	pg.pool.Close()
	return nil
}

func classifyPg(err error) error {
	if isContextErr(err) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		// serialization_failure, deadlock_detected
		case "40001", "40P01":
			return fmt.Errorf("%w: %w", domain.ErrStaleRoom, err)
		}
	}
	return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
}
