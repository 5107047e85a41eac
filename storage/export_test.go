package storage

import "context"

// ResetRooms empties the rooms table between tests sharing one database.
func (pg *PostgresRepo) ResetRooms(ctx context.Context) error {
	_, err := pg.pool.Exec(ctx, "TRUNCATE rooms")
	return err
}

// RoomColumns reads the columns kept next to the room document.
func (pg *PostgresRepo) RoomColumns(ctx context.Context, roomID string) (status string, version int64, connected int, err error) {
	err = pg.pool.QueryRow(ctx, "SELECT status, version, connected_count FROM rooms WHERE id = $1", roomID).
		Scan(&status, &version, &connected)
	return
}
