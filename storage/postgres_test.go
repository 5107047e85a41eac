package storage_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/roneel47/4Sure-sub000/domain"
	"github.com/roneel47/4Sure-sub000/migrations"
	"github.com/roneel47/4Sure-sub000/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	pgOnce    sync.Once
	pgConnStr string
	pgErr     error
)

// postgresURL starts one postgres container for the whole package and migrates it.
func postgresURL(t *testing.T) string {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	pgOnce.Do(func() {
		ctx := context.Background()
		postgresContainer, err := postgres.Run(ctx,
			"postgres:16-alpine3.22",
			postgres.WithDatabase("testdb"),
			postgres.WithUsername("testusername"),
			postgres.WithPassword("testpassword"),
			testcontainers.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(30*time.Second)),
		)
		if err != nil {
			pgErr = err
			return
		}

		pgConnStr, pgErr = postgresContainer.ConnectionString(ctx, "sslmode=disable")
		if pgErr != nil {
			return
		}
		pgErr = migrations.UpPostgres(ctx, pgConnStr)
	})
	require.NoError(t, pgErr)
	return pgConnStr
}

func newPostgresRepo(t *testing.T) *storage.PostgresRepo {
	t.Helper()
	ctx := context.Background()
	repo, err := storage.NewPostgresRepo(ctx, postgresURL(t))
	require.NoError(t, err)
	t.Cleanup(func() {
		repo.ResetRooms(ctx)
		repo.Close()
	})
	return repo
}

func TestPostgresRepo(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) roomStore {
		return newPostgresRepo(t)
	})
}

func TestPostgresRepoDenormalizedColumns(t *testing.T) {
	ctx := context.Background()
	repo := newPostgresRepo(t)

	_, err := repo.Upsert(ctx, "cols", seedRoom("cols", domain.StatusGameOver, true))
	require.NoError(t, err)

	status, version, connected, err := repo.RoomColumns(ctx, "cols")
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusGameOver), status)
	assert.Equal(t, int64(1), version)
	assert.Equal(t, 1, connected)
}
