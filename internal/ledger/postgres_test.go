package ledger

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/EcliqseX/vetsim/internal/database"
)

// newPostgresStore starts PostgreSQL in a container, applies the embedded
// migrations and returns a store over it.
func newPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("ledger"),
		postgres.WithUsername("vet"),
		postgres.WithPassword("vet"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Skipf("PostgreSQL container unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate PostgreSQL container: %v", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	cfg := database.Config{
		Host: host, Port: port.Int(), Database: "ledger", Username: "vet", Password: "vet",
		MaxConns: 4, MinConns: 1, MaxConnLife: time.Hour, MaxConnIdle: time.Minute, SSLMode: "disable",
	}

	runner, err := database.NewEmbeddedMigrationRunner(Migrations, MigrationsDir, cfg.URL(), logger)
	require.NoError(t, err)
	require.NoError(t, runner.Up(ctx))
	require.NoError(t, runner.Close())

	db, err := database.NewConnection(ctx, cfg, logger)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	store, err := NewPostgresStore(ctx, db.Pool)
	require.NoError(t, err)
	return store
}

func TestNewPostgresStore_NilPool(t *testing.T) {
	_, err := NewPostgresStore(context.Background(), nil)

	assert.Error(t, err)
}

func TestPostgresStore(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()

	t.Run("save assigns id", func(t *testing.T) {
		rec := sampleRecord("pg-1", "parvo", true, 1, baseTime)
		require.NoError(t, store.Save(ctx, rec))
		assert.NotZero(t, rec.ID)
	})

	t.Run("upsert keeps one row per case", func(t *testing.T) {
		first, err := store.Get(ctx, "pg-1")
		require.NoError(t, err)
		require.NotNil(t, first)

		rec := sampleRecord("pg-1", "parvo", false, 3, baseTime.Add(time.Minute))
		require.NoError(t, store.Save(ctx, rec))

		assert.Equal(t, first.ID, rec.ID)
		got, err := store.Get(ctx, "pg-1")
		require.NoError(t, err)
		assert.False(t, got.Correct)
		assert.Equal(t, 3, got.TestsUsed)
	})

	t.Run("missing case", func(t *testing.T) {
		got, err := store.Get(ctx, "absent")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("list and stats", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, sampleRecord("pg-2", "uti", true, 2, baseTime.Add(2*time.Minute))))

		recs, err := store.List(ctx, 10, 0)
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, "pg-2", recs[0].CaseID)

		stats, err := store.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), stats.Total)
		assert.Equal(t, int64(1), stats.Correct)
		assert.InDelta(t, 2.5, stats.AvgTestsUsed, 1e-9)
		assert.Len(t, stats.ByDisease, 2)
	})

	t.Run("export then import skips existing", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, store.ExportJSON(ctx, &buf))

		imported, skipped, err := store.ImportJSON(ctx, &buf)
		require.NoError(t, err)
		assert.Equal(t, 0, imported)
		assert.Equal(t, 2, skipped)
	})
}
