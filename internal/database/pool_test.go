package database

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newIdleDB opens a lazy connection to a port nothing listens on. Pool
// accounting works without a live server, pings fail.
func newIdleDB(t *testing.T) *DB {
	sqlDB, err := sql.Open("postgres",
		"host=127.0.0.1 port=1 user=none dbname=none sslmode=disable connect_timeout=1")
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(4)
	t.Cleanup(func() { sqlDB.Close() })
	return &DB{sqlDB}
}

func TestGetPoolStats(t *testing.T) {
	db := newIdleDB(t)

	stats := db.GetPoolStats()
	assert.Equal(t, 4, stats.MaxOpenConns)
	assert.Equal(t, 0, stats.InUse)
	assert.Equal(t, 0, stats.OpenConns)
}

func TestHealthCheckUnreachableDatabase(t *testing.T) {
	db := newIdleDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	check := db.HealthCheck(ctx)
	assert.Equal(t, "unhealthy", check.Status)
	assert.NotEmpty(t, check.Error)
	assert.False(t, check.Timestamp.IsZero())
	assert.Equal(t, 4, check.Stats.MaxOpenConns)
}
