package database

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestConnectRedisPingsServer(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	client, err := ConnectRedis(context.Background(), "redis://"+mini.Addr())
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	got, err := mini.Get("k")
	require.NoError(t, err)
	require.Equal(t, "v", got)
}

func TestConnectRejectsEmptyAddresses(t *testing.T) {
	_, err := ConnectRedis(context.Background(), "")
	require.Error(t, err)

	_, err = ConnectRedis(context.Background(), "redis://127.0.0.1:1")
	require.Error(t, err)

	_, err = ConnectPostgres("", false)
	require.Error(t, err)

	_, err = ConnectNATS("", "test", zerolog.Nop())
	require.Error(t, err)
}

func TestMigrateAndPing(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, Migrate(db))
	require.True(t, db.Migrator().HasTable("students"))
	require.True(t, db.Migrator().HasTable("activity_logs"))
	require.NoError(t, Ping(context.Background(), db))
}
