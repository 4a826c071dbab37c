package lobby

import (
	"context"
	"os"
	"testing"

	"toppan-service/internal/service/game"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSummaries(t *testing.T) {
	out := decodeSummaries(map[string]string{
		"BBBBBB": `{"roomId":"BBBBBB","phase":"playing","seated":3,"round":2}`,
		"AAAAAA": `{"roomId":"AAAAAA","phase":"waiting","seated":1,"round":0}`,
		"BROKEN": `{`,
	})
	require.Len(t, out, 2)
	assert.Equal(t, "AAAAAA", out[0].RoomID)
	assert.Equal(t, game.PhasePlaying, out[1].Phase)
	assert.Equal(t, 3, out[1].Seated)
}

// Runs against a live server when TOPPAN_TEST_REDIS_ADDR is set.
func TestDirectoryRoundTrip(t *testing.T) {
	addr := os.Getenv("TOPPAN_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TOPPAN_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()

	dir := NewDirectory(rdb)
	dir.key = "toppan:test:" + t.Name()
	defer rdb.Del(ctx, dir.key)

	require.NoError(t, dir.Upsert(ctx, game.Summary{RoomID: "ROOM01", Phase: game.PhaseWaiting, Seated: 1}))
	require.NoError(t, dir.Upsert(ctx, game.Summary{RoomID: "ROOM01", Phase: game.PhaseBetting, Seated: 2}))

	list, err := dir.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, game.PhaseBetting, list[0].Phase)

	require.NoError(t, dir.Remove(ctx, "ROOM01"))
	list, err = dir.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
