package lobby

import (
	"context"
	"encoding/json"
	"sort"

	"toppan-service/internal/service/game"
	"toppan-service/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultKey is the hash holding one field per open room.
const DefaultKey = "toppan:rooms"

// Directory mirrors open rooms into a Redis hash so any instance can list
// them.
type Directory struct {
	rdb *redis.Client
	key string
}

var _ game.Directory = (*Directory)(nil)

func NewDirectory(rdb *redis.Client) *Directory {
	return &Directory{rdb: rdb, key: DefaultKey}
}

func (d *Directory) Upsert(ctx context.Context, summary game.Summary) error {
	raw, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	return d.rdb.HSet(ctx, d.key, summary.RoomID, raw).Err()
}

func (d *Directory) Remove(ctx context.Context, roomID string) error {
	return d.rdb.HDel(ctx, d.key, roomID).Err()
}

// List returns every listed room ordered by id. Undecodable entries are
// skipped.
func (d *Directory) List(ctx context.Context) ([]game.Summary, error) {
	fields, err := d.rdb.HGetAll(ctx, d.key).Result()
	if err != nil {
		return nil, err
	}
	return decodeSummaries(fields), nil
}

func decodeSummaries(fields map[string]string) []game.Summary {
	out := make([]game.Summary, 0, len(fields))
	for roomID, raw := range fields {
		var summary game.Summary
		if err := json.Unmarshal([]byte(raw), &summary); err != nil {
			logger.Log.Warn("skip bad directory entry", zap.String("roomID", roomID), zap.Error(err))
			continue
		}
		out = append(out, summary)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomID < out[j].RoomID })
	return out
}
