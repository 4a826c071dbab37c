package service

import (
	"context"

	"toppan-service/internal/service/game"
	"toppan-service/internal/service/history"
	"toppan-service/internal/service/lobby"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	Game    *game.Service
	History *history.Service
	// Lobby is nil without Redis; room listings then come from Game.
	Lobby *lobby.Directory
}

func NewContainer(db *gorm.DB, rdb *redis.Client, settings game.Settings) *Container {
	c := &Container{
		History: history.NewService(db),
	}
	opts := []game.Option{
		game.WithSettings(settings),
		game.WithRecorder(c.History),
	}
	if rdb != nil {
		c.Lobby = lobby.NewDirectory(rdb)
		opts = append(opts, game.WithDirectory(c.Lobby))
	}
	c.Game = game.NewService(opts...)
	return c
}

// ListRooms prefers the shared directory and falls back to local rooms.
func (c *Container) ListRooms(ctx context.Context) ([]game.Summary, error) {
	if c.Lobby == nil {
		return c.Game.Rooms(), nil
	}
	return c.Lobby.List(ctx)
}

func (c *Container) Close() {
	c.Game.Close()
}
