package history

import (
	"context"
	"encoding/json"
	"strings"

	"toppan-service/internal/model"
	"toppan-service/internal/service/game"
	"toppan-service/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Service stores settled rounds. It satisfies game.Recorder.
type Service struct {
	db *gorm.DB
}

var _ game.Recorder = (*Service)(nil)

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

type RoundListResult struct {
	Items []model.RoundRecord
	Total int64
}

func (s *Service) Record(ctx context.Context, rec game.RoundRecord) error {
	row := model.RoundRecord{
		RoomID:         rec.RoomID,
		RoundNo:        rec.RoundNo,
		DealerSeat:     rec.DealerSeat,
		DealerHandJSON: mustJSON(rec.DealerHand),
		DealerDelta:    rec.DealerDelta,
		ResultJSON:     mustJSON(rec.Result),
		SettledAt:      rec.SettledAt,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Players").Create(&row).Error; err != nil {
			return err
		}
		if len(rec.Players) == 0 {
			return nil
		}
		players := make([]model.RoundPlayerResult, 0, len(rec.Players))
		for _, p := range rec.Players {
			players = append(players, model.RoundPlayerResult{
				RoundID:     row.ID,
				Seat:        p.Seat,
				Name:        p.Name,
				IsDealer:    p.Dealer,
				HandJSON:    mustJSON(p.Hand),
				Bet:         p.Bet,
				Delta:       p.Delta,
				Outcome:     string(p.Outcome),
				Status:      string(p.Status),
				PointsAfter: p.PointsAfter,
			})
		}
		return tx.Create(&players).Error
	})
	if err != nil {
		return err
	}

	logger.Log.Debug("round recorded",
		zap.String("roomID", rec.RoomID),
		zap.Int("round", rec.RoundNo),
		zap.Int64("id", row.ID),
	)
	return nil
}

// ListByRoom pages a room's rounds, newest first, with player rows attached.
func (s *Service) ListByRoom(ctx context.Context, roomID string, page, size int) (*RoundListResult, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	roomID = strings.ToUpper(strings.TrimSpace(roomID))

	var total int64
	if err := s.db.WithContext(ctx).
		Model(&model.RoundRecord{}).
		Where("room_id = ?", roomID).
		Count(&total).Error; err != nil {
		return nil, err
	}

	var rounds []model.RoundRecord
	if total > 0 {
		offset := (page - 1) * size
		if err := s.db.WithContext(ctx).
			Preload("Players", func(db *gorm.DB) *gorm.DB {
				return db.Order("seat ASC")
			}).
			Where("room_id = ?", roomID).
			Order("id DESC").
			Limit(size).
			Offset(offset).
			Find(&rounds).Error; err != nil {
			return nil, err
		}
	}

	return &RoundListResult{
		Items: rounds,
		Total: total,
	}, nil
}

func mustJSON(v interface{}) datatypes.JSON {
	if v == nil {
		return datatypes.JSON("{}")
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(raw)
}
