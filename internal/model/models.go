package model

import (
	"time"

	"gorm.io/datatypes"
)

// RoundRecord is one settled round of a room.
type RoundRecord struct {
	ID             int64  `gorm:"primaryKey;autoIncrement"`
	RoomID         string `gorm:"size:16;index:idx_round_room,priority:1;not null"`
	RoundNo        int    `gorm:"index:idx_round_room,priority:2"`
	DealerSeat     int
	DealerHandJSON datatypes.JSON
	DealerDelta    int
	ResultJSON     datatypes.JSON // full settlement payload
	SettledAt      time.Time
	CreatedAt      time.Time

	Players []RoundPlayerResult `gorm:"foreignKey:RoundID"`
}

type RoundPlayerResult struct {
	ID          int64 `gorm:"primaryKey;autoIncrement"`
	RoundID     int64 `gorm:"index;not null"`
	Seat        int
	Name        string `gorm:"size:64"`
	IsDealer    bool
	HandJSON    datatypes.JSON
	Bet         int
	Delta       int
	Outcome     string `gorm:"size:16"` // child_win/dealer_win/push, empty for dealer
	Status      string `gorm:"size:16"` // playing/stay/bust
	PointsAfter int
}
