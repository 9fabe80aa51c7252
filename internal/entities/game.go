package entities

import (
	"time"

	"github.com/google/uuid"
)

// GameRecord is the persisted summary of one finished match. Live room
// state never touches the database; these rows exist for the stats and
// analytics endpoints only.
type GameRecord struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key;"`
	CreatedAt       time.Time
	RoomCode        string
	Category        string
	ImpostorCount   int
	PlayerCount     int
	WinnerTeam      string
	DurationSeconds int
	Players         []GamePlayerRecord `gorm:"foreignKey:GameID"`
}

type GamePlayerRecord struct {
	ID         uint `gorm:"primary_key;autoIncrement"`
	GameID     uuid.UUID
	PlayerName string
	Role       string
	IsImpostor bool
	IsWinner   bool
	VotedFor   string
}

// AnalyticsEvent is a fire-and-forget event row (page views, game
// milestones). EventData holds opaque JSON.
type AnalyticsEvent struct {
	ID        uint `gorm:"primary_key;autoIncrement"`
	CreatedAt time.Time
	EventType string
	EventData string
}
