package stats

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"impostor-server/internal/core"
	"impostor-server/internal/entities"
)

// Service persists finished games and analytics events. Every write is
// best-effort: failures are logged and never surfaced to clients.
type Service struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Service {
	return &Service{db: db}
}

// SaveGameResult writes the game row and its per-player rows in one
// transaction.
func (s *Service) SaveGameResult(summary core.GameSummary) {
	id, err := uuid.NewUUID()
	if err != nil {
		log.Error().Err(err).Msg("save game result: uuid")
		return
	}

	record := entities.GameRecord{
		ID:              id,
		RoomCode:        summary.RoomCode,
		Category:        summary.Category,
		ImpostorCount:   summary.ImpostorCount,
		PlayerCount:     summary.PlayerCount,
		WinnerTeam:      summary.WinnerTeam,
		DurationSeconds: int(summary.Duration.Seconds()),
	}
	for _, p := range summary.Players {
		record.Players = append(record.Players, entities.GamePlayerRecord{
			GameID:     id,
			PlayerName: p.Name,
			Role:       p.Role,
			IsImpostor: p.IsImpostor,
			IsWinner:   p.IsWinner,
			VotedFor:   p.VotedFor,
		})
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&record).Error
	}); err != nil {
		log.Error().Err(err).Str("room", summary.RoomCode).Msg("save game result failed")
		return
	}
	log.Debug().Str("room", summary.RoomCode).Str("winner", summary.WinnerTeam).Msg("game result saved")

	s.SaveEvent("game_completed", map[string]any{
		"room":    summary.RoomCode,
		"winner":  summary.WinnerTeam,
		"players": summary.PlayerCount,
	})
}

type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

type GlobalStats struct {
	TotalGames    int64           `json:"total_games"`
	ImpostorWins  int64           `json:"impostor_wins"`
	InnocentWins  int64           `json:"innocent_wins"`
	TopCategories []CategoryCount `json:"top_categories"`
}

func (s *Service) GlobalStats() (*GlobalStats, error) {
	var out GlobalStats

	if err := s.db.Model(&entities.GameRecord{}).Count(&out.TotalGames).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&entities.GameRecord{}).
		Where("winner_team = ?", core.WinnerImpostors).
		Count(&out.ImpostorWins).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&entities.GameRecord{}).
		Where("winner_team = ?", core.WinnerInnocents).
		Count(&out.InnocentWins).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&entities.GameRecord{}).
		Select("category, count(*) as count").
		Group("category").
		Order("count DESC").
		Limit(5).
		Scan(&out.TopCategories).Error; err != nil {
		return nil, err
	}

	return &out, nil
}

// SaveEvent appends an analytics event with opaque JSON data.
func (s *Service) SaveEvent(eventType string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		log.Error().Err(err).Str("event", eventType).Msg("save event: marshal")
		return
	}

	event := entities.AnalyticsEvent{EventType: eventType, EventData: string(raw)}
	if err := s.db.Create(&event).Error; err != nil {
		log.Error().Err(err).Str("event", eventType).Msg("save event failed")
	}
}

type EventCount struct {
	EventType string `json:"event_type"`
	Count     int64  `json:"count"`
}

type Analytics struct {
	UniqueVisits int64        `json:"unique_visits"`
	PageViews    int64        `json:"page_views"`
	Events       []EventCount `json:"events"`
}

func (s *Service) Analytics() (*Analytics, error) {
	var out Analytics

	if err := s.db.Model(&entities.AnalyticsEvent{}).
		Where("event_type = ?", "unique_visit").
		Count(&out.UniqueVisits).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&entities.AnalyticsEvent{}).
		Where("event_type = ?", "page_view").
		Count(&out.PageViews).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&entities.AnalyticsEvent{}).
		Select("event_type, count(*) as count").
		Where("event_type NOT IN ?", []string{"page_view", "unique_visit"}).
		Group("event_type").
		Order("count DESC").
		Scan(&out.Events).Error; err != nil {
		return nil, err
	}

	return &out, nil
}
