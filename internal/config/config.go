package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every tunable of the server. Values come from
// config.yaml (optional) and IMPOSTOR_* environment variables.
type Config struct {
	Addr           string
	AllowedOrigins []string
	DatabasePath   string
	WordDataPath   string

	GracePeriod time.Duration
	RevealDelay time.Duration

	RateLimitWindow time.Duration
	RateLimitMax    int

	ChatWindow time.Duration
	ChatMax    int
	ChatBlock  time.Duration

	Game GameDefaults

	AdminUser   string
	AdminPass   string
	TokenSecret string
}

// GameDefaults are the per-room settings a fresh room starts with.
type GameDefaults struct {
	MaxPlayers     int
	MinPlayers     int
	ImpostorCount  int
	VotingTime     int
	DiscussionTime int
	Category       string
}

func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("addr", "0.0.0.0:8080")
	v.SetDefault("allowed_origins", []string{"*"})
	v.SetDefault("database_path", "impostor-server.db")
	v.SetDefault("word_data_path", "./config/game_data.json")

	v.SetDefault("grace_period", "45s")
	v.SetDefault("reveal_delay", "5s")

	v.SetDefault("rate_limit_window", "10s")
	v.SetDefault("rate_limit_max", 30)

	v.SetDefault("chat_window", "10s")
	v.SetDefault("chat_max", 8)
	v.SetDefault("chat_block", "5s")

	v.SetDefault("game.max_players", 8)
	v.SetDefault("game.min_players", 4)
	v.SetDefault("game.impostor_count", 1)
	v.SetDefault("game.voting_time", 30)
	v.SetDefault("game.discussion_time", 30)
	v.SetDefault("game.category", "random")

	v.SetDefault("admin_user", "admin")
	v.SetDefault("admin_pass", "admin123")
	v.SetDefault("token_secret", "secret-key")

	v.SetEnvPrefix("IMPOSTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	cfg := &Config{
		Addr:            v.GetString("addr"),
		AllowedOrigins:  v.GetStringSlice("allowed_origins"),
		DatabasePath:    v.GetString("database_path"),
		WordDataPath:    v.GetString("word_data_path"),
		GracePeriod:     v.GetDuration("grace_period"),
		RevealDelay:     v.GetDuration("reveal_delay"),
		RateLimitWindow: v.GetDuration("rate_limit_window"),
		RateLimitMax:    v.GetInt("rate_limit_max"),
		ChatWindow:      v.GetDuration("chat_window"),
		ChatMax:         v.GetInt("chat_max"),
		ChatBlock:       v.GetDuration("chat_block"),
		Game: GameDefaults{
			MaxPlayers:     v.GetInt("game.max_players"),
			MinPlayers:     v.GetInt("game.min_players"),
			ImpostorCount:  v.GetInt("game.impostor_count"),
			VotingTime:     v.GetInt("game.voting_time"),
			DiscussionTime: v.GetInt("game.discussion_time"),
			Category:       v.GetString("game.category"),
		},
		AdminUser:   v.GetString("admin_user"),
		AdminPass:   v.GetString("admin_pass"),
		TokenSecret: v.GetString("token_secret"),
	}
	return cfg, nil
}
