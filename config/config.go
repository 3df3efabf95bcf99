package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"set-game-server/matcherrors"
	"set-game-server/ruleset"
)

// AIParams holds the parameters for one computer player profile.
type AIParams struct {
	Name      string `json:"name"`
	PeriodMS  int    `json:"period_ms"`  // time between simulated key presses
	SetChance int    `json:"set_chance"` // 0-100, probability to press a real set from the table instead of a random slot
}

// Config holds all configurable game parameters.
type Config struct {
	Rows         int `json:"rows" env:"BOARD_ROWS"`
	Columns      int `json:"columns" env:"BOARD_COLS"`
	FeatureSize  int `json:"feature_size" env:"FEATURE_SIZE"`
	FeatureCount int `json:"feature_count" env:"FEATURE_COUNT"`

	HumanPlayers    int      `json:"human_players" env:"HUMAN_PLAYERS"`
	ComputerPlayers int      `json:"computer_players" env:"COMPUTER_PLAYERS"`
	PlayerNames     []string `json:"player_names" env:"PLAYER_NAMES" envSeparator:","`
	// PlayerKeys holds one key string per human player, one rune per slot in row-major order.
	PlayerKeys []string `json:"player_keys" env:"PLAYER_KEYS" envSeparator:" "`

	// TurnTimeoutMS > 0 runs a countdown per round; 0 shows elapsed time instead; < 0 disables the timer.
	// Without a countdown a round only ends when the table holds no set.
	TurnTimeoutMS        int `json:"turn_timeout_ms" env:"TURN_TIMEOUT_MS"`
	TurnTimeoutWarningMS int `json:"turn_timeout_warning_ms" env:"TURN_TIMEOUT_WARNING_MS"`
	// FreezeDisplayPadMS is added to a frozen player's remaining time on display. It is
	// independent of TurnTimeoutWarningMS.
	FreezeDisplayPadMS int `json:"freeze_display_pad_ms" env:"FREEZE_DISPLAY_PAD_MS"`
	PointFreezeMS      int `json:"point_freeze_ms" env:"POINT_FREEZE_MS"`
	PenaltyFreezeMS    int `json:"penalty_freeze_ms" env:"PENALTY_FREEZE_MS"`
	TableDelayMS       int `json:"table_delay_ms" env:"TABLE_DELAY_MS"`
	TickMS             int `json:"tick_ms" env:"TICK_MS"`

	Hints               bool `json:"hints" env:"HINTS"`
	ResetCountdownOnSet bool `json:"reset_countdown_on_set" env:"RESET_COUNTDOWN_ON_SET"`

	HTTPPort int    `json:"http_port" env:"HTTP_PORT"`
	LogLevel string `json:"log_level" env:"LOG_LEVEL"`

	// AIProfiles are assigned to computer players round-robin.
	AIProfiles []AIParams `json:"ai_profiles"`
}

// Defaults returns a Config with the standard 3x4 table, an 81-card deck and two computer players.
func Defaults() *Config {
	return &Config{
		Rows:                 3,
		Columns:              4,
		FeatureSize:          3,
		FeatureCount:         4,
		HumanPlayers:         0,
		ComputerPlayers:      2,
		PlayerKeys:           []string{"qwerasdfzxcv", "uiopjkl;m,./"},
		TurnTimeoutMS:        60000,
		TurnTimeoutWarningMS: 5000,
		FreezeDisplayPadMS:   1000,
		PointFreezeMS:        1000,
		PenaltyFreezeMS:      3000,
		TableDelayMS:         100,
		TickMS:               10,
		Hints:                false,
		HTTPPort:             8080,
		LogLevel:             "info",
		AIProfiles: []AIParams{
			{Name: "Random", PeriodMS: 10, SetChance: 0},
		},
	}
}

// Load reads configuration from an optional config.json file,
// then applies environment variable overrides. Fields not set
// in either source retain their default values.
func Load() *Config {
	return LoadFile("config.json")
}

// LoadFile is Load with an explicit JSON path. A missing file is not an error.
func LoadFile(path string) *Config {
	cfg := Defaults()

	if f, err := os.Open(path); err == nil {
		defer f.Close()
		if err := json.NewDecoder(f).Decode(cfg); err != nil {
			slog.Warn("failed to parse config file", "tag", "config", "path", path, "err", err)
		}
	}

	// Unset variables leave the field untouched; a malformed one keeps its previous value.
	if err := env.Parse(cfg); err != nil {
		slog.Warn("invalid environment override", "tag", "config", "err", err)
	}

	return cfg
}

// Validate reports the first inconsistent setting, wrapped in matcherrors.ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case c.Rows <= 0 || c.Columns <= 0:
		return fmt.Errorf("%w: table must be at least 1x1, got %dx%d", matcherrors.ErrInvalidConfig, c.Rows, c.Columns)
	case c.TableSize() < ruleset.SetSize:
		return fmt.Errorf("%w: table needs at least %d slots to hold a set, got %d", matcherrors.ErrInvalidConfig, ruleset.SetSize, c.TableSize())
	case c.FeatureSize < 2:
		return fmt.Errorf("%w: feature size must be at least 2, got %d", matcherrors.ErrInvalidConfig, c.FeatureSize)
	case c.FeatureCount < 1:
		return fmt.Errorf("%w: feature count must be at least 1, got %d", matcherrors.ErrInvalidConfig, c.FeatureCount)
	case c.HumanPlayers < 0 || c.ComputerPlayers < 0:
		return fmt.Errorf("%w: player counts must not be negative", matcherrors.ErrInvalidConfig)
	case c.Players() == 0:
		return fmt.Errorf("%w: at least one player is required", matcherrors.ErrInvalidConfig)
	case c.TickMS <= 0:
		return fmt.Errorf("%w: tick must be positive, got %dms", matcherrors.ErrInvalidConfig, c.TickMS)
	case c.PointFreezeMS < 0 || c.PenaltyFreezeMS < 0 || c.TableDelayMS < 0 || c.FreezeDisplayPadMS < 0:
		return fmt.Errorf("%w: durations must not be negative", matcherrors.ErrInvalidConfig)
	case len(c.PlayerKeys) < c.HumanPlayers:
		return fmt.Errorf("%w: %d human players but only %d key maps", matcherrors.ErrInvalidConfig, c.HumanPlayers, len(c.PlayerKeys))
	}
	for i := 0; i < c.HumanPlayers; i++ {
		if n := len([]rune(c.PlayerKeys[i])); n != c.TableSize() {
			return fmt.Errorf("%w: key map %d has %d keys, table has %d slots", matcherrors.ErrInvalidConfig, i, n, c.TableSize())
		}
	}
	return nil
}

// TableSize is the number of slots on the table.
func (c *Config) TableSize() int { return c.Rows * c.Columns }

// DeckSize is the number of distinct cards, FeatureSize^FeatureCount.
func (c *Config) DeckSize() int {
	n := 1
	for i := 0; i < c.FeatureCount; i++ {
		n *= c.FeatureSize
	}
	return n
}

// Players is the total number of seats; humans take the lowest ids.
func (c *Config) Players() int { return c.HumanPlayers + c.ComputerPlayers }

// PlayerName returns the configured name for seat id, or a generated one.
func (c *Config) PlayerName(id int) string {
	if id < len(c.PlayerNames) && strings.TrimSpace(c.PlayerNames[id]) != "" {
		return c.PlayerNames[id]
	}
	if id < c.HumanPlayers {
		return fmt.Sprintf("Player %d", id+1)
	}
	return fmt.Sprintf("Computer %d", id+1)
}

// AIProfile returns the profile for the n-th computer player (0-based).
func (c *Config) AIProfile(n int) AIParams {
	if len(c.AIProfiles) == 0 {
		return AIParams{Name: "Random", PeriodMS: 10}
	}
	return c.AIProfiles[n%len(c.AIProfiles)]
}

func (c *Config) TurnTimeout() time.Duration {
	return time.Duration(c.TurnTimeoutMS) * time.Millisecond
}

func (c *Config) TurnTimeoutWarning() time.Duration {
	return time.Duration(c.TurnTimeoutWarningMS) * time.Millisecond
}

func (c *Config) FreezeDisplayPad() time.Duration {
	return time.Duration(c.FreezeDisplayPadMS) * time.Millisecond
}

func (c *Config) PointFreeze() time.Duration {
	return time.Duration(c.PointFreezeMS) * time.Millisecond
}

func (c *Config) PenaltyFreeze() time.Duration {
	return time.Duration(c.PenaltyFreezeMS) * time.Millisecond
}

func (c *Config) TableDelay() time.Duration {
	return time.Duration(c.TableDelayMS) * time.Millisecond
}

func (c *Config) Tick() time.Duration {
	return time.Duration(c.TickMS) * time.Millisecond
}

// SlogLevel maps LogLevel to a slog.Level; unknown values mean info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
