// Package config loads and validates the snakepit server's runtime
// settings from the environment, mirroring the flat settings.py module
// the original game shipped and the teacher's config.go "everything is
// a named constant" style, generalized to be overridable per-process.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// GameOverText is painted centered in the world when the last snake dies.
const GameOverText = ">>> GAME OVER <<<"

// Config holds every tunable recognized by the server (spec.md §6).
type Config struct {
	Host  string
	Port  string
	Debug bool

	GameSpeed                float64 // initial ticks/second
	GameSpeedIncrease        int     // frame at which the ramp begins, 0 disables
	GameSpeedIncreaseRate    float64
	GameSpeedMax             float64 // 0 = uncapped
	GameFramesMax            int     // 0 disables the hard cap
	GameShutdownOnFramesMax  bool

	MaxPlayers int
	NumColors  int

	FieldSizeX int
	FieldSizeY int

	InitLength             int
	InitMinDistanceBorder  int
	InitRetries            int

	DigitMin int
	DigitMax int

	KillPoints int

	StonesEnabled  bool
	DigitSpawnRate int // percent
	StoneSpawnRate int // percent

	MaxTopScores  int
	TopScoresFile string
}

// Default returns the built-in defaults, matching settings.py's values,
// including the original's 50x25 world.
func Default() Config {
	return Config{
		Host:  "0.0.0.0",
		Port:  "8000",
		Debug: false,

		GameSpeed:               2.3,
		GameSpeedIncrease:       0,
		GameSpeedIncreaseRate:   0.02,
		GameSpeedMax:            0,
		GameFramesMax:           0,
		GameShutdownOnFramesMax: false,

		MaxPlayers: 6,
		NumColors:  6,

		FieldSizeX: 50,
		FieldSizeY: 25,

		InitLength:            5,
		InitMinDistanceBorder: 2,
		InitRetries:           10,

		DigitMin: 1,
		DigitMax: 9,

		KillPoints: 1000,

		StonesEnabled:  true,
		DigitSpawnRate: 6,
		StoneSpawnRate: 6,

		MaxTopScores:  15,
		TopScoresFile: "top_scores.json",
	}
}

// Load returns Default() overridden by any recognized environment
// variable that is set (spec.md §6's table).
func Load() Config {
	c := Default()

	strVar(&c.Host, "HOST")
	strVar(&c.Port, "PORT")
	boolVar(&c.Debug, "DEBUG")

	floatVar(&c.GameSpeed, "GAME_SPEED")
	intVar(&c.GameSpeedIncrease, "GAME_SPEED_INCREASE")
	floatVar(&c.GameSpeedIncreaseRate, "GAME_SPEED_INCREASE_RATE")
	floatVar(&c.GameSpeedMax, "GAME_SPEED_MAX")
	intVar(&c.GameFramesMax, "GAME_FRAMES_MAX")
	boolVar(&c.GameShutdownOnFramesMax, "GAME_SHUTDOWN_ON_FRAMES_MAX")

	intVar(&c.MaxPlayers, "MAX_PLAYERS")
	intVar(&c.NumColors, "NUM_COLORS")

	intVar(&c.FieldSizeX, "FIELD_SIZE_X")
	intVar(&c.FieldSizeY, "FIELD_SIZE_Y")

	intVar(&c.InitLength, "INIT_LENGTH")
	intVar(&c.InitMinDistanceBorder, "INIT_MIN_DISTANCE_BORDER")
	intVar(&c.InitRetries, "INIT_RETRIES")

	intVar(&c.DigitMin, "DIGIT_MIN")
	intVar(&c.DigitMax, "DIGIT_MAX")

	intVar(&c.KillPoints, "KILL_POINTS")

	boolVar(&c.StonesEnabled, "STONES_ENABLED")
	intVar(&c.DigitSpawnRate, "DIGIT_SPAWN_RATE")
	intVar(&c.StoneSpawnRate, "STONE_SPAWN_RATE")

	intVar(&c.MaxTopScores, "MAX_TOP_SCORES")
	strVar(&c.TopScoresFile, "TOP_SCORES_FILE")

	return c
}

// ConfigurationError is raised by Validate and refuses server startup
// (spec.md §7 error taxonomy).
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "invalid configuration: " + e.Reason
}

// Validate mirrors utils.py::validate_settings.
func (c Config) Validate() error {
	if c.MaxPlayers > c.NumColors {
		return &ConfigurationError{Reason: "MAX_PLAYERS must not exceed NUM_COLORS"}
	}
	if c.InitLength < 2 {
		return &ConfigurationError{Reason: "INIT_LENGTH must be at least 2"}
	}
	if c.FieldSizeX < len(GameOverText) {
		return &ConfigurationError{Reason: fmt.Sprintf("FIELD_SIZE_X must be >= %d", len(GameOverText))}
	}
	distance := c.InitLength + c.InitMinDistanceBorder
	if c.FieldSizeX/2 < distance {
		return &ConfigurationError{Reason: "FIELD_SIZE_X too small for INIT_LENGTH/INIT_MIN_DISTANCE_BORDER"}
	}
	if c.FieldSizeY/2 < distance {
		return &ConfigurationError{Reason: "FIELD_SIZE_Y too small for INIT_LENGTH/INIT_MIN_DISTANCE_BORDER"}
	}
	return nil
}

func strVar(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func intVar(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func floatVar(dst *float64, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func boolVar(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
