package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/adamnnoli/monopoly/internal/game/engine"
)

var envReplacer = strings.NewReplacer(".", "_")

// Config holds all configuration for the application
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	MongoDB MongoDBConfig `mapstructure:"mongodb"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Game    GameConfig    `mapstructure:"game"`
	Log     LogConfig     `mapstructure:"log"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	Host         string `mapstructure:"host"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// MongoDBConfig holds MongoDB connection configuration. The archive is only
// used when Enabled is set.
type MongoDBConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	URI         string `mapstructure:"uri"`
	Database    string `mapstructure:"database"`
	ResultsColl string `mapstructure:"results_collection"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	URI      string `mapstructure:"uri"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// GameConfig holds game-specific configuration
type GameConfig struct {
	StartingCash int    `mapstructure:"starting_cash"`
	GoSalary     int    `mapstructure:"go_salary"`
	JailFine     int    `mapstructure:"jail_fine"`
	MinPlayers   int    `mapstructure:"min_players"`
	MaxPlayers   int    `mapstructure:"max_players"`
	BoardFile    string `mapstructure:"board_file"` // empty means the built-in board
	DiceSeed     int64  `mapstructure:"dice_seed"`  // 0 seeds from the clock
}

// LogConfig selects the zap preset
type LogConfig struct {
	Development bool `mapstructure:"development"`
}

// Rules converts the game section into engine rules
func (g GameConfig) Rules() engine.Rules {
	return engine.Rules{
		StartingCash: g.StartingCash,
		GoSalary:     g.GoSalary,
		JailFine:     g.JailFine,
		MinPlayers:   g.MinPlayers,
		MaxPlayers:   g.MaxPlayers,
	}
}

// Load reads configuration from a file or environment variables
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/monopoly-engine")

	return load(v)
}

// LoadFile reads configuration from an explicit path
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	// Environment variables, e.g. MONOPOLY_SERVER_PORT
	v.SetEnvPrefix("monopoly")
	v.SetEnvKeyReplacer(envReplacer)
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// Config file not found; we'll just use environment and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.read_timeout", 15)
	v.SetDefault("server.write_timeout", 15)

	// MongoDB defaults
	v.SetDefault("mongodb.enabled", false)
	v.SetDefault("mongodb.uri", "mongodb://localhost:27017")
	v.SetDefault("mongodb.database", "monopoly")
	v.SetDefault("mongodb.results_collection", "results")

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.uri", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Game defaults
	rules := engine.DefaultRules()
	v.SetDefault("game.starting_cash", rules.StartingCash)
	v.SetDefault("game.go_salary", rules.GoSalary)
	v.SetDefault("game.jail_fine", rules.JailFine)
	v.SetDefault("game.min_players", rules.MinPlayers)
	v.SetDefault("game.max_players", rules.MaxPlayers)
	v.SetDefault("game.board_file", "")
	v.SetDefault("game.dice_seed", 0)

	v.SetDefault("log.development", true)
}
