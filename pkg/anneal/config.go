package anneal

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Init strategies for the starting partition
const (
	InitBipartition = "bipartition"
	InitRandom      = "random"
)

// Config manages algorithm configuration using Viper
type Config struct {
	v *viper.Viper
}

// NewConfig creates a new configuration with defaults
func NewConfig() *Config {
	v := viper.New()

	// Algorithm parameters
	v.SetDefault("algorithm.initial_temperature", 4.0)
	v.SetDefault("algorithm.num_steps", 1000)
	v.SetDefault("algorithm.random_seed", time.Now().UnixNano())
	v.SetDefault("algorithm.epsilon", 1e-6)
	v.SetDefault("algorithm.init_strategy", InitBipartition)
	v.SetDefault("algorithm.incremental", false)

	// Logging parameters
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.enable_progress", true)
	v.SetDefault("logging.progress_interval", 1000)
	v.SetDefault("logging.output", "stdout")

	v.SetDefault("analysis.track_steps", false)
	v.SetDefault("analysis.output_file", "")

	return &Config{v: v}
}

// LoadFromFile loads configuration from file
func (c *Config) LoadFromFile(path string) error {
	c.v.SetConfigFile(path)
	return c.v.ReadInConfig()
}

// Getters for algorithm parameters
func (c *Config) InitialTemperature() float64 { return c.v.GetFloat64("algorithm.initial_temperature") }
func (c *Config) NumSteps() int                { return c.v.GetInt("algorithm.num_steps") }
func (c *Config) RandomSeed() int64            { return c.v.GetInt64("algorithm.random_seed") }
func (c *Config) Epsilon() float64             { return c.v.GetFloat64("algorithm.epsilon") }
func (c *Config) InitStrategy() string         { return c.v.GetString("algorithm.init_strategy") }
func (c *Config) Incremental() bool            { return c.v.GetBool("algorithm.incremental") }

func (c *Config) LogLevel() string          { return c.v.GetString("logging.level") }
func (c *Config) EnableProgress() bool      { return c.v.GetBool("logging.enable_progress") }
func (c *Config) ProgressInterval() int     { return c.v.GetInt("logging.progress_interval") }
func (c *Config) LogOutput() string         { return c.v.GetString("logging.output") }
func (c *Config) EnableStepTracking() bool  { return c.v.GetBool("analysis.track_steps") }
func (c *Config) TrackingOutputFile() string { return c.v.GetString("analysis.output_file") }

// Set allows dynamic configuration changes
func (c *Config) Set(key string, value interface{}) {
	c.v.Set(key, value)
}

// AllSettings returns the effective configuration as a nested map
func (c *Config) AllSettings() map[string]interface{} {
	return c.v.AllSettings()
}

// CreateLogger creates a zerolog logger based on config
func (c *Config) CreateLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}

	out := os.Stdout
	if c.LogOutput() == "stderr" {
		out = os.Stderr
	}

	return zerolog.New(zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "15:04:05",
	}).Level(level).With().Timestamp().Str("service", "maxcut").Logger()
}
