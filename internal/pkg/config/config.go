package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Vodeneev/linesniper/internal/pkg/enums"
	"github.com/Vodeneev/linesniper/internal/pkg/models"
)

type Config struct {
	Postgres    PostgresConfig         `yaml:"postgres"`
	Redis       RedisConfig            `yaml:"redis"`
	Browser     BrowserConfig          `yaml:"browser"`
	Scheduler   SchedulerConfig        `yaml:"scheduler"`
	Sports      map[string]SportConfig `yaml:"sports"`
	Alerts      AlertsConfig           `yaml:"alerts"`
	Telegram    TelegramConfig         `yaml:"telegram"`
	Health      HealthConfig           `yaml:"health"`
	Logging     LoggingConfig          `yaml:"logging"`
	Maintenance MaintenanceConfig      `yaml:"maintenance"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// RedisConfig enables publishing captured prices to Redis Streams. Empty Addr disables it.
type RedisConfig struct {
	Addr         string `yaml:"addr"`
	Password     string `yaml:"password"`
	DB           int    `yaml:"db"`
	StreamPrefix string `yaml:"stream_prefix"` // stream key is <prefix>.<sport>
}

type BrowserConfig struct {
	Sessions             int           `yaml:"sessions"`               // pool capacity and worker count
	Headless             bool          `yaml:"headless"`
	ExecPath             string        `yaml:"exec_path"`              // empty = chromedp default lookup
	UserAgent            string        `yaml:"user_agent"`
	WaitTimeout          time.Duration `yaml:"wait_timeout"`           // bound on every page wait
	NavigationsPerMinute int           `yaml:"navigations_per_minute"` // shared across sessions, 0 = unlimited
}

type SchedulerConfig struct {
	LeagueSyncAfter time.Duration `yaml:"league_sync_after"`
	Timezone        string        `yaml:"timezone"` // zone the site renders kickoff times in
	Interval        time.Duration `yaml:"interval"` // cadence of the -loop wrapper
}

// SportConfig is the raw per-sport section; see Config.SportSet for the typed form.
type SportConfig struct {
	ProbMode string   `yaml:"prob_mode"` // "paired" or "joint"
	Markets  []string `yaml:"markets"`
}

type AlertsConfig struct {
	MinProbShift float64       `yaml:"min_prob_shift"` // implied probability delta, 0.005 = half a point
	Horizon      time.Duration `yaml:"horizon"`        // only events kicking off within this window
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

type HealthConfig struct {
	Port              int           `yaml:"port"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
}

type LoggingConfig struct {
	Level string `yaml:"level"` // DEBUG, INFO, WARN, ERROR
	File  string `yaml:"file"`  // optional JSON log file
}

type MaintenanceConfig struct {
	GCSchedule string `yaml:"gc_schedule"` // cron spec for deleting started events in -loop mode
}

// Load reads the YAML config at configPath. A .env file next to the working directory is
// loaded first and ${VAR} references in the YAML are expanded from the environment.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML config bytes, applies defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	config := Default()
	if err := yaml.Unmarshal([]byte(expanded), config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if len(config.Sports) == 0 {
		config.Sports = DefaultSports()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

// Default returns a config populated with production defaults.
func Default() *Config {
	return &Config{
		Redis: RedisConfig{StreamPrefix: "odds.prices"},
		Browser: BrowserConfig{
			Sessions:             3,
			Headless:             true,
			UserAgent:            "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/142.0.0.0 Safari/537.36",
			WaitTimeout:          20 * time.Second,
			NavigationsPerMinute: 0,
		},
		Scheduler: SchedulerConfig{
			LeagueSyncAfter: 24 * time.Hour,
			Timezone:        "Local",
			Interval:        5 * time.Second,
		},
		Alerts: AlertsConfig{
			MinProbShift: 0.005,
			Horizon:      4 * time.Hour,
		},
		Health: HealthConfig{
			ReadHeaderTimeout: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "INFO",
		},
		Maintenance: MaintenanceConfig{
			GCSchedule: "@hourly",
		},
	}
}

// DefaultSports returns the market sets tracked when the config has no sports section.
func DefaultSports() map[string]SportConfig {
	gameMarkets := []string{
		"Money Line – Game", "Handicap – Game",
		"Total – Game", "Team Total – Game",
	}
	return map[string]SportConfig{
		string(enums.Soccer): {
			ProbMode: string(enums.ProbModePaired),
			Markets: []string{
				"Money Line – Match", "Handicap – Match", "Total – Match",
				"Team Total – Match", "Money Line – 1st Half",
				"Handicap – 1st Half", "Total – 1st Half",
				"Team Total – 1st Half", "Handicap (Corners) – Match",
				"Total (Corners) – Match", "Both Teams To Score?",
				"Both Teams To Score? 1st Half", "Correct Score",
				"Correct Score 1st Half", "Total (Bookings) – Match",
			},
		},
		string(enums.Baseball):   {ProbMode: string(enums.ProbModePaired), Markets: gameMarkets},
		string(enums.Basketball): {ProbMode: string(enums.ProbModePaired), Markets: gameMarkets},
	}
}

// Validate checks the settings every command relies on.
func (c *Config) Validate() error {
	if c.Postgres.DSN == "" {
		return fmt.Errorf("postgres.dsn is required")
	}
	if c.Browser.Sessions <= 0 {
		return fmt.Errorf("browser.sessions must be positive, got %d", c.Browser.Sessions)
	}
	if c.Browser.WaitTimeout <= 0 {
		return fmt.Errorf("browser.wait_timeout must be positive")
	}
	if c.Scheduler.LeagueSyncAfter <= 0 {
		return fmt.Errorf("scheduler.league_sync_after must be positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.SportSet(); err != nil {
		return err
	}
	if c.Telegram.BotToken != "" && c.Telegram.ChatID == 0 {
		return fmt.Errorf("telegram.chat_id is required when telegram.bot_token is set")
	}
	return nil
}

// Location resolves scheduler.timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Scheduler.Timezone == "" || c.Scheduler.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return nil, fmt.Errorf("scheduler.timezone: %w", err)
	}
	return loc, nil
}

// SportSet converts the sports section into immutable typed configurations.
func (c *Config) SportSet() (models.SportSet, error) {
	set := make(models.SportSet, len(c.Sports))
	for name, sc := range c.Sports {
		sport, _ := enums.ParseSport(name)
		if sport == "" {
			return nil, fmt.Errorf("sports: empty sport name")
		}
		mode, err := enums.ParseProbMode(sc.ProbMode)
		if err != nil {
			return nil, fmt.Errorf("sports.%s: %w", name, err)
		}
		if len(sc.Markets) == 0 {
			return nil, fmt.Errorf("sports.%s: no markets configured", name)
		}
		set[sport] = models.NewSportConfig(sport, mode, sc.Markets)
	}
	return set, nil
}
