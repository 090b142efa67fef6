// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	Relay     RelayConfig     `mapstructure:"relay" yaml:"relay"`
	Humanize  HumanizeConfig  `mapstructure:"humanize" yaml:"humanize"`
	Safety    SafetyConfig    `mapstructure:"safety" yaml:"safety"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`
	Session   SessionConfig   `mapstructure:"session" yaml:"session"`
}

// LoggerConfig controls the zap logger setup.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// RelayConfig describes the serial link to the hardware relay board.
type RelayConfig struct {
	// Port is the serial device path (e.g. /dev/ttyACM0, COM3). Empty means
	// auto-detect via the USB allow-list.
	Port        string        `mapstructure:"port" yaml:"port"`
	Baud        int           `mapstructure:"baud" yaml:"baud"`
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	// SettleTime is how long the board takes to finish its power-on reset
	// after the serial port opens.
	SettleTime time.Duration `mapstructure:"settle_time" yaml:"settle_time"`
}

// HumanizeConfig tunes the input-humanization engine.
type HumanizeConfig struct {
	// SpeedFactorMin/Max bound the uniform speed multiplier applied to every
	// pointer move.
	SpeedFactorMin float64 `mapstructure:"speed_factor_min" yaml:"speed_factor_min"`
	SpeedFactorMax float64 `mapstructure:"speed_factor_max" yaml:"speed_factor_max"`
	// TargetJitterPx is the default symmetric jitter radius applied to move
	// targets.
	TargetJitterPx int `mapstructure:"target_jitter_px" yaml:"target_jitter_px"`
}

// Region is an axis-aligned rectangle in screen coordinates.
type Region struct {
	X int `mapstructure:"x" yaml:"x"`
	Y int `mapstructure:"y" yaml:"y"`
	W int `mapstructure:"w" yaml:"w"`
	H int `mapstructure:"h" yaml:"h"`
}

// Contains reports whether the point (px, py) falls inside the region.
func (r Region) Contains(px, py int) bool {
	return px >= r.X && px < r.X+r.W && py >= r.Y && py < r.Y+r.H
}

// SafetyConfig defines the forbidden click regions for the interlock.
type SafetyConfig struct {
	// WindowOriginX/Y translate pointer positions from monitor space into the
	// game window's screen space before region checks.
	WindowOriginX int `mapstructure:"window_origin_x" yaml:"window_origin_x"`
	WindowOriginY int `mapstructure:"window_origin_y" yaml:"window_origin_y"`

	EquippedArea        Region `mapstructure:"equipped_area" yaml:"equipped_area"`
	RestrictedInventory Region `mapstructure:"restricted_inventory" yaml:"restricted_inventory"`
}

// TelemetryConfig controls per-run phase timing persistence.
type TelemetryConfig struct {
	LogPath string `mapstructure:"log_path" yaml:"log_path"`
	// OutlierZ is the z-score threshold used by the offline analyzer.
	OutlierZ float64 `mapstructure:"outlier_z" yaml:"outlier_z"`
	// HighVarianceCV flags phases whose coefficient of variation exceeds it.
	HighVarianceCV float64 `mapstructure:"high_variance_cv" yaml:"high_variance_cv"`
}

// SessionConfig paces play sessions, breaks and daily limits.
type SessionConfig struct {
	MaxDailyHours           float64 `mapstructure:"max_daily_hours" yaml:"max_daily_hours"`
	AvgSessionMinutes       float64 `mapstructure:"avg_session_minutes" yaml:"avg_session_minutes"`
	SessionVarianceMinutes  float64 `mapstructure:"session_variance_minutes" yaml:"session_variance_minutes"`
	AvgBreakMinutes         float64 `mapstructure:"avg_break_minutes" yaml:"avg_break_minutes"`
	BreakVarianceMinutes    float64 `mapstructure:"break_variance_minutes" yaml:"break_variance_minutes"`
	SkipLootProbability     float64 `mapstructure:"skip_loot_probability" yaml:"skip_loot_probability"`
	RandomActionProbability float64 `mapstructure:"random_action_probability" yaml:"random_action_probability"`
	LogDir                  string  `mapstructure:"log_dir" yaml:"log_dir"`
}

// SetDefaults registers the default value for every configuration key.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "pindlebot")
	v.SetDefault("logger.log_file", "log/pindlebot.log")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)

	// -- Relay --
	v.SetDefault("relay.port", "")
	v.SetDefault("relay.baud", 115200)
	v.SetDefault("relay.read_timeout", "1s")
	v.SetDefault("relay.settle_time", "2s")

	// -- Humanize --
	v.SetDefault("humanize.speed_factor_min", 0.4)
	v.SetDefault("humanize.speed_factor_max", 0.6)
	v.SetDefault("humanize.target_jitter_px", 5)

	// -- Safety --
	v.SetDefault("safety.window_origin_x", 0)
	v.SetDefault("safety.window_origin_y", 0)
	v.SetDefault("safety.equipped_area", map[string]int{"x": 845, "y": 130, "w": 400, "h": 300})
	v.SetDefault("safety.restricted_inventory", map[string]int{"x": 845, "y": 430, "w": 400, "h": 100})

	// -- Telemetry --
	v.SetDefault("telemetry.log_path", "log/timing/timing.jsonl")
	v.SetDefault("telemetry.outlier_z", 2.5)
	v.SetDefault("telemetry.high_variance_cv", 0.4)

	// -- Session --
	v.SetDefault("session.max_daily_hours", 8)
	v.SetDefault("session.avg_session_minutes", 150)
	v.SetDefault("session.session_variance_minutes", 30)
	v.SetDefault("session.avg_break_minutes", 25)
	v.SetDefault("session.break_variance_minutes", 10)
	v.SetDefault("session.skip_loot_probability", 0.02)
	v.SetDefault("session.random_action_probability", 0.05)
	v.SetDefault("session.log_dir", "log/sessions")
}

// Load reads the configuration from the given file (or the default search
// path when cfgFile is empty), layered under PINDLE_* environment variables,
// and unmarshals it into a Config.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("PINDLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; proceed with defaults and env vars.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}
