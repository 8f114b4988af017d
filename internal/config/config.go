// internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	Serial    SerialConfig    `mapstructure:"serial"`
	Simulator SimulatorConfig `mapstructure:"simulator"`
	Security  SecurityConfig  `mapstructure:"security"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	App       AppConfig       `mapstructure:"app"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// StoreConfig represents the transcript store configuration
type StoreConfig struct {
	Path            string        `mapstructure:"path"`
	RetentionDays   int           `mapstructure:"retention_days"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// SerialConfig represents default serial session parameters. Every value can
// be overridden per session when it is opened; these are the values the
// hardware manual prescribes.
type SerialConfig struct {
	Port         string        `mapstructure:"port"`
	BaudRate     int           `mapstructure:"baud_rate"`
	DataBits     int           `mapstructure:"data_bits"`
	StopBits     string        `mapstructure:"stop_bits"`
	Parity       string        `mapstructure:"parity"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	ByteDelay    time.Duration `mapstructure:"byte_delay"`
	CommandDelay time.Duration `mapstructure:"command_delay"`
	Terminator   string        `mapstructure:"terminator"`
}

// SimulatorConfig represents the simulated chiller configuration
type SimulatorConfig struct {
	Port            string            `mapstructure:"port"`
	BaudRate        int               `mapstructure:"baud_rate"`
	DataBits        int               `mapstructure:"data_bits"`
	StopBits        string            `mapstructure:"stop_bits"`
	Parity          string            `mapstructure:"parity"`
	ReadTimeout     time.Duration     `mapstructure:"read_timeout"`
	ReplyDelay      time.Duration     `mapstructure:"reply_delay"`
	DefaultResponse string            `mapstructure:"default_response"`
	Responses       map[string]string `mapstructure:"responses"`
}

// SecurityConfig represents security configuration
type SecurityConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// AppConfig represents application metadata
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("/etc/serial-chiller")

	// Environment variable support
	viper.SetEnvPrefix("SERIAL_CHILLER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	// Read config file; a missing file is fine, defaults cover everything
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "127.0.0.1")
	viper.SetDefault("server.port", "8090")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")

	// Store defaults
	viper.SetDefault("store.path", "./data/transcript.db")
	viper.SetDefault("store.retention_days", 30)
	viper.SetDefault("store.cleanup_interval", "1h")

	// Serial defaults match the chiller's factory interface settings:
	// 4800 baud, 7 data bits, no parity, 2 stop bits
	viper.SetDefault("serial.port", "/tmp/ttyV0")
	viper.SetDefault("serial.baud_rate", 4800)
	viper.SetDefault("serial.data_bits", 7)
	viper.SetDefault("serial.stop_bits", "2")
	viper.SetDefault("serial.parity", "none")
	viper.SetDefault("serial.read_timeout", "1s")
	viper.SetDefault("serial.byte_delay", "0s")
	viper.SetDefault("serial.command_delay", "60ms")
	viper.SetDefault("serial.terminator", "cr")

	// Simulator defaults
	viper.SetDefault("simulator.port", "/tmp/ttyV1")
	viper.SetDefault("simulator.baud_rate", 4800)
	viper.SetDefault("simulator.data_bits", 7)
	viper.SetDefault("simulator.stop_bits", "1")
	viper.SetDefault("simulator.parity", "none")
	viper.SetDefault("simulator.read_timeout", "1s")
	viper.SetDefault("simulator.reply_delay", "50ms")
	viper.SetDefault("simulator.default_response", "OK")
	viper.SetDefault("simulator.responses", map[string]string{})

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "console")
	viper.SetDefault("logging.output", "stdout")
	viper.SetDefault("logging.max_size", 100)
	viper.SetDefault("logging.max_backups", 3)
	viper.SetDefault("logging.max_age", 28)
	viper.SetDefault("logging.compress", true)

	// App defaults
	viper.SetDefault("app.name", "serial-chiller")
	viper.SetDefault("app.version", "1.1.1")
	viper.SetDefault("app.environment", "development")
	viper.SetDefault("app.debug", false)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Server.Host == "" {
		return fmt.Errorf("server.host is required")
	}
	if config.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}
	if config.Serial.BaudRate <= 0 {
		return fmt.Errorf("serial.baud_rate must be positive")
	}

	validBits := []int{5, 6, 7, 8}
	isValidBits := false
	for _, bits := range validBits {
		if config.Serial.DataBits == bits {
			isValidBits = true
			break
		}
	}
	if !isValidBits {
		return fmt.Errorf("serial.data_bits must be one of: %v", validBits)
	}

	validStop := []string{"1", "1.5", "2"}
	if !contains(validStop, config.Serial.StopBits) {
		return fmt.Errorf("serial.stop_bits must be one of: %v", validStop)
	}

	validParity := []string{"none", "odd", "even"}
	if !contains(validParity, config.Serial.Parity) {
		return fmt.Errorf("serial.parity must be one of: %v", validParity)
	}

	validTerm := []string{"cr", "lf", "crlf"}
	if !contains(validTerm, config.Serial.Terminator) {
		return fmt.Errorf("serial.terminator must be one of: %v", validTerm)
	}

	// Validate environment
	validEnvs := []string{"development", "staging", "production", "test"}
	if !contains(validEnvs, config.App.Environment) {
		return fmt.Errorf("app.environment must be one of: %v", validEnvs)
	}

	// Validate logging level
	validLevels := []string{"debug", "info", "warn", "error", "fatal"}
	if !contains(validLevels, config.Logging.Level) {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}

	return nil
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

// GetServerAddr returns the server address
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// IsProduction checks if the environment is production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment checks if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsDebugEnabled checks if debug mode is enabled
func (c *Config) IsDebugEnabled() bool {
	return c.App.Debug || c.IsDevelopment()
}
