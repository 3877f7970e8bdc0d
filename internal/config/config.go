package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Warehouse WarehouseConfig `mapstructure:"warehouse"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Security  SecurityConfig  `mapstructure:"security"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// WarehouseConfig selects where the joined sales table comes from.
type WarehouseConfig struct {
	Source          string        `mapstructure:"source"` // csv, mysql
	CSVFile         string        `mapstructure:"csv_file"`
	CacheDir        string        `mapstructure:"cache_dir"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	Query           string        `mapstructure:"query"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LoadTimeout     time.Duration `mapstructure:"load_timeout"`
}

type LoggerConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type SecurityConfig struct {
	EnableRateLimit bool     `mapstructure:"rate_limit_enabled"`
	RateLimitRPS    int      `mapstructure:"rate_limit_rps"`
	RateLimitBurst  int      `mapstructure:"rate_limit_burst"`
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	TrustedProxies  []string `mapstructure:"trusted_proxies"`
}

type DashboardConfig struct {
	DefaultTopN int `mapstructure:"default_top_n"`
}

const (
	SourceCSV   = "csv"
	SourceMySQL = "mysql"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8084)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("warehouse.source", SourceCSV)
	v.SetDefault("warehouse.csv_file", "sales.csv")
	v.SetDefault("warehouse.cache_dir", ".cache")
	v.SetDefault("warehouse.host", "localhost")
	v.SetDefault("warehouse.port", 3306)
	v.SetDefault("warehouse.user", "")
	v.SetDefault("warehouse.password", "")
	v.SetDefault("warehouse.database", "CORE")
	v.SetDefault("warehouse.query", "")
	v.SetDefault("warehouse.max_open_conns", 4)
	v.SetDefault("warehouse.max_idle_conns", 2)
	v.SetDefault("warehouse.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("warehouse.load_timeout", 30*time.Second)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")

	v.SetDefault("security.rate_limit_enabled", true)
	v.SetDefault("security.rate_limit_rps", 100)
	v.SetDefault("security.rate_limit_burst", 10)
	v.SetDefault("security.allowed_origins", []string{"http://localhost:8084"})
	v.SetDefault("security.trusted_proxies", []string{"127.0.0.1"})

	v.SetDefault("dashboard.default_top_n", 5)
}

// Short environment names kept for existing deployments.
var envAliases = map[string]string{
	"warehouse.csv_file": "CSV_FILE",
	"logger.level":       "LOG_LEVEL",
	"logger.format":      "LOG_FORMAT",
}

// Load reads defaults, then the optional config file, then the
// environment (server.port -> SERVER_PORT).
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envAliases {
		if err := v.BindEnv(key, strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	switch c.Warehouse.Source {
	case SourceCSV:
		if c.Warehouse.CSVFile == "" {
			return fmt.Errorf("CSV file path cannot be empty")
		}
	case SourceMySQL:
		if c.Warehouse.Host == "" || c.Warehouse.Database == "" {
			return fmt.Errorf("mysql warehouse requires host and database")
		}
		if c.Warehouse.Port < 1 || c.Warehouse.Port > 65535 {
			return fmt.Errorf("warehouse port must be between 1 and 65535, got %d", c.Warehouse.Port)
		}
	default:
		return fmt.Errorf("invalid warehouse source %q, must be one of: %s, %s", c.Warehouse.Source, SourceCSV, SourceMySQL)
	}

	if c.Warehouse.LoadTimeout <= 0 {
		return fmt.Errorf("warehouse load timeout must be positive")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.Logger.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"json", "text"}
	if !slices.Contains(validLogFormats, c.Logger.Format) {
		return fmt.Errorf("invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))
	}

	if c.Security.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit RPS must be positive")
	}

	if c.Security.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit burst must be positive")
	}

	if c.Dashboard.DefaultTopN < 1 || c.Dashboard.DefaultTopN > 10 {
		return fmt.Errorf("default top n must be between 1 and 10, got %d", c.Dashboard.DefaultTopN)
	}

	return nil
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
