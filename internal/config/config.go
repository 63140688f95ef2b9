package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	API      API      `mapstructure:"api"`
	Desk     Desk     `mapstructure:"desk"`
	Admin    Admin    `mapstructure:"admin"`
	Logger   Logger   `mapstructure:"logger"`
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
}

// API holds the endpoint URLs of the exchange backend and the
// client-side rate limit applied to outbound calls.
type API struct {
	AuthURL        string  `mapstructure:"auth_url"`
	TradingURL     string  `mapstructure:"trading_url"`
	LotteryURL     string  `mapstructure:"lottery_url"`
	AdminURL       string  `mapstructure:"admin_url"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Desk holds the configuration for the trading desk.
type Desk struct {
	Username     string `mapstructure:"username"`
	PollInterval int    `mapstructure:"poll_interval"`
}

// Admin holds the configuration for the admin console.
// The password is the shared secret the backend expects in the
// X-Admin-Password header. It is plain configuration data, not a
// security boundary: anyone who can read the config can read it.
type Admin struct {
	Password     string `mapstructure:"password"`
	PollInterval int    `mapstructure:"poll_interval"`
	Port         int    `mapstructure:"port"`
}

// Server holds the configuration for the local status server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the local database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or yaml, json

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("api.rate_limit", 10)      // requests per second
	viper.SetDefault("api.rate_limit_burst", 5) // burst size
	viper.SetDefault("desk.poll_interval", 3)   // seconds
	viper.SetDefault("admin.poll_interval", 5) // seconds
	viper.SetDefault("admin.port", 8091)       // keep clear of server.port so both daemons can run
	viper.SetDefault("server.port", 8090)
	viper.SetDefault("database.dsn", "desk.db")

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
