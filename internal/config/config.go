package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Sweep    SweepConfig    `mapstructure:"sweep"`
	Leader   LeaderConfig   `mapstructure:"leader"`
	Auth     AuthConfig     `mapstructure:"auth"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
	Instance InstanceConfig `mapstructure:"instance"`
}

type ServerConfig struct {
	Port   int    `mapstructure:"port"`
	WSPort int    `mapstructure:"ws_port"`
	Host   string `mapstructure:"host"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MySQLConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type SweepConfig struct {
	// Interval between expiry scans. Bounds the latency between a deadline
	// and the user-visible close.
	Interval time.Duration `mapstructure:"interval"`
	// ListingTimeout bounds one listing's close so a slow close never blocks
	// the rest of the sweep.
	ListingTimeout time.Duration `mapstructure:"listing_timeout"`
}

type LeaderConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type InstanceConfig struct {
	ID string `mapstructure:"id"`
}

func Load() (*Config, error) {
	// Default values
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.ws_port", 8081)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("mysql.dsn", "numislive:numislive@tcp(localhost:3306)/numislive?parseTime=true")
	viper.SetDefault("mysql.max_open_conns", 25)
	viper.SetDefault("mysql.max_idle_conns", 10)
	viper.SetDefault("mysql.conn_max_lifetime", 5*time.Minute)
	viper.SetDefault("sweep.interval", 5*time.Second)
	viper.SetDefault("sweep.listing_timeout", 10*time.Second)
	viper.SetDefault("leader.ttl", 30*time.Second)
	viper.SetDefault("auth.jwt_secret", "")
	viper.SetDefault("smtp.host", "")
	viper.SetDefault("smtp.port", "465")
	viper.SetDefault("smtp.username", "")
	viper.SetDefault("smtp.password", "")
	viper.SetDefault("smtp.from", "auctions@numislive.example")
	viper.SetDefault("instance.id", "numislive-1")

	// Configuration file settings
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/numislive/")

	// Environment variable support
	viper.AutomaticEnv()

	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.ws_port", "SERVER_WS_PORT")
	viper.BindEnv("server.host", "SERVER_HOST")
	viper.BindEnv("redis.address", "REDIS_ADDRESS")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")
	viper.BindEnv("mysql.dsn", "MYSQL_DSN")
	viper.BindEnv("mysql.max_open_conns", "MYSQL_MAX_OPEN_CONNS")
	viper.BindEnv("mysql.max_idle_conns", "MYSQL_MAX_IDLE_CONNS")
	viper.BindEnv("mysql.conn_max_lifetime", "MYSQL_CONN_MAX_LIFETIME")
	viper.BindEnv("sweep.interval", "SWEEP_INTERVAL")
	viper.BindEnv("sweep.listing_timeout", "SWEEP_LISTING_TIMEOUT")
	viper.BindEnv("leader.ttl", "LEADER_TTL")
	viper.BindEnv("auth.jwt_secret", "JWT_SECRET")
	viper.BindEnv("smtp.host", "SMTP_HOST")
	viper.BindEnv("smtp.port", "SMTP_PORT")
	viper.BindEnv("smtp.username", "SMTP_USERNAME")
	viper.BindEnv("smtp.password", "SMTP_PASSWORD")
	viper.BindEnv("smtp.from", "SMTP_FROM")
	viper.BindEnv("instance.id", "INSTANCE_ID")

	// Config file is optional; defaults and env vars carry a dev setup.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) GetConfigString() string {
	return fmt.Sprintf(
		"Server: %s:%d (ws %d), Redis: %s, MySQL: %s, Instance: %s",
		c.Server.Host,
		c.Server.Port,
		c.Server.WSPort,
		c.Redis.Address,
		redactDSN(c.MySQL.DSN),
		c.Instance.ID,
	)
}

// redactDSN masks the password in a user:password@host style DSN so
// credentials never reach the logs.
func redactDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	if at < 0 {
		return dsn
	}
	cred := dsn[:at]
	colon := strings.Index(cred, ":")
	if colon < 0 {
		return dsn
	}
	return cred[:colon+1] + "***" + dsn[at:]
}
