package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type RealtimeConfig struct {
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	PongTimeout     time.Duration `mapstructure:"pong_timeout"`
	SendBufferSize  int           `mapstructure:"send_buffer_size"`
	MaxMessageBytes int64         `mapstructure:"max_message_bytes"`
}

type EmailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	From     string `mapstructure:"from"`
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type Config struct {
	DatabaseURL    string         `mapstructure:"database_url"`
	ServerPort     string         `mapstructure:"server_port"`
	JWTSecret      string         `mapstructure:"jwt_secret"`
	AllowedOrigins []string       `mapstructure:"allowed_origins"`
	ExpirySweep    time.Duration  `mapstructure:"expiry_sweep_interval"`
	Realtime       RealtimeConfig `mapstructure:"realtime"`
	Email          EmailConfig    `mapstructure:"email"`
}

// Load reads the configuration from a YAML file and returns a Config instance.
func Load() *Config {
	v := viper.New()

	// Look for config in the current directory and ./config
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.AddConfigPath("./config")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file: %v", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		log.Fatalf("Error unmarshalling config: %v", err)
	}

	// Fallback defaults
	if config.ServerPort == "" {
		config.ServerPort = "8080"
	}

	if config.JWTSecret == "" {
		log.Fatal("JWT secret must be set in the config file")
	}

	if len(config.AllowedOrigins) == 0 {
		config.AllowedOrigins = []string{"http://localhost:3000"}
	}
	if config.ExpirySweep == 0 {
		config.ExpirySweep = time.Hour
	}

	if config.Realtime.PingInterval == 0 {
		config.Realtime.PingInterval = 30 * time.Second
	}
	if config.Realtime.WriteTimeout == 0 {
		config.Realtime.WriteTimeout = 10 * time.Second
	}
	if config.Realtime.PongTimeout == 0 {
		config.Realtime.PongTimeout = 60 * time.Second
	}
	if config.Realtime.SendBufferSize == 0 {
		config.Realtime.SendBufferSize = 32
	}
	if config.Realtime.MaxMessageBytes == 0 {
		config.Realtime.MaxMessageBytes = 4096
	}

	if config.Email.Enabled && config.Email.SMTPPort == 0 {
		config.Email.SMTPPort = 587
	}

	return &config
}
