// internal/config/config.go

// Package config reads server settings from the environment. main loads a
// .env file first through godotenv/autoload.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

type Config struct {
	HTTPAddr    string
	TCPAddr     string
	TLSCertFile string
	TLSKeyFile  string

	GameVersion    uint32
	StartCountdown time.Duration
	IdleTimeout    time.Duration
	MaxRooms       int
	MaxRoomUsers   int

	MaxFrameSize int
	OutboxSize   int
	WriteTimeout time.Duration
	RateLimit    float64
	RateBurst    int

	RedisAddr   string
	RedisDB     int
	QueueName   string
	DatabaseURL string

	HistorianBatchSize int
	HistorianFlush     time.Duration

	LogLevel  string
	LogFormat string
}

// Load reads every setting, falling back to defaults for anything unset or
// unparsable.
func Load() Config {
	return Config{
		HTTPAddr:    getEnv("HTTP_ADDR", ":11451"),
		TCPAddr:     getEnv("TCP_ADDR", ":11452"),
		TLSCertFile: getEnv("TLS_CERT_FILE", ""),
		TLSKeyFile:  getEnv("TLS_KEY_FILE", ""),

		GameVersion:    uint32(getEnvInt("GAME_VERSION", 3)),
		StartCountdown: getEnvDuration("START_COUNTDOWN", 5*time.Second),
		IdleTimeout:    getEnvDuration("IDLE_TIMEOUT", 20*time.Second),
		MaxRooms:       getEnvInt("MAX_ROOMS", 1000),
		MaxRoomUsers:   getEnvInt("MAX_ROOM_USERS", 255),

		MaxFrameSize: getEnvInt("MAX_FRAME_SIZE", 64*1024),
		OutboxSize:   getEnvInt("OUTBOX_SIZE", 256),
		WriteTimeout: getEnvDuration("WRITE_TIMEOUT", 5*time.Second),
		RateLimit:    getEnvFloat("RATE_LIMIT", 30),
		RateBurst:    getEnvInt("RATE_BURST", 60),

		RedisAddr:   getEnv("REDIS_ADDR", ""),
		RedisDB:     getEnvInt("REDIS_DB", 0),
		QueueName:   getEnv("HISTORIAN_QUEUE_NAME", "meowgames_actions"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		HistorianBatchSize: getEnvInt("HISTORIAN_BATCH_SIZE", 20),
		HistorianFlush:     getEnvDuration("HISTORIAN_FLUSH", 500*time.Millisecond),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// TLS reports whether both certificate files are configured.
func (c Config) TLS() bool { return c.TLSCertFile != "" && c.TLSKeyFile != "" }

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if strings.EqualFold(c.LogFormat, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func getEnvFloat(key string, def float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return def
	}
	return v
}

// getEnvDuration accepts Go durations ("750ms") or a bare number of seconds.
func getEnvDuration(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}
