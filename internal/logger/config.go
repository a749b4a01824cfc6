package logger

import (
	"io"
	"os"
	"strconv"
)

// Config controls level, format and sinks.
type Config struct {
	Level       string    // debug, info, warn, error
	Format      string    // json, text
	ServiceName string    // value of the "service" field
	Output      io.Writer // overrides File when set

	// File enables a rotating file sink next to stdout.
	File       string
	FileOnly   bool
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Defaults returns JSON at info level on stdout.
func Defaults() *Config {
	return &Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "veris",
		MaxSizeMB:   100,
		MaxBackups:  7,
		MaxAgeDays:  30,
		Compress:    true,
	}
}

// LoadFromEnv reads VERIS_LOG_* variables on top of Defaults.
func LoadFromEnv() *Config {
	cfg := Defaults()
	cfg.Level = envString("VERIS_LOG_LEVEL", cfg.Level)
	cfg.Format = envString("VERIS_LOG_FORMAT", cfg.Format)
	cfg.ServiceName = envString("VERIS_SERVICE_NAME", cfg.ServiceName)
	cfg.File = envString("VERIS_LOG_FILE", "")
	cfg.FileOnly = envBool("VERIS_LOG_FILE_ONLY", false)
	cfg.MaxSizeMB = envInt("VERIS_LOG_MAX_SIZE", cfg.MaxSizeMB)
	cfg.MaxBackups = envInt("VERIS_LOG_MAX_BACKUPS", cfg.MaxBackups)
	cfg.MaxAgeDays = envInt("VERIS_LOG_MAX_AGE", cfg.MaxAgeDays)
	cfg.Compress = envBool("VERIS_LOG_COMPRESS", cfg.Compress)
	return cfg
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	i, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return i
}
