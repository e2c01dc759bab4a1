package utils

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type Config struct {
	port       string
	sqlitePath string

	discordGuildID  string
	discordAppToken string
	discordClientId string

	location *time.Location

	maxUploadBytes   int64
	parseCacheSize   int
	defaultMaxSizeMB int

	uploadRatePerMinute      int
	historyRetention         time.Duration
	metricCollectionInterval time.Duration

	staticWebClientDir string
}

func NewConfig() *Config {
	return &Config{
		port: func() string {
			port := os.Getenv("PORT")
			if port == "" {
				port = "8080"
			}
			slog.Debug("env", "PORT", port)
			return port
		}(),
		sqlitePath: func() string {
			sqlitePath := os.Getenv("SQLITE_PATH")
			if sqlitePath == "" {
				sqlitePath = "./sqlite.db"
			}
			slog.Debug("env", "SQLITE_PATH", sqlitePath)
			return sqlitePath
		}(),

		discordGuildID: func() string {
			discordGuildID := os.Getenv("DISCORD_GUILD_ID")
			if discordGuildID == "" {
				slog.Warn("DISCORD_GUILD_ID is not set")
			}
			return discordGuildID
		}(),
		discordAppToken: func() string {
			discordAppToken := os.Getenv("DISCORD_APP_TOKEN")
			if discordAppToken == "" {
				slog.Warn("DISCORD_APP_TOKEN is not set")
				return ""
			}
			slog.Debug("env", "DISCORD_APP_TOKEN", "set")
			return discordAppToken
		}(),
		discordClientId: func() string {
			discordClientId := os.Getenv("DISCORD_CLIENT_ID")
			if discordClientId == "" {
				slog.Warn("DISCORD_CLIENT_ID is not set")
			}
			return discordClientId
		}(),

		location: func() *time.Location {
			timezoneStr := os.Getenv("TIMEZONE")
			var loc *time.Location
			var err error
			switch timezoneStr {
			case "":
				slog.Warn("TIMEZONE is not set, using local timezone", "timezone", time.Local)
				loc = time.Local
			case "UTC":
				loc = time.UTC
			default:
				loc, err = time.LoadLocation(timezoneStr)
				if err != nil {
					slog.Error("invalid timezone", "timezone", timezoneStr, "error", err)
					os.Exit(1)
				}
			}
			slog.Debug("env", "TIMEZONE", timezoneStr)
			return loc
		}(),

		maxUploadBytes: func() int64 {
			maxUploadBytesStr := os.Getenv("MAX_UPLOAD_BYTES")
			if maxUploadBytesStr == "" {
				maxUploadBytesStr = "20971520" // 20 MiB
			}
			maxUploadBytes, err := strconv.ParseInt(maxUploadBytesStr, 10, 64)
			if err != nil || maxUploadBytes <= 0 {
				slog.Error("invalid MAX_UPLOAD_BYTES", "value", maxUploadBytesStr, "error", err)
				os.Exit(1)
			}
			slog.Debug("env", "MAX_UPLOAD_BYTES", maxUploadBytes)
			return maxUploadBytes
		}(),
		parseCacheSize: func() int {
			parseCacheSizeStr := os.Getenv("PARSE_CACHE_SIZE")
			if parseCacheSizeStr == "" {
				parseCacheSizeStr = "64"
			}
			parseCacheSize, err := strconv.Atoi(parseCacheSizeStr)
			if err != nil || parseCacheSize <= 0 {
				slog.Error("invalid PARSE_CACHE_SIZE", "value", parseCacheSizeStr, "error", err)
				os.Exit(1)
			}
			slog.Debug("env", "PARSE_CACHE_SIZE", parseCacheSize)
			return parseCacheSize
		}(),
		defaultMaxSizeMB: func() int {
			defaultMaxSizeStr := os.Getenv("DEFAULT_MAX_SIZE_MB")
			if defaultMaxSizeStr == "" {
				defaultMaxSizeStr = "1"
			}
			defaultMaxSize, err := strconv.Atoi(defaultMaxSizeStr)
			if err != nil || defaultMaxSize <= 0 {
				slog.Error("invalid DEFAULT_MAX_SIZE_MB", "value", defaultMaxSizeStr, "error", err)
				os.Exit(1)
			}
			slog.Debug("env", "DEFAULT_MAX_SIZE_MB", defaultMaxSize)
			return defaultMaxSize
		}(),

		uploadRatePerMinute: func() int {
			uploadRateStr := os.Getenv("UPLOAD_RATE_PER_MINUTE")
			if uploadRateStr == "" {
				uploadRateStr = "30"
			}
			uploadRate, err := strconv.Atoi(uploadRateStr)
			if err != nil || uploadRate <= 0 {
				slog.Error("invalid UPLOAD_RATE_PER_MINUTE", "value", uploadRateStr, "error", err)
				os.Exit(1)
			}
			slog.Debug("env", "UPLOAD_RATE_PER_MINUTE", uploadRate)
			return uploadRate
		}(),
		historyRetention: func() time.Duration {
			historyRetentionStr := os.Getenv("HISTORY_RETENTION")
			if historyRetentionStr == "" {
				historyRetentionStr = "720h" // 30 days
			}
			duration, err := time.ParseDuration(historyRetentionStr)
			if err != nil {
				slog.Error("invalid HISTORY_RETENTION", "error", err)
				os.Exit(1)
			}
			slog.Debug("env", "HISTORY_RETENTION", historyRetentionStr, "duration", duration)
			return duration
		}(),
		metricCollectionInterval: func() time.Duration {
			intervalStr := os.Getenv("METRIC_COLLECTION_INTERVAL")
			if intervalStr == "" {
				intervalStr = "1m"
			}
			duration, err := time.ParseDuration(intervalStr)
			if err != nil {
				slog.Error("invalid METRIC_COLLECTION_INTERVAL", "error", err)
				os.Exit(1)
			}
			slog.Debug("env", "METRIC_COLLECTION_INTERVAL", intervalStr, "duration", duration)
			return duration
		}(),

		staticWebClientDir: func() string {
			staticWebClientDir := os.Getenv("STATIC_WEB_CLIENT_DIR")
			if staticWebClientDir == "" {
				slog.Warn("STATIC_WEB_CLIENT_DIR is not set, static web client disabled")
				return ""
			}
			info, err := os.Stat(staticWebClientDir)
			if err != nil {
				slog.Error("can't get info of STATIC_WEB_CLIENT_DIR", "error", err)
				os.Exit(1)
			}
			if !info.IsDir() {
				slog.Error("STATIC_WEB_CLIENT_DIR is not a directory", "dir", staticWebClientDir)
				os.Exit(1)
			}

			slog.Debug("env", "STATIC_WEB_CLIENT_DIR", staticWebClientDir)
			return filepath.Clean(staticWebClientDir)
		}(),
	}
}

// Get PORT env, default to 8080
func (c *Config) GetPort() string {
	return c.port
}

// Get SQLITE_PATH env, default to ./sqlite.db
func (c *Config) GetSqlitePath() string {
	return c.sqlitePath
}

// Get DISCORD_GUILD_ID env
func (c *Config) GetDiscordGuildID() string {
	return c.discordGuildID
}

// Get DISCORD_APP_TOKEN env
func (c *Config) GetDiscordAppToken() string {
	return c.discordAppToken
}

// Get DISCORD_CLIENT_ID env
func (c *Config) GetDiscordClientId() string {
	return c.discordClientId
}

// Whether the full Discord env var trio is present. The bot surface is
// optional; the HTTP API and CLI work without it.
func (c *Config) DiscordEnabled() bool {
	return c.discordAppToken != "" && c.discordClientId != "" && c.discordGuildID != ""
}

// Get TIMEZONE env
func (c *Config) GetLocation() *time.Location {
	return c.location
}

// Get MAX_UPLOAD_BYTES env, default to 20 MiB
func (c *Config) GetMaxUploadBytes() int64 {
	return c.maxUploadBytes
}

// Get PARSE_CACHE_SIZE env, default to 64 entries
func (c *Config) GetParseCacheSize() int {
	return c.parseCacheSize
}

// Get DEFAULT_MAX_SIZE_MB env, default to 1
func (c *Config) GetDefaultMaxSizeMB() int {
	return c.defaultMaxSizeMB
}

// Get UPLOAD_RATE_PER_MINUTE env, default to 30
func (c *Config) GetUploadRatePerMinute() int {
	return c.uploadRatePerMinute
}

// Get HISTORY_RETENTION env, default to 30 days
func (c *Config) GetHistoryRetention() time.Duration {
	return c.historyRetention
}

// Get METRIC_COLLECTION_INTERVAL env, default to 1 minute
func (c *Config) GetMetricCollectionInterval() time.Duration {
	return c.metricCollectionInterval
}

// Get STATIC_WEB_CLIENT_DIR env, blank when unset
func (c *Config) GetStaticWebClientDir() string {
	return c.staticWebClientDir
}
