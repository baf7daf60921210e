package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the tracer.
type Config struct {
	// CDP connection settings
	CDPAddress string
	CDPPort    int

	// Control API settings
	BindAddr         string
	PortCandidates   []string
	PortAutoFallback bool

	// Tab matching
	TabURLFilter string

	// Optional local browser launch when no CDP endpoint is listening
	LaunchBrowser     bool
	BrowserProfileDir string
	BrowserStartURL   string

	// Detection profile (optional YAML file)
	ProfilePath string

	// Archive settings
	DataDir           string
	ArchiveEnabled    bool
	ArchiveBufferSize int
	ArchiveMaxSizeMB  int

	// Logging
	LogLevel string
	LogFile  string
}

// Load reads configuration from environment variables and optional .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	cfg := &Config{
		CDPAddress:        getEnvOrDefault("SAMLTRACE_CDP_ADDRESS", "127.0.0.1"),
		CDPPort:           getEnvIntOrDefault("SAMLTRACE_CDP_PORT", 9222),
		BindAddr:          getEnvOrDefault("SAMLTRACE_BIND_ADDR", "127.0.0.1:8780"),
		PortCandidates:    getEnvListOrDefault("SAMLTRACE_PORT_CANDIDATES", []string{"127.0.0.1:8781", "127.0.0.1:8782"}),
		PortAutoFallback:  getEnvBoolOrDefault("SAMLTRACE_PORT_AUTO_FALLBACK", true),
		TabURLFilter:      getEnvOrDefault("SAMLTRACE_TAB_URL_FILTER", ""),
		LaunchBrowser:     getEnvBoolOrDefault("SAMLTRACE_LAUNCH_BROWSER", false),
		BrowserProfileDir: getEnvOrDefault("SAMLTRACE_BROWSER_PROFILE_DIR", "./browser_profile"),
		BrowserStartURL:   getEnvOrDefault("SAMLTRACE_BROWSER_START_URL", ""),
		ProfilePath:       getEnvOrDefault("SAMLTRACE_PROFILE", ""),
		DataDir:           getEnvOrDefault("SAMLTRACE_DATA_DIR", "./trace_data"),
		ArchiveEnabled:    getEnvBoolOrDefault("SAMLTRACE_ARCHIVE", false),
		ArchiveBufferSize: getEnvIntOrDefault("SAMLTRACE_ARCHIVE_BUFFER_SIZE", 1000),
		ArchiveMaxSizeMB:  getEnvIntOrDefault("SAMLTRACE_ARCHIVE_MAX_FILE_SIZE_MB", 50),
		LogLevel:          getEnvOrDefault("SAMLTRACE_LOG_LEVEL", "info"),
		LogFile:           getEnvOrDefault("SAMLTRACE_LOG_FILE", "logs/tracer.log"),
	}

	return cfg, nil
}

// GetCDPURL returns the full CDP HTTP endpoint used by chromedp remote allocator.
func (c *Config) GetCDPURL() string {
	return fmt.Sprintf("http://%s:%d", c.CDPAddress, c.CDPPort)
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvListOrDefault(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
