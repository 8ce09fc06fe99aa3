package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Jellyfin Jellyfin
	Output   Output
	Web      Web
}

type Jellyfin struct {
	URL    string
	APIKey string
	// Timeout applies to every request the client makes, including image
	// probes. A slow probe degrades to "unresolved" rather than failing a run.
	Timeout time.Duration
}

type Output struct {
	Dir     string // generated HTML and zip files, one folder per library
	DataDir string // run history database and staging files
}

type Web struct {
	Host string
	Port int
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envDuration reads an environment variable and parses it as a duration
// (e.g. "30s", "2m"). Returns the default value if unset or invalid.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	return &Config{
		Jellyfin: Jellyfin{
			URL:     os.Getenv("JELLYFIN_URL"),
			APIKey:  os.Getenv("JELLYFIN_API_KEY"),
			Timeout: envDuration("PIXELFIN_HTTP_TIMEOUT", 30*time.Second),
		},
		Output: Output{
			Dir:     envString("PIXELFIN_OUTPUT_DIR", "output"),
			DataDir: envString("PIXELFIN_DATA_DIR", "data"),
		},
		Web: Web{
			Host: envString("PIXELFIN_HOST", "0.0.0.0"),
			Port: envInt("PIXELFIN_PORT", 1280),
		},
	}
}
