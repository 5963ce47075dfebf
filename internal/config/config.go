package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode
	HTTPAddr string

	LogLevel string
	LogDev   bool

	// TargetsFile is an optional YAML overlay for the environment URL table.
	TargetsFile string

	StrictGating    bool
	MaxArchiveBytes int64
	InspectTimeout  time.Duration
	SessionIdleTTL  time.Duration

	HistoryDBDriver string // ""|sqlite|postgres
	HistoryDBDSN    string

	MetricsNamespace string

	AuthSecret    string
	AdminUser     string
	AdminPassHash string // bcrypt

	CORSOriginsOnline  []string
	CORSOriginsOffline []string
}

func FromEnv() Config {
	mode := Mode(os.Getenv("MODE"))
	if mode == "" {
		mode = ModeOffline
	}
	return Config{
		Mode:               mode,
		HTTPAddr:           envOr("HTTP_ADDR", ":8080"),
		LogLevel:           envOr("LOG_LEVEL", "info"),
		LogDev:             envBool("LOG_DEV", mode == ModeOffline),
		TargetsFile:        os.Getenv("TARGETS_FILE"),
		StrictGating:       envBool("STRICT_GATING", false),
		MaxArchiveBytes:    int64(envInt("MAX_ARCHIVE_BYTES", 100*1024*1024)),
		InspectTimeout:     envDuration("INSPECT_TIMEOUT", 30*time.Second),
		SessionIdleTTL:     envDuration("SESSION_IDLE_TTL", 2*time.Hour),
		HistoryDBDriver:    os.Getenv("HISTORY_DB_DRIVER"),
		HistoryDBDSN:       os.Getenv("HISTORY_DB_DSN"),
		MetricsNamespace:   envOr("METRICS_NAMESPACE", "loader"),
		AuthSecret:         envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),
		AdminUser:          envOr("ADMIN_USER", "admin"),
		AdminPassHash:      envOr("ADMIN_PASS_HASH", "$2y$12$pyZAiWaTfVtM7UElIRStvOC3gNbnp70nmQU4eYopLGBfCJr1DOvji"),
		CORSOriginsOnline:  csvOr("CORS_ORIGINS_ONLINE", "https://loader.mindengage.ai"),
		CORSOriginsOffline: csvOr("CORS_ORIGINS_OFFLINE", "http://localhost:3000,http://localhost:5173"),
	}
}

// CORSOrigins returns the allowed origins for the configured mode.
func (c Config) CORSOrigins() []string {
	if c.Mode == ModeOnline {
		return c.CORSOriginsOnline
	}
	return c.CORSOriginsOffline
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func envInt(k string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(k)); err == nil && v > 0 {
		return v
	}
	return def
}
func envDuration(k string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(k)); err == nil && d > 0 {
		return d
	}
	return def
}
func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
