package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode
	HTTPAddr string

	StoreDriver string // memory|sqlite|postgres|fs|minio
	DBDSN       string

	BlobDriver   string // fs|minio
	BlobBasePath string // for fs

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	AuthSecret string
	SessionTTL time.Duration // 0 = sessions never expire

	AdminUser     string
	AdminPassword string
	AdminPassHash string // bcrypt; wins over AdminPassword when set

	CORSOriginsOnline  []string
	CORSOriginsOffline []string

	ExamTick       time.Duration
	BackupSchedule string // cron spec; empty disables

	LogLevel string
	LogFile  string
}

// CORSOrigins returns the allow-list for the configured mode.
func (c Config) CORSOrigins() []string {
	if c.Mode == ModeOnline {
		return c.CORSOriginsOnline
	}
	return c.CORSOriginsOffline
}

// FromEnv reads the process environment, after loading .env when present.
func FromEnv() Config {
	_ = godotenv.Load()

	mode := Mode(os.Getenv("MODE"))
	if mode == "" {
		mode = ModeOffline
	}
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		Mode:     mode,
		HTTPAddr: addr,

		StoreDriver: envOr("STORE_DRIVER", "sqlite"),
		DBDSN:       envOr("DB_DSN", ""),

		BlobDriver:   envOr("BLOB_DRIVER", "fs"),
		BlobBasePath: envOr("BLOB_BASE_PATH", "./data"),

		MinioEndpoint:  envOr("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    envOr("MINIO_BUCKET", "eduquest"),
		MinioUseSSL:    envBool("MINIO_USE_SSL", mode == ModeOnline),

		AuthSecret: envOr("AUTH_HMAC_SECRET", "dev-secret-change-me"),
		SessionTTL: envDuration("SESSION_TTL", 0),

		AdminUser:     envOr("ADMIN_USER", "1234"),
		AdminPassword: envOr("ADMIN_PASSWORD", "1234"),
		AdminPassHash: os.Getenv("ADMIN_PASS_HASH"),

		CORSOriginsOnline:  csvOr("CORS_ORIGINS_ONLINE", "https://exams.eduquest.app"),
		CORSOriginsOffline: csvOr("CORS_ORIGINS_OFFLINE", "http://localhost:3000,http://localhost:5173"),

		ExamTick:       envDuration("EXAM_TICK", time.Second),
		BackupSchedule: envSetOr("BACKUP_SCHEDULE", "@daily"),

		LogLevel: envOr("LOG_LEVEL", "info"),
		LogFile:  os.Getenv("LOG_FILE"),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

// envSetOr is envOr for keys where an explicitly empty value means "off".
func envSetOr(k, def string) string {
	if v, ok := os.LookupEnv(k); ok {
		return strings.TrimSpace(v)
	}
	return def
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

func envDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return def
	}
	return d
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
