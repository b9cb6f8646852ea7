package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via config files or the environment.
type AppConfig struct {
	AppPort      string
	JWTSecret    string
	CookieSecure bool
	// Database
	DBDriver    string // mysql | postgres | sqlite
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	AutoMigrate bool
	// Third-party login
	GitHubClientID     string
	GitHubClientSecret string
	GoogleClientID     string
	GoogleClientSecret string
	OAuthRedirectBase  string
	// HTTP
	RateLimitPerMinute int
	AllowedOrigins     []string
	GinMode            string
	GinPath            string
	// Redis for caching/session side state
	RedisHost       string
	RedisPort       int
	RedisDB         int
	RedisPassword   string
	CacheTTLSeconds int
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Registration security
	RegisterCaptchaEnabled     bool
	RegisterMaxPerIPPerDay     int
	RegisterAttemptCooldownSec int
}

// ErrMissingSecret is returned when no JWT secret was configured.
var ErrMissingSecret = errors.New("JWT_SECRET must be set in config or environment")

var (
	cfg    AppConfig
	loaded bool
	mu     sync.RWMutex
)

// DefaultPath lists the config files probed by Load, in order.
var DefaultPath = []string{
	filepath.Join("config", "config.yaml"),
	filepath.Join("config", "config.yml"),
	filepath.Join("config", "config.json"),
}

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	mu.RLock()
	if loaded {
		defer mu.RUnlock()
		return cfg
	}
	mu.RUnlock()

	var path string
	for _, p := range DefaultPath {
		if _, err := os.Stat(p); err == nil {
			path = p
			break
		}
	}
	c, err := LoadFrom(path)
	if err != nil {
		log.Fatal(err)
	}
	Set(c)
	return c
}

// LoadFrom builds a configuration from the given file (may be empty), defaults
// and environment overrides, in that precedence order.
func LoadFrom(path string) (AppConfig, error) {
	var c AppConfig
	if path != "" {
		if err := loadFileConfig(path, &c); err != nil {
			return AppConfig{}, fmt.Errorf("load %s: %w", path, err)
		}
	}
	applyDefaults(&c)
	if err := applyEnvOverrides(&c); err != nil {
		return AppConfig{}, err
	}
	if c.JWTSecret == "" {
		return AppConfig{}, ErrMissingSecret
	}
	return c, nil
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	mu.RLock()
	if loaded {
		defer mu.RUnlock()
		return cfg
	}
	mu.RUnlock()
	return Load()
}

// Set replaces the cached configuration.
func Set(c AppConfig) {
	mu.Lock()
	cfg = c
	loaded = true
	mu.Unlock()
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadFileConfig reads a grouped YAML or JSON file into out. A missing file is not an error.
func loadFileConfig(path string, out *AppConfig) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	var raw map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &raw)
	default:
		err = json.Unmarshal(b, &raw)
	}
	if err != nil {
		return err
	}

	if app, ok := section(raw, "app"); ok {
		out.AppPort = getString(app, "AppPort")
		out.JWTSecret = getString(app, "JWTSecret")
		out.CookieSecure = getBool(app, "CookieSecure")
		out.RateLimitPerMinute = getInt(app, "RateLimitPerMinute")
		out.AllowedOrigins = getStringSlice(app, "AllowedOrigins")
		out.CacheTTLSeconds = getInt(app, "CacheTTLSeconds")
	}

	if g, ok := section(raw, "gin"); ok {
		out.GinMode = getString(g, "Mode")
		out.GinPath = getString(g, "LogPath")
	}

	if dbs, ok := section(raw, "database"); ok {
		out.DBDriver = getString(dbs, "Driver")
		out.DatabaseURI = getString(dbs, "DatabaseURI")
		out.DBHost = getString(dbs, "DBHost")
		out.DBPort = getString(dbs, "DBPort")
		out.DBUser = getString(dbs, "DBUser")
		out.DBPassword = getString(dbs, "DBPassword")
		out.DBName = getString(dbs, "DBName")
		out.AutoMigrate = getBool(dbs, "AutoMigrate")
	}

	if rds, ok := section(raw, "redis"); ok {
		out.RedisHost = getString(rds, "RedisHost")
		out.RedisPort = getInt(rds, "RedisPort")
		out.RedisDB = getInt(rds, "RedisDB")
		out.RedisPassword = getString(rds, "RedisPassword")
	}

	if oa, ok := section(raw, "oauth"); ok {
		out.GitHubClientID = getString(oa, "GitHubClientID")
		out.GitHubClientSecret = getString(oa, "GitHubClientSecret")
		out.GoogleClientID = getString(oa, "GoogleClientID")
		out.GoogleClientSecret = getString(oa, "GoogleClientSecret")
		out.OAuthRedirectBase = getString(oa, "RedirectBase")
	}

	if lg, ok := section(raw, "log"); ok {
		out.LogLevel = getString(lg, "Level")
		out.LogPath = getString(lg, "Path")
		out.LogMaxSizeMB = getInt(lg, "MaxSizeMB")
		out.LogMaxBackups = getInt(lg, "MaxBackups")
		out.LogMaxAgeDays = getInt(lg, "MaxAgeDays")
		out.LogCompress = getBool(lg, "Compress")
	}

	if rg, ok := section(raw, "register"); ok {
		out.RegisterCaptchaEnabled = getBool(rg, "CaptchaEnabled")
		out.RegisterMaxPerIPPerDay = getInt(rg, "MaxPerIPPerDay")
		out.RegisterAttemptCooldownSec = getInt(rg, "AttemptCooldownSec")
	}

	return nil
}

func section(raw map[string]any, key string) (map[string]any, bool) {
	m, ok := raw[key].(map[string]any)
	return m, ok
}

func getString(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

// JSON numbers decode as float64, YAML ones as int.
func getInt(m map[string]any, key string) int {
	switch t := m[key].(type) {
	case float64:
		return int(t)
	case int:
		return t
	case int64:
		return int(t)
	case json.Number:
		i, _ := t.Int64()
		return int(i)
	}
	return 0
}

func getBool(m map[string]any, key string) bool {
	b, _ := m[key].(bool)
	return b
}

func getStringSlice(m map[string]any, key string) []string {
	arr, ok := m[key].([]any)
	if !ok {
		return nil
	}
	res := make([]string, 0, len(arr))
	for _, it := range arr {
		if s, ok := it.(string); ok {
			res = append(res, s)
		}
	}
	return res
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "5000"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/gin.log"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.OAuthRedirectBase == "" {
		c.OAuthRedirectBase = "http://localhost:5000"
	}
	if c.DBDriver == "" {
		c.DBDriver = "mysql"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "aedi"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.CacheTTLSeconds == 0 {
		c.CacheTTLSeconds = 600
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
	if c.RegisterMaxPerIPPerDay == 0 {
		c.RegisterMaxPerIPPerDay = 5
	}
	if c.RegisterAttemptCooldownSec == 0 {
		c.RegisterAttemptCooldownSec = 10
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) error {
	strs := map[string]*string{
		"APP_PORT":                &c.AppPort,
		"JWT_SECRET":              &c.JWTSecret,
		"GIN_MODE":                &c.GinMode,
		"GIN_PATH":                &c.GinPath,
		"DB_DRIVER":               &c.DBDriver,
		"DATABASE_URI":            &c.DatabaseURI,
		"DB_HOST":                 &c.DBHost,
		"DB_PORT":                 &c.DBPort,
		"DB_USER":                 &c.DBUser,
		"DB_PASSWORD":             &c.DBPassword,
		"DB_NAME":                 &c.DBName,
		"GITHUB_CLIENT_ID":        &c.GitHubClientID,
		"GITHUB_CLIENT_SECRET":    &c.GitHubClientSecret,
		"GOOGLE_CLIENT_ID":        &c.GoogleClientID,
		"GOOGLE_CLIENT_SECRET":    &c.GoogleClientSecret,
		"OAUTH_REDIRECT_BASE_URL": &c.OAuthRedirectBase,
		"REDIS_HOST":              &c.RedisHost,
		"REDIS_PASSWORD":          &c.RedisPassword,
		"LOG_LEVEL":               &c.LogLevel,
		"LOG_PATH":                &c.LogPath,
	}
	for key, dst := range strs {
		if v := getEnv(key, ""); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"RATE_LIMIT_PER_MINUTE":         &c.RateLimitPerMinute,
		"REDIS_PORT":                    &c.RedisPort,
		"REDIS_DB":                      &c.RedisDB,
		"CACHE_TTL_SECONDS":             &c.CacheTTLSeconds,
		"LOG_MAX_SIZE_MB":               &c.LogMaxSizeMB,
		"LOG_MAX_BACKUPS":               &c.LogMaxBackups,
		"LOG_MAX_AGE_DAYS":              &c.LogMaxAgeDays,
		"REGISTER_MAX_PER_IP_PER_DAY":   &c.RegisterMaxPerIPPerDay,
		"REGISTER_ATTEMPT_COOLDOWN_SEC": &c.RegisterAttemptCooldownSec,
	}
	for key, dst := range ints {
		if v := getEnv(key, ""); v != "" {
			i, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid integer value %s=%s: %w", key, v, err)
			}
			*dst = i
		}
	}

	bools := map[string]*bool{
		"COOKIE_SECURE":            &c.CookieSecure,
		"DB_AUTO_MIGRATE":          &c.AutoMigrate,
		"LOG_COMPRESS":             &c.LogCompress,
		"REGISTER_CAPTCHA_ENABLED": &c.RegisterCaptchaEnabled,
	}
	for key, dst := range bools {
		if v := getEnv(key, ""); v != "" {
			*dst = v == "true"
		}
	}

	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = splitAndTrim(v)
	}
	return nil
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
