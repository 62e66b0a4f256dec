package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// AppConfig holds environment driven configuration values.
// Secrets have no defaults in code and must come from config/config.json, a .env file or the environment.
type AppConfig struct {
	AppPort            string   `env:"APP_PORT"`
	RateLimitPerMinute int      `env:"RATE_LIMIT_PER_MINUTE"`
	AllowedOrigins     []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	// Gin framework configuration
	GinMode string `env:"GIN_MODE"`
	GinPath string `env:"GIN_PATH"`
	// Database
	DBDriver    string `env:"DB_DRIVER"`
	DatabaseURI string `env:"DATABASE_URL"`
	DBHost      string `env:"DB_HOST"`
	DBPort      string `env:"DB_PORT"`
	DBUser      string `env:"DB_USER"`
	DBPassword  string `env:"DB_PASSWORD"`
	DBName      string `env:"DB_NAME"`
	// Redis backs the per-author post limiter
	RedisHost     string `env:"REDIS_HOST"`
	RedisPort     int    `env:"REDIS_PORT"`
	RedisDB       int    `env:"REDIS_DB"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	// Clerk identity provider
	ClerkSecretKey        string `env:"CLERK_SECRET_KEY"`
	ClerkAPIURL           string `env:"CLERK_API_URL"`
	ClerkJWKSURL          string `env:"CLERK_JWKS_URL"`
	ClerkIssuer           string `env:"CLERK_ISSUER"`
	AuthRequiredForWrites bool   `env:"AUTH_REQUIRED_FOR_WRITES"`
	// Post rate limit
	PostRateLimit  int           `env:"POST_RATE_LIMIT"`
	PostRateWindow time.Duration `env:"POST_RATE_WINDOW"`
	// Logging configuration
	LogLevel      string `env:"LOG_LEVEL"`
	LogPath       string `env:"LOG_PATH"`
	LogMaxSizeMB  int    `env:"LOG_MAX_SIZE_MB"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS"`
	LogMaxAgeDays int    `env:"LOG_MAX_AGE_DAYS"`
	LogCompress   bool   `env:"LOG_COMPRESS"`
	// SkipEnvValidation disables Validate, e.g. for container image builds.
	SkipEnvValidation bool `env:"SKIP_ENV_VALIDATION"`
}

// fileConfig mirrors the grouped layout of config/config.json.
type fileConfig struct {
	App struct {
		AppPort               string   `json:"AppPort"`
		RateLimitPerMinute    int      `json:"RateLimitPerMinute"`
		AllowedOrigins        []string `json:"AllowedOrigins"`
		AuthRequiredForWrites bool     `json:"AuthRequiredForWrites"`
	} `json:"app"`
	Gin struct {
		Mode    string `json:"Mode"`
		LogPath string `json:"LogPath"`
	} `json:"gin"`
	Database struct {
		Driver      string `json:"Driver"`
		DatabaseURI string `json:"DatabaseURI"`
		DBHost      string `json:"DBHost"`
		DBPort      string `json:"DBPort"`
		DBUser      string `json:"DBUser"`
		DBPassword  string `json:"DBPassword"`
		DBName      string `json:"DBName"`
	} `json:"database"`
	Redis struct {
		RedisHost     string `json:"RedisHost"`
		RedisPort     int    `json:"RedisPort"`
		RedisDB       int    `json:"RedisDB"`
		RedisPassword string `json:"RedisPassword"`
	} `json:"redis"`
	Clerk struct {
		SecretKey string `json:"SecretKey"`
		APIURL    string `json:"APIURL"`
		JWKSURL   string `json:"JWKSURL"`
		Issuer    string `json:"Issuer"`
	} `json:"clerk"`
	RateLimit struct {
		PostLimit         int `json:"PostLimit"`
		PostWindowSeconds int `json:"PostWindowSeconds"`
	} `json:"ratelimit"`
	Log struct {
		Level      string `json:"Level"`
		Path       string `json:"Path"`
		MaxSizeMB  int    `json:"MaxSizeMB"`
		MaxBackups int    `json:"MaxBackups"`
		MaxAgeDays int    `json:"MaxAgeDays"`
		Compress   bool   `json:"Compress"`
	} `json:"log"`
}

// Load reads configuration with precedence config/config.json -> defaults -> environment.
// A .env file in the working directory is loaded into the environment first when present.
func Load() (AppConfig, error) {
	_ = godotenv.Load()
	return LoadFrom(filepath.Join("config", "config.json"))
}

// LoadFrom is Load with an explicit JSON config path. A missing file is not an error.
func LoadFrom(path string) (AppConfig, error) {
	var cfg AppConfig
	if err := loadJSONConfig(path, &cfg); err != nil {
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}

	applyDefaults(&cfg)

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))

	if cfg.SkipEnvValidation {
		return cfg, nil
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports every missing or invalid setting at once.
func (c AppConfig) Validate() error {
	var errs []error
	if c.ClerkSecretKey == "" {
		errs = append(errs, errors.New("CLERK_SECRET_KEY must be set"))
	}
	if c.DatabaseURI == "" && (c.DBHost == "" || c.DBName == "") {
		errs = append(errs, errors.New("DATABASE_URL or DB_HOST and DB_NAME must be set"))
	}
	switch c.DBDriver {
	case "mysql", "postgres":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER %q is not supported", c.DBDriver))
	}
	if c.RedisHost == "" {
		errs = append(errs, errors.New("REDIS_HOST must be set"))
	}
	if c.PostRateLimit <= 0 {
		errs = append(errs, errors.New("POST_RATE_LIMIT must be positive"))
	}
	if c.PostRateWindow <= 0 {
		errs = append(errs, errors.New("POST_RATE_WINDOW must be positive"))
	}
	return errors.Join(errs...)
}

// loadJSONConfig reads the grouped JSON file into out. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var fc fileConfig
	if err := json.NewDecoder(f).Decode(&fc); err != nil {
		return err
	}

	out.AppPort = fc.App.AppPort
	out.RateLimitPerMinute = fc.App.RateLimitPerMinute
	out.AllowedOrigins = trimList(fc.App.AllowedOrigins)
	out.AuthRequiredForWrites = fc.App.AuthRequiredForWrites

	out.GinMode = fc.Gin.Mode
	out.GinPath = fc.Gin.LogPath

	out.DBDriver = strings.ToLower(fc.Database.Driver)
	out.DatabaseURI = fc.Database.DatabaseURI
	out.DBHost = fc.Database.DBHost
	out.DBPort = fc.Database.DBPort
	out.DBUser = fc.Database.DBUser
	out.DBPassword = fc.Database.DBPassword
	out.DBName = fc.Database.DBName

	out.RedisHost = fc.Redis.RedisHost
	out.RedisPort = fc.Redis.RedisPort
	out.RedisDB = fc.Redis.RedisDB
	out.RedisPassword = fc.Redis.RedisPassword

	out.ClerkSecretKey = fc.Clerk.SecretKey
	out.ClerkAPIURL = fc.Clerk.APIURL
	out.ClerkJWKSURL = fc.Clerk.JWKSURL
	out.ClerkIssuer = fc.Clerk.Issuer

	out.PostRateLimit = fc.RateLimit.PostLimit
	if fc.RateLimit.PostWindowSeconds > 0 {
		out.PostRateWindow = time.Duration(fc.RateLimit.PostWindowSeconds) * time.Second
	}

	out.LogLevel = fc.Log.Level
	out.LogPath = fc.Log.Path
	out.LogMaxSizeMB = fc.Log.MaxSizeMB
	out.LogMaxBackups = fc.Log.MaxBackups
	out.LogMaxAgeDays = fc.Log.MaxAgeDays
	out.LogCompress = fc.Log.Compress
	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 120
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.DBDriver == "" {
		c.DBDriver = "mysql"
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.ClerkAPIURL == "" {
		c.ClerkAPIURL = "https://api.clerk.com/v1"
	}
	if c.PostRateLimit == 0 {
		c.PostRateLimit = 3
	}
	if c.PostRateWindow == 0 {
		c.PostRateWindow = time.Minute
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
}

func trimList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}
