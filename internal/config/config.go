package config

import (
	"errors"  // For validation errors
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"strings" // For list parsing
	"time"    // For durations

	"github.com/joho/godotenv" // For loading .env files
)

// Config holds the application configuration
type Config struct {
	AppPort   string // Application port
	APIPrefix string // Route prefix, e.g. /v1
	IsProd    bool   // Is production environment

	DBDriver      string // mysql, postgres or sqlite
	DBUser        string // Database user
	DBPassword    string // Database password
	DBHost        string // Database host
	DBPort        string // Database port
	DBName        string // Database name (file path for sqlite)
	DBSSLMode     string // Postgres sslmode
	DBAutoMigrate bool   // Run AutoMigrate on server start

	JWTSecret string        // JWT secret key
	JWTTTL    time.Duration // Access token lifetime

	AdminUsernames []string // Usernames promoted to admin on registration

	RedisAddr string        // Redis server address, empty disables caching
	RedisPass string        // Redis password
	RedisDB   int           // Redis database number
	CacheTTL  time.Duration // TTL for cached province reads

	LoginRatePerMin int // Login attempts allowed per minute per client IP
	LoginBurst      int // Login burst size

	S3Bucket    string        // Receipt bucket, empty disables receipt uploads
	S3Region    string        // S3 region
	S3Endpoint  string        // S3-compatible endpoint (e.g. MinIO)
	S3AccessKey string        // S3 access key
	S3SecretKey string        // S3 secret key
	ReceiptTTL  time.Duration // Presigned upload URL lifetime
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	return &Config{
		AppPort:   getEnv("APP_PORT", "8080"),
		APIPrefix: getEnv("API_PREFIX", "/v1"),
		IsProd:    os.Getenv("IS_PROD") == "true",

		DBDriver:      getEnv("DB_DRIVER", "mysql"),
		DBUser:        os.Getenv("DB_USER"),
		DBPassword:    os.Getenv("DB_PASSWORD"),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        os.Getenv("DB_PORT"),
		DBName:        getEnv("DB_NAME", "travel_tax"),
		DBSSLMode:     getEnv("DB_SSLMODE", "disable"),
		DBAutoMigrate: os.Getenv("DB_AUTO_MIGRATE") == "true",

		JWTSecret: os.Getenv("JWT_SECRET"),
		JWTTTL:    getEnvAsDuration("JWT_TTL", 24*time.Hour),

		AdminUsernames: getEnvAsList("ADMIN_USERNAMES"),

		RedisAddr: os.Getenv("REDIS_ADDR"),
		RedisPass: os.Getenv("REDIS_PASS"),
		RedisDB:   getEnvAsInt("REDIS_DB", 0),
		CacheTTL:  getEnvAsDuration("CACHE_TTL", 60*time.Second),

		LoginRatePerMin: getEnvAsInt("LOGIN_RATE_PER_MIN", 10),
		LoginBurst:      getEnvAsInt("LOGIN_BURST", 5),

		S3Bucket:    os.Getenv("S3_BUCKET"),
		S3Region:    getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),
		ReceiptTTL:  getEnvAsDuration("RECEIPT_UPLOAD_TTL", 15*time.Minute),
	}
}

// Validate reports settings the server cannot start without
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}
	switch c.DBDriver {
	case "mysql", "postgres", "sqlite":
	default:
		return errors.New("DB_DRIVER must be one of mysql, postgres, sqlite")
	}
	if c.JWTTTL <= 0 {
		return errors.New("JWT_TTL must be positive")
	}
	return nil
}

// IsAdminUsername reports whether username is listed in ADMIN_USERNAMES
func (c *Config) IsAdminUsername(username string) bool {
	for _, u := range c.AdminUsernames {
		if strings.EqualFold(u, username) {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
