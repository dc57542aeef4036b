package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

type Config struct {
	ServerPort  string
	DatabaseURL string
	RedisURL    string
	JWTSecret   string
	JWTExpiry   time.Duration

	// Sighting retention policy
	RetentionHorizon time.Duration
	PruneInterval    time.Duration

	// Transfer verification codes
	VerificationCodeTTL time.Duration
}

func LoadConfig() (*Config, error) {
	expiry, err := getDuration("JWT_EXPIRY", "24h")
	if err != nil {
		return nil, errors.New("invalid JWT_EXPIRY format")
	}

	horizon, err := getDuration("RETENTION_HORIZON", "720h")
	if err != nil {
		return nil, errors.New("invalid RETENTION_HORIZON format")
	}

	pruneInterval, err := getDuration("PRUNE_INTERVAL", "1h")
	if err != nil {
		return nil, errors.New("invalid PRUNE_INTERVAL format")
	}

	codeTTL, err := getDuration("VERIFICATION_CODE_TTL", "10m")
	if err != nil {
		return nil, errors.New("invalid VERIFICATION_CODE_TTL format")
	}

	cfg := &Config{
		ServerPort:          getEnv("SERVER_PORT", "8080"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		RedisURL:            os.Getenv("REDIS_URL"),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		JWTExpiry:           expiry,
		RetentionHorizon:    horizon,
		PruneInterval:       pruneInterval,
		VerificationCodeTTL: codeTTL,
	}

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

// ScannerConfig configures the finder-side scan daemon.
type ScannerConfig struct {
	ServerURL     string
	ScanInterval  time.Duration
	DetectTimeout time.Duration
	SpoolPath     string

	// Fixed location of the scanning gateway. A mobile finder would plug in
	// a real positioning source instead.
	Latitude  float64
	Longitude float64
	Accuracy  float64
}

func LoadScannerConfig() (*ScannerConfig, error) {
	interval, err := getDuration("SCAN_INTERVAL", "15s")
	if err != nil {
		return nil, errors.New("invalid SCAN_INTERVAL format")
	}

	detectTimeout, err := getDuration("DETECT_TIMEOUT", "5s")
	if err != nil {
		return nil, errors.New("invalid DETECT_TIMEOUT format")
	}

	lat, err := getFloat("SCANNER_LATITUDE", "0")
	if err != nil {
		return nil, errors.New("invalid SCANNER_LATITUDE format")
	}
	lon, err := getFloat("SCANNER_LONGITUDE", "0")
	if err != nil {
		return nil, errors.New("invalid SCANNER_LONGITUDE format")
	}
	accuracy, err := getFloat("SCANNER_ACCURACY", "50")
	if err != nil {
		return nil, errors.New("invalid SCANNER_ACCURACY format")
	}

	cfg := &ScannerConfig{
		ServerURL:     os.Getenv("SERVER_URL"),
		ScanInterval:  interval,
		DetectTimeout: detectTimeout,
		SpoolPath:     os.Getenv("BEACON_SPOOL_PATH"),
		Latitude:      lat,
		Longitude:     lon,
		Accuracy:      accuracy,
	}

	if cfg.ServerURL == "" {
		return nil, errors.New("SERVER_URL is required")
	}
	if cfg.SpoolPath == "" {
		return nil, errors.New("BEACON_SPOOL_PATH is required")
	}

	return cfg, nil
}

// Helper: get env with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key, defaultValue string) (time.Duration, error) {
	return time.ParseDuration(getEnv(key, defaultValue))
}

func getFloat(key, defaultValue string) (float64, error) {
	return strconv.ParseFloat(getEnv(key, defaultValue), 64)
}
