package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"rbfvault/internal/auth"
	"rbfvault/internal/services/scramble"
)

// Config is read from the environment, optionally seeded by a .env file.
type Config struct {
	DatabaseURL  string
	HTTPPort     string
	LogLevel     string
	JWTSecret    string
	JWTExpiresIn time.Duration

	Rounds  int
	KeyBits int
	Workers int

	SealCipher string
	SealKeyHex string

	MaxUploadBytes int64
	MaxImagePixels int64

	// AdminInitialPassword seeds the default administrator on first start.
	AdminInitialPassword string
}

// Load reads .env when present and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function so tests can avoid the
// process environment.
func FromEnv(getenv func(string) string) (Config, error) {
	c := Config{
		DatabaseURL: getenv("DATABASE_URL"),
		HTTPPort:    orDefault(getenv("HTTP_PORT"), "8080"),
		LogLevel:    orDefault(getenv("LOG_LEVEL"), "info"),
		JWTSecret:   getenv("JWT_SECRET"),
		SealCipher:  strings.ToUpper(orDefault(getenv("SCHEDULE_SEAL_CIPHER"), "AES")),
		SealKeyHex:  getenv("SCHEDULE_SEAL_KEY"),

		AdminInitialPassword: getenv("ADMIN_INITIAL_PASSWORD"),
	}

	var err error
	c.JWTExpiresIn = 24 * time.Hour
	if s := getenv("JWT_EXPIRES_IN"); s != "" {
		if c.JWTExpiresIn, err = time.ParseDuration(s); err != nil {
			return Config{}, fmt.Errorf("JWT_EXPIRES_IN: %w", err)
		}
	}
	if c.Rounds, err = intVar(getenv, "SCRAMBLE_ROUNDS", scramble.DefaultRounds); err != nil {
		return Config{}, err
	}
	if c.Rounds < 0 {
		return Config{}, fmt.Errorf("SCRAMBLE_ROUNDS must be >= 0, got %d", c.Rounds)
	}
	if c.KeyBits, err = intVar(getenv, "SCRAMBLE_KEY_BITS", scramble.DefaultKeyBits); err != nil {
		return Config{}, err
	}
	if c.KeyBits < 8 || c.KeyBits%2 != 0 {
		return Config{}, fmt.Errorf("SCRAMBLE_KEY_BITS must be even and >= 8, got %d", c.KeyBits)
	}
	if c.Workers, err = intVar(getenv, "SCRAMBLE_WORKERS", runtime.GOMAXPROCS(0)); err != nil {
		return Config{}, err
	}
	mb, err := intVar(getenv, "MAX_UPLOAD_MB", 32)
	if err != nil {
		return Config{}, err
	}
	if mb < 1 {
		return Config{}, fmt.Errorf("MAX_UPLOAD_MB must be >= 1, got %d", mb)
	}
	c.MaxUploadBytes = int64(mb) << 20
	mp, err := intVar(getenv, "MAX_IMAGE_MEGAPIXELS", 64)
	if err != nil {
		return Config{}, err
	}
	if mp < 1 {
		return Config{}, fmt.Errorf("MAX_IMAGE_MEGAPIXELS must be >= 1, got %d", mp)
	}
	c.MaxImagePixels = int64(mp) * 1_000_000
	if c.AdminInitialPassword != "" {
		if err := auth.ValidatePassword(c.AdminInitialPassword); err != nil {
			return Config{}, fmt.Errorf("ADMIN_INITIAL_PASSWORD: %w", err)
		}
	}
	return c, nil
}

// EngineOptions maps the scramble settings onto engine options.
func (c Config) EngineOptions() []scramble.Option {
	return []scramble.Option{
		scramble.WithRounds(c.Rounds),
		scramble.WithKeyBits(c.KeyBits),
		scramble.WithWorkers(c.Workers),
	}
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}

func intVar(getenv func(string) string, name string, def int) (int, error) {
	s := strings.TrimSpace(getenv(name))
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return n, nil
}
