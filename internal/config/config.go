package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/ini.v1"
)

// ProfileFile is the optional ini profile read from the working directory.
const ProfileFile = "bdspedit.ini"

type Config struct {
	WorkDir      string
	MinLevel     int
	MaxLevel     int
	PreviewLimit int
	WorkerCount  int
	LRUSize      int
	LogLevel     string

	OutputDir  string
	ExportMode string

	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3UseSSL    bool
	S3Prefix    string
}

// defaults returns the built-in settings.
func defaults() *Config {
	return &Config{
		MinLevel:     1,
		MaxLevel:     100,
		PreviewLimit: 50,
		WorkerCount:  4,
		LRUSize:      64,
		LogLevel:     "info",
		ExportMode:   "single",
		S3Region:     "us-east-1",
		S3UseSSL:     true,
	}
}

// Load builds the configuration from defaults, then the ini profile, then
// the environment (a .env file is loaded first if present).
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}
	cfg := defaults()
	if err := cfg.applyProfile(ProfileFile); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("file", ProfileFile).Msg("Ignoring unreadable profile")
	}
	cfg.applyEnv()
	return cfg
}

// LoadProfile is Load with an explicit profile path.
func LoadProfile(path string) (*Config, error) {
	_ = godotenv.Load()
	cfg := defaults()
	if err := cfg.applyProfile(path); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyProfile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	f, err := ini.Load(path)
	if err != nil {
		return err
	}

	levels := f.Section("levels")
	c.MinLevel = levels.Key("min").MustInt(c.MinLevel)
	c.MaxLevel = levels.Key("max").MustInt(c.MaxLevel)
	c.PreviewLimit = levels.Key("preview_limit").MustInt(c.PreviewLimit)

	export := f.Section("export")
	c.OutputDir = export.Key("output_dir").MustString(c.OutputDir)
	c.ExportMode = export.Key("mode").In(c.ExportMode, []string{"single", "romfs"})

	s3 := f.Section("s3")
	c.S3Endpoint = s3.Key("endpoint").MustString(c.S3Endpoint)
	c.S3Region = s3.Key("region").MustString(c.S3Region)
	c.S3Bucket = s3.Key("bucket").MustString(c.S3Bucket)
	c.S3Prefix = s3.Key("prefix").MustString(c.S3Prefix)
	c.S3UseSSL = s3.Key("use_ssl").MustBool(c.S3UseSSL)
	return nil
}

func (c *Config) applyEnv() {
	c.WorkDir = getEnv("BDSP_WORK_DIR", c.WorkDir)
	c.MinLevel = getEnvInt("BDSP_MIN_LEVEL", c.MinLevel)
	c.MaxLevel = getEnvInt("BDSP_MAX_LEVEL", c.MaxLevel)
	c.PreviewLimit = getEnvInt("BDSP_PREVIEW_LIMIT", c.PreviewLimit)
	c.WorkerCount = getEnvInt("BDSP_WORKER_COUNT", c.WorkerCount)
	c.LRUSize = getEnvInt("BDSP_LRU_SIZE", c.LRUSize)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.OutputDir = getEnv("BDSP_OUTPUT_DIR", c.OutputDir)
	c.ExportMode = getEnv("BDSP_EXPORT_MODE", c.ExportMode)

	c.S3Endpoint = getEnv("BDSP_S3_ENDPOINT", c.S3Endpoint)
	c.S3Region = getEnv("BDSP_S3_REGION", c.S3Region)
	c.S3Bucket = getEnv("BDSP_S3_BUCKET", c.S3Bucket)
	c.S3AccessKey = getEnv("BDSP_S3_ACCESS_KEY", c.S3AccessKey)
	c.S3SecretKey = getEnv("BDSP_S3_SECRET_KEY", c.S3SecretKey)
	c.S3UseSSL = getEnvBool("BDSP_S3_USE_SSL", c.S3UseSSL)
	c.S3Prefix = getEnv("BDSP_S3_PREFIX", c.S3Prefix)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
