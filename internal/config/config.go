// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"sync"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	Cache    CacheConfig
	Storage  StorageConfig
	Drive    DriveConfig
	Pipeline PipelineConfig
	Restock  RestockConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN returns the key=value connection string understood by lib/pq and pgx.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type AppConfig struct {
	// InputSource selects where input tables come from: dir, postgres,
	// storage or drive.
	InputSource string
	InputDir    string
	OutputDir   string
	LogLevel    string
}

type CacheConfig struct {
	Enabled            bool
	RedisURL           string
	RedisHost          string
	RedisPort          string
	RedisPassword      string
	RedisDB            int
	ForecastTTLSeconds int
}

type StorageConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	Prefix    string
}

type DriveConfig struct {
	CredentialsJSON  string
	EventSheetFileID string
	// InputFolderID is the Drive folder holding the input tables when
	// INPUT_SOURCE is drive.
	InputFolderID string
}

// PipelineConfig controls input acquisition.
type PipelineConfig struct {
	Workers             int
	RetryAttempts       int
	RetryBackoffSeconds int
	// SalesExtraDays widens the sales query beyond the long window so event
	// days excluded from it can be replaced by older ones.
	SalesExtraDays int
}

// RestockConfig holds the engine parameters. An empty ReferenceDate means
// today, resolved once when a run starts.
type RestockConfig struct {
	ReferenceDate             string
	LongTermDays              int
	ShortTermDays             int
	IncludeEvents             bool
	SpikeRatio                float64
	StrongVelocityThreshold   float64
	CoverageDays              int
	InventoryLookbackAttempts int
	KeyMode                   string
	Event                     string
}

var (
	once     sync.Once
	instance *Config
)

// Load reads the process configuration once from .env and the environment.
func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		v := viper.GetViper()
		setDefaults(v)
		v.AutomaticEnv()

		instance = FromViper(v)

		ensureDir(instance.App.InputDir)
		ensureDir(instance.App.OutputDir)
	})

	return instance
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("SERVER_READ_TIMEOUT", 30)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 60)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})

	v.SetDefault("DB_ENABLED", false)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "restock")
	v.SetDefault("DB_SSLMODE", "disable")

	v.SetDefault("INPUT_SOURCE", "dir")
	v.SetDefault("INPUT_DIR", "./data/input")
	v.SetDefault("OUTPUT_DIR", "./data/output")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_FORECAST_TTL_SECONDS", 3600)

	v.SetDefault("STORAGE_ENABLED", false)
	v.SetDefault("STORAGE_REGION", "us-east-1")
	v.SetDefault("STORAGE_USE_SSL", true)
	v.SetDefault("STORAGE_PREFIX", "restock")

	v.SetDefault("PIPELINE_WORKERS", 6)
	v.SetDefault("PIPELINE_RETRY_ATTEMPTS", 3)
	v.SetDefault("PIPELINE_RETRY_BACKOFF_SECONDS", 5)
	v.SetDefault("PIPELINE_SALES_EXTRA_DAYS", 90)

	v.SetDefault("REFERENCE_DATE", "")
	v.SetDefault("LONG_TERM_DAYS", 180)
	v.SetDefault("SHORT_TERM_DAYS", 14)
	v.SetDefault("INCLUDE_EVENTS", false)
	v.SetDefault("SPIKE_RATIO", 5.0)
	v.SetDefault("STRONG_VELOCITY_THRESHOLD", 3.0)
	v.SetDefault("COVERAGE_DAYS", 49)
	v.SetDefault("INVENTORY_LOOKBACK_ATTEMPTS", 10)
	v.SetDefault("KEY_MODE", "asin")
	v.SetDefault("EVENT", "")
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Mode:           v.GetString("SERVER_MODE"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: v.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Enabled:  v.GetBool("DB_ENABLED"),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		App: AppConfig{
			InputSource: v.GetString("INPUT_SOURCE"),
			InputDir:    v.GetString("INPUT_DIR"),
			OutputDir:   v.GetString("OUTPUT_DIR"),
			LogLevel:    v.GetString("LOG_LEVEL"),
		},
		Cache: CacheConfig{
			Enabled:            v.GetBool("CACHE_ENABLED"),
			RedisURL:           v.GetString("REDIS_URL"),
			RedisHost:          v.GetString("REDIS_HOST"),
			RedisPort:          v.GetString("REDIS_PORT"),
			RedisPassword:      v.GetString("REDIS_PASSWORD"),
			RedisDB:            v.GetInt("REDIS_DB"),
			ForecastTTLSeconds: v.GetInt("CACHE_FORECAST_TTL_SECONDS"),
		},
		Storage: StorageConfig{
			Enabled:   v.GetBool("STORAGE_ENABLED"),
			Endpoint:  v.GetString("STORAGE_ENDPOINT"),
			AccessKey: v.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: v.GetString("STORAGE_SECRET_KEY"),
			Bucket:    v.GetString("STORAGE_BUCKET"),
			Region:    v.GetString("STORAGE_REGION"),
			UseSSL:    v.GetBool("STORAGE_USE_SSL"),
			Prefix:    v.GetString("STORAGE_PREFIX"),
		},
		Drive: DriveConfig{
			CredentialsJSON:  v.GetString("GOOGLE_DRIVE_CREDENTIALS_JSON"),
			EventSheetFileID: v.GetString("EVENT_SHEET_FILE_ID"),
			InputFolderID:    v.GetString("DRIVE_INPUT_FOLDER_ID"),
		},
		Pipeline: PipelineConfig{
			Workers:             v.GetInt("PIPELINE_WORKERS"),
			RetryAttempts:       v.GetInt("PIPELINE_RETRY_ATTEMPTS"),
			RetryBackoffSeconds: v.GetInt("PIPELINE_RETRY_BACKOFF_SECONDS"),
			SalesExtraDays:      v.GetInt("PIPELINE_SALES_EXTRA_DAYS"),
		},
		Restock: RestockConfig{
			ReferenceDate:             v.GetString("REFERENCE_DATE"),
			LongTermDays:              v.GetInt("LONG_TERM_DAYS"),
			ShortTermDays:             v.GetInt("SHORT_TERM_DAYS"),
			IncludeEvents:             v.GetBool("INCLUDE_EVENTS"),
			SpikeRatio:                v.GetFloat64("SPIKE_RATIO"),
			StrongVelocityThreshold:   v.GetFloat64("STRONG_VELOCITY_THRESHOLD"),
			CoverageDays:              v.GetInt("COVERAGE_DAYS"),
			InventoryLookbackAttempts: v.GetInt("INVENTORY_LOOKBACK_ATTEMPTS"),
			KeyMode:                   v.GetString("KEY_MODE"),
			Event:                     v.GetString("EVENT"),
		},
	}
}

// New returns a Config built from defaults and the current environment,
// without touching the process-wide instance.
func New() *Config {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	return FromViper(v)
}

func ensureDir(dir string) {
	if dir == "" {
		return
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatal().Err(err).Str("dir", dir).Msg("failed to create directory")
		}
	}
}
