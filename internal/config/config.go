package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"ado-pulse/internal/azdo"
	"ado-pulse/internal/record"
)

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Tracker azdo.Config

	SearchTag    string
	MatchMode    record.MatchMode
	ItemTypes    []string
	ClosedStates record.ClosedStates

	ListenAddr string
	DataPath   string
	LogDir     string
	CacheDir   string
}

// Load loads the configuration from .env files and environment variables.
func Load() (*AppConfig, error) {
	// 1. Try to load from the executable's directory (highest priority when
	// launched outside a development shell).
	exePath, err := os.Executable()
	exeDir := ""
	if err == nil {
		exeDir = filepath.Dir(exePath)
		envPath := filepath.Join(exeDir, ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Debug().Str("path", envPath).Msg("Loaded configuration from binary directory")
		}
	}

	// 2. Fallback to current working directory (useful for development/go run)
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found in working directory, relying on environment variables or binary-relative .env")
	}

	// 3. Resolve data paths
	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		if exeDir != "" {
			dataPath = exeDir
		} else {
			dataPath = "."
		}
	}

	logDir := filepath.Join(dataPath, "logs")
	cacheDir := filepath.Join(dataPath, "cache")

	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.Warn().Err(err).Str("path", logDir).Msg("Failed to create log directory")
	}
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		log.Warn().Err(err).Str("path", cacheDir).Msg("Failed to create cache directory")
	}

	delayMs, _ := strconv.Atoi(getEnv("ADO_REQUEST_DELAY_MS", "500"))

	matchMode, err := record.ParseMatchMode(getEnv("TAG_MATCH_MODE", ""))
	if err != nil {
		return nil, err
	}

	closedStates := record.DefaultClosedStates()
	if raw := getEnv("CLOSED_STATES", ""); raw != "" {
		closedStates = record.NewClosedStates(splitCSV(raw))
	}

	cfg := &AppConfig{
		Tracker: azdo.Config{
			BaseURL:      getEnv("ADO_URL", "https://dev.azure.com"),
			Org:          getEnv("ADO_ORG", ""),
			Project:      getEnv("ADO_PROJECT", ""),
			PAT:          getEnv("ADO_PAT", ""),
			APIVersion:   getEnv("ADO_API_VERSION", "7.0"),
			PlanID:       getEnv("ADO_TEST_PLAN_ID", ""),
			RequestDelay: time.Duration(delayMs) * time.Millisecond,
		},
		SearchTag:    getEnv("SEARCH_TAG", "hackathon"),
		MatchMode:    matchMode,
		ItemTypes:    splitCSV(getEnv("ITEM_TYPES", "")),
		ClosedStates: closedStates,
		ListenAddr:   getEnv("LISTEN_ADDR", ":8080"),
		DataPath:     dataPath,
		LogDir:       logDir,
		CacheDir:     cacheDir,
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
