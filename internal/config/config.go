// Package config loads process configuration for the activity service.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

// DefaultOfflineEndpoint is the DynamoDB Local endpoint used in offline mode.
const DefaultOfflineEndpoint = "http://localhost:8000"

// Errors returned by Load when required settings are absent.
var (
	ErrMissingTableName     = errors.New("TABLE_NAME is not set")
	ErrMissingActivityTypes = errors.New("ACTIVITY_TYPES is not set")
)

// Config holds settings read once at startup. It is read-only afterwards.
type Config struct {
	TableName        string
	ActivityTypes    []string
	EventsQueueURL   string
	MaskStoreErrors  bool
	ReadAfterWrite   bool
	Offline          bool
	DynamoDBEndpoint string
	HTTPAddress      string
	CreateTable      bool
}

// Load reads the environment into a Config.
func Load() (*Config, error) {
	cfg := &Config{
		TableName:        strings.TrimSpace(os.Getenv("TABLE_NAME")),
		ActivityTypes:    splitAndTrim(os.Getenv("ACTIVITY_TYPES")),
		EventsQueueURL:   os.Getenv("ACTIVITY_EVENTS_QUEUE_URL"),
		MaskStoreErrors:  getBoolEnv("MASK_STORE_ERRORS", false),
		ReadAfterWrite:   getBoolEnv("READ_AFTER_WRITE", true),
		Offline:          getBoolEnv("IS_OFFLINE", false),
		DynamoDBEndpoint: os.Getenv("DYNAMODB_ENDPOINT"),
		HTTPAddress:      getEnv("HTTP_ADDRESS", ":4000"),
		CreateTable:      getBoolEnv("CREATE_TABLE", false),
	}

	if cfg.TableName == "" {
		return nil, ErrMissingTableName
	}
	if len(cfg.ActivityTypes) == 0 {
		return nil, ErrMissingActivityTypes
	}
	if cfg.Offline && cfg.DynamoDBEndpoint == "" {
		cfg.DynamoDBEndpoint = DefaultOfflineEndpoint
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
