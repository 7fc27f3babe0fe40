package utils

import (
	"os"
	"strconv"
	"strings"
)

// GetEnv returns the value of key, or the first fallback when it is unset or empty.
func GetEnv(key string, fallback ...string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" && len(fallback) > 0 {
		return fallback[0]
	}
	return value
}

// GetEnvInt parses key as an integer, returning fallback when unset or malformed.
func GetEnvInt(key string, fallback int) int {
	raw := GetEnv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

// GetEnvBool parses key with strconv.ParseBool, returning fallback when unset
// or malformed.
func GetEnvBool(key string, fallback bool) bool {
	raw := GetEnv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}

// CreateFolder creates folderPath and any missing parents.
func CreateFolder(folderPath string) error {
	return os.MkdirAll(folderPath, 0o755)
}
