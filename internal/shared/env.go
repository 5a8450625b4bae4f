package shared

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables that override config file values.
const (
	EnvToken       = "DOWNCIDA_TOKEN"
	EnvTokenExpiry = "DOWNCIDA_TOKEN_EXPIRY"
	EnvAPIURL      = "DOWNCIDA_API_URL"
	EnvJobURL      = "DOWNCIDA_JOB_URL"
	EnvOutputDir   = "DOWNCIDA_OUTPUT_DIR"
)

// LoadDotEnv loads variables from the given .env files into the process environment.
//
// Missing files are skipped. Variables already set in the environment win.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// ApplyEnv overrides config values with any DOWNCIDA_* variables present in the environment.
func ApplyEnv(config *Config) error {
	if v, ok := os.LookupEnv(EnvToken); ok {
		config.Lucida.Token = v
	}
	if v, ok := os.LookupEnv(EnvTokenExpiry); ok && v != "" {
		expiry, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %s must be a unix timestamp: %v", ErrInvalidConfig, EnvTokenExpiry, err)
		}
		config.Lucida.TokenExpiry = expiry
	}
	if v, ok := os.LookupEnv(EnvAPIURL); ok && v != "" {
		config.Lucida.APIURL = v
	}
	if v, ok := os.LookupEnv(EnvJobURL); ok && v != "" {
		config.Lucida.JobURL = v
	}
	if v, ok := os.LookupEnv(EnvOutputDir); ok && v != "" {
		config.Download.OutputDir = v
	}
	return nil
}
