// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads the registry credentials. Values come from the
// process environment first, then a dotenv file, then a directory of
// plain-text files where the filename is the key and the trimmed contents
// are the value.
//
// Supported key files: orcid-client-id, orcid-client-secret, openalex-email.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Environment variables and key file names for the registry credentials.
const (
	EnvClientID     = "ORCID_CLIENT_ID"
	EnvClientSecret = "ORCID_CLIENT_SECRET"

	KeyClientID     = "orcid-client-id"
	KeyClientSecret = "orcid-client-secret"
	KeyOpenAlexMail = "openalex-email"
)

// ConfigurationError reports credentials that could not be found anywhere.
// It is raised before any fetch is attempted.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing credentials: %s (set them in the environment, a .env file, or the secrets directory)",
		strings.Join(e.Missing, ", "))
}

// IsConfiguration reports whether err is or wraps a *ConfigurationError.
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// Credentials are the registry's OAuth client credentials.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are logged and skipped.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn().Err(err).Str("secret", name).Msg("could not read secret")
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// LoadEnvFile loads path into the process environment without overriding
// variables that are already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

// ORCID resolves the registry credentials from the environment and then
// from dir. Both values are required.
func ORCID(dir string) (Credentials, error) {
	files, err := Load(dir)
	if err != nil {
		return Credentials{}, err
	}
	lookup := func(env, key string) string {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return v
		}
		return files[key]
	}

	creds := Credentials{
		ClientID:     lookup(EnvClientID, KeyClientID),
		ClientSecret: lookup(EnvClientSecret, KeyClientSecret),
	}
	var missing []string
	if creds.ClientID == "" {
		missing = append(missing, EnvClientID)
	}
	if creds.ClientSecret == "" {
		missing = append(missing, EnvClientSecret)
	}
	if len(missing) > 0 {
		return Credentials{}, &ConfigurationError{Missing: missing}
	}
	return creds, nil
}
