// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(t *testing.T) string
		want   map[string]string
		errMsg string
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "orcid-client-id", "  APP-123  \n")
				writeFile(t, dir, "orcid-client-secret", "s3cret")
				writeFile(t, dir, "openalex-email", "user@example.com\n")
				return dir
			},
			want: map[string]string{
				"orcid-client-id":     "APP-123",
				"orcid-client-secret": "s3cret",
				"openalex-email":      "user@example.com",
			},
		},
		{
			name: "returns empty map for nonexistent directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: map[string]string{},
		},
		{
			name: "skips empty files",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "orcid-client-id", "valid-key")
				writeFile(t, dir, "empty-key", "")
				writeFile(t, dir, "whitespace-only", "   \n\t  ")
				return dir
			},
			want: map[string]string{
				"orcid-client-id": "valid-key",
			},
		},
		{
			name: "skips dotfiles",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, ".gitkeep", "")
				writeFile(t, dir, ".hidden-key", "secret")
				writeFile(t, dir, "orcid-client-secret", "real")
				return dir
			},
			want: map[string]string{
				"orcid-client-secret": "real",
			},
		},
		{
			name: "skips subdirectories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "orcid-client-id", "id")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
				return dir
			},
			want: map[string]string{
				"orcid-client-id": "id",
			},
		},
		{
			name: "path is a file",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "plain", "x")
				return filepath.Join(dir, "plain")
			},
			errMsg: "reading secrets directory",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := tt.setup(t)
			got, err := Load(dir)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadUnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("file permissions are not enforced for root")
	}
	dir := t.TempDir()
	writeFile(t, dir, "good-key", "value123")

	badPath := filepath.Join(dir, "bad-key")
	require.NoError(t, os.WriteFile(badPath, []byte("secret"), 0o000))
	t.Cleanup(func() { os.Chmod(badPath, 0o644) })

	got, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "value123", got["good-key"])
	_, hasBad := got["bad-key"]
	assert.False(t, hasBad, "unreadable file should not appear in result")
}

// --- ORCID ---

func TestORCID(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		files   map[string]string
		want    Credentials
		missing []string
	}{
		{
			name: "environment",
			env:  map[string]string{EnvClientID: "env-id", EnvClientSecret: "env-secret"},
			want: Credentials{ClientID: "env-id", ClientSecret: "env-secret"},
		},
		{
			name:  "files",
			files: map[string]string{KeyClientID: "file-id", KeyClientSecret: "file-secret"},
			want:  Credentials{ClientID: "file-id", ClientSecret: "file-secret"},
		},
		{
			name:  "environment wins over files",
			env:   map[string]string{EnvClientID: "env-id"},
			files: map[string]string{KeyClientID: "file-id", KeyClientSecret: "file-secret"},
			want:  Credentials{ClientID: "env-id", ClientSecret: "file-secret"},
		},
		{
			name:    "nothing configured",
			missing: []string{EnvClientID, EnvClientSecret},
		},
		{
			name:    "secret missing",
			env:     map[string]string{EnvClientID: "env-id"},
			missing: []string{EnvClientSecret},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvClientID, "")
			t.Setenv(EnvClientSecret, "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			dir := t.TempDir()
			for k, v := range tt.files {
				writeFile(t, dir, k, v)
			}

			got, err := ORCID(dir)
			if tt.missing != nil {
				require.Error(t, err)
				assert.True(t, IsConfiguration(err))
				var ce *ConfigurationError
				require.ErrorAs(t, err, &ce)
				assert.Equal(t, tt.missing, ce.Missing)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// --- LoadEnvFile ---

func TestLoadEnvFile(t *testing.T) {
	t.Setenv(EnvClientID, "")
	t.Setenv(EnvClientSecret, "already-set")
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	writeFile(t, dir, ".env", EnvClientID+"=from-dotenv\n"+EnvClientSecret+"=from-dotenv\n")

	require.NoError(t, LoadEnvFile(path))
	// godotenv does not override variables that exist, even when empty.
	assert.Equal(t, "already-set", os.Getenv(EnvClientSecret))
}

func TestLoadEnvFileSetsUnsetVariables(t *testing.T) {
	const key = "PUBRECON_TEST_DOTENV_VALUE"
	t.Setenv(key, "")
	os.Unsetenv(key)
	dir := t.TempDir()
	writeFile(t, dir, ".env", key+"=hello\n")

	require.NoError(t, LoadEnvFile(filepath.Join(dir, ".env")))
	assert.Equal(t, "hello", os.Getenv(key))
}

func TestLoadEnvFileMissing(t *testing.T) {
	assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), ".env")))
	assert.NoError(t, LoadEnvFile(""))
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
