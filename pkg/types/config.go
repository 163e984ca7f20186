package types

import "time"

// HTTPConfig holds shared HTTP settings used by every fetch backend.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout (default 30s). Timeouts are
	// recorded as per-researcher failures and never retried in-process.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// RateLimit is the sustained request rate per second for the source.
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit" mapstructure:"rate_limit"`

	// RateLimitRetries bounds the backoff retries on HTTP 429 responses.
	RateLimitRetries int `json:"rate_limit_retries" yaml:"rate_limit_retries" mapstructure:"rate_limit_retries"`
}

// RegistryConfig holds settings for the ORCID registry backend.
type RegistryConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// TokenURL is the OAuth client-credentials endpoint.
	TokenURL string `json:"token_url" yaml:"token_url" mapstructure:"token_url"`

	// APIBaseURL is the public API root (the v3.0 path is appended).
	APIBaseURL string `json:"api_base_url" yaml:"api_base_url" mapstructure:"api_base_url"`

	// ClientID and ClientSecret come from the environment, .env, or .secrets/.
	ClientID     string `json:"-" yaml:"-" mapstructure:"-"`
	ClientSecret string `json:"-" yaml:"-" mapstructure:"-"`
}

// AggregatorBackend selects the secondary publication source.
type AggregatorBackend string

const (
	AggregatorScholar  AggregatorBackend = "scholar"
	AggregatorOpenAlex AggregatorBackend = "openalex"
	AggregatorNone     AggregatorBackend = "none"
)

// AggregatorConfig holds settings for the aggregator backend.
type AggregatorConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Backend selects scholar, openalex, or none.
	Backend AggregatorBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// BaseURL overrides the backend's default endpoint.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// Email is sent to OpenAlex as the mailto parameter for polite pool access.
	Email string `json:"email,omitempty" yaml:"email,omitempty" mapstructure:"email"`

	// MaxPages bounds pagination per researcher.
	MaxPages int `json:"max_pages" yaml:"max_pages" mapstructure:"max_pages"`
}

// MatchConfig tunes cross-source duplicate detection.
type MatchConfig struct {
	// Threshold is the name similarity a fuzzy match must exceed (default 0.7).
	Threshold float64 `json:"threshold" yaml:"threshold" mapstructure:"threshold"`

	// Algorithm is "ratio" (gestalt pattern matching) or "levenshtein".
	Algorithm string `json:"algorithm" yaml:"algorithm" mapstructure:"algorithm"`
}

// CheckpointBackend selects how partial progress is persisted.
type CheckpointBackend string

const (
	CheckpointFile   CheckpointBackend = "file"
	CheckpointSQLite CheckpointBackend = "sqlite"
)

// CheckpointConfig holds settings for the checkpoint store.
type CheckpointConfig struct {
	Backend CheckpointBackend `json:"backend" yaml:"backend" mapstructure:"backend"`
	Path    string            `json:"path" yaml:"path" mapstructure:"path"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	// Level is trace, debug, info, warn, or error.
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is json or console.
	Format string `json:"format" yaml:"format" mapstructure:"format"`

	// File is the log file path. Empty logs to stderr.
	File string `json:"file" yaml:"file" mapstructure:"file"`

	// Rotate moves an existing log file into logs/ before a run starts.
	Rotate bool `json:"rotate" yaml:"rotate" mapstructure:"rotate"`
}

// Config groups all settings for a reconciliation run.
type Config struct {
	// Input is the roster file (CSV or YAML).
	Input string `json:"input" yaml:"input" mapstructure:"input"`

	// Output is the report CSV path.
	Output string `json:"output" yaml:"output" mapstructure:"output"`

	// Summary is the run summary JSON path.
	Summary string `json:"summary" yaml:"summary" mapstructure:"summary"`

	// SplitBySource also writes one report per source beside Output,
	// named output_registry.csv and output_aggregator.csv.
	SplitBySource bool `json:"split_by_source" yaml:"split_by_source" mapstructure:"split_by_source"`

	// MetricsFile, when set, receives Prometheus text-format run metrics.
	MetricsFile string `json:"metrics_file,omitempty" yaml:"metrics_file,omitempty" mapstructure:"metrics_file"`

	// SecretsDir is the directory of plain-text credential files.
	SecretsDir string `json:"secrets_dir" yaml:"secrets_dir" mapstructure:"secrets_dir"`

	// EnvFile is the dotenv file loaded before credentials are read.
	EnvFile string `json:"env_file" yaml:"env_file" mapstructure:"env_file"`

	// Concurrency bounds parallel fetches; merging stays single-writer.
	Concurrency int `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency"`

	Registry   RegistryConfig   `json:"registry" yaml:"registry" mapstructure:"registry"`
	Aggregator AggregatorConfig `json:"aggregator" yaml:"aggregator" mapstructure:"aggregator"`
	Match      MatchConfig      `json:"match" yaml:"match" mapstructure:"match"`
	Checkpoint CheckpointConfig `json:"checkpoint" yaml:"checkpoint" mapstructure:"checkpoint"`
	Log        LogConfig        `json:"log" yaml:"log" mapstructure:"log"`
}

const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "pubrecon/0.1"
	DefaultThreshold = 0.7
)

// DefaultConfig returns a Config with every default filled in.
func DefaultConfig() Config {
	return Config{
		Input:         "input.csv",
		Output:        "output.csv",
		Summary:       "summary.json",
		SplitBySource: true,
		SecretsDir:    ".secrets",
		EnvFile:       ".env",
		Concurrency:   1,
		Registry: RegistryConfig{
			HTTPConfig: HTTPConfig{
				Timeout:          DefaultTimeout,
				UserAgent:        DefaultUserAgent,
				RateLimit:        8,
				RateLimitRetries: 2,
			},
			TokenURL:   "https://orcid.org/oauth/token",
			APIBaseURL: "https://pub.orcid.org",
		},
		Aggregator: AggregatorConfig{
			HTTPConfig: HTTPConfig{
				Timeout:          DefaultTimeout,
				UserAgent:        DefaultUserAgent,
				RateLimit:        0.5,
				RateLimitRetries: 2,
			},
			Backend:  AggregatorScholar,
			MaxPages: 10,
		},
		Match: MatchConfig{
			Threshold: DefaultThreshold,
			Algorithm: "ratio",
		},
		Checkpoint: CheckpointConfig{
			Backend: CheckpointFile,
			Path:    ".pubrecon/checkpoint.json",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
			File:   "pubrecon.log",
			Rotate: true,
		},
	}
}
