// Package config provides configuration loading and management for the sync server.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stacklok/fitness-sync-server/internal/telemetry"
)

const (
	// StorageTypeFile keeps users and calendar entries in JSON files under the data directory
	StorageTypeFile = "file"

	// StorageTypeDatabase keeps users, calendar entries and locks in PostgreSQL
	StorageTypeDatabase = "database"
)

const (
	// SnapshotTypeFile writes debug snapshots to the local temp directory
	SnapshotTypeFile = "file"

	// SnapshotTypeS3 uploads debug snapshots to an S3 bucket
	SnapshotTypeS3 = "s3"

	// SnapshotTypeNone disables debug snapshots
	SnapshotTypeNone = "none"
)

const (
	// DefaultBaseURL is the Fitbit Web API root
	DefaultBaseURL = "https://api.fitbit.com"

	// DefaultTokenURL is the Fitbit OAuth2 token endpoint
	DefaultTokenURL = "https://api.fitbit.com/oauth2/token"

	// DefaultUpstreamTimeout bounds a single upstream request
	DefaultUpstreamTimeout = 30 * time.Second

	// DefaultDataDir is where file storage keeps its state
	DefaultDataDir = "./data"

	// DefaultSyncInterval is the period between scheduled sync rounds
	DefaultSyncInterval = time.Hour

	// DefaultLockTTL is how long a per-user sync lock survives without release
	DefaultLockTTL = 600 * time.Second

	// DefaultLookbackDays caps how far back the sync window reaches
	DefaultLookbackDays = 90

	// DefaultWorkers is the calendar writer pool width
	DefaultWorkers = 10

	// DefaultMaxAttempts is the number of attempts per sync run
	DefaultMaxAttempts = 3

	// DefaultRetryDelay is the pause between sync attempts
	DefaultRetryDelay = 60 * time.Second

	// DefaultEventsTopic is the Kafka topic sync outcomes are published to
	DefaultEventsTopic = "fitness-sync.outcomes"

	// EnvPrefix prefixes every environment variable read by the server
	EnvPrefix = "FITSYNC"

	// DatabasePasswordEnv is the environment variable consulted when no password file is set
	DatabasePasswordEnv = "FITSYNC_DATABASE_PASSWORD"

	// ClientSecretEnv is the environment variable consulted when no client secret file is set
	ClientSecretEnv = "FITSYNC_CLIENT_SECRET"
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	Upstream  UpstreamConfig    `yaml:"upstream"`
	Database  *DatabaseConfig   `yaml:"database,omitempty"`
	Storage   StorageConfig     `yaml:"storage"`
	Sync      SyncConfig        `yaml:"sync"`
	Snapshot  SnapshotConfig    `yaml:"snapshot"`
	Events    EventsConfig      `yaml:"events"`
	Telemetry *telemetry.Config `yaml:"telemetry,omitempty"`
}

// UpstreamConfig defines how the fitness API is reached
type UpstreamConfig struct {
	// BaseURL is the API root, without a trailing slash
	BaseURL string `yaml:"baseURL,omitempty"`

	// TokenURL is the OAuth2 token endpoint used to refresh user tokens
	TokenURL string `yaml:"tokenURL,omitempty"`

	// ClientID is the OAuth2 application client ID
	ClientID string `yaml:"clientID"`

	// ClientSecretFile is the path to a file holding the OAuth2 client secret
	ClientSecretFile string `yaml:"clientSecretFile,omitempty"`

	// Timeout bounds a single upstream request (e.g., "30s")
	Timeout string `yaml:"timeout,omitempty"`
}

// StorageConfig selects where users and calendar entries are kept
type StorageConfig struct {
	// Type is either "file" or "database"
	Type string `yaml:"type,omitempty"`

	// DataDir is the directory used by file storage
	DataDir string `yaml:"dataDir,omitempty"`
}

// SyncConfig controls scheduling and the per-run policies
type SyncConfig struct {
	// Interval is the period between scheduled sync rounds (e.g., "1h"). Empty means the default.
	Interval string `yaml:"interval,omitempty"`

	// LockTTL bounds how long a user's sync lock is held without release
	LockTTL string `yaml:"lockTTL,omitempty"`

	// LookbackDays caps how many days before now the sync window reaches
	LookbackDays int `yaml:"lookbackDays,omitempty"`

	// Workers is the number of concurrent calendar writes per phase
	Workers int `yaml:"workers,omitempty"`

	// Retry configures how failed runs are retried
	Retry RetryConfig `yaml:"retry"`
}

// RetryConfig defines the retry policy for sync runs
type RetryConfig struct {
	MaxAttempts int    `yaml:"maxAttempts,omitempty"`
	Delay       string `yaml:"delay,omitempty"`
}

// SnapshotConfig selects where merged statistics snapshots are written
type SnapshotConfig struct {
	// Type is one of "file", "s3" or "none"
	Type string `yaml:"type,omitempty"`

	// Dir overrides the directory used by the file snapshot sink
	Dir string `yaml:"dir,omitempty"`

	// Bucket is the S3 bucket used by the s3 snapshot sink
	Bucket string `yaml:"bucket,omitempty"`

	// Prefix is prepended to S3 object keys
	Prefix string `yaml:"prefix,omitempty"`

	// Region overrides the AWS region resolved from the environment. "detect"
	// reads it from the EC2 instance metadata service.
	Region string `yaml:"region,omitempty"`
}

// EventsConfig configures publishing of sync outcome events
type EventsConfig struct {
	// Brokers lists Kafka bootstrap servers. Empty disables publishing.
	Brokers []string `yaml:"brokers,omitempty"`

	// Topic is the destination topic
	Topic string `yaml:"topic,omitempty"`
}

// DatabaseConfig defines database connection settings
type DatabaseConfig struct {
	// Host is the database server hostname or IP address
	Host string `yaml:"host"`

	// Port is the database server port
	Port int `yaml:"port"`

	// User is the database username
	User string `yaml:"user"`

	// PasswordFile is the path to a file containing the database password
	// The file should contain only the password with optional trailing whitespace
	PasswordFile string `yaml:"passwordFile,omitempty"`

	// Database is the database name
	Database string `yaml:"database"`

	// SSLMode is the SSL mode for the connection (disable, require, verify-ca, verify-full)
	SSLMode string `yaml:"sslMode,omitempty"`

	// MaxOpenConns is the maximum number of open connections to the database
	MaxOpenConns int32 `yaml:"maxOpenConns,omitempty"`

	// MaxIdleConns is the maximum number of idle connections in the pool
	MaxIdleConns int32 `yaml:"maxIdleConns,omitempty"`

	// ConnMaxLifetime is the maximum lifetime of a connection (e.g., "1h", "30m")
	ConnMaxLifetime string `yaml:"connMaxLifetime,omitempty"`
}

// GetPassword returns the database password using the following priority:
// 1. Read from PasswordFile if specified
// 2. Read from FITSYNC_DATABASE_PASSWORD environment variable
func (d *DatabaseConfig) GetPassword() (string, error) {
	if d.PasswordFile != "" {
		return readSecretFile(d.PasswordFile)
	}

	if envPassword := os.Getenv(DatabasePasswordEnv); envPassword != "" {
		return envPassword, nil
	}

	return "", fmt.Errorf(
		"no database password configured: set passwordFile or %s environment variable", DatabasePasswordEnv,
	)
}

// GetConnectionString builds a PostgreSQL connection string with proper password handling.
// The password is URL-escaped to handle special characters safely.
func (d *DatabaseConfig) GetConnectionString() (string, error) {
	password, err := d.GetPassword()
	if err != nil {
		return "", err
	}

	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}

	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User,
		url.QueryEscape(password),
		d.Host,
		d.Port,
		d.Database,
		sslMode,
	)

	return connString, nil
}

// GetClientSecret returns the OAuth2 client secret from ClientSecretFile or
// the FITSYNC_CLIENT_SECRET environment variable
func (u *UpstreamConfig) GetClientSecret() (string, error) {
	if u.ClientSecretFile != "" {
		return readSecretFile(u.ClientSecretFile)
	}
	if env := os.Getenv(ClientSecretEnv); env != "" {
		return env, nil
	}
	return "", fmt.Errorf("no client secret configured: set clientSecretFile or %s environment variable", ClientSecretEnv)
}

func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("failed to read secret from file %s: %w", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// LoadConfig loads and parses configuration from a YAML file
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	var errs []error
	if err := validateUpstream(&c.Upstream); err != nil {
		errs = append(errs, err)
	}
	if err := c.validateStorage(); err != nil {
		errs = append(errs, err)
	}
	if err := validateSync(&c.Sync); err != nil {
		errs = append(errs, err)
	}
	if err := validateSnapshot(&c.Snapshot); err != nil {
		errs = append(errs, err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("telemetry: %w", err))
	}
	return errors.Join(errs...)
}

func validateUpstream(u *UpstreamConfig) error {
	if u.ClientID == "" {
		return fmt.Errorf("upstream.clientID is required")
	}
	for name, raw := range map[string]string{"baseURL": u.BaseURL, "tokenURL": u.TokenURL} {
		if raw == "" {
			continue
		}
		parsed, err := url.Parse(raw)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("upstream.%s must be an absolute URL, got %q", name, raw)
		}
	}
	if err := validateDuration(u.Timeout, "upstream.timeout"); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.GetStorageType() {
	case StorageTypeFile:
		return nil
	case StorageTypeDatabase:
		if c.Database == nil {
			return fmt.Errorf("storage.type is %s but no database section is configured", StorageTypeDatabase)
		}
		if c.Database.Host == "" || c.Database.Database == "" {
			return fmt.Errorf("database.host and database.database are required")
		}
		return nil
	default:
		return fmt.Errorf("storage.type must be %s or %s, got %s", StorageTypeFile, StorageTypeDatabase, c.Storage.Type)
	}
}

func validateSync(s *SyncConfig) error {
	if err := validateDuration(s.Interval, "sync.interval"); err != nil {
		return err
	}
	if err := validateDuration(s.LockTTL, "sync.lockTTL"); err != nil {
		return err
	}
	if err := validateDuration(s.Retry.Delay, "sync.retry.delay"); err != nil {
		return err
	}
	if s.LookbackDays < 0 {
		return fmt.Errorf("sync.lookbackDays must not be negative")
	}
	if s.Workers < 0 {
		return fmt.Errorf("sync.workers must not be negative")
	}
	if s.Retry.MaxAttempts < 0 {
		return fmt.Errorf("sync.retry.maxAttempts must not be negative")
	}
	return nil
}

func validateSnapshot(s *SnapshotConfig) error {
	switch s.GetType() {
	case SnapshotTypeFile, SnapshotTypeNone:
		return nil
	case SnapshotTypeS3:
		if s.Bucket == "" {
			return fmt.Errorf("snapshot.bucket is required when snapshot.type is %s", SnapshotTypeS3)
		}
		return nil
	default:
		return fmt.Errorf("snapshot.type must be one of %s, %s or %s, got %s",
			SnapshotTypeFile, SnapshotTypeS3, SnapshotTypeNone, s.Type)
	}
}

func validateDuration(value, field string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s must be a valid duration (e.g., '30m', '1h'): %w", field, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be positive", field)
	}
	return nil
}

func durationOr(value string, def time.Duration) time.Duration {
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// GetStorageType returns the storage type, defaulting to file
func (c *Config) GetStorageType() string {
	if c.Storage.Type == "" {
		return StorageTypeFile
	}
	return c.Storage.Type
}

// GetDataDir returns the file storage directory
func (c *Config) GetDataDir() string {
	if c.Storage.DataDir == "" {
		return DefaultDataDir
	}
	return c.Storage.DataDir
}

// GetBaseURL returns the upstream API root without a trailing slash
func (u *UpstreamConfig) GetBaseURL() string {
	if u.BaseURL == "" {
		return DefaultBaseURL
	}
	return strings.TrimRight(u.BaseURL, "/")
}

// GetTokenURL returns the OAuth2 token endpoint
func (u *UpstreamConfig) GetTokenURL() string {
	if u.TokenURL == "" {
		return DefaultTokenURL
	}
	return u.TokenURL
}

// GetTimeout returns the per-request upstream timeout
func (u *UpstreamConfig) GetTimeout() time.Duration {
	return durationOr(u.Timeout, DefaultUpstreamTimeout)
}

// GetInterval returns the scheduled sync period
func (s *SyncConfig) GetInterval() time.Duration {
	return durationOr(s.Interval, DefaultSyncInterval)
}

// GetLockTTL returns the per-user lock lease duration
func (s *SyncConfig) GetLockTTL() time.Duration {
	return durationOr(s.LockTTL, DefaultLockTTL)
}

// GetLookbackDays returns the maximum window length in days
func (s *SyncConfig) GetLookbackDays() int {
	if s.LookbackDays == 0 {
		return DefaultLookbackDays
	}
	return s.LookbackDays
}

// GetWorkers returns the calendar writer pool width
func (s *SyncConfig) GetWorkers() int {
	if s.Workers == 0 {
		return DefaultWorkers
	}
	return s.Workers
}

// GetMaxAttempts returns the number of attempts per sync run
func (r *RetryConfig) GetMaxAttempts() uint {
	if r.MaxAttempts == 0 {
		return DefaultMaxAttempts
	}
	return uint(r.MaxAttempts)
}

// GetDelay returns the pause between attempts
func (r *RetryConfig) GetDelay() time.Duration {
	return durationOr(r.Delay, DefaultRetryDelay)
}

// GetType returns the snapshot sink type, defaulting to file
func (s *SnapshotConfig) GetType() string {
	if s.Type == "" {
		return SnapshotTypeFile
	}
	return s.Type
}

// Enabled reports whether outcome events should be published
func (e *EventsConfig) Enabled() bool {
	return len(e.Brokers) > 0
}

// GetTopic returns the outcome events topic
func (e *EventsConfig) GetTopic() string {
	if e.Topic == "" {
		return DefaultEventsTopic
	}
	return e.Topic
}
