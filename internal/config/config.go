package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tributai/tributai-migrate/internal/schema"
)

const (
	CurrentVersion = 1
	DefaultPath    = "~/.tributai/migrate.yaml"
	AppName        = "tributai-migrate"
)

// Config is the top-level configuration.
type Config struct {
	Version   int             `yaml:"version"`
	Source    SourceConfig    `yaml:"source"`
	Target    TargetConfig    `yaml:"target"`
	Migration MigrationConfig `yaml:"migration,omitempty"`
	Logging   LogConfig       `yaml:"logging,omitempty"`
}

// SourceConfig defines the PostgreSQL source connection.
type SourceConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Database       string `yaml:"database"`
	Schema         string `yaml:"schema,omitempty"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	SSLMode        string `yaml:"ssl_mode,omitempty"`        // disable, require, verify-full
	MaxConnections int    `yaml:"max_connections,omitempty"` // default 5
}

// TargetConfig defines the SQL Server destination connection.
type TargetConfig struct {
	Host                   string `yaml:"host"`
	Port                   int    `yaml:"port"`
	Database               string `yaml:"database"`
	Schema                 string `yaml:"schema,omitempty"`
	Username               string `yaml:"username"`
	Password               string `yaml:"password"`
	Encrypt                *bool  `yaml:"encrypt,omitempty"`
	TrustServerCertificate bool   `yaml:"trust_server_certificate,omitempty"`
	MaxConnections         int    `yaml:"max_connections,omitempty"` // default 10, max 50
}

// MigrationConfig controls the window loop.
type MigrationConfig struct {
	BatchSize            int               `yaml:"batch_size,omitempty"`
	OrderByKey           *bool             `yaml:"order_by_key,omitempty"`
	Truncate             bool              `yaml:"truncate,omitempty"`
	TransactionalBatches bool              `yaml:"transactional_batches,omitempty"`
	Tables               []string          `yaml:"tables,omitempty"`
	TypeOverrides        map[string]string `yaml:"type_overrides,omitempty"` // column -> SQL Server type
}

// LogConfig defines logging settings.
type LogConfig struct {
	Level     string `yaml:"level,omitempty"`     // debug, info, warn, error
	Directory string `yaml:"directory,omitempty"` // default ~/.tributai/logs/
}

// Default returns a configuration with every default applied and no
// connection details.
func Default() *Config {
	cfg := &Config{Version: CurrentVersion}
	cfg.applyDefaults()
	return cfg
}

// LoadEnvFile loads KEY=VALUE pairs into the process environment without
// overriding variables that are already set. A missing default .env is not
// an error; an explicitly named file must exist.
func LoadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(".env"); errors.Is(err, os.ErrNotExist) {
			return nil
		}
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

// Load reads the config file, applies PG_* and SQLSERVER_* environment
// overrides, resolves secrets and fills defaults. When path is empty and the
// default file does not exist, the configuration comes from the environment
// alone.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = ExpandHome(DefaultPath)
	}

	cfg := &Config{Version: CurrentVersion}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		cfg = &Config{}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
		if cfg.Version != CurrentVersion {
			return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentVersion)
		}
	case explicit || !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := cfg.resolveSecrets(); err != nil {
		return nil, fmt.Errorf("resolving secrets: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// Save writes the config to the given path.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ExpandHome(DefaultPath)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(path, data, 0o600)
}

func (c *Config) applyEnv() error {
	strs := []struct {
		key string
		dst *string
	}{
		{"PG_HOST", &c.Source.Host},
		{"PG_DATABASE", &c.Source.Database},
		{"PG_USER", &c.Source.Username},
		{"PG_PASSWORD", &c.Source.Password},
		{"PG_SCHEMA", &c.Source.Schema},
		{"PG_SSLMODE", &c.Source.SSLMode},
		{"SQLSERVER_HOST", &c.Target.Host},
		{"SQLSERVER_DATABASE", &c.Target.Database},
		{"SQLSERVER_USER", &c.Target.Username},
		{"SQLSERVER_PASSWORD", &c.Target.Password},
		{"SQLSERVER_SCHEMA", &c.Target.Schema},
	}
	for _, s := range strs {
		if v, ok := os.LookupEnv(s.key); ok && v != "" {
			*s.dst = v
		}
	}

	ports := []struct {
		key string
		dst *int
	}{
		{"PG_PORT", &c.Source.Port},
		{"SQLSERVER_PORT", &c.Target.Port},
	}
	for _, p := range ports {
		v, ok := os.LookupEnv(p.key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: invalid port %q", p.key, v)
		}
		*p.dst = n
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Source.Port == 0 {
		c.Source.Port = 5432
	}
	if c.Source.Schema == "" {
		c.Source.Schema = schema.DefaultSourceSchema
	}
	if c.Source.SSLMode == "" {
		c.Source.SSLMode = "prefer"
	}
	if c.Source.MaxConnections == 0 {
		c.Source.MaxConnections = 5
	}

	if c.Target.Port == 0 {
		c.Target.Port = 1433
	}
	if c.Target.Schema == "" {
		c.Target.Schema = schema.DefaultTargetSchema
	}
	if c.Target.Encrypt == nil {
		on := true
		c.Target.Encrypt = &on
	}
	if c.Target.MaxConnections == 0 {
		c.Target.MaxConnections = 10
	}
	if c.Target.MaxConnections > 50 {
		c.Target.MaxConnections = 50
	}

	if c.Migration.BatchSize == 0 {
		c.Migration.BatchSize = 50
	}
	if c.Migration.OrderByKey == nil {
		on := true
		c.Migration.OrderByKey = &on
	}
	if len(c.Migration.Tables) == 0 {
		c.Migration.Tables = schema.DefaultTableNames()
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Directory == "" {
		c.Logging.Directory = ExpandHome("~/.tributai/logs/")
	}
}

// Validate reports every missing connection detail and invalid setting.
func (c *Config) Validate() error {
	var errs []error
	required := []struct {
		name, val string
	}{
		{"source.host", c.Source.Host},
		{"source.database", c.Source.Database},
		{"source.username", c.Source.Username},
		{"target.host", c.Target.Host},
		{"target.database", c.Target.Database},
		{"target.username", c.Target.Username},
	}
	for _, r := range required {
		if r.val == "" {
			errs = append(errs, fmt.Errorf("%s is required", r.name))
		}
	}
	if c.Migration.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("migration.batch_size must be positive, got %d", c.Migration.BatchSize))
	}
	if _, err := schema.Resolve(c.Migration.Tables, c.Source.Schema, c.Target.Schema); err != nil {
		errs = append(errs, err)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	return errors.Join(errs...)
}

// OrderByKey reports whether source windows are ordered by id_0.
func (c *Config) OrderByKey() bool {
	return c.Migration.OrderByKey == nil || *c.Migration.OrderByKey
}

// ConnString builds a PostgreSQL connection URL.
func (s SourceConfig) ConnString() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(s.Username, s.Password),
		Host:   fmt.Sprintf("%s:%d", s.Host, s.Port),
		Path:   "/" + s.Database,
	}
	q := url.Values{}
	if s.SSLMode != "" {
		q.Set("sslmode", s.SSLMode)
	}
	q.Set("application_name", AppName)
	u.RawQuery = q.Encode()
	return u.String()
}

// ConnString builds a SQL Server connection URL.
func (t TargetConfig) ConnString() string {
	u := url.URL{
		Scheme: "sqlserver",
		User:   url.UserPassword(t.Username, t.Password),
		Host:   fmt.Sprintf("%s:%d", t.Host, t.Port),
	}
	encrypt := t.Encrypt == nil || *t.Encrypt
	q := url.Values{}
	q.Set("database", t.Database)
	q.Set("encrypt", strconv.FormatBool(encrypt))
	q.Set("TrustServerCertificate", strconv.FormatBool(t.TrustServerCertificate))
	q.Set("app name", AppName)
	u.RawQuery = q.Encode()
	return u.String()
}

var secretPattern = regexp.MustCompile(`\$\{(ENV|VAULT|AWS_SM):([^}]+)\}`)

func (c *Config) resolveSecrets() error {
	var err error
	c.Source.Password, err = ResolveValue(c.Source.Password)
	if err != nil {
		return fmt.Errorf("source password: %w", err)
	}
	c.Target.Password, err = ResolveValue(c.Target.Password)
	if err != nil {
		return fmt.Errorf("target password: %w", err)
	}
	return nil
}

// ResolveValue resolves secret references in a string value.
func ResolveValue(val string) (string, error) {
	matches := secretPattern.FindStringSubmatch(val)
	if matches == nil {
		return val, nil
	}

	provider := matches[1]
	ref := matches[2]

	switch provider {
	case "ENV":
		v := os.Getenv(ref)
		if v == "" {
			return "", fmt.Errorf("environment variable %s not set", ref)
		}
		return v, nil
	case "VAULT":
		return resolveVault(ref)
	case "AWS_SM":
		return resolveAWSSecretsManager(ref)
	default:
		return "", fmt.Errorf("unknown secrets provider: %s", provider)
	}
}

// IsSecretRef reports whether val is a secret reference rather than a literal.
func IsSecretRef(val string) bool {
	return secretPattern.MatchString(val)
}

// ExpandHome expands ~ to the user's home directory.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
