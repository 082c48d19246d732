package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/Wikid82/logwarden/internal/analysis"
	"github.com/Wikid82/logwarden/internal/rules"
)

// ErrNoWatchPaths is reported when the configuration names no file to tail.
// The service still starts so that the HTTP surface and rescans work.
var ErrNoWatchPaths = errors.New("no watch paths configured")

// Config captures process settings sourced from environment variables plus the
// application settings read from the YAML file they point at.
type Config struct {
	Environment  string
	HTTPPort     string
	DatabasePath string
	ConfigFile   string
	LogDir       string
	Debug        bool

	// ConfigFileFound is false when ConfigFile did not exist and defaults were used.
	ConfigFileFound bool
	App             AppConfig
}

type AppConfig struct {
	WatchPaths  []string        `yaml:"watchPaths"`
	ReportEmail string          `yaml:"reportEmail"`
	Alerting    AlertingConfig  `yaml:"alerting"`
	AI          AIConfig        `yaml:"ai"`
	SMTP        SMTPConfig      `yaml:"smtp"`
	Notify      NotifyConfig    `yaml:"notify"`
	Analysis    AnalysisConfig  `yaml:"analysis"`
	Reconcile   ReconcileConfig `yaml:"reconcile"`
}

type AlertingConfig struct {
	Rules []rules.Definition `yaml:"rules"`
}

type AIConfig struct {
	Models []analysis.ModelEntry `yaml:"models"`
}

type SMTPConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	FromAddress string `yaml:"fromAddress"`
	// Encryption is one of none, ssl, starttls.
	Encryption string `yaml:"encryption"`
}

type NotifyConfig struct {
	// URLs are shoutrrr service URLs notified for every alert.
	URLs []string `yaml:"urls"`
}

type AnalysisConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queueSize"`
}

type ReconcileConfig struct {
	Schedule      string        `yaml:"schedule"`
	PendingAge    time.Duration `yaml:"pendingAge"`
	RescanOnStart bool          `yaml:"rescanOnStart"`
	// Rescan also re-reads every active source on each scheduled run.
	Rescan bool `yaml:"rescan"`
}

// DefaultAppConfig is what the service runs with when the file is absent.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		SMTP: SMTPConfig{
			Port:       587,
			Encryption: "starttls",
		},
		Analysis: AnalysisConfig{
			Workers:   4,
			QueueSize: 1024,
		},
		Reconcile: ReconcileConfig{
			Schedule:   "@every 5m",
			PendingAge: 2 * time.Minute,
		},
	}
}

// Load reads env vars and the application file, falling back to defaults so
// the service can boot with zero configuration.
func Load() (Config, error) {
	return LoadFrom("")
}

// LoadFrom is Load with the application file path overridden. An empty path
// keeps LOGWARDEN_CONFIG_FILE or its default.
func LoadFrom(configFile string) (Config, error) {
	debug, _ := strconv.ParseBool(getEnv("LOGWARDEN_DEBUG", "false"))
	cfg := Config{
		Environment:  getEnv("LOGWARDEN_ENV", "development"),
		HTTPPort:     getEnv("LOGWARDEN_HTTP_PORT", "8080"),
		DatabasePath: getEnv("LOGWARDEN_DB_PATH", filepath.Join("data", "logwarden.db")),
		ConfigFile:   getEnv("LOGWARDEN_CONFIG_FILE", filepath.Join("config", "logwarden.yaml")),
		LogDir:       getEnv("LOGWARDEN_LOG_DIR", filepath.Join("data", "logs")),
		Debug:        debug,
	}
	if configFile != "" {
		cfg.ConfigFile = configFile
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
		return Config{}, fmt.Errorf("ensure data directory: %w", err)
	}

	app, err := LoadFile(cfg.ConfigFile)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg.App = DefaultAppConfig()
	case err != nil:
		return Config{}, err
	default:
		cfg.ConfigFileFound = true
		cfg.App = app
	}

	if err := cfg.App.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration %s: %w", cfg.ConfigFile, err)
	}
	return cfg, nil
}

// LoadFile decodes the YAML application file at path on top of the defaults.
// Unknown keys are rejected. A missing file yields an error wrapping
// fs.ErrNotExist.
func LoadFile(path string) (AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return AppConfig{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML application settings on top of the defaults.
func Parse(data []byte) (AppConfig, error) {
	app := DefaultAppConfig()
	if len(bytes.TrimSpace(data)) == 0 {
		return app, nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&app); err != nil {
		return AppConfig{}, fmt.Errorf("decode config: %w", err)
	}
	app.expandSecrets()
	return app, nil
}

// expandSecrets resolves ${ENV} references in credential fields only.
func (a *AppConfig) expandSecrets() {
	for i := range a.AI.Models {
		a.AI.Models[i].Key = os.ExpandEnv(a.AI.Models[i].Key)
	}
	a.SMTP.Username = os.ExpandEnv(a.SMTP.Username)
	a.SMTP.Password = os.ExpandEnv(a.SMTP.Password)
	for i := range a.Notify.URLs {
		a.Notify.URLs[i] = os.ExpandEnv(a.Notify.URLs[i])
	}
}

// Validate rejects settings the pipeline cannot run with.
func (a AppConfig) Validate() error {
	var errs []error
	if a.Analysis.Workers <= 0 {
		errs = append(errs, fmt.Errorf("analysis.workers must be positive, got %d", a.Analysis.Workers))
	}
	if a.Analysis.QueueSize <= 0 {
		errs = append(errs, fmt.Errorf("analysis.queueSize must be positive, got %d", a.Analysis.QueueSize))
	}
	if _, err := rules.Load(a.Alerting.Rules); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(a.SMTP.Encryption) {
	case "", "none", "ssl", "starttls":
	default:
		errs = append(errs, fmt.Errorf("smtp.encryption %q must be none, ssl or starttls", a.SMTP.Encryption))
	}
	if a.SMTP.Host != "" && (a.SMTP.Port <= 0 || a.SMTP.Port > 65535) {
		errs = append(errs, fmt.Errorf("smtp.port %d out of range", a.SMTP.Port))
	}
	if _, err := cron.ParseStandard(a.Reconcile.Schedule); err != nil {
		errs = append(errs, fmt.Errorf("reconcile.schedule %q: %w", a.Reconcile.Schedule, err))
	}
	if a.Reconcile.PendingAge < 0 {
		errs = append(errs, fmt.Errorf("reconcile.pendingAge must not be negative"))
	}
	for i, p := range a.WatchPaths {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, fmt.Errorf("watchPaths[%d] is empty", i))
		}
	}
	return errors.Join(errs...)
}

// Rules compiles the alerting rules.
func (a AppConfig) Rules() (*rules.Evaluator, error) {
	return rules.Load(a.Alerting.Rules)
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return fallback
}
