package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	// ArtifactPolicyManifest leaves the decision to each artifact's
	// on_failure setting. The other two override it for every artifact.
	ArtifactPolicyManifest = "manifest"
	ArtifactPolicyAbort    = "abort"
	ArtifactPolicyContinue = "continue"

	VerifyModePoll  = "poll"
	VerifyModeSleep = "sleep"
)

// Config holds every knob of the bootstrap. The defaults are the values the
// instance user-data has always used, so a bare `bootstrap run` needs no
// environment.
type Config struct {
	LogFile      string `env:"BOOTSTRAP_LOG_FILE" envDefault:"/var/log/user-data.log"`
	ManifestPath string `env:"MANIFEST_PATH"`
	AppDir       string `env:"APP_DIR" envDefault:"/home/ec2-user/app"`
	VenvDir      string `env:"VENV_DIR"`
	Python       string `env:"PYTHON_BIN" envDefault:"python3"`

	PackageManager string `env:"PACKAGE_MANAGER" envDefault:"yum"`

	S3Bucket          string `env:"S3_BUCKET" envDefault:"student-performance-app-files"`
	S3Region          string `env:"AWS_REGION" envDefault:"us-east-1"`
	S3EndpointURL     string `env:"S3_ENDPOINT_URL"`
	S3AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	S3Anonymous       bool   `env:"S3_ANONYMOUS" envDefault:"false"`
	LocalArtifactDir  string `env:"LOCAL_ARTIFACT_DIR"`

	FetchAttempts          int           `env:"FETCH_ATTEMPTS" envDefault:"3"`
	FetchDelay             time.Duration `env:"FETCH_DELAY" envDefault:"5s"`
	ArtifactFailurePolicy  string        `env:"ARTIFACT_FAILURE_POLICY" envDefault:"manifest"`
	VerifyArtifacts        bool          `env:"VERIFY_ARTIFACTS" envDefault:"true"`
	ShowDownloadProgress   bool          `env:"SHOW_DOWNLOAD_PROGRESS" envDefault:"true"`
	ServiceName            string        `env:"SERVICE_NAME" envDefault:"streamlit"`
	ServiceUser            string        `env:"SERVICE_USER" envDefault:"root"`
	UnitDir                string        `env:"UNIT_DIR" envDefault:"/etc/systemd/system"`
	SystemdBackend         string        `env:"SYSTEMD_BACKEND" envDefault:"systemctl"`
	EntryPoint             string        `env:"ENTRY_POINT" envDefault:"app.py"`
	ListenAddress          string        `env:"LISTEN_ADDRESS" envDefault:"0.0.0.0"`
	Port                   int           `env:"PORT" envDefault:"8501"`
	EnableCORS             bool          `env:"ENABLE_CORS" envDefault:"false"`
	StartDelay             time.Duration `env:"START_DELAY" envDefault:"10s"`
	RestartDelay           time.Duration `env:"RESTART_DELAY" envDefault:"10s"`
	VerifyMode             string        `env:"VERIFY_MODE" envDefault:"poll"`
	SettleDelay            time.Duration `env:"SETTLE_DELAY" envDefault:"30s"`
	ReadinessPath          string        `env:"READINESS_PATH" envDefault:"/_stcore/health"`
	ReadinessInterval      time.Duration `env:"READINESS_INTERVAL" envDefault:"2s"`
	ReadinessTimeout       time.Duration `env:"READINESS_TIMEOUT" envDefault:"2m"`
	RunTimeout             time.Duration `env:"RUN_TIMEOUT" envDefault:"0s"`
	LedgerDSN              string        `env:"LEDGER_DSN" envDefault:"/var/lib/dashboard-bootstrap/ledger.db"`
	RabbitMQURL            string        `env:"RABBITMQ_URL"`
	LedgerAPIPort          int           `env:"LEDGER_API_PORT" envDefault:"8502"`
	LedgerAPIAllowedOrigin string        `env:"LEDGER_API_ALLOWED_ORIGIN" envDefault:"*"`
}

func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	return finalize(&cfg)
}

// LoadConfigFrom parses the config from the given environment only, ignoring
// the process environment.
func LoadConfigFrom(environ map[string]string) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	return finalize(&cfg)
}

func finalize(cfg *Config) (*Config, error) {
	if cfg.VenvDir == "" {
		cfg.VenvDir = filepath.Join(cfg.AppDir, "venv")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.S3EndpointURL != "" && (cfg.S3AccessKeyID == "" || cfg.S3SecretAccessKey == "") {
		slog.Warn("S3_ENDPOINT_URL is set, but AWS_ACCESS_KEY_ID or AWS_SECRET_ACCESS_KEY are missing, using ambient credentials")
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.FetchAttempts < 1 {
		return fmt.Errorf("FETCH_ATTEMPTS must be at least 1, got %d", c.FetchAttempts)
	}
	if c.FetchDelay < 0 {
		return fmt.Errorf("FETCH_DELAY must not be negative")
	}
	switch c.ArtifactFailurePolicy {
	case ArtifactPolicyManifest, ArtifactPolicyAbort, ArtifactPolicyContinue:
	default:
		return fmt.Errorf("invalid ARTIFACT_FAILURE_POLICY '%s', must be '%s', '%s' or '%s'", c.ArtifactFailurePolicy, ArtifactPolicyManifest, ArtifactPolicyAbort, ArtifactPolicyContinue)
	}
	if c.VerifyMode != VerifyModePoll && c.VerifyMode != VerifyModeSleep {
		return fmt.Errorf("invalid VERIFY_MODE '%s', must be '%s' or '%s'", c.VerifyMode, VerifyModePoll, VerifyModeSleep)
	}
	if c.VerifyMode == VerifyModePoll && (c.ReadinessInterval <= 0 || c.ReadinessTimeout <= 0) {
		return fmt.Errorf("READINESS_INTERVAL and READINESS_TIMEOUT must be positive when VERIFY_MODE is '%s', got %s and %s", VerifyModePoll, c.ReadinessInterval, c.ReadinessTimeout)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if !filepath.IsAbs(c.AppDir) {
		return fmt.Errorf("APP_DIR must be an absolute path, got '%s'", c.AppDir)
	}
	if c.SystemdBackend != "systemctl" && c.SystemdBackend != "dbus" {
		return fmt.Errorf("invalid SYSTEMD_BACKEND '%s', must be 'systemctl' or 'dbus'", c.SystemdBackend)
	}
	if c.ServiceName == "" {
		return fmt.Errorf("SERVICE_NAME must not be empty")
	}
	if c.S3Bucket == "" && c.LocalArtifactDir == "" {
		return fmt.Errorf("one of S3_BUCKET or LOCAL_ARTIFACT_DIR must be set")
	}
	return nil
}

func (c *Config) ReadinessURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d%s", c.Port, c.ReadinessPath)
}

func (c *Config) ListenAddr() string {
	return fmt.Sprintf("127.0.0.1:%d", c.Port)
}

// Redacted returns a copy safe to persist or log.
func (c *Config) Redacted() Config {
	out := *c
	if out.S3SecretAccessKey != "" {
		out.S3SecretAccessKey = "REDACTED"
	}
	if out.RabbitMQURL != "" {
		out.RabbitMQURL = redactURL(out.RabbitMQURL)
	}
	if strings.Contains(out.LedgerDSN, "://") {
		out.LedgerDSN = redactURL(out.LedgerDSN)
	}
	return out
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "REDACTED"
	}
	return u.Redacted()
}
