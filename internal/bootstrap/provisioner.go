package bootstrap

import (
	"context"
	"dashboard-bootstrap/internal/artifact"
	"dashboard-bootstrap/internal/config"
	"dashboard-bootstrap/internal/manifest"
	"dashboard-bootstrap/internal/pyenv"
	"dashboard-bootstrap/internal/readiness"
	"dashboard-bootstrap/internal/retry"
	"dashboard-bootstrap/internal/storage"
	"dashboard-bootstrap/internal/system"
	"dashboard-bootstrap/internal/systemd"
	"fmt"
	"log/slog"
	"os"

	"github.com/cenkalti/backoff/v4"
)

const (
	StepPackages     = "packages"
	StepWorkspace    = "workspace"
	StepVenv         = "venv"
	StepDependencies = "dependencies"
	StepUnit         = "unit"
	StepActivate     = "activate"
	StepVerify       = "verify"
)

// ArtifactStep names the step that fetches the named artifact.
func ArtifactStep(name string) string {
	return "artifact:" + name
}

// Provisioner turns a bare host into a running dashboard service.
type Provisioner struct {
	cfg      *config.Config
	manifest *manifest.Manifest
	runner   system.Runner
	store    storage.ObjectStore

	probe readiness.Probe
	timer backoff.Timer

	installed systemd.InstallResult
	// changed is set when this run replaced an artifact or the installed
	// requirements, so a running service has to be restarted.
	changed bool
}

func NewProvisioner(cfg *config.Config, m *manifest.Manifest, runner system.Runner, store storage.ObjectStore) *Provisioner {
	return &Provisioner{cfg: cfg, manifest: m, runner: runner, store: store}
}

// WithProbe replaces the readiness probe derived from the config.
func (p *Provisioner) WithProbe(probe readiness.Probe) *Provisioner {
	p.probe = probe
	return p
}

// WithTimer replaces the timer used for retry and readiness waits.
func (p *Provisioner) WithTimer(t backoff.Timer) *Provisioner {
	p.timer = t
	return p
}

// Unit returns the service unit described by the config.
func Unit(cfg *config.Config) systemd.Unit {
	return systemd.StreamlitUnit(systemd.StreamlitParams{
		Name:          cfg.ServiceName,
		User:          cfg.ServiceUser,
		AppDir:        cfg.AppDir,
		VenvDir:       cfg.VenvDir,
		EntryPoint:    cfg.EntryPoint,
		ListenAddress: cfg.ListenAddress,
		Port:          cfg.Port,
		EnableCORS:    cfg.EnableCORS,
		StartDelay:    cfg.StartDelay,
		RestartDelay:  cfg.RestartDelay,
	})
}

// ReadinessProbe probes the dashboard's health endpoint, or only its listener
// when no health path is configured.
func ReadinessProbe(cfg *config.Config) readiness.Probe {
	if cfg.ReadinessPath == "" {
		return readiness.NewTCPProbe(cfg.ListenAddr(), cfg.ReadinessInterval)
	}
	return readiness.NewHTTPProbe(cfg.ReadinessURL(), cfg.ReadinessInterval)
}

// artifactPolicy applies ARTIFACT_FAILURE_POLICY, which overrides the
// manifest's per-artifact setting unless it is left at "manifest".
func (p *Provisioner) artifactPolicy(a artifact.Artifact) Policy {
	switch p.cfg.ArtifactFailurePolicy {
	case config.ArtifactPolicyAbort:
		return Fatal
	case config.ArtifactPolicyContinue:
		return Tolerable
	}
	if a.Required {
		return Fatal
	}
	return Tolerable
}

func (p *Provisioner) Steps() []Step {
	steps := []Step{
		{Name: StepPackages, Policy: Fatal, Run: Once(p.syncPackages)},
		{Name: StepWorkspace, Policy: Fatal, Run: Once(p.createWorkspace)},
	}

	fetcher := p.fetcher()
	for _, a := range artifact.FromManifest(p.manifest, p.cfg.S3Bucket, p.cfg.AppDir) {
		steps = append(steps, Step{Name: ArtifactStep(a.Name), Policy: p.artifactPolicy(a), Run: p.fetchArtifact(fetcher, a)})
	}

	return append(steps,
		Step{Name: StepVenv, Policy: Fatal, Run: Once(p.createVenv)},
		Step{Name: StepDependencies, Policy: Fatal, Run: Once(p.installDependencies)},
		Step{Name: StepUnit, Policy: Fatal, Run: Once(p.installUnit)},
		Step{Name: StepActivate, Policy: Fatal, Run: Once(p.activate)},
		Step{Name: StepVerify, Policy: Tolerable, Run: p.Verify},
	)
}

func (p *Provisioner) syncPackages(ctx context.Context) error {
	pm, err := system.NewPackageManager(p.runner, p.cfg.PackageManager)
	if err != nil {
		return err
	}
	return pm.Sync(ctx, p.manifest.Packages)
}

func (p *Provisioner) createWorkspace(ctx context.Context) error {
	if err := os.MkdirAll(p.cfg.AppDir, 0755); err != nil {
		return fmt.Errorf("error creating app directory %s: %w", p.cfg.AppDir, err)
	}
	slog.Info("workspace ready", "dir", p.cfg.AppDir)
	return nil
}

func (p *Provisioner) fetcher() *artifact.Fetcher {
	retrier := retry.New(retry.Policy{MaxAttempts: p.cfg.FetchAttempts, Delay: p.cfg.FetchDelay})
	if p.timer != nil {
		retrier = retrier.WithTimer(p.timer)
	}
	return artifact.NewFetcher(p.store, retrier, p.cfg.VerifyArtifacts)
}

func (p *Provisioner) fetchArtifact(fetcher *artifact.Fetcher, a artifact.Artifact) StepFunc {
	return func(ctx context.Context) (int, error) {
		res := fetcher.Fetch(ctx, a)
		if res.Changed {
			p.changed = true
		}
		return res.Attempts, res.Err
	}
}

func (p *Provisioner) venv() *pyenv.Env {
	return pyenv.NewEnv(p.runner, p.cfg.Python, p.cfg.VenvDir, p.cfg.AppDir)
}

func (p *Provisioner) createVenv(ctx context.Context) error {
	return p.venv().Create(ctx)
}

func (p *Provisioner) installDependencies(ctx context.Context) error {
	changed, err := p.venv().Install(ctx, p.manifest.Requirements)
	if changed {
		p.changed = true
	}
	return err
}

func (p *Provisioner) manager() (*systemd.Manager, error) {
	controller, err := systemd.NewController(p.cfg.SystemdBackend, p.runner)
	if err != nil {
		return nil, err
	}
	return systemd.NewManager(controller, p.cfg.UnitDir), nil
}

func (p *Provisioner) installUnit(ctx context.Context) error {
	m, err := p.manager()
	if err != nil {
		return err
	}
	installed, err := m.Install(Unit(p.cfg))
	if err != nil {
		return err
	}
	p.installed = installed
	return nil
}

// activate starts the service, or restarts it when it may already be
// running an outdated unit, application or dependency set.
func (p *Provisioner) activate(ctx context.Context) error {
	m, err := p.manager()
	if err != nil {
		return err
	}
	restart := p.installed == systemd.UnitUpdated || (p.installed == systemd.UnitUnchanged && p.changed)
	if restart {
		slog.Info("restarting service to pick up changes", "unit", p.installed, "content_changed", p.changed)
	}
	return m.Activate(ctx, Unit(p.cfg), restart)
}

// Verify waits for the dashboard to come up, then logs the unit status. The
// status query is informational and does not affect the result.
func (p *Provisioner) Verify(ctx context.Context) (int, error) {
	checks := 1
	var err error

	switch p.cfg.VerifyMode {
	case config.VerifyModeSleep:
		slog.Info("waiting for service to settle", "delay", p.cfg.SettleDelay)
		err = readiness.Settle(ctx, p.cfg.SettleDelay)
	default:
		probe := p.probe
		if probe == nil {
			probe = ReadinessProbe(p.cfg)
		}
		poller := readiness.NewPoller(probe, p.cfg.ReadinessInterval, p.cfg.ReadinessTimeout)
		if p.timer != nil {
			poller = poller.WithTimer(p.timer)
		}
		checks, err = poller.Wait(ctx)
	}

	m, statusErr := p.manager()
	if statusErr == nil {
		statusErr = m.LogStatus(ctx, Unit(p.cfg))
	}
	if statusErr != nil {
		slog.Warn("unable to query service status", "error", statusErr)
	}

	return checks, err
}

// Run provisions the host, reporting progress to the recorder.
func (p *Provisioner) Run(ctx context.Context, recorder Recorder) Report {
	return NewPipeline(recorder, p.Steps()...).Run(ctx)
}
