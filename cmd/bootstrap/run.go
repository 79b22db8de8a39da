package main

import (
	"context"
	"dashboard-bootstrap/cmd"
	"dashboard-bootstrap/internal/bootstrap"
	"dashboard-bootstrap/internal/system"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Provision this host",
		Long:  "Run every provisioning step in order. Exits 0 when all steps succeeded, 2 when the dashboard is up but a tolerable step failed, and 1 when a fatal step failed.",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return a.run(c.Context())
		},
	}
}

func (a *app) run(ctx context.Context) error {
	cfg := a.cfg

	transcript, err := bootstrap.OpenTranscript(cfg.LogFile, os.Stderr)
	transcript.Install()
	if err != nil {
		slog.Warn("transcript unavailable, logging to stderr only", "error", err)
	}
	defer transcript.Close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.RunTimeout)
		defer cancel()
	}

	host := cmd.Hostname()
	slog.Info("starting bootstrap", "host", host, "app_dir", cfg.AppDir, "bucket", cfg.S3Bucket, "service", cfg.ServiceName, "port", cfg.Port, "artifact_failure_policy", cfg.ArtifactFailurePolicy, "verify_mode", cfg.VerifyMode)

	m, err := a.manifest()
	if err != nil {
		return err
	}

	store, err := cmd.CreateObjectStore(ctx, cfg, transcript)
	if err != nil {
		return fmt.Errorf("error creating artifact store: %w", err)
	}

	var recorder bootstrap.MultiRecorder

	db, err := cmd.OpenLedger(cfg)
	if err != nil {
		slog.Warn("run ledger unavailable, run will not be recorded", "error", err)
	} else {
		recorder = append(recorder, bootstrap.NewLedgerRecorder(db, host, cfg.Redacted()))
	}

	publisher, err := cmd.CreatePublisher(cfg)
	if err != nil {
		slog.Warn("event broker unavailable, no events will be published", "error", err)
	} else {
		defer publisher.Close()
		recorder = append(recorder, bootstrap.NewEventRecorder(publisher, host))
	}

	runner := system.NewExecRunner(transcript, transcript)
	report := bootstrap.NewProvisioner(cfg, m, runner, store).Run(ctx, recorder)

	switch report.Status {
	case bootstrap.RunSucceeded:
		return nil
	case bootstrap.RunDegraded:
		return &exitError{code: report.ExitCode(), err: fmt.Errorf("bootstrap run %s finished degraded", report.RunID)}
	default:
		return &exitError{code: report.ExitCode(), err: report.Err}
	}
}
