package main

import (
	"dashboard-bootstrap/cmd"
	"dashboard-bootstrap/internal/config"
	"dashboard-bootstrap/internal/manifest"

	"github.com/spf13/cobra"
)

// exitError carries a specific process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

type app struct {
	envFile string
	cfg     *config.Config
}

func (a *app) load(c *cobra.Command, _ []string) error {
	if err := cmd.LoadEnvFile(a.envFile); err != nil {
		return err
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

func (a *app) manifest() (*manifest.Manifest, error) {
	if a.cfg.ManifestPath != "" {
		return manifest.Load(a.cfg.ManifestPath)
	}
	return manifest.Default()
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:               "bootstrap",
		Short:             "Provision a host to serve the student performance dashboard",
		Long:              "bootstrap installs system packages, fetches the dashboard artifacts, builds an isolated Python runtime, registers the dashboard as a systemd service and checks that it comes up.",
		SilenceUsage:      true,
		PersistentPreRunE: a.load,
	}

	rootCmd.PersistentFlags().StringVar(&a.envFile, "env", "", "path to load env from")

	rootCmd.AddCommand(
		newRunCmd(a),
		newRenderUnitCmd(a),
		newVerifyCmd(a),
		newRunsCmd(a),
		newEventsCmd(a),
	)

	return rootCmd
}
