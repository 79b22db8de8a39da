package main

import (
	"dashboard-bootstrap/internal/bootstrap"
	"dashboard-bootstrap/internal/readiness"
	"fmt"

	"github.com/spf13/cobra"
)

func newVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Wait until the dashboard answers its health check",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			probe := bootstrap.ReadinessProbe(a.cfg)
			checks, err := readiness.NewPoller(probe, a.cfg.ReadinessInterval, a.cfg.ReadinessTimeout).Wait(c.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(c.OutOrStdout(), "ready: %s (%d checks)\n", probe, checks)
			return err
		},
	}
}
