package main

import (
	"dashboard-bootstrap/internal/bootstrap"

	"github.com/spf13/cobra"
)

func newRenderUnitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "render-unit",
		Short: "Print the systemd unit exactly as it would be installed",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			content, err := bootstrap.Unit(a.cfg).Render()
			if err != nil {
				return err
			}
			_, err = c.OutOrStdout().Write(content)
			return err
		},
	}
}
