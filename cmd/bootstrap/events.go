package main

import (
	"dashboard-bootstrap/internal/messaging"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newEventsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Follow bootstrap events published by the fleet",
		Long:  "Consume the bootstrap_events queue and print each event as a JSON line until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			if a.cfg.RabbitMQURL == "" {
				return fmt.Errorf("RABBITMQ_URL must be set to follow events")
			}

			receiver, err := messaging.NewRabbitMQReceiver(a.cfg.RabbitMQURL)
			if err != nil {
				return err
			}
			defer receiver.Close()

			ctx, stop := signal.NotifyContext(c.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			enc := json.NewEncoder(c.OutOrStdout())
			for {
				select {
				case <-ctx.Done():
					return nil
				case task := <-receiver.Tasks():
					var event messaging.BootstrapEvent
					if err := json.Unmarshal(task.Payload(), &event); err != nil {
						slog.Error("discarding malformed bootstrap event", "error", err)
						task.Reject() //nolint:errcheck
						continue
					}
					if err := enc.Encode(event); err != nil {
						task.Nack() //nolint:errcheck
						return err
					}
					if err := task.Ack(); err != nil {
						slog.Warn("error acknowledging event", "run_id", event.RunId, "error", err)
					}
				}
			}
		},
	}
}
