package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/steveyackey/posthog/internal/events"
)

var (
	tailTopic string
	tailNATS  string
)

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Stream capture bus events to stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		natsURL := tailNATS
		if natsURL == "" {
			natsURL = os.Getenv("CAPTURE_NATS_URL")
		}
		if natsURL == "" {
			return fmt.Errorf("no NATS URL: set --nats or CAPTURE_NATS_URL")
		}

		sub, err := events.NewNATSSubscriber(natsURL,
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				log.Printf("nats: disconnected: %v", err)
			}),
			nats.ReconnectHandler(func(_ *nats.Conn) {
				log.Printf("nats: reconnected")
			}),
		)
		if err != nil {
			return fmt.Errorf("connecting to NATS: %w", err)
		}
		defer sub.Close()

		ch, cancel, err := sub.Subscribe(tailTopic)
		if err != nil {
			return fmt.Errorf("subscribing to %s: %w", tailTopic, err)
		}
		defer cancel()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		fmt.Fprintf(os.Stderr, "tailing %s on %s\n", tailTopic, natsURL)
		for {
			select {
			case <-ctx.Done():
				return nil
			case msg, ok := <-ch:
				if !ok {
					return nil
				}
				fmt.Printf("%s %s\n", time.Now().UTC().Format(time.RFC3339), msg)
			}
		}
	},
}

func init() {
	tailCmd.Flags().StringVar(&tailTopic, "topic", "capture.>", "bus subject to subscribe to (NATS wildcards allowed)")
	tailCmd.Flags().StringVar(&tailNATS, "nats", "", "NATS URL (defaults to CAPTURE_NATS_URL)")
}
