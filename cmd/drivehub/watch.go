package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/alfredjeanlab/drivehub/internal/events"
	"github.com/alfredjeanlab/drivehub/internal/ui"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Follow portal logins, logouts and denied navigations",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		natsURL, _ := cmd.Flags().GetString("nats-url")
		topic, _ := cmd.Flags().GetString("topic")
		if natsURL == "" {
			return errors.New("no NATS server: set --nats-url or DRIVEHUB_NATS_URL")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		errOut := cmd.ErrOrStderr()
		sub, err := events.NewNATSSubscriber(natsURL,
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				fmt.Fprintf(errOut, "%s disconnected: %v\n", ui.RenderWarn("nats:"), err)
			}),
			nats.ReconnectHandler(func(_ *nats.Conn) {
				fmt.Fprintf(errOut, "%s reconnected\n", ui.RenderOK("nats:"))
			}),
		)
		if err != nil {
			return err
		}
		defer sub.Close()

		fmt.Fprintf(errOut, "watching %s on %s\n", topic, natsURL)
		return follow(ctx, sub, topic, cmd.OutOrStdout(), errOut, jsonOutput)
	},
}

// follow subscribes to topic and prints its events until ctx ends.
func follow(ctx context.Context, sub events.Subscriber, topic string, out, errOut io.Writer, raw bool) error {
	ch, cancel, err := sub.Subscribe(topic)
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	defer cancel()
	return watchLoop(ctx, ch, out, errOut, raw)
}

// watchLoop prints each payload until ctx ends or ch closes. Raw mode copies
// payloads verbatim; otherwise payloads that do not decode are reported and
// skipped.
func watchLoop(ctx context.Context, ch <-chan []byte, out, errOut io.Writer, raw bool) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case data, ok := <-ch:
			if !ok {
				return nil
			}
			if raw {
				fmt.Fprintln(out, string(data))
				continue
			}
			ev, err := events.Decode(data)
			if err != nil {
				fmt.Fprintf(errOut, "%s %v\n", ui.RenderError("skipping event:"), err)
				continue
			}
			fmt.Fprintln(out, formatEvent(ev))
		}
	}
}

func init() {
	watchCmd.Flags().String("nats-url", os.Getenv("DRIVEHUB_NATS_URL"), "NATS server URL")
	watchCmd.Flags().String("topic", events.TopicAll, "subject to follow (NATS wildcards allowed)")
}
