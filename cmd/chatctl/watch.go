package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/matheus3301/chatdock/internal/rpc"
	"github.com/matheus3301/chatdock/internal/session"
	"github.com/spf13/cobra"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [prefix]",
		Short: "Stream daemon events until interrupted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			name, err := resolveSession()
			if err != nil {
				return err
			}
			c, err := rpc.Dial(session.SocketPath(name))
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			stream, err := c.Watch(ctx, prefix)
			if err != nil {
				return err
			}
			for {
				evt, err := stream.Recv()
				if errors.Is(err, io.EOF) || status.Code(err) == codes.Canceled {
					return nil
				}
				if err != nil {
					return err
				}
				if jsonFlag {
					outputJSON(evt)
					continue
				}
				at := time.UnixMilli(evt.OccurredAtUnixMs).Format("15:04:05.000")
				fmt.Printf("%s %-28s %s\n", at, evt.Kind, evt.Payload)
			}
		},
	}
}
