package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/matheus3301/chatdock/internal/rpc"
	"github.com/matheus3301/chatdock/internal/session"
	"github.com/spf13/cobra"
)

var (
	sessionFlag string
	jsonFlag    bool
	timeoutFlag time.Duration
)

func main() {
	root := &cobra.Command{
		Use:           "chatctl",
		Short:         "Control the chatdock daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&sessionFlag, "session", "", "session name (overrides config default)")
	root.PersistentFlags().BoolVar(&jsonFlag, "json", false, "output in JSON format")
	root.PersistentFlags().DurationVar(&timeoutFlag, "timeout", 15*time.Second, "request timeout")

	root.AddCommand(
		statusCmd(),
		windowsCmd(),
		openCmd(),
		chatCmd(),
		closeCmd(),
		minimizeCmd(),
		restoreCmd(),
		sendCmd(),
		typingCmd(),
		conversationsCmd(),
		unreadCmd(),
		readCmd(),
		readAllCmd(),
		searchCmd(),
		watchCmd(),
		loginCmd(),
		logoutCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func resolveSession() (string, error) {
	name := session.Resolve(sessionFlag)
	if err := session.ValidateName(name); err != nil {
		return "", err
	}
	return name, nil
}

// withClient dials the session daemon and runs fn under the request timeout.
func withClient(fn func(ctx context.Context, c *rpc.Client) error) error {
	name, err := resolveSession()
	if err != nil {
		return err
	}
	c, err := rpc.Dial(session.SocketPath(name))
	if err != nil {
		return fmt.Errorf("cannot connect to daemon for session %q: %w", name, err)
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), timeoutFlag)
	defer cancel()
	return fn(ctx, c)
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show connection and login state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(ctx context.Context, c *rpc.Client) error {
				resp, err := c.GetStatus(ctx)
				if err != nil {
					return err
				}
				if jsonFlag {
					outputJSON(resp)
					return nil
				}
				fmt.Printf("Session:   %s\n", resp.Session)
				fmt.Printf("Channel:   %s\n", resp.State)
				if resp.LastError != "" {
					fmt.Printf("Error:     %s\n", resp.LastError)
				}
				if resp.LoggedIn {
					fmt.Printf("User:      %s\n", resp.UserID)
					fmt.Printf("Unread:    %d\n", resp.Bell)
				} else {
					fmt.Println("User:      (logged out)")
				}
				fmt.Printf("Uptime:    %s\n", time.Duration(resp.UptimeMs)*time.Millisecond)
				return nil
			})
		},
	}
}
