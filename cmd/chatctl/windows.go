package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/matheus3301/chatdock/internal/rpc"
	"github.com/matheus3301/chatdock/internal/windows"
	"github.com/spf13/cobra"
)

func printWindows(ws []windows.Window) {
	if jsonFlag {
		outputJSON(ws)
		return
	}
	if len(ws) == 0 {
		fmt.Println("No open windows.")
		return
	}
	for _, w := range ws {
		mode := "expanded"
		if w.IsMinimized {
			mode = "minimized"
		}
		extra := ""
		if w.State == windows.Loading {
			extra = " loading"
		}
		if w.PeerTyping {
			extra += " typing..."
		}
		fmt.Printf("%-24s %-20s %-9s %3d msgs%s\n", w.ConversationID, w.RecipientName, mode, len(w.Messages), extra)
	}
}

func windowsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "windows",
		Short: "List open chat windows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(ctx context.Context, c *rpc.Client) error {
				resp, err := c.ListWindows(ctx)
				if err != nil {
					return err
				}
				printWindows(resp.Windows)
				return nil
			})
		},
	}
}

// windowCmd builds a command that applies op to one conversation id and
// prints the resulting windows.
func windowCmd(use, short string, op func(*rpc.Client, context.Context, string) (*rpc.WindowsResponse, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <conversation-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(ctx context.Context, c *rpc.Client) error {
				resp, err := op(c, ctx, args[0])
				if err != nil {
					return err
				}
				printWindows(resp.Windows)
				return nil
			})
		},
	}
}

func openCmd() *cobra.Command {
	return windowCmd("open", "Open a conversation window", (*rpc.Client).OpenConversation)
}

func closeCmd() *cobra.Command {
	return windowCmd("close", "Close a window", (*rpc.Client).CloseWindow)
}

func minimizeCmd() *cobra.Command {
	return windowCmd("minimize", "Minimize a window", (*rpc.Client).MinimizeWindow)
}

func restoreCmd() *cobra.Command {
	return windowCmd("restore", "Expand a minimized window", (*rpc.Client).RestoreWindow)
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat <user-id>",
		Short: "Start or resume a conversation with a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(ctx context.Context, c *rpc.Client) error {
				resp, err := c.StartChat(ctx, args[0])
				if err != nil {
					return err
				}
				if jsonFlag {
					outputJSON(resp.Conversation)
					return nil
				}
				fmt.Printf("Opened %s\n", resp.Conversation.ID)
				return nil
			})
		},
	}
}

func sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <conversation-id> <text...>",
		Short: "Send a message in an open window",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(ctx context.Context, c *rpc.Client) error {
				resp, err := c.SendMessage(ctx, args[0], strings.Join(args[1:], " "))
				if err != nil {
					return err
				}
				if jsonFlag {
					outputJSON(resp.Message)
					return nil
				}
				fmt.Printf("Sent %s\n", resp.Message.ID)
				return nil
			})
		},
	}
}

func typingCmd() *cobra.Command {
	var stop bool
	cmd := &cobra.Command{
		Use:   "typing <conversation-id>",
		Short: "Signal that you are typing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(ctx context.Context, c *rpc.Client) error {
				return c.SetTyping(ctx, args[0], !stop)
			})
		},
	}
	cmd.Flags().BoolVar(&stop, "stop", false, "signal that you stopped typing")
	return cmd
}
