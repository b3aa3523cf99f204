package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/matheus3301/chatdock/internal/rpc"
	"github.com/spf13/cobra"
)

func printUnread(resp *rpc.UnreadResponse) {
	if jsonFlag {
		outputJSON(resp)
		return
	}
	fmt.Printf("Bell: %d\n", resp.Bell)
	ids := make([]string, 0, len(resp.PerConversation))
	for id, n := range resp.PerConversation {
		if n > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Printf("  %-24s %d\n", id, resp.PerConversation[id])
	}
	if !resp.SuppressedUntil.IsZero() {
		fmt.Printf("Polls suppressed until %s\n", resp.SuppressedUntil.Format("15:04:05"))
	}
}

func unreadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unread",
		Short: "Show unread counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(ctx context.Context, c *rpc.Client) error {
				resp, err := c.GetUnread(ctx)
				if err != nil {
					return err
				}
				printUnread(resp)
				return nil
			})
		},
	}
}

func readCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <conversation-id>",
		Short: "Mark a conversation as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(ctx context.Context, c *rpc.Client) error {
				resp, err := c.MarkConversationRead(ctx, args[0])
				if err != nil {
					return err
				}
				printUnread(resp)
				return nil
			})
		},
	}
}

func readAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read-all",
		Short: "Mark everything as read",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(ctx context.Context, c *rpc.Client) error {
				resp, err := c.MarkAllRead(ctx)
				if err != nil {
					return err
				}
				printUnread(resp)
				return nil
			})
		},
	}
}

func conversationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "conversations",
		Short: "List conversations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(ctx context.Context, c *rpc.Client) error {
				resp, err := c.ListConversations(ctx)
				if err != nil {
					return err
				}
				if jsonFlag {
					outputJSON(resp.Conversations)
					return nil
				}
				status, _ := c.GetStatus(ctx)
				self := ""
				if status != nil {
					self = status.UserID
				}
				if len(resp.Conversations) == 0 {
					fmt.Println("No conversations.")
					return nil
				}
				for _, conv := range resp.Conversations {
					badge := ""
					if conv.UnreadCount > 0 {
						badge = fmt.Sprintf("(%d)", conv.UnreadCount)
					}
					fmt.Printf("%-24s %-20s %-5s %s\n", conv.ID, conv.Peer(self).Name, badge, conv.LastMessageText)
				}
				return nil
			})
		},
	}
}

func searchCmd() *cobra.Command {
	var (
		conversation string
		limit        int
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search archived messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(ctx context.Context, c *rpc.Client) error {
				resp, err := c.SearchMessages(ctx, &rpc.SearchRequest{
					Query:          args[0],
					ConversationID: conversation,
					Limit:          limit,
				})
				if err != nil {
					return err
				}
				if jsonFlag {
					outputJSON(resp.Results)
					return nil
				}
				if len(resp.Results) == 0 {
					fmt.Println("No matches.")
					return nil
				}
				for _, r := range resp.Results {
					fmt.Printf("%s  %-24s %s\n", r.Message.CreatedAt.Format("2006-01-02 15:04"), r.Message.ConversationID, r.Snippet)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&conversation, "conversation", "", "limit to one conversation")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum results")
	return cmd
}
