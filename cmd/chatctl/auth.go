package main

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/matheus3301/chatdock/internal/auth"
	"github.com/matheus3301/chatdock/internal/session"
	"github.com/spf13/cobra"
)

func loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login [token]",
		Short: "Store a bearer token for the session (reads stdin when omitted)",
		Long:  "Writes the credential file the daemon watches. A running daemon picks it up and connects.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := resolveSession()
			if err != nil {
				return err
			}
			token := ""
			if len(args) == 1 {
				token = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read token: %w", err)
				}
				token = strings.TrimSpace(line)
			}
			if token == "" {
				return errors.New("empty token")
			}

			if err := session.EnsureDir(name); err != nil {
				return err
			}
			if err := auth.Save(session.CredentialPath(name), token); err != nil {
				return err
			}
			cred := auth.Parse(token)
			if cred.UserID != "" {
				fmt.Printf("Logged in as %s", cred.UserID)
				if cred.Name != "" {
					fmt.Printf(" (%s)", cred.Name)
				}
				fmt.Println()
			} else {
				fmt.Println("Token stored.")
			}
			return nil
		},
	}
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the session credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := resolveSession()
			if err != nil {
				return err
			}
			err = os.Remove(session.CredentialPath(name))
			if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			fmt.Println("Logged out.")
			return nil
		},
	}
}
