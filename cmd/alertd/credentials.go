package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/lexdesk/deadline-alerts/internal/credential"
)

var credentialKeys = map[string]string{
	"smtp-password":      credential.KeySMTPPassword,
	"publications-token": credential.KeyPublicationsToken,
}

func credentialCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credential",
		Short: "Manage secrets stored in the system keyring",
	}
	cmd.AddCommand(credentialSetCmd())
	cmd.AddCommand(credentialDeleteCmd())
	return cmd
}

func credentialSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <smtp-password|publications-token>",
		Short: "Store a secret, prompting for the value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, ok := credentialKeys[args[0]]
			if !ok {
				return fmt.Errorf("unknown credential %q, expected one of: %s",
					args[0], strings.Join(knownCredentials(), ", "))
			}

			fmt.Fprintf(os.Stderr, "Value for %s: ", args[0])
			value, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Fprintln(os.Stderr)
			if err != nil {
				return fmt.Errorf("reading value: %w", err)
			}

			if err := credential.Set(key, string(value)); err != nil {
				return fmt.Errorf("storing %s: %w", args[0], err)
			}
			fmt.Printf("Stored %s\n", args[0])
			return nil
		},
	}
}

func credentialDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <smtp-password|publications-token>",
		Short: "Remove a secret from the keyring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, ok := credentialKeys[args[0]]
			if !ok {
				return fmt.Errorf("unknown credential %q, expected one of: %s",
					args[0], strings.Join(knownCredentials(), ", "))
			}

			if err := credential.Delete(key); err != nil {
				return fmt.Errorf("deleting %s: %w", args[0], err)
			}
			fmt.Printf("Deleted %s\n", args[0])
			return nil
		},
	}
}

func knownCredentials() []string {
	names := make([]string, 0, len(credentialKeys))
	for name := range credentialKeys {
		names = append(names, name)
	}
	return names
}
