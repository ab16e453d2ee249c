package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nhle/tech-tracker/internal/credential"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage the access token used by lookup",
	Long: `The token is kept in the system keyring (or an encrypted file when no keyring
is available). ` + tokenEnv + ` takes precedence when set.`,
}

var tokenSetCmd = &cobra.Command{
	Use:   "set [token]",
	Short: "Store a token; prompts when no argument is given",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTokenSet,
}

var tokenDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Forget the stored token",
	Args:  cobra.NoArgs,
	RunE:  runTokenDelete,
}

var tokenStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether a token is stored",
	Args:  cobra.NoArgs,
	RunE:  runTokenStatus,
}

func runTokenSet(cmd *cobra.Command, args []string) error {
	var token string
	if len(args) == 1 {
		token = args[0]
	} else {
		var err error
		if token, err = readSecret(cmd, "Token: "); err != nil {
			return err
		}
	}

	vault, err := openVault()
	if err != nil {
		return err
	}
	if err := vault.SetLookupToken(token); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Token saved")
	return nil
}

func runTokenDelete(cmd *cobra.Command, args []string) error {
	vault, err := openVault()
	if err != nil {
		return err
	}
	if err := vault.DeleteLookupToken(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Token removed")
	return nil
}

func runTokenStatus(cmd *cobra.Command, args []string) error {
	vault, err := openVault()
	if err != nil {
		return err
	}
	token, err := vault.LookupToken()
	switch {
	case errors.Is(err, credential.ErrNoToken):
		fmt.Fprintln(cmd.OutOrStdout(), "No token stored")
		return nil
	case err != nil:
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Token stored (%s)\n", mask(token))
	return nil
}

// readSecret reads a line without echo when stdin is a terminal.
func readSecret(cmd *cobra.Command, prompt string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("reading token: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading token: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func mask(token string) string {
	if len(token) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(token)-4) + token[len(token)-4:]
}
