package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/guzelclinic/guzel/src/internal/auth"
)

func newUserCommand(configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage API user accounts",
	}
	cmd.AddCommand(newUserPasswdCommand(configFile))
	return cmd
}

func newUserPasswdCommand(configFile *string) *cobra.Command {
	var admin bool

	cmd := &cobra.Command{
		Use:   "passwd <username>",
		Short: "Set a user's password, creating the user if needed",
		Long: "Set a user's password. On a terminal the password is prompted for twice;\n" +
			"otherwise it is read from the first line of standard input.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readNewPassword(cmd)
			if err != nil {
				return err
			}

			a, err := newApp(*configFile)
			if err != nil {
				return err
			}
			defer a.Close()

			db, err := a.store.DB()
			if err != nil {
				return err
			}
			user, err := auth.SetPassword(db, args[0], password, admin)
			if err != nil {
				return err
			}
			a.log.Info().Str("username", user.Username).Bool("is_admin", user.IsAdmin).Msg("password updated")
			fmt.Fprintf(cmd.OutOrStdout(), "Password set for %s\n", user.Username)
			return nil
		},
	}
	cmd.Flags().BoolVar(&admin, "admin", false, "grant administrator rights")
	return cmd
}

func readNewPassword(cmd *cobra.Command) (string, error) {
	if !isTerminal(os.Stdin) {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, "New password: ")
	first, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	fmt.Fprint(out, "Confirm password: ")
	second, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}
