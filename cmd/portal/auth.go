package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wiko-cutlery/assistant-portal/internal/model/auth"
	"github.com/wiko-cutlery/assistant-portal/internal/notify"
)

func printNotifier(w io.Writer) notify.Notifier {
	return notify.Func(func(level notify.Level, message string) {
		fmt.Fprintf(w, "[%s] %s\n", level, message)
	})
}

func newLoginCmd(opts *cli) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with employee credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			reader := bufio.NewReader(cmd.InOrStdin())
			var err error
			if username == "" {
				if username, err = promptLine(cmd.OutOrStdout(), reader, "Username: "); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = promptPassword(cmd.OutOrStdout(), reader, "Password: "); err != nil {
					return err
				}
			}

			app, err := opts.open(cmd.Context(), printNotifier(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer app.Close()

			result := app.Login(cmd.Context(), credentials(username, password))
			if !result.Success {
				return fmt.Errorf("%s", result.Error)
			}
			user, _ := app.Session.User()
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", displayName(user), user.Department)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "employee username (prompted when empty)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted without echo when empty)")
	return cmd
}

func newLogoutCmd(opts *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current login",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.open(cmd.Context(), printNotifier(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer app.Close()

			app.Logout(cmd.Context())
			return nil
		},
	}
}

func newStatusCmd(opts *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show who is logged in",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.open(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer app.Close()

			user, ok := app.Session.User()
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", displayName(user), user.Department)
			if user.Email != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Email: %s\n", user.Email)
			}
			if user.IsAdmin {
				fmt.Fprintln(cmd.OutOrStdout(), "Role: administrator")
			}
			return nil
		},
	}
}

func displayName(user auth.User) string {
	if user.FullName != "" {
		return user.FullName
	}
	return user.Username
}

func promptLine(w io.Writer, reader *bufio.Reader, label string) (string, error) {
	fmt.Fprint(w, label)
	line, err := reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// promptPassword reads without echo on a terminal and falls back to a plain
// line otherwise.
func promptPassword(w io.Writer, reader *bufio.Reader, label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return promptLine(w, reader, label)
	}

	fmt.Fprint(w, label)
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(secret), nil
}

func credentials(username, password string) auth.Credentials {
	return auth.Credentials{Username: strings.TrimSpace(username), Password: password}
}
