package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wiko-cutlery/assistant-portal/internal/model/chat"
	"github.com/wiko-cutlery/assistant-portal/internal/portal"
)

func newSessionsCmd(opts *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List chat sessions, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.openAuthenticated(cmd.Context(), printNotifier(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer app.Close()

			printSessions(cmd.OutOrStdout(), app)
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "new [name]",
		Short: "Create a chat session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.openAuthenticated(cmd.Context(), printNotifier(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer app.Close()

			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			session, err := app.Transcript.CreateSession(cmd.Context(), name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", session.ID, session.SessionName)
			return nil
		},
	})
	return cmd
}

func newMessagesCmd(opts *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "messages [session-id]",
		Short: "Print a session transcript (defaults to the most recent session)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.openAuthenticated(cmd.Context(), printNotifier(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer app.Close()

			if err := selectFromArgs(cmd, app, args); err != nil {
				return err
			}
			if _, ok := app.Transcript.Active(); !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "No chat sessions yet")
				return nil
			}
			printTranscript(cmd.OutOrStdout(), app.Transcript.Messages())
			return nil
		},
	}
}

func newSendCmd(opts *cli) *cobra.Command {
	var sessionID int64
	var contextType string

	cmd := &cobra.Command{
		Use:   "send <message...>",
		Short: "Send a message and print the assistant's reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var ct chat.ContextType
			if contextType != "" {
				parsed, err := chat.ParseContextType(contextType)
				if err != nil {
					return err
				}
				ct = parsed
			}

			app, err := opts.openAuthenticated(cmd.Context(), printNotifier(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer app.Close()

			if sessionID != 0 {
				if err := app.Transcript.SelectSessionByID(cmd.Context(), sessionID); err != nil {
					return err
				}
			}
			if _, ok := app.Transcript.Active(); !ok {
				if _, err := app.Transcript.CreateSession(cmd.Context(), ""); err != nil {
					return err
				}
			}

			if ct != "" {
				app.SetContextType(ct)
			}
			reply, err := app.Send(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if reply != nil {
				fmt.Fprintln(cmd.OutOrStdout(), reply.Content)
			}
			return nil
		},
	}
	cmd.Flags().Int64VarP(&sessionID, "session", "s", 0, "session id (defaults to the most recent session)")
	cmd.Flags().StringVar(&contextType, "context", "", "context type: general, pdf_analysis, translation, email_assistance, complaint_handling (default $PORTAL_DEFAULT_CONTEXT)")
	return cmd
}

func selectFromArgs(cmd *cobra.Command, app *portal.App, args []string) error {
	if len(args) == 0 {
		return nil
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid session id %q", args[0])
	}
	return app.Transcript.SelectSessionByID(cmd.Context(), id)
}

func printSessions(w io.Writer, app *portal.App) {
	sessions := app.Transcript.Sessions()
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No chat sessions yet")
		return
	}
	active, _ := app.Transcript.Active()
	for _, s := range sessions {
		marker := " "
		if s.ID == active.ID {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %d\t%s\t%s\n", marker, s.ID, s.SessionName, formatTime(s.UpdatedAt))
	}
}

func printTranscript(w io.Writer, messages []chat.Message) {
	if len(messages) == 0 {
		fmt.Fprintln(w, "No messages yet")
		return
	}
	for _, m := range messages {
		who := "You"
		if m.MessageType == chat.MessageAssistant {
			who = "Assistant"
		}
		suffix := ""
		switch m.Status {
		case chat.StatusPending:
			suffix = " (sending)"
		case chat.StatusFailed:
			suffix = " (failed)"
		}
		fmt.Fprintf(w, "[%s] %s%s:\n%s\n\n", formatTime(m.Timestamp), who, suffix, m.Content)
	}
}

func formatTime(ts chat.Timestamp) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Local().Format(time.DateTime)
}
