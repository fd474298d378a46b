package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wiko-cutlery/assistant-portal/internal/model/chat"
	"github.com/wiko-cutlery/assistant-portal/internal/notify"
	"github.com/wiko-cutlery/assistant-portal/internal/portal"
	"github.com/wiko-cutlery/assistant-portal/internal/service/transcript"
)

const shellHelp = `Commands:
  /new [name]        start a new chat session
  /sessions          list sessions (* marks the active one)
  /select <id>       switch to a session
  /history           reprint the active transcript
  /context [type]    show or change the context type
  /logout            log out and leave the shell
  /quit              leave the shell
Anything else is sent to the assistant.`

func newShellCmd(opts *cli) *cobra.Command {
	var notifyAddr string

	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactive chat with the assistant",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if notifyAddr == "" {
				notifyAddr = cfg.Portal.NotifyAddr
			}

			var hub *notify.Hub
			notifier := printNotifier(cmd.ErrOrStderr())
			if notifyAddr != "" {
				hub = notify.NewHub()
				stop, err := serveHub(cmd.Context(), notifyAddr, hub)
				if err != nil {
					return err
				}
				defer stop()
				notifier = notify.Multi(notifier, hub)
				fmt.Fprintf(cmd.ErrOrStderr(), "notifications on ws://%s/ws\n", notifyAddr)
			}

			app, err := opts.openWith(cmd.Context(), cfg, notifier)
			if err != nil {
				return err
			}
			defer app.Close()

			if !app.Session.IsAuthenticated() {
				return errNotLoggedIn
			}
			return runShell(cmd.Context(), app, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&notifyAddr, "notify-addr", "", "serve notifications over WebSocket on this address (default $PORTAL_NOTIFY_ADDR)")
	return cmd
}

// serveHub exposes hub at /ws and returns a function that shuts it down.
func serveHub(ctx context.Context, addr string, hub *notify.Hub) (func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[shell] notification server stopped: %v", err)
		}
	}()

	return func() {
		hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}, nil
}

// runShell reads lines from in until EOF, /quit or /logout.
func runShell(ctx context.Context, app *portal.App, in io.Reader, out io.Writer) error {
	user, _ := app.Session.User()
	fmt.Fprintf(out, "Hello %s. Type /help for commands.\n", displayName(user))
	if active, ok := app.Transcript.Active(); ok {
		fmt.Fprintf(out, "Session: %s\n", active.SessionName)
	}
	fmt.Fprintf(out, "Context: %s\n", app.ContextType().Label())

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if !strings.HasPrefix(line, "/") {
			sendLine(ctx, app, out, line)
			continue
		}

		command, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)
		switch command {
		case "/help":
			fmt.Fprintln(out, shellHelp)
		case "/new":
			if session, err := app.Transcript.CreateSession(ctx, arg); err == nil {
				fmt.Fprintf(out, "Session: %s\n", session.SessionName)
			}
		case "/sessions":
			if err := app.Transcript.ListSessions(ctx); err != nil && !errors.Is(err, transcript.ErrStale) {
				continue
			}
			printSessions(out, app)
		case "/select":
			id, err := strconv.ParseInt(arg, 10, 64)
			if err != nil {
				fmt.Fprintln(out, "usage: /select <id>")
				continue
			}
			if err := app.Transcript.SelectSessionByID(ctx, id); err != nil {
				if errors.Is(err, transcript.ErrSessionNotFound) {
					fmt.Fprintf(out, "no session %d\n", id)
				}
				continue
			}
			printTranscript(out, app.Transcript.Messages())
		case "/history":
			printTranscript(out, app.Transcript.Messages())
		case "/context":
			if arg == "" {
				fmt.Fprintf(out, "Context: %s\n", app.ContextType().Label())
				for _, ct := range chat.ContextTypes() {
					fmt.Fprintf(out, "  %s\t%s\n", ct, ct.Label())
				}
				continue
			}
			ct, err := chat.ParseContextType(arg)
			if err != nil {
				fmt.Fprintln(out, err)
				continue
			}
			app.SetContextType(ct)
			fmt.Fprintf(out, "Context: %s\n", ct.Label())
		case "/logout":
			app.Logout(ctx)
			return nil
		case "/quit", "/exit":
			return nil
		default:
			fmt.Fprintf(out, "unknown command %s, try /help\n", command)
		}
	}
}

func sendLine(ctx context.Context, app *portal.App, out io.Writer, line string) {
	if _, ok := app.Transcript.Active(); !ok {
		// SendMessage alone would only open the session and drop the line.
		if _, err := app.Transcript.CreateSession(ctx, ""); err != nil {
			return
		}
	}
	reply, err := app.Send(ctx, line)
	if err != nil || reply == nil {
		return
	}
	fmt.Fprintf(out, "\n%s\n\n", reply.Content)
}
