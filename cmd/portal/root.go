package main

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/wiko-cutlery/assistant-portal/internal/config"
	"github.com/wiko-cutlery/assistant-portal/internal/notify"
	"github.com/wiko-cutlery/assistant-portal/internal/portal"
)

var errNotLoggedIn = errors.New("not logged in, run `portal login` first")

// cli carries the global flags shared by every command.
type cli struct {
	configPath string
	apiURL     string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &cli{}

	root := &cobra.Command{
		Use:   "portal",
		Short: "Wiko Cutlery employee assistant client",
		Long: `portal talks to the employee assistant API: log in, chat with the
assistant in persistent sessions, and use the translation, email,
complaint and document tools.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if !opts.verbose {
				log.SetOutput(io.Discard)
			}
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML config file (environment variables override it)")
	root.PersistentFlags().StringVar(&opts.apiURL, "api-url", "", "API base URL (default $PORTAL_API_URL or "+config.DefaultAPIURL+")")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log requests and notifications to stderr")

	root.AddCommand(
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newStatusCmd(opts),
		newSessionsCmd(opts),
		newMessagesCmd(opts),
		newSendCmd(opts),
		newTranslateCmd(opts),
		newEmailCmd(opts),
		newComplaintCmd(opts),
		newUploadCmd(opts),
		newDocumentsCmd(opts),
		newHealthCmd(opts),
		newShellCmd(opts),
	)
	return root
}

func (c *cli) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFile(c.configPath)
	if err != nil {
		return nil, err
	}
	if c.apiURL != "" {
		cfg.API.BaseURL = c.apiURL
	}
	if cfg.API.CookieFile == "" {
		cfg.API.CookieFile = defaultCookieFile()
	}
	return cfg, nil
}

// open builds and starts an App. The caller must Close it.
func (c *cli) open(ctx context.Context, notifier notify.Notifier) (*portal.App, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	return c.openWith(ctx, cfg, notifier)
}

func (c *cli) openWith(ctx context.Context, cfg *config.Config, notifier notify.Notifier) (*portal.App, error) {
	return portal.Open(ctx, portal.Options{Config: cfg, Notifier: notifier})
}

// openAuthenticated is open plus a login check.
func (c *cli) openAuthenticated(ctx context.Context, notifier notify.Notifier) (*portal.App, error) {
	app, err := c.open(ctx, notifier)
	if err != nil {
		return nil, err
	}
	if !app.Session.IsAuthenticated() {
		app.Close()
		return nil, errNotLoggedIn
	}
	return app, nil
}

func defaultCookieFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "assistant-portal", "cookies.json")
}
