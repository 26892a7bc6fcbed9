package main

import (
	"bufio"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jrsteele09/weeb-client/internal/config"
	"github.com/jrsteele09/weeb-client/sessions"
	"github.com/jrsteele09/weeb-client/sessions/events"
)

// app is what every command runs against. It is populated in PersistentPreRunE.
type app struct {
	cfg       config.Config
	session   *sessions.Session
	closeRepo func()
	stdin     *bufio.Reader
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "weeb",
		Short:         "Command line client for the Weeb API",
		Long:          "Sign in to the Weeb API and read or publish articles, categories and reviews.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			displayAppname(a.cfg.GetAppName())
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd == cmd.Root() {
				return nil
			}
			return a.open(cmd)
		},
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(
		loginCmd(a),
		logoutCmd(a),
		registerCmd(a),
		whoamiCmd(a),
		articlesCmd(a),
		categoriesCmd(a),
		reviewCmd(a),
		predictCmd(a),
		healthCmd(a),
		usersCmd(a),
	)
	return rootCmd
}

// open restores the stored session before the command runs.
func (a *app) open(cmd *cobra.Command) error {
	repo, closeRepo, err := sessions.OpenRepo(a.cfg)
	if err != nil {
		return fmt.Errorf("failed to open credential storage: %w", err)
	}
	a.closeRepo = closeRepo

	a.session = sessions.New(a.cfg.GetAPIBaseURL(), repo,
		sessions.WithHTTPClient(&http.Client{Timeout: a.cfg.GetHTTPTimeout()}))
	a.session.Events().Subscribe(events.EventForcedLogout, func(e events.Event) {
		fmt.Fprintln(cmd.ErrOrStderr(), "Your session has expired, please log in again.")
	})

	log.Debug().Str("api", a.cfg.GetAPIBaseURL()).Str("env", a.cfg.GetEnv()).Msg("Starting")
	return a.session.Initialize(cmd.Context())
}

// close releases the credential storage. It runs whether or not the command failed.
func (a *app) close() {
	if a.closeRepo != nil {
		a.closeRepo()
		a.closeRepo = nil
	}
}
