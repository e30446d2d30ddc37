package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jbeckham/tracker-tui/internal/config"
)

// promptCookie asks for the session cookie with masked input. Replaced in
// tests.
var promptCookie = func() (string, error) {
	var cookie string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Session cookie").
				Description("Copy the Cookie request header from a logged-in tracker tab.").
				EchoMode(huh.EchoModePassword).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("cookie is required")
					}
					return nil
				}).
				Value(&cookie),
		),
	)
	if err := form.Run(); err != nil {
		return "", fmt.Errorf("prompt cancelled: %w", err)
	}
	return cookie, nil
}

func createSetCookieCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-cookie [cookie]",
		Short: "Store the browser session cookie",
		Long: `Store the Cookie header of a logged-in tracker browser tab in secrets.yaml.

Without an argument the cookie is read from a masked prompt. The stored
cookie is checked against the tracker unless --no-verify is given.

Examples:
  tracker-tui set-cookie
  tracker-tui set-cookie "Session_id=...; sessionid2=..."`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := configDir(v)
			if err != nil {
				return err
			}

			var cookie string
			if len(args) == 1 {
				cookie = args[0]
			} else if cookie, err = promptCookie(); err != nil {
				return err
			}
			cookie = strings.TrimSpace(cookie)
			if cookie == "" {
				return errors.New("cookie is required")
			}

			if err := config.SaveCookie(config.SecretsPath(dir), cookie); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Saved cookie to %s\n", config.SecretsPath(dir))

			if noVerify, _ := cmd.Flags().GetBool("no-verify"); noVerify {
				return nil
			}
			s, err := openSession(v)
			if err != nil {
				return err
			}
			defer s.Close()
			// The stored cookie wins over TRACKER_TUI_COOKIE here.
			s.cfg.Tracker.Cookie = cookie
			user, err := newClient(s.cfg, s.logger).Myself(cmd.Context())
			if err != nil {
				return fmt.Errorf("cookie saved but not accepted: %w", err)
			}
			fmt.Fprintf(out, "Signed in as %s (%s)\n", user.Display, user.Login)
			return nil
		},
	}
	cmd.Flags().Bool("no-verify", false, "do not check the cookie against the tracker")
	return cmd
}
