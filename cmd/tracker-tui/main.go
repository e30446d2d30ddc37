// Package main provides the tracker-tui command-line interface.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jbeckham/tracker-tui/internal/config"
	"github.com/jbeckham/tracker-tui/internal/issuetree"
	"github.com/jbeckham/tracker-tui/internal/tracker"
	"github.com/jbeckham/tracker-tui/internal/tui"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Flags are bound through a viper
// instance so that TRACKER_TUI_* environment variables override them.
func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("TRACKER_TUI")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:   "tracker-tui",
		Short: "Terminal UI for the issue tracker",
		Long: `tracker-tui shows your tracker views as tabs: issues assigned to you,
issues you follow and an optional custom query.

It authenticates with the Cookie header of a logged-in browser session.
Run "tracker-tui set-cookie" to store it.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd, v)
		},
	}

	rootCmd.PersistentFlags().String("config-dir", "", "config directory (default is .tracker-tui next to the executable)")
	rootCmd.PersistentFlags().Bool("verbose", false, "log at debug level")
	rootCmd.Flags().Bool("no-state", false, "do not persist sort and group choices")
	_ = v.BindPFlag("config-dir", rootCmd.PersistentFlags().Lookup("config-dir"))
	_ = v.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = v.BindPFlag("no-state", rootCmd.Flags().Lookup("no-state"))

	rootCmd.AddCommand(
		createInitCmd(v),
		createSetCookieCmd(v),
		createShowCmd(v),
		createSearchCmd(v),
		createWhoamiCmd(v),
	)
	return rootCmd
}

// configDir returns the directory from --config-dir or TRACKER_TUI_CONFIG_DIR,
// falling back to the directory next to the executable.
func configDir(v *viper.Viper) (string, error) {
	if dir := v.GetString("config-dir"); dir != "" {
		return dir, nil
	}
	return config.DefaultConfigDir()
}

// session is everything a command needs to talk to the tracker.
type session struct {
	dir    string
	cfg    *config.Config
	client *tracker.Client
	logger *slog.Logger
	closer io.Closer
}

func (s *session) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// openSession loads the configuration, opens the log file and creates the
// tracker client. TRACKER_TUI_COOKIE overrides the stored cookie.
func openSession(v *viper.Viper) (*session, error) {
	dir, err := configDir(v)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(config.ConfigPath(dir), config.SecretsPath(dir))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if cookie := v.GetString("cookie"); cookie != "" {
		cfg.Tracker.Cookie = cookie
	}

	level := config.ParseLevel(cfg.Log.Level)
	if v.GetBool("verbose") {
		level = slog.LevelDebug
	}
	logger, closer, err := config.OpenLog(config.LogPath(dir), level)
	if err != nil {
		return nil, err
	}

	return &session{dir: dir, cfg: cfg, client: newClient(cfg, logger), logger: logger, closer: closer}, nil
}

// newClient creates a tracker client for the configured host and cookie.
func newClient(cfg *config.Config, logger *slog.Logger) *tracker.Client {
	opts := []tracker.ClientOption{tracker.WithLogger(logger)}
	if cfg.Tracker.FrontURL != "" {
		opts = append(opts, tracker.WithFrontURL(cfg.Tracker.FrontURL))
	}
	return tracker.NewClient(cfg.Tracker.Host, cfg.Tracker.Cookie, opts...)
}

// runTUI starts the interactive interface. The config directory is created
// with sample files on first run.
func runTUI(cmd *cobra.Command, v *viper.Viper) error {
	dir, err := configDir(v)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	// Auto-init if the config directory doesn't exist
	if !config.DirExists(dir) {
		if _, err := config.Init(dir); err != nil {
			return fmt.Errorf("initializing config: %w", err)
		}
		fmt.Fprintf(out, "Created %s/\n\n", dir)
		fmt.Fprintln(out, "To get started:")
		fmt.Fprintf(out, "  1. Edit %s with your tracker host and views\n", config.ConfigPath(dir))
		fmt.Fprintln(out, "  2. Run tracker-tui set-cookie with the Cookie header of a logged-in browser tab")
		fmt.Fprintln(out, "  3. Run tracker-tui again")
		return nil
	}

	s, err := openSession(v)
	if err != nil {
		return err
	}
	defer s.Close()

	var store issuetree.Store = issuetree.NewMemoryStore()
	if !v.GetBool("no-state") {
		state, err := config.OpenState(config.StatePath(s.dir))
		if err != nil {
			return err
		}
		defer state.Close()
		store = state
	}

	app := tui.NewApp(s.client, s.cfg.ResolvedViews(), s.cfg.Columns,
		tui.WithStore(store),
		tui.WithLogger(s.logger),
	)
	p := tea.NewProgram(app, tea.WithAltScreen())

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	if err := config.Watch(ctx, config.ConfigPath(s.dir), func() { p.Send(tui.ConfigChangedMsg{}) }); err != nil {
		s.logger.Warn("config watch disabled", "err", err)
	}

	s.logger.Info("starting", "host", s.client.Host(), "views", len(s.cfg.ResolvedViews()))
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}
