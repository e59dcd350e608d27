// Package main is the tradernet CLI: login, logout, session inspection and
// the notification drawer, driven by the same packages the dashboard uses.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rapscallion45/tradernet/internal/api"
	"github.com/rapscallion45/tradernet/internal/authgate"
	"github.com/rapscallion45/tradernet/internal/config"
	"github.com/rapscallion45/tradernet/internal/logging"
	"github.com/rapscallion45/tradernet/internal/loginflow"
	"github.com/rapscallion45/tradernet/internal/notify"
	"github.com/rapscallion45/tradernet/internal/session"
	"github.com/rapscallion45/tradernet/internal/storage/bbolt"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app carries the wired collaborators for one command invocation.
type app struct {
	cfg      config.Config
	log      zerolog.Logger
	client   *api.Client
	sessions *session.Store
	cache    *authgate.FileCache
}

func newRootCmd() *cobra.Command {
	var configPath string
	a := &app{}

	root := &cobra.Command{
		Use:           "tradernet",
		Short:         "Trading dashboard session and notification tooling",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = logging.New(cfg.LogLevel, cfg.LogJSON)
			a.client = api.NewClient(api.Config{
				BaseURL: cfg.BaseURL,
				Timeout: cfg.Timeout,
				Logger:  a.log,
			})
			a.sessions = session.New(a.log)
			a.cache = authgate.NewFileCache(cfg.IdentityCachePath)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "tradernet.yaml", "path to config file")

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newNotificationsCmd(a),
	)
	return root
}

func newLoginCmd(a *app) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate against the trading backend",
		RunE: func(cmd *cobra.Command, _ []string) error {
			flow := loginflow.New(a.client, a.sessions,
				loginflow.WithIdentitySink(a.cache),
				loginflow.WithPasswordSettings(a.cfg.Server.Password),
				loginflow.WithLogger(a.log),
			)

			state, err := flow.Submit(cmd.Context(), username, password)
			if err != nil {
				return err
			}

			switch state.Kind {
			case loginflow.KindSucceeded:
				fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s\n", a.sessions.Current().Username)
				return nil

			case loginflow.KindPasswordExpired:
				return resetExpiredPassword(cmd, flow, state.Username)

			case loginflow.KindFailed:
				if fb, ok := flow.Feedback(); ok {
					return fmt.Errorf("%s: %s", fb.Title, fb.Message)
				}
				return fmt.Errorf("login failed")
			}
			return fmt.Errorf("unexpected login state %s", state.Kind)
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

// resetExpiredPassword walks the expired-password reset interactively and
// leaves the flow back in Idle for a fresh login attempt.
func resetExpiredPassword(cmd *cobra.Command, flow *loginflow.Flow, username string) error {
	fmt.Fprintf(cmd.OutOrStdout(), "password for %s has expired and must be changed\n", username)

	reader := bufio.NewReader(cmd.InOrStdin())
	newPassword, err := prompt(cmd, reader, "new password: ")
	if err != nil {
		return err
	}
	confirm, err := prompt(cmd, reader, "confirm password: ")
	if err != nil {
		return err
	}

	if _, err := flow.SubmitReset(cmd.Context(), newPassword, confirm); err != nil {
		return fmt.Errorf("password reset: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "password changed; run login again with the new password")
	return nil
}

func prompt(cmd *cobra.Command, reader *bufio.Reader, label string) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), label)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			flow := loginflow.New(a.client, a.sessions,
				loginflow.WithIdentitySink(a.cache),
				loginflow.WithLogger(a.log),
			)
			if err := flow.Logout(cmd.Context()); err != nil {
				// The local session is already cleared at this point.
				a.log.Warn().Err(err).Msg("server logout failed")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}

// printRouter satisfies the gateway's redirect contract for a terminal.
type printRouter struct {
	out *os.File
}

func (p printRouter) RedirectToLogin(from string) {
	fmt.Fprintf(p.out, "not logged in (wanted %s); run tradernet login\n", from)
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the authenticated identity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := []authgate.Option{authgate.WithLogger(a.log)}
			if a.cfg.TrustCachedIdentity {
				opts = append(opts, authgate.WithTrustedCache(a.cache))
			}
			gate := authgate.New(a.sessions, a.client, printRouter{out: os.Stdout}, opts...)

			state, err := gate.Resolve(cmd.Context(), "whoami")
			if err != nil {
				return err
			}
			if state != authgate.StateAuthenticated {
				os.Exit(1)
			}

			id := a.sessions.Current()
			fmt.Fprintf(cmd.OutOrStdout(), "%s (id %d)\n", id.Username, id.ID)
			return nil
		},
	}
}

func newNotificationsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"notify"},
		Short:   "Inspect and manage the notification drawer",
	}

	withDispatcher := func(run func(cmd *cobra.Command, args []string, d *notify.Dispatcher) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			store, err := bbolt.Open(a.cfg.NotificationsPath)
			if err != nil {
				return fmt.Errorf("open notification store: %w", err)
			}
			defer store.Close()

			d := notify.NewDispatcher(store, notify.WithLogger(a.log))
			defer d.Close()
			return run(cmd, args, d)
		}
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored notifications, newest first",
		RunE: withDispatcher(func(cmd *cobra.Command, _ []string, d *notify.Dispatcher) error {
			entries, err := d.Drawer(cmd.Context())
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no notifications")
				return nil
			}
			for _, n := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  [%s]  %s\n", n.ID, n.Variant, n.Title)
				for _, line := range n.Message {
					fmt.Fprintf(cmd.OutOrStdout(), "      %s\n", line)
				}
			}
			return nil
		}),
	}

	clear := &cobra.Command{
		Use:   "clear",
		Short: "Remove every stored notification",
		RunE: withDispatcher(func(cmd *cobra.Command, _ []string, d *notify.Dispatcher) error {
			if err := d.MarkAllRead(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "notifications cleared")
			return nil
		}),
	}

	remove := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove one stored notification",
		Args:  cobra.ExactArgs(1),
		RunE: withDispatcher(func(cmd *cobra.Command, args []string, d *notify.Dispatcher) error {
			if err := d.Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
			return nil
		}),
	}

	sweep := &cobra.Command{
		Use:   "sweep",
		Short: "Run the retention sweep once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := bbolt.Open(a.cfg.NotificationsPath)
			if err != nil {
				return fmt.Errorf("open notification store: %w", err)
			}
			defer store.Close()

			j, err := notify.NewJanitor(store, a.cfg.Janitor.Schedule, a.cfg.Janitor.MaxAge, a.log)
			if err != nil {
				return err
			}
			j.Sweep(cmd.Context())
			return nil
		},
	}

	cmd.AddCommand(list, clear, remove, sweep)
	return cmd
}
