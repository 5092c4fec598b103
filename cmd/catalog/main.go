// Command catalog browses and maintains the application catalog from a terminal.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bcnelson/app-catalog/internal/bootstrap"
	"github.com/bcnelson/app-catalog/internal/config"
	"github.com/bcnelson/app-catalog/internal/gateway"
	"github.com/bcnelson/app-catalog/internal/logging"
	"github.com/bcnelson/app-catalog/internal/prefs"
	"github.com/bcnelson/app-catalog/internal/session"
	"github.com/bcnelson/app-catalog/internal/storage"
	"github.com/bcnelson/app-catalog/internal/validation"
)

var (
	// Version is set during build
	Version = "dev"
)

// cli holds what every command needs. Tests fill store and prefs before running a command.
type cli struct {
	cfg   *config.Config
	log   zerolog.Logger
	store storage.Storage
	prefs prefs.Store
	sess  *session.Session

	outMu sync.Mutex
	out   io.Writer
}

func main() {
	_ = godotenv.Load()

	c := &cli{out: os.Stdout}
	if err := newRootCmd(c).Execute(); err != nil {
		var verrs validation.ValidationErrors
		if errors.As(err, &verrs) {
			fmt.Fprintln(os.Stderr, "invalid input:", verrs.Summary())
		} else {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd(c *cli) *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:           "catalog",
		Short:         "Browse the application catalog",
		Long:          "catalog lists, searches, imports and exports applications in the catalog.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.open(cmd, logLevel)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			c.close()
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	root.AddCommand(
		newListCmd(c),
		newSearchCmd(c),
		newSuggestCmd(c),
		newShowCmd(c),
		newImportCmd(c),
		newExportCmd(c),
		newHistoryCmd(c),
		newThemeCmd(c),
		newStatsCmd(c),
		newShellCmd(c),
	)
	return root
}

// open loads configuration, opens the backends unless already set, and starts the session.
func (c *cli) open(cmd *cobra.Command, logLevel string) error {
	if c.out == nil {
		c.out = cmd.OutOrStdout()
	}
	if c.cfg == nil {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		c.cfg = cfg
	}
	c.log = logging.New(logging.Config{Level: logLevel, Format: "console", Service: "catalog", Output: cmd.ErrOrStderr()})

	if c.store == nil {
		store, err := bootstrap.OpenStorage(c.cfg, c.log)
		if err != nil {
			return err
		}
		c.store = store
	}
	if c.prefs == nil {
		p, err := bootstrap.OpenPreferences(&c.cfg.Preferences, c.log)
		if err != nil {
			return err
		}
		c.prefs = p
	}

	c.sess = session.New(gateway.NewApplications(c.store, c.log), c.prefs, session.Options{
		Debounce:      c.cfg.Search.Debounce,
		OnSuggestions: c.printSuggestions,
	}, c.log)
	return c.sess.Start(cmd.Context())
}

func (c *cli) close() {
	if c.sess != nil {
		c.sess.Close()
	}
	if c.prefs != nil {
		if err := c.prefs.Close(); err != nil {
			c.log.Warn().Err(err).Msg("closing preferences")
		}
	}
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			c.log.Warn().Err(err).Msg("closing storage")
		}
	}
}

func (c *cli) printf(format string, args ...any) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}
