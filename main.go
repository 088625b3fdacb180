package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/term"
	"github.com/deemkeen/nostrodon/db"
	"github.com/deemkeen/nostrodon/logging"
	"github.com/deemkeen/nostrodon/relay"
	"github.com/deemkeen/nostrodon/ui"
	"github.com/deemkeen/nostrodon/util"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:     util.Name,
	Short:   "A terminal timeline for nostr",
	Long:    `nostrodon follows your nostr contacts across relays and shows their notes,
reactions, reposts and zaps as a live timeline in the terminal.`,
	Version: util.GetVersion(),
	RunE:    runLocal,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (default ./config.yaml or ~/.config/nostrodon/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConf() (*util.AppConfig, error) {
	var (
		conf *util.AppConfig
		err  error
	)
	if configPath != "" {
		conf, err = util.ReadConfFrom(configPath)
	} else {
		conf, err = util.ReadConf()
	}
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		conf.Conf.LogLevel = logLevel
	}
	return conf, nil
}

// setupLogFile moves the logger off the terminal for the lifetime of the TUI.
func setupLogFile(conf *util.AppConfig) (io.Closer, error) {
	return logging.InitFile(conf.Conf.LogLevel, util.ResolveFilePath(conf.Conf.LogFile))
}

func openStore(conf *util.AppConfig) *db.DB {
	db.SetPath(conf.Conf.Database)
	return db.GetDB()
}

func feedConfig(conf *util.AppConfig) relay.Config {
	return relay.Config{
		Relays:  conf.Conf.Relays,
		PubKey:  conf.Conf.PubKey,
		Follows: conf.Conf.Follows,
		Limit:   conf.Conf.TimelineLimit,
	}
}

func runLocal(cmd *cobra.Command, _ []string) error {
	conf, err := loadConf()
	if err != nil {
		return err
	}
	logFile, err := setupLogFile(conf)
	if err != nil {
		return err
	}
	defer logFile.Close()

	store := openStore(conf)
	defer store.Close()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	feed := relay.NewFeed(feedConfig(conf), store)
	defer feed.Close()
	fmt.Fprintf(os.Stderr, "connecting to %d relays…\n", len(conf.Conf.Relays))
	if err := feed.Start(ctx); err != nil {
		return err
	}
	logging.Info().Strs("relays", conf.Conf.Relays).Int("follows", len(feed.Follows())).Msg("feed started")

	width, height, err := term.GetSize(os.Stdout.Fd())
	if err != nil {
		width, height = 120, 40
	}

	opts := ui.Options{PubKey: conf.Conf.PubKey, Follows: feed.Follows(), Limit: conf.Conf.TimelineLimit}
	p := tea.NewProgram(ui.NewModel(ctx, feed, store, opts, width, height), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !isShutdown(ctx, err) {
		return err
	}
	return nil
}

func isShutdown(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, tea.ErrProgramKilled)
}
