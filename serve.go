package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	wishlog "github.com/charmbracelet/wish/logging"
	"github.com/deemkeen/nostrodon/logging"
	"github.com/deemkeen/nostrodon/middleware"
	"github.com/deemkeen/nostrodon/relay"
	"github.com/deemkeen/nostrodon/util"
	"github.com/deemkeen/nostrodon/web"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the timeline over ssh, plus the optional web pages",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		conf, err := loadConf()
		if err != nil {
			return err
		}
		logging.Init(logging.Config{Level: conf.Conf.LogLevel, Format: "console", Output: os.Stderr})
		logging.Info().Str("config", util.PrettyPrint(conf)).Msg("configuration")

		if !conf.Conf.WithSsh && !conf.Conf.WithWeb {
			return errors.New("both withSsh and withWeb are disabled, nothing to serve")
		}

		store := openStore(conf)
		defer store.Close()

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		var s *ssh.Server
		if conf.Conf.WithSsh {
			s, err = wish.NewServer(
				wish.WithAddress(net.JoinHostPort(conf.Conf.Host, strconv.Itoa(conf.Conf.SshPort))),
				wish.WithHostKeyPath(util.HostKeyPath()),
				wish.WithPublicKeyAuth(middleware.PublicKeyHandler(middleware.NewKeyList(conf.Conf.AuthorizedKeys))),
				wish.WithMiddleware(
					middleware.MainTui(conf, store, middleware.NewFeedFactory(conf, store)),
					middleware.AuthMiddleware(conf),
					wishlog.Middleware(), // last middleware executed first
				),
			)
			if err != nil {
				return err
			}
		}
		return startServing(ctx, s, conf, store)
	},
}

func startServing(ctx context.Context, s *ssh.Server, conf *util.AppConfig, store web.Store) error {
	errs := make(chan error, 2)

	if s != nil {
		logging.Info().Str("host", conf.Conf.Host).Int("port", conf.Conf.SshPort).Msg("starting ssh server")
		go func() {
			if err := s.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
				errs <- fmt.Errorf("ssh server: %w", err)
			}
		}()
	}

	if conf.Conf.WithWeb {
		pub := relay.Broadcaster{Relays: conf.Conf.Relays}
		go func() {
			if err := web.Router(conf, store, pub); err != nil {
				errs <- fmt.Errorf("web server: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errs:
	}

	if s != nil {
		logging.Info().Msg("stopping ssh server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil && runErr == nil {
			runErr = err
		}
	}
	return runErr
}
