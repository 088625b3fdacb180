package middleware

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	bm "github.com/charmbracelet/wish/bubbletea"
	"github.com/deemkeen/nostrodon/logging"
	"github.com/deemkeen/nostrodon/relay"
	"github.com/deemkeen/nostrodon/ui"
	"github.com/deemkeen/nostrodon/util"
	"github.com/muesli/termenv"
)

// FeedFactory connects a fresh relay feed for one session.
type FeedFactory func(ctx context.Context) (*relay.Feed, error)

// NewFeedFactory builds feeds from the configuration, persisting into store.
func NewFeedFactory(conf *util.AppConfig, store relay.Store) FeedFactory {
	return func(ctx context.Context) (*relay.Feed, error) {
		feed := relay.NewFeed(relay.Config{
			Relays:  conf.Conf.Relays,
			PubKey:  conf.Conf.PubKey,
			Follows: conf.Conf.Follows,
			Limit:   conf.Conf.TimelineLimit,
		}, store)
		if err := feed.Start(ctx); err != nil {
			feed.Close()
			return nil, err
		}
		return feed, nil
	}
}

// MainTui runs one timeline engine, relay feed and UI per SSH session.
func MainTui(conf *util.AppConfig, cache ui.Cache, newFeed FeedFactory) wish.Middleware {
	teaHandler := func(s ssh.Session) *tea.Program {
		pty, _, active := s.Pty()
		if !active {
			wish.Println(s, "no active terminal, skipping")
			return nil
		}

		ctx := s.Context()
		feed, err := newFeed(ctx)
		if err != nil {
			logging.Error().Err(err).Str("user", s.User()).Msg("could not start relay feed")
			wish.Println(s, "could not reach any relay:", err.Error())
			return nil
		}
		go func() {
			<-ctx.Done()
			feed.Close()
		}()

		opts := ui.Options{PubKey: conf.Conf.PubKey, Follows: feed.Follows(), Limit: conf.Conf.TimelineLimit}
		m := ui.NewModel(ctx, feed, cache, opts, pty.Window.Width, pty.Window.Height)
		return tea.NewProgram(m, tea.WithInput(s), tea.WithOutput(s), tea.WithAltScreen())
	}
	return bm.MiddlewareWithProgramHandler(teaHandler, termenv.ANSI256)
}
