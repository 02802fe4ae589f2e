// Command aria is a headless music streaming playback daemon. It restores
// the persisted queue board, resolves stream URLs through the remote catalog
// and exposes playback to the desktop over MPRIS.
package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lcrosetto/aria/internal/catalog"
	"github.com/lcrosetto/aria/internal/config"
	"github.com/lcrosetto/aria/internal/connection"
	"github.com/lcrosetto/aria/internal/downloader"
	"github.com/lcrosetto/aria/internal/lyrics"
	"github.com/lcrosetto/aria/internal/mediasession"
	"github.com/lcrosetto/aria/internal/network"
	"github.com/lcrosetto/aria/internal/notify"
	"github.com/lcrosetto/aria/internal/player"
	"github.com/lcrosetto/aria/internal/queue"
	"github.com/lcrosetto/aria/internal/resolver"
	"github.com/lcrosetto/aria/internal/session"
	"github.com/lcrosetto/aria/internal/store"
)

const startupTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "aria: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "aria",
	})
	if os.Getenv("ARIA_DEBUG") != "" {
		logger.SetLevel(log.DebugLevel)
	}

	var st *store.Store
	var persister queue.Persister
	var library session.Library
	var formatStore resolver.FormatStore
	var formats connection.Formats
	if cfg.GetPersistQueue() {
		st, err = store.OpenDefault()
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()
		persister = st
		library = st
		formatStore = st
		formats = st
	}

	catCfg := cfg.GetCatalogConfig()
	cat := catalog.New(catCfg.BaseURL, catCfg.RatePerSecond)

	streamCfg := cfg.GetStreamConfig()
	res := resolver.New(cat, formatStore, resolver.Options{
		ExpiryMargin: time.Duration(streamCfg.ExpiryMarginSeconds) * time.Second,
		Timeout:      time.Duration(streamCfg.TimeoutSeconds) * time.Second,
		Quality:      catalog.Quality(cfg.GetAudioQuality()),
	}, logger)

	board := queue.NewBoard(cfg.GetMaxQueues(), persister, logger)

	engine := player.NewEngine(func(ctx context.Context, trackID string, isLocal bool) (string, error) {
		src, err := res.Resolve(ctx, trackID, isLocal, true)
		if err != nil {
			return "", err
		}
		return src.URL, nil
	})

	orch := session.New(engine, board, res, cat, library, session.Options{
		SkipOnError: cfg.GetSkipOnError(),
	}, logger)
	defer func() {
		if err := orch.Close(); err != nil {
			logger.Warn("session close failed", "err", err)
		}
	}()

	netMon := network.Watch(probeAddr(catCfg.BaseURL), orch.OnNetworkChanged, logger)
	defer netMon.Close()

	if cfg.GetPersistQueue() {
		ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
		if err := orch.Restore(ctx); err != nil {
			logger.Warn("queue restore failed", "err", err)
		}
		cancel()
	}

	var lyr *lyrics.Client
	if cfg.LyricsEnabled() {
		lyr = lyrics.New()
	}
	var downloads connection.Downloads
	if st != nil {
		downloads = downloader.New(st, logger)
	}
	conn := connection.New(orch, formats, lyr, downloads)

	if cfg.MPRISEnabled() {
		adapter, err := mediasession.New(conn)
		if err != nil {
			logger.Warn("media session unavailable", "err", err)
		} else {
			defer func() {
				if err := adapter.Close(); err != nil {
					logger.Warn("media session close failed", "err", err)
				}
			}()
		}
	}

	if cfg.NotificationsEnabled() {
		notifier, err := notify.New()
		if err != nil {
			logger.Warn("notifications unavailable", "err", err)
		} else {
			sub := orch.Subscribe()
			defer orch.Unsubscribe(sub)
			go announceTracks(sub, notify.NewAnnouncer(notifier))
		}
	}

	logger.Info("started", "catalog", catCfg.BaseURL, "quality", cfg.GetAudioQuality())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")
	return nil
}

// probeAddr derives the host:port the connectivity probe dials from the
// catalog base URL.
func probeAddr(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return ""
	}
	if u.Port() != "" {
		return u.Host
	}
	if u.Scheme == "http" {
		return u.Host + ":80"
	}
	return u.Host + ":443"
}

// announceTracks forwards track changes to the desktop notifier until the
// subscription is closed.
func announceTracks(sub *session.Subscription, announcer *notify.Announcer) {
	for {
		select {
		case <-sub.Done:
			return
		case tc, ok := <-sub.TrackChanged:
			if !ok {
				return
			}
			if tc.Track == nil {
				continue
			}
			announcer.TrackChanged(tc.Track.Title, tc.Track.Artist(), tc.Track.Album)
		}
	}
}
