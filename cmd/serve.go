/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"sonicfeed/content"
	"sonicfeed/db"
	"sonicfeed/feeds"
	"sonicfeed/feedsync"
	"sonicfeed/render"
	"sonicfeed/server"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the sonicfeed feed",
		Description: `Starts the sonicfeed HTTP server.

		Loads the feed from the configured source, or from the database when no
		source is configured or it cannot be fetched, and serves the rendered
		page together with the editing API. Every change to the stored posts or
		retention setting re-renders the feed and is pushed to open pages.

		With --redis-addr set, changes are also relayed to other sonicfeed
		processes sharing the same database.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "hostname",
				Aliases: []string{"n"},
				Usage:   "The hostname to listen on",
				EnvVars: []string{"SONICFEED_HOSTNAME"},
				Value:   "",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on",
				EnvVars: []string{"SONICFEED_PORT"},
				Value:   3000,
			},
			&cli.StringFlag{
				Name:    "source",
				Aliases: []string{"s"},
				Usage:   "URL or file path of a published posts payload",
				EnvVars: []string{"SONICFEED_SOURCE"},
			},
			&cli.StringFlag{
				Name:    "title",
				Usage:   "Title of the feed page",
				EnvVars: []string{"SONICFEED_TITLE"},
				Value:   "Feed",
			},
			&cli.StringFlag{
				Name:    "allow-origins",
				Usage:   "Comma separated origins allowed to call the API",
				EnvVars: []string{"SONICFEED_ALLOW_ORIGINS"},
			},
			redisAddrFlag(),
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}

			database := ctx.String("database")
			if err := db.Migrate(database); err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}

			hub := feedsync.NewHub()
			store, err := db.NewStore(database, hub)
			if err != nil {
				return err
			}
			defer store.Close()

			view := render.NewView(func(version uint64) {
				hub.Publish(feedsync.RenderChannel, feedsync.Message{
					Type:    feedsync.TypeRender,
					Version: version,
				})
			})
			loader := feeds.NewLoader(store, feeds.NewSource(cfg.Feed.Source), view, cfg, render.Options{
				Languages: content.NewLanguageDetector(cfg.Feed.Languages),
			})

			runCtx, cancel := context.WithCancel(context.Background())
			defer cancel()

			snapshot := loader.Run(runCtx)
			log.WithFields(log.Fields{
				"origin": snapshot.Origin,
				"posts":  len(snapshot.Posts),
			}).Info("Initial feed loaded")

			var wg sync.WaitGroup
			watcher := feedsync.NewWatcher(hub, loader, cfg.Sync.Channel)
			wg.Add(1)
			go func() {
				defer wg.Done()
				watcher.Watch(runCtx)
			}()

			if client := redisClient(cfg); client != nil {
				defer client.Close()
				bridge := feedsync.NewRedisBridge(hub, client, feedsync.StorageChannel, cfg.Sync.Channel)
				wg.Add(1)
				go func() {
					defer wg.Done()
					log.WithFields(log.Fields{
						"addr": cfg.Sync.RedisAddr,
					}).Info("Relaying feed changes over Redis")
					bridge.Run(runCtx)
				}()
			}

			app := server.Server(&server.ServerConfig{
				Title:            ctx.String("title"),
				Store:            store,
				Loader:           loader,
				View:             view,
				Hub:              hub,
				BroadcastChannel: cfg.Sync.Channel,
				DefaultRetention: cfg.Feed.DefaultRetentionDays,
				AllowOrigins:     ctx.String("allow-origins"),
			})

			// Graceful shutdown
			sigs := make(chan os.Signal, 1)
			signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
			go func() {
				<-sigs
				log.Info("Gracefully shutting down...")
				// Closing the hub ends open SSE streams so the server can drain
				hub.Shutdown()
				if err := app.ShutdownWithTimeout(60 * time.Second); err != nil {
					log.WithFields(log.Fields{
						"error": err,
					}).Error("Server did not shut down cleanly")
				}
			}()

			host := fmt.Sprintf("%s:%d", ctx.String("hostname"), ctx.Int("port"))
			log.WithFields(log.Fields{
				"host":     host,
				"database": database,
				"source":   cfg.Feed.Source,
			}).Info("Starting server")
			if err := app.Listen(host); err != nil {
				return err
			}

			cancel()
			wg.Wait()
			log.Info("Done!")
			return nil
		},
	}
}
