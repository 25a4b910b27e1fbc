/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func RootApp() *cli.App {
	return &cli.App{
		Name:  "sonicfeed",
		Usage: "A small self-hosted feed of text, image and embed posts",
		Description: `A small feed of posts built from text, image and embedded
		content blocks.

		Posts are kept in an SQLite file or a PostgreSQL database and can be
		published from a static JSON file or URL instead. The server renders
		the feed page, exposes an API to edit posts and keeps every open page
		and every other sonicfeed process in sync.

		Flags can generally be set via environment variables, e.g.:

		--database => SONICFEED_DATABASE=feed.db
		--port => SONICFEED_PORT=3000
		`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database",
				Aliases: []string{"d"},
				Value:   "feed.db",
				Usage:   "SQLite database file or postgres:// connection string",
				EnvVars: []string{"SONICFEED_DATABASE"},
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "sonicfeed.toml",
				Usage:   "Path to the configuration file",
				EnvVars: []string{"SONICFEED_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (trace, debug, info, warn, error)",
				EnvVars: []string{"SONICFEED_LOG_LEVEL"},
			},
		},
		Before: func(ctx *cli.Context) error {
			level, err := log.ParseLevel(ctx.String("log-level"))
			if err != nil {
				return err
			}
			log.SetLevel(level)
			return nil
		},
		Commands: []*cli.Command{
			serveCmd(),
			migrateCmd(),
			rollbackCmd(),
			tidyCmd(),
			renderCmd(),
			postCmd(),
			retentionCmd(),
			refreshCmd(),
			sanitizeCmd(),
		},
		Action: func(ctx *cli.Context) error {
			// Show help if no command is specified
			return ctx.App.Run([]string{"", "help"})
		},
	}
}
