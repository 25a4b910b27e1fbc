/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"sonicfeed/content"
	"sonicfeed/feeds"
	"sonicfeed/render"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func renderCmd() *cli.Command {
	return &cli.Command{
		Name:  "render",
		Usage: "Render the feed once and print the HTML",
		Description: `Runs the feed loader a single time and prints the rendered post list
		to stdout. Useful for static hosting or checking what the server would
		show.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "source",
				Aliases: []string{"s"},
				Usage:   "URL or file path of a published posts payload",
				EnvVars: []string{"SONICFEED_SOURCE"},
			},
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			store, err := openStore(ctx, nil)
			if err != nil {
				return err
			}
			defer store.Close()

			view := render.NewView(nil)
			loader := feeds.NewLoader(store, feeds.NewSource(cfg.Feed.Source), view, cfg, render.Options{
				Languages: content.NewLanguageDetector(cfg.Feed.Languages),
			})
			snapshot := loader.Run(ctx.Context)
			log.WithFields(log.Fields{
				"origin": snapshot.Origin,
				"posts":  len(snapshot.Posts),
			}).Debug("Rendered feed")

			fmt.Println(view.HTML())
			return nil
		},
	}
}
