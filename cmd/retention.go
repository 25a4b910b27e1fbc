/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"sonicfeed/models"

	"github.com/urfave/cli/v2"
)

func retentionCmd() *cli.Command {
	return &cli.Command{
		Name:      "retention",
		Usage:     "Show or set how many days posts stay visible",
		ArgsUsage: "[days]",
		Description: `Without an argument, prints the stored retention in days. With one,
		stores it. Values are clamped to 0..3650 and 0 keeps posts forever.`,
		Flags: []cli.Flag{redisAddrFlag()},
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			tracker := &changeTracker{}
			store, err := openStore(ctx, tracker)
			if err != nil {
				return err
			}
			defer store.Close()

			if ctx.NArg() > 0 {
				if !store.SetRetentionDaysString(ctx.Context, ctx.Args().First()) {
					return fmt.Errorf("could not store retention %q", ctx.Args().First())
				}
				if tracker.changed {
					notifyServers(ctx.Context, cfg)
				}
			}

			days := store.GetRetentionDays(ctx.Context, cfg.Feed.DefaultRetentionDays)
			if days == models.MinRetentionDays {
				fmt.Println("Posts are kept forever")
				return nil
			}
			fmt.Printf("Posts are visible for %d days\n", days)
			return nil
		},
	}
}
