/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
)

func tidyCmd() *cli.Command {
	return &cli.Command{
		Name:  "tidy",
		Usage: "Tidy up the database",
		Description: `Tidy up the database by removing posts that are old.

		Removes posts older than the stored retention setting. Does nothing when
		no retention has been stored or it is 0 (keep forever).`,
		Flags: []cli.Flag{redisAddrFlag()},
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

			removed, err := store.Tidy(ctx.Context, time.Now())
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d posts\n", removed)
			if removed > 0 {
				notifyServers(ctx.Context, cfg)
			}
			return nil
		},
	}
}
