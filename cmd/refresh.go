/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"sonicfeed/feedsync"

	"github.com/urfave/cli/v2"
)

func refreshCmd() *cli.Command {
	return &cli.Command{
		Name:  "refresh",
		Usage: "Ask running servers to reload the feed",
		Description: `Broadcasts a refresh over Redis. Every server connected to the same
		Redis and sync channel reloads its feed from its source or database.`,
		Flags: []cli.Flag{redisAddrFlag()},
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			client := redisClient(cfg)
			if client == nil {
				return fmt.Errorf("no Redis address configured, set --redis-addr or [sync] redis_addr")
			}
			defer client.Close()

			if err := feedsync.PublishRefresh(ctx.Context, client, cfg.Sync.Channel); err != nil {
				return err
			}
			fmt.Println("Refresh sent on", cfg.Sync.Channel)
			return nil
		},
	}
}
