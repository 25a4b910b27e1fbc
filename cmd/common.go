/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"

	"sonicfeed/config"
	"sonicfeed/db"
	"sonicfeed/feedsync"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// loadConfig reads the config file and applies flag overrides.
func loadConfig(ctx *cli.Context) (*config.TomlConfig, error) {
	cfg, err := config.LoadConfig(ctx.String("config"))
	if err != nil {
		return nil, err
	}
	if ctx.IsSet("source") {
		cfg.Feed.Source = ctx.String("source")
	}
	if ctx.IsSet("redis-addr") {
		cfg.Sync.RedisAddr = ctx.String("redis-addr")
	}
	return cfg, nil
}

func openStore(ctx *cli.Context, notifier db.Notifier) (*db.Store, error) {
	database := ctx.String("database")
	log.WithFields(log.Fields{
		"database": database,
	}).Debug("Opening store")
	return db.NewStore(database, notifier)
}

func redisClient(cfg *config.TomlConfig) *redis.Client {
	if cfg.Sync.RedisAddr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: cfg.Sync.RedisAddr})
}

// notifyServers asks running servers to reload after a change made by the
// CLI. Without Redis they pick the change up on their next reload.
func notifyServers(ctx context.Context, cfg *config.TomlConfig) {
	client := redisClient(cfg)
	if client == nil {
		return
	}
	defer client.Close()

	if err := feedsync.PublishRefresh(ctx, client, cfg.Sync.Channel); err != nil {
		log.WithFields(log.Fields{
			"error": err,
		}).Warn("Could not notify running servers")
	}
}

func redisAddrFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "redis-addr",
		Usage:   "Redis address used to sync sonicfeed processes",
		EnvVars: []string{"SONICFEED_REDIS_ADDR"},
	}
}

// changeTracker records whether the store wrote anything.
type changeTracker struct {
	changed bool
}

func (c *changeTracker) Notify(key string) {
	log.WithFields(log.Fields{
		"key": key,
	}).Debug("Stored value changed")
	c.changed = true
}
