package feedsync

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	publishedMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sonicfeed_sync_published_total",
		Help: "Messages published on the sync hub by channel",
	}, []string{"channel"})

	droppedMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sonicfeed_sync_dropped_total",
		Help: "Messages dropped because a subscriber was not keeping up",
	}, []string{"channel"})

	reloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sonicfeed_sync_reloads_total",
		Help: "Loader runs started by sync signals",
	}, []string{"channel"})

	redisReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sonicfeed_sync_redis_reconnects_total",
		Help: "Attempts to re-establish the Redis subscription",
	})
)
