package feedsync

import (
	"context"
	"sync"

	"sonicfeed/db"
	"sonicfeed/models"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

// Runner is a feed loader.
type Runner interface {
	Run(ctx context.Context) models.FeedSnapshot
}

// Watcher re-runs the loader whenever stored feed data changes or a refresh
// is broadcast.
type Watcher struct {
	hub       *Hub
	runner    Runner
	broadcast string
	keys      []string

	wg sync.WaitGroup
}

func NewWatcher(hub *Hub, runner Runner, broadcastChannel string) *Watcher {
	return &Watcher{
		hub:       hub,
		runner:    runner,
		broadcast: broadcastChannel,
		keys:      []string{db.PostsKey, db.RetentionKey},
	}
}

// Watch blocks until ctx is done or the hub shuts down, then waits for the
// loader runs it started.
func (w *Watcher) Watch(ctx context.Context) {
	storageKey, storage := w.hub.Subscribe(StorageChannel)
	broadcastKey, broadcast := w.hub.Subscribe(w.broadcast)
	defer func() {
		w.hub.Unsubscribe(StorageChannel, storageKey)
		w.hub.Unsubscribe(w.broadcast, broadcastKey)
		w.wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-storage:
			if !ok {
				return
			}
			if msg.Type == TypeStorage && lo.Contains(w.keys, msg.Key) {
				w.reload(ctx, StorageChannel, msg)
			}
		case msg, ok := <-broadcast:
			if !ok {
				return
			}
			if msg.Type == TypeRefresh {
				w.reload(ctx, w.broadcast, msg)
			}
		}
	}
}

// reload starts an independent loader run. Runs already in flight are left
// alone; whichever renders last wins.
func (w *Watcher) reload(ctx context.Context, channel string, msg Message) {
	log.WithFields(log.Fields{
		"channel": channel,
		"key":     msg.Key,
		"origin":  msg.Origin,
	}).Info("Feed changed, reloading")
	reloads.WithLabelValues(channel).Inc()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.runner.Run(ctx)
	}()
}
