package feeds

import (
	"context"
	"errors"
	"sync"
	"time"

	"sonicfeed/config"
	"sonicfeed/models"
	"sonicfeed/render"

	log "github.com/sirupsen/logrus"
)

// PostStore is the part of db.Store the loader needs.
type PostStore interface {
	Load(ctx context.Context) []models.Post
	GetRetentionDays(ctx context.Context, def int) int
	SetRetentionDays(ctx context.Context, days int) bool
}

// Loader runs one full pass: fetch or load, curate, seed and render. Runs
// are independent of each other and may overlap.
type Loader struct {
	Store            PostStore
	Source           Source
	Sink             render.Container
	Options          render.Options
	DefaultRetention int
	// Shown when nothing else is visible
	Seeds []models.Post
	Clock func() time.Time

	mu   sync.Mutex
	last models.FeedSnapshot
}

// NewLoader wires a loader from configuration. Seed posts are stamped with
// the construction time.
func NewLoader(store PostStore, source Source, sink render.Container, cfg *config.TomlConfig, opts render.Options) *Loader {
	if opts.EmptyText == "" {
		opts.EmptyText = cfg.Feed.EmptyText
	}
	return &Loader{
		Store:            store,
		Source:           source,
		Sink:             sink,
		Options:          opts,
		DefaultRetention: cfg.Feed.DefaultRetentionDays,
		Seeds:            SeedPosts(cfg.Seeds, time.Now().UnixMilli()),
		Clock:            time.Now,
	}
}

// Run loads the feed and renders it into the sink. It never fails: any
// problem with the external source falls back to the store.
func (l *Loader) Run(ctx context.Context) models.FeedSnapshot {
	start := time.Now()

	posts, maxAgeDays, ok := l.fromSource(ctx)
	origin := models.OriginSource
	if !ok {
		origin = models.OriginStore
		posts = l.Store.Load(ctx)
		maxAgeDays = l.Store.GetRetentionDays(ctx, l.DefaultRetention)
	}

	visible := Curate(posts, maxAgeDays, l.now())
	if len(visible) == 0 && len(l.Seeds) > 0 {
		visible = models.ClonePosts(l.Seeds)
	}

	snapshot := models.FeedSnapshot{
		Posts:      visible,
		MaxAgeDays: maxAgeDays,
		Origin:     origin,
	}

	l.mu.Lock()
	render.Render(l.Sink, visible, l.Options)
	l.last = snapshot
	l.mu.Unlock()

	loaderRuns.WithLabelValues(origin).Inc()
	loaderDuration.Observe(time.Since(start).Seconds())
	renderedPosts.Set(float64(len(visible)))

	log.WithFields(log.Fields{
		"origin":     origin,
		"posts":      len(visible),
		"maxAgeDays": maxAgeDays,
		"duration":   time.Since(start),
	}).Info("Rendered feed")

	return snapshot
}

// Last returns the snapshot of the most recently completed run.
func (l *Loader) Last() models.FeedSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last
}

// fromSource returns the external posts and effective retention, or ok=false
// when the store should be used instead.
func (l *Loader) fromSource(ctx context.Context) ([]models.Post, int, bool) {
	if l.Source == nil {
		return nil, 0, false
	}

	data, err := l.Source.Fetch(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoSource) {
			sourceFetchFailures.Inc()
			log.WithFields(log.Fields{
				"error": err,
			}).Warn("Could not fetch feed source, using stored posts")
		}
		return nil, 0, false
	}

	payload, ok := models.ParseSourcePayload(data)
	if !ok || len(payload.Posts) == 0 {
		log.WithFields(log.Fields{
			"bytes": len(data),
		}).Warn("Feed source has no usable posts, using stored posts")
		return nil, 0, false
	}

	if payload.MaxAgeDays != nil {
		// Keep the stored setting aligned with the published one
		l.Store.SetRetentionDays(ctx, *payload.MaxAgeDays)
		return payload.Posts, *payload.MaxAgeDays, true
	}
	return payload.Posts, l.Store.GetRetentionDays(ctx, l.DefaultRetention), true
}

func (l *Loader) now() time.Time {
	if l.Clock == nil {
		return time.Now()
	}
	return l.Clock()
}
