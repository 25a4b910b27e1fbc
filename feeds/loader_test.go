package feeds_test

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"sonicfeed/config"
	"sonicfeed/db"
	"sonicfeed/feeds"
	"sonicfeed/models"
	"sonicfeed/render"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu        sync.Mutex
	posts     []models.Post
	retention *int
	writes    int
}

func (s *fakeStore) Load(context.Context) []models.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.ClonePosts(s.posts)
}

func (s *fakeStore) GetRetentionDays(_ context.Context, def int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.retention == nil {
		return def
	}
	return *s.retention
}

func (s *fakeStore) SetRetentionDays(_ context.Context, days int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	days = models.ClampRetentionDays(days)
	s.retention = &days
	s.writes++
	return true
}

type staticSource struct {
	data string
	err  error
}

func (s staticSource) Fetch(context.Context) ([]byte, error) {
	return []byte(s.data), s.err
}

func newLoader(store feeds.PostStore, source feeds.Source, now time.Time) (*feeds.Loader, *render.View) {
	view := render.NewView(nil)
	return &feeds.Loader{
		Store:            store,
		Source:           source,
		Sink:             view,
		Options:          render.Options{Location: time.UTC},
		DefaultRetention: models.DefaultRetentionDays,
		Clock:            func() time.Time { return now },
	}, view
}

func TestLoaderSourceRetentionIsWrittenBack(t *testing.T) {
	now := time.UnixMilli(1000 * models.DayMillis)
	old := now.UnixMilli() - 31*models.DayMillis
	source := staticSource{data: fmt.Sprintf(`{"settings":{"maxAgeDays":"7"},"posts":[{"id":"a","createdAt":%d,"blocks":[]}]}`, old)}

	store := &fakeStore{}
	loader, view := newLoader(store, source, now)

	snapshot := loader.Run(context.Background())
	assert.Equal(t, models.OriginSource, snapshot.Origin)
	assert.Equal(t, 7, snapshot.MaxAgeDays)
	assert.Empty(t, snapshot.Posts)
	assert.Equal(t, 7, store.GetRetentionDays(context.Background(), 14))
	assert.Contains(t, view.HTML(), `class="post-empty"`)
}

func TestLoaderFallsBackToStoreWhenUnreachable(t *testing.T) {
	now := time.UnixMilli(1000 * models.DayMillis)
	store := &fakeStore{posts: []models.Post{
		{Id: "recent", CreatedAt: now.UnixMilli() - models.DayMillis, Blocks: []models.Block{models.TextBlock("hello", false)}},
	}}
	loader, view := newLoader(store, staticSource{err: feeds.ErrSourceUnavailable}, now)

	snapshot := loader.Run(context.Background())
	assert.Equal(t, models.OriginStore, snapshot.Origin)
	assert.Equal(t, models.DefaultRetentionDays, snapshot.MaxAgeDays)
	assert.Equal(t, []string{"recent"}, ids(snapshot.Posts))
	assert.Contains(t, view.HTML(), `data-post-id="recent"`)
	assert.Contains(t, view.HTML(), "hello")
	assert.Equal(t, 0, store.writes)
	assert.Nil(t, store.retention)
}

func TestLoaderFallbackCases(t *testing.T) {
	now := time.UnixMilli(1000 * models.DayMillis)
	recent := now.UnixMilli() - models.DayMillis

	tests := []struct {
		name   string
		source feeds.Source
	}{
		{name: "no source", source: feeds.NoSource{}},
		{name: "nil source", source: nil},
		{name: "malformed json", source: staticSource{data: "{nope"}},
		{name: "wrong shape", source: staticSource{data: `"posts"`}},
		{name: "null", source: staticSource{data: `null`}},
		{name: "posts not an array", source: staticSource{data: `{"settings":{"maxAgeDays":1},"posts":{}}`}},
		{name: "only corrupt posts", source: staticSource{data: `{"settings":{"maxAgeDays":1},"posts":[{"id":"x"},{"id":"y","createdAt":"1"}]}`}},
		{name: "empty legacy array", source: staticSource{data: `[]`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			thirty := 30
			store := &fakeStore{
				posts:     []models.Post{{Id: "stored", CreatedAt: recent, Blocks: []models.Block{}}},
				retention: &thirty,
			}
			loader, _ := newLoader(store, tt.source, now)

			snapshot := loader.Run(context.Background())
			assert.Equal(t, models.OriginStore, snapshot.Origin)
			assert.Equal(t, 30, snapshot.MaxAgeDays)
			assert.Equal(t, []string{"stored"}, ids(snapshot.Posts))
			assert.Equal(t, 0, store.writes, "embedded settings are ignored")
		})
	}
}

func TestLoaderLegacyPayloadUsesStoredRetention(t *testing.T) {
	now := time.UnixMilli(1000 * models.DayMillis)
	nowMs := now.UnixMilli()
	source := staticSource{data: fmt.Sprintf(`[
		{"id":"old","createdAt":%d,"blocks":[]},
		{"id":"new","createdAt":%d,"blocks":[]},
		{"id":"pinned","createdAt":%d,"sticky":true,"stickyPosition":"1","blocks":[]},
		{"id":"broken"}
	]`, nowMs-20*models.DayMillis, nowMs-models.DayMillis, nowMs-2*models.DayMillis)}

	loader, _ := newLoader(&fakeStore{}, source, now)
	snapshot := loader.Run(context.Background())

	assert.Equal(t, models.OriginSource, snapshot.Origin)
	assert.Equal(t, models.DefaultRetentionDays, snapshot.MaxAgeDays)
	assert.Equal(t, []string{"pinned", "new"}, ids(snapshot.Posts))
}

func TestLoaderSeedsEmptyFeed(t *testing.T) {
	cfg := config.Default()
	cfg.Seeds = []config.TomlSeed{{Blocks: []config.TomlSeedBlock{{Type: "text", Content: "Welcome"}}}}

	view := render.NewView(nil)
	loader := feeds.NewLoader(&fakeStore{}, feeds.NoSource{}, view, cfg, render.Options{})

	first := loader.Run(context.Background())
	firstHTML := view.HTML()
	second := loader.Run(context.Background())

	assert.Equal(t, []string{"seed-1"}, ids(first.Posts))
	assert.Equal(t, first, second)
	assert.Equal(t, firstHTML, view.HTML())
	assert.Contains(t, firstHTML, "Welcome")
	assert.Equal(t, second, loader.Last())
}

func TestLoaderEmptyText(t *testing.T) {
	cfg := config.Default()
	cfg.Feed.EmptyText = "Nothing here"

	view := render.NewView(nil)
	feeds.NewLoader(&fakeStore{}, nil, view, cfg, render.Options{}).Run(context.Background())
	assert.Equal(t, `<div class="post-empty">Nothing here</div>`, view.HTML())
}

func TestLoaderIsIdempotentAndConcurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.db")
	require.NoError(t, db.Migrate(path))
	store, err := db.NewStore(path, nil)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	now := time.Now()
	require.True(t, store.Save(ctx, []models.Post{
		{Id: "a", CreatedAt: now.UnixMilli() - 1000, Blocks: []models.Block{models.TextBlock("<i>a</i>", true)}},
		{Id: "b", CreatedAt: now.UnixMilli() - 2000, Blocks: []models.Block{models.ImageBlock("/assets/images/b.png", "")}},
	}))

	loader, view := newLoader(store, feeds.NoSource{}, now)
	expected := loader.Run(ctx)
	expectedHTML := view.HTML()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, expected, loader.Run(ctx))
		}()
	}
	wg.Wait()

	html, version := view.Snapshot()
	assert.Equal(t, expectedHTML, html)
	assert.Equal(t, uint64(9), version)
	assert.True(t, strings.Index(html, `data-post-id="a"`) < strings.Index(html, `data-post-id="b"`))
}
