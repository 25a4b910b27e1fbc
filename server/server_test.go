package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sonicfeed/config"
	"sonicfeed/db"
	"sonicfeed/feeds"
	"sonicfeed/feedsync"
	"sonicfeed/models"
	"sonicfeed/render"
	"sonicfeed/server"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const broadcast = "sonicfeed.posts.sync.v1"

type fixture struct {
	app    *fiber.App
	store  *db.Store
	hub    *feedsync.Hub
	view   *render.View
	loader *feeds.Loader
}

func setup(t *testing.T) *fixture {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feed.db")
	require.NoError(t, db.Migrate(path))

	hub := feedsync.NewHub()
	store, err := db.NewStore(path, hub)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	view := render.NewView(func(version uint64) {
		hub.Publish(feedsync.RenderChannel, feedsync.Message{Type: feedsync.TypeRender, Version: version})
	})
	loader := feeds.NewLoader(store, feeds.NoSource{}, view, config.Default(), render.Options{})
	loader.Run(context.Background())

	app := server.Server(&server.ServerConfig{
		Title:            "Test feed",
		Store:            store,
		Loader:           loader,
		View:             view,
		Hub:              hub,
		BroadcastChannel: broadcast,
		DefaultRetention: models.DefaultRetentionDays,
	})
	return &fixture{app: app, store: store, hub: hub, view: view, loader: loader}
}

func (f *fixture) do(t *testing.T, method, target, body string) (*http.Response, string) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.app.Test(req, 5000)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(data)
}

func TestPage(t *testing.T) {
	f := setup(t)

	resp, body := f.do(t, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, body, "<title>Test feed</title>")
	assert.Contains(t, body, `<div id="postList"><div class="post-empty">No posts yet.</div></div>`)
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))

	resp, body = f.do(t, http.MethodGet, "/api/feed/html", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `<div class="post-empty">No posts yet.</div>`, body)
}

func TestCreateAndListPosts(t *testing.T) {
	f := setup(t)

	resp, body := f.do(t, http.MethodPost, "/api/posts", `{"blocks":[
		{"type":"text","text":"<b>hi</b><script>x()</script>","rich":true},
		{"type":"image","url":"assets/images/cat.png","alt":"cat"},
		{"type":"embed","url":"<iframe src=\"https://www.youtube.com/embed/abc\"></iframe>"}
	]}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)

	var created models.Post
	require.NoError(t, json.Unmarshal([]byte(body), &created))
	assert.NotEmpty(t, created.Id)
	assert.Equal(t, []models.Block{
		models.TextBlock("<b>hi</b>", true),
		models.ImageBlock("/assets/images/cat.png", "cat"),
		models.EmbedBlock("https://www.youtube.com/embed/abc", ""),
	}, created.Blocks)

	resp, body = f.do(t, http.MethodGet, "/api/posts", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	posts, err := models.ParsePosts([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, []models.Post{created}, posts)
}

func TestCreatePostRejectsInvalidInput(t *testing.T) {
	f := setup(t)

	for _, body := range []string{
		`{"blocks":[{"type":"image","url":"javascript:alert(1)"}]}`,
		`{"blocks":[{"type":"text","text":"   "}]}`,
		`{"blocks":[]}`,
		`{nope`,
	} {
		resp, _ := f.do(t, http.MethodPost, "/api/posts", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}
	assert.Empty(t, f.store.Load(context.Background()))
}

func TestDeleteAndStickyPosts(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.True(t, f.store.Save(ctx, []models.Post{
		{Id: "a", CreatedAt: time.Now().UnixMilli(), Blocks: []models.Block{}},
		{Id: "b", CreatedAt: time.Now().UnixMilli(), Blocks: []models.Block{}},
	}))

	resp, body := f.do(t, http.MethodPut, "/api/posts/b/sticky", `{"sticky":true,"stickyPosition":2}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	posts := f.store.Load(ctx)
	assert.True(t, posts[1].Sticky)
	assert.Equal(t, 2, *posts[1].StickyPosition)

	resp, _ = f.do(t, http.MethodPut, "/api/posts/b/sticky", `{"sticky":false,"stickyPosition":2}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	posts = f.store.Load(ctx)
	assert.False(t, posts[1].Sticky)
	assert.Nil(t, posts[1].StickyPosition)

	resp, _ = f.do(t, http.MethodPut, "/api/posts/zzz/sticky", `{"sticky":true}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = f.do(t, http.MethodDelete, "/api/posts/a", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, []string{"b"}, []string{f.store.Load(ctx)[0].Id})

	resp, _ = f.do(t, http.MethodDelete, "/api/posts/a", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRetentionSettings(t *testing.T) {
	f := setup(t)

	resp, body := f.do(t, http.MethodGet, "/api/settings/retention", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"maxAgeDays":14}`, body)

	tests := []struct {
		body     string
		status   int
		expected int
	}{
		{body: `{"maxAgeDays":30}`, status: http.StatusOK, expected: 30},
		{body: `{"maxAgeDays":"7 days"}`, status: http.StatusOK, expected: 7},
		{body: `{"maxAgeDays":99999}`, status: http.StatusOK, expected: 3650},
		{body: `{"maxAgeDays":-1}`, status: http.StatusOK, expected: 0},
		{body: `{"maxAgeDays":"soon"}`, status: http.StatusBadRequest, expected: 0},
		{body: `{}`, status: http.StatusBadRequest, expected: 0},
	}
	for _, tt := range tests {
		resp, _ := f.do(t, http.MethodPut, "/api/settings/retention", tt.body)
		assert.Equal(t, tt.status, resp.StatusCode, tt.body)
		assert.Equal(t, tt.expected, f.store.GetRetentionDays(context.Background(), 14), tt.body)
	}
}

func TestRefreshPublishesBroadcast(t *testing.T) {
	f := setup(t)
	_, refreshes := f.hub.Subscribe(broadcast)

	resp, _ := f.do(t, http.MethodPost, "/sync/refresh", "")
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	select {
	case msg := <-refreshes:
		assert.Equal(t, feedsync.TypeRefresh, msg.Type)
	default:
		t.Fatal("no refresh published")
	}
}

func TestEditsReachTheFeedThroughSync(t *testing.T) {
	f := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watcher := feedsync.NewWatcher(f.hub, f.loader, broadcast)
	go watcher.Watch(ctx)
	require.Eventually(t, func() bool { return f.hub.Subscribers(feedsync.StorageChannel) == 1 }, time.Second, 5*time.Millisecond)

	resp, _ := f.do(t, http.MethodPost, "/api/posts", `{"blocks":[{"type":"text","text":"fresh news"}]}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	assert.Eventually(t, func() bool {
		return strings.Contains(f.view.HTML(), "fresh news")
	}, 2*time.Second, 10*time.Millisecond)

	_, body := f.do(t, http.MethodGet, "/api/feed", "")
	var snapshot models.FeedSnapshot
	require.NoError(t, json.Unmarshal([]byte(body), &snapshot))
	assert.Equal(t, models.OriginStore, snapshot.Origin)
	assert.Len(t, snapshot.Posts, 1)
}

func TestSSEStreamsInitEvent(t *testing.T) {
	f := setup(t)
	// A closed hub ends the stream right after the init event
	f.hub.Shutdown()

	resp, body := f.do(t, http.MethodGet, "/sync/sse", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.True(t, strings.HasPrefix(body, "event: init\ndata: {\"key\":"), body)
	assert.Contains(t, body, `"version":1}`)
}

func TestMetrics(t *testing.T) {
	f := setup(t)

	resp, body := f.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "sonicfeed_loader_runs_total")
}
