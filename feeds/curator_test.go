package feeds_test

import (
	"math"
	"testing"
	"time"

	"sonicfeed/feeds"
	"sonicfeed/models"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

func intPtr(n int) *int { return &n }

func ids(posts []models.Post) []string {
	return lo.Map(posts, func(p models.Post, _ int) string { return p.Id })
}

func TestPruneAt(t *testing.T) {
	now := time.UnixMilli(5000 * models.DayMillis)
	nowMs := now.UnixMilli()
	posts := []models.Post{
		{Id: "future", CreatedAt: nowMs + 365*models.DayMillis},
		{Id: "fresh", CreatedAt: nowMs - 1},
		{Id: "boundary", CreatedAt: nowMs - 7*models.DayMillis},
		{Id: "stale", CreatedAt: nowMs - 7*models.DayMillis - 1},
		{Id: "ancient", CreatedAt: 0},
	}

	tests := []struct {
		name       string
		maxAgeDays int
		expected   []string
	}{
		{name: "zero keeps everything", maxAgeDays: 0, expected: []string{"future", "fresh", "boundary", "stale", "ancient"}},
		{name: "negative counts as zero", maxAgeDays: -3, expected: []string{"future", "fresh", "boundary", "stale", "ancient"}},
		{name: "boundary is included", maxAgeDays: 7, expected: []string{"future", "fresh", "boundary"}},
		{name: "one day", maxAgeDays: 1, expected: []string{"future", "fresh"}},
		{name: "above stored maximum is not clamped", maxAgeDays: 5001, expected: []string{"future", "fresh", "boundary", "stale", "ancient"}},
		{name: "just short of the oldest post", maxAgeDays: 4999, expected: []string{"future", "fresh", "boundary", "stale"}},
		{name: "huge value keeps everything", maxAgeDays: math.MaxInt, expected: []string{"future", "fresh", "boundary", "stale", "ancient"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ids(feeds.PruneAt(posts, tt.maxAgeDays, now)))
		})
	}
}

func TestPruneDoesNotModifyInput(t *testing.T) {
	posts := []models.Post{{Id: "a", CreatedAt: 0}, {Id: "b", CreatedAt: time.Now().UnixMilli()}}
	pruned := feeds.Prune(posts, 1)
	assert.Equal(t, []string{"b"}, ids(pruned))

	pruned[0].Id = "changed"
	assert.Equal(t, []string{"a", "b"}, ids(posts))

	all := feeds.Prune(posts, 0)
	all[0].Id = "changed"
	assert.Equal(t, "a", posts[0].Id)
}

func TestSortNewestFirst(t *testing.T) {
	tests := []struct {
		name     string
		posts    []models.Post
		expected []string
	}{
		{
			name: "non sticky newest first",
			posts: []models.Post{
				{Id: "old", CreatedAt: 1},
				{Id: "new", CreatedAt: 3},
				{Id: "mid", CreatedAt: 2},
			},
			expected: []string{"new", "mid", "old"},
		},
		{
			name: "sticky before newer posts",
			posts: []models.Post{
				{Id: "new", CreatedAt: 100},
				{Id: "pinned", CreatedAt: 1, Sticky: true},
			},
			expected: []string{"pinned", "new"},
		},
		{
			name: "sticky positions ascending",
			posts: []models.Post{
				{Id: "third", CreatedAt: 9, Sticky: true, StickyPosition: intPtr(3)},
				{Id: "first", CreatedAt: 1, Sticky: true, StickyPosition: intPtr(1)},
				{Id: "second", CreatedAt: 5, Sticky: true, StickyPosition: intPtr(2)},
			},
			expected: []string{"first", "second", "third"},
		},
		{
			name: "unpositioned stickies last among stickies",
			posts: []models.Post{
				{Id: "plain", CreatedAt: 50},
				{Id: "none", CreatedAt: 40, Sticky: true},
				{Id: "zero", CreatedAt: 30, Sticky: true, StickyPosition: intPtr(0)},
				{Id: "negative", CreatedAt: 45, Sticky: true, StickyPosition: intPtr(-2)},
				{Id: "one", CreatedAt: 1, Sticky: true, StickyPosition: intPtr(1)},
			},
			expected: []string{"one", "negative", "none", "zero", "plain"},
		},
		{
			name: "position collisions newest first",
			posts: []models.Post{
				{Id: "older", CreatedAt: 1, Sticky: true, StickyPosition: intPtr(1)},
				{Id: "newer", CreatedAt: 2, Sticky: true, StickyPosition: intPtr(1)},
			},
			expected: []string{"newer", "older"},
		},
		{
			name: "equal timestamps keep input order",
			posts: []models.Post{
				{Id: "a", CreatedAt: 5},
				{Id: "b", CreatedAt: 5},
				{Id: "c", CreatedAt: 5},
			},
			expected: []string{"a", "b", "c"},
		},
		{
			name: "position ignored on non sticky",
			posts: []models.Post{
				{Id: "older", CreatedAt: 1, StickyPosition: intPtr(1)},
				{Id: "newer", CreatedAt: 2},
			},
			expected: []string{"newer", "older"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sorted := feeds.SortNewestFirst(tt.posts)
			assert.Equal(t, tt.expected, ids(sorted))
			assert.Equal(t, tt.expected, ids(tt.posts), "sorts in place")
		})
	}
}

func TestSortNewestFirstProperties(t *testing.T) {
	var posts []models.Post
	for i := 0; i < 50; i++ {
		p := models.Post{Id: lo.RandomString(8, lo.LettersCharset), CreatedAt: int64((i * 7919) % 97)}
		if i%5 == 0 {
			p.Sticky = true
			p.StickyPosition = intPtr(i % 3)
		}
		posts = append(posts, p)
	}

	sorted := feeds.SortNewestFirst(posts)

	seenPlain := false
	var lastPlain int64
	for _, p := range sorted {
		if p.Sticky {
			assert.False(t, seenPlain, "sticky post after a non-sticky one")
			continue
		}
		if seenPlain {
			assert.LessOrEqual(t, p.CreatedAt, lastPlain)
		}
		seenPlain = true
		lastPlain = p.CreatedAt
	}
}

func TestCurate(t *testing.T) {
	now := time.UnixMilli(100 * models.DayMillis)
	posts := []models.Post{
		{Id: "old", CreatedAt: now.UnixMilli() - 30*models.DayMillis, Sticky: true},
		{Id: "a", CreatedAt: now.UnixMilli() - 2*models.DayMillis},
		{Id: "b", CreatedAt: now.UnixMilli() - models.DayMillis},
	}
	assert.Equal(t, []string{"b", "a"}, ids(feeds.Curate(posts, 14, now)))
	assert.Equal(t, []string{"old", "a", "b"}, ids(posts))
}
