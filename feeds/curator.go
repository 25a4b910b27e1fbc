// Package feeds decides which posts are visible and in what order, and loads
// the feed from its external source or the local store.
package feeds

import (
	"math"
	"sort"
	"time"

	"sonicfeed/models"

	"github.com/samber/lo"
)

// Prune is PruneAt with the current time.
func Prune(posts []models.Post, maxAgeDays int) []models.Post {
	return PruneAt(posts, maxAgeDays, time.Now())
}

// PruneAt returns the posts created within the last maxAgeDays days before
// now. 0 keeps every post; negative values count as 0. Values above the stored
// retention maximum are used as given. The input slice is not modified.
func PruneAt(posts []models.Post, maxAgeDays int, now time.Time) []models.Post {
	if maxAgeDays <= 0 || int64(maxAgeDays) > math.MaxInt64/models.DayMillis {
		return append(make([]models.Post, 0, len(posts)), posts...)
	}

	cutoff := now.UnixMilli() - int64(maxAgeDays)*models.DayMillis
	return lo.Filter(posts, func(p models.Post, _ int) bool {
		return p.CreatedAt >= cutoff
	})
}

// SortNewestFirst orders posts in place and returns them. Sticky posts come
// first, by ascending sticky position; stickies without a usable position go
// last among them. Remaining ties are broken newest first.
func SortNewestFirst(posts []models.Post) []models.Post {
	sort.SliceStable(posts, func(i, j int) bool {
		a, b := posts[i], posts[j]
		if a.Sticky != b.Sticky {
			return a.Sticky
		}
		if a.Sticky {
			if pa, pb := stickyRank(a), stickyRank(b); pa != pb {
				return pa < pb
			}
		}
		return a.CreatedAt > b.CreatedAt
	})
	return posts
}

func stickyRank(p models.Post) int {
	if p.StickyPosition == nil || *p.StickyPosition < 1 {
		return math.MaxInt
	}
	return *p.StickyPosition
}

// Curate prunes and sorts posts for display.
func Curate(posts []models.Post, maxAgeDays int, now time.Time) []models.Post {
	return SortNewestFirst(PruneAt(posts, maxAgeDays, now))
}
