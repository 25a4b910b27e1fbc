package db

import (
	"context"
	"fmt"
	"time"

	"sonicfeed/models"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

// Tidy permanently deletes posts that have aged out of the stored retention
// window. Nothing is removed while no retention is stored or it is 0.
func (s *Store) Tidy(ctx context.Context, now time.Time) (int, error) {
	days := s.GetRetentionDays(ctx, models.MinRetentionDays)
	if days == 0 {
		log.Info("Retention disabled, nothing to tidy")
		return 0, nil
	}

	cutoff := now.UnixMilli() - int64(days)*models.DayMillis
	posts := s.Load(ctx)
	kept := lo.Filter(posts, func(p models.Post, _ int) bool {
		return p.CreatedAt >= cutoff
	})

	removed := len(posts) - len(kept)
	log.WithFields(log.Fields{
		"maxAgeDays": days,
		"cutoff":     time.UnixMilli(cutoff).Format(time.RFC3339),
		"removed":    removed,
	}).Info("Tidying posts")

	if removed == 0 {
		return 0, nil
	}
	if !s.Save(ctx, kept) {
		return 0, fmt.Errorf("failed to save tidied posts")
	}
	return removed, nil
}
