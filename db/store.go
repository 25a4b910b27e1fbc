// Package db persists the post collection and the retention setting in a
// small key-value table, backed by an SQLite file or a PostgreSQL database.
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"sonicfeed/models"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	log "github.com/sirupsen/logrus"
)

const (
	PostsKey     = "sonicfeed.posts.v1"
	RetentionKey = "sonicfeed.posts.maxAgeDays.v1"

	// SchemaVersion is the version carried by the key names.
	SchemaVersion = 1
)

const opTimeout = 30 * time.Second

// Notifier is told about every key whose stored value changed.
type Notifier interface {
	Notify(key string)
}

// Store is the only owner of the persisted feed state. Its methods never
// return errors: failures are logged and reported through empty results,
// defaults or false.
type Store struct {
	db       *sql.DB
	flavor   sqlbuilder.Flavor
	notifier Notifier
	now      func() time.Time
}

// NewStore opens the database behind dsn. notifier may be nil.
func NewStore(dsn string, notifier Notifier) (*Store, error) {
	db, flavor, err := connection(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return &Store{
		db:       db,
		flavor:   flavor,
		notifier: notifier,
		now:      time.Now,
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns the stored posts. Missing or unreadable data gives an empty
// slice; individual corrupt posts are dropped.
func (s *Store) Load(ctx context.Context) []models.Post {
	raw, found, err := s.get(ctx, PostsKey)
	if err != nil {
		log.WithFields(log.Fields{
			"key":   PostsKey,
			"error": err,
		}).Error("Could not read posts")
		return []models.Post{}
	}
	if !found {
		return []models.Post{}
	}

	posts, err := models.ParsePosts([]byte(raw))
	if err != nil {
		log.WithFields(log.Fields{
			"key":   PostsKey,
			"error": err,
		}).Warn("Stored posts are corrupt, ignoring them")
	}
	return posts
}

// Save replaces the stored collection.
func (s *Store) Save(ctx context.Context, posts []models.Post) bool {
	if posts == nil {
		posts = []models.Post{}
	}
	data, err := json.Marshal(posts)
	if err != nil {
		log.WithFields(log.Fields{
			"error": err,
		}).Error("Could not serialize posts")
		return false
	}

	if err := s.put(ctx, PostsKey, string(data)); err != nil {
		log.WithFields(log.Fields{
			"key":   PostsKey,
			"posts": len(posts),
			"error": err,
		}).Error("Could not save posts")
		return false
	}
	return true
}

// GetRetentionDays returns the stored retention, clamped, or def when none
// is stored or it cannot be parsed.
func (s *Store) GetRetentionDays(ctx context.Context, def int) int {
	raw, found, err := s.get(ctx, RetentionKey)
	if err != nil {
		log.WithFields(log.Fields{
			"key":   RetentionKey,
			"error": err,
		}).Error("Could not read retention setting")
		return def
	}
	if !found {
		return def
	}

	days, ok := models.ParseRetentionDays(raw)
	if !ok {
		log.WithFields(log.Fields{
			"value": raw,
		}).Warn("Stored retention setting is not a number, using default")
		return def
	}
	return days
}

// SetRetentionDays clamps days into the allowed range and stores it.
func (s *Store) SetRetentionDays(ctx context.Context, days int) bool {
	clamped := models.ClampRetentionDays(days)
	if clamped != days {
		log.WithFields(log.Fields{
			"requested": days,
			"stored":    clamped,
		}).Warn("Retention out of range, clamping")
	}

	if err := s.put(ctx, RetentionKey, strconv.Itoa(clamped)); err != nil {
		log.WithFields(log.Fields{
			"key":   RetentionKey,
			"error": err,
		}).Error("Could not save retention setting")
		return false
	}
	return true
}

// SetRetentionDaysString stores raw when it starts with an integer. Input
// without one is rejected and nothing is written.
func (s *Store) SetRetentionDaysString(ctx context.Context, raw string) bool {
	days, ok := models.ParseLeadingInt(raw)
	if !ok {
		log.WithFields(log.Fields{
			"value": raw,
		}).Warn("Retention is not a number, ignoring")
		return false
	}
	return s.SetRetentionDays(ctx, days)
}

func (s *Store) get(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return s.getWith(ctx, s.db, key)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) getWith(ctx context.Context, q queryer, key string) (string, bool, error) {
	sb := s.flavor.NewSelectBuilder()
	sb.Select("value").From("kv").Where(sb.Equal("key", key))
	query, args := sb.Build()

	var value string
	err := q.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("select error: %w", err)
	}
	return value, true, nil
}

// put upserts key and notifies when the value differs from the stored one.
func (s *Store) put(ctx context.Context, key, value string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin error: %w", err)
	}
	defer tx.Rollback()

	current, found, err := s.getWith(ctx, tx, key)
	if err != nil {
		return err
	}
	if found && current == value {
		return nil
	}

	ib := s.flavor.NewInsertBuilder()
	ib.InsertInto("kv").Cols("key", "value", "updated_at").Values(key, value, s.now().UnixMilli())
	ib.SQL("ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at")
	query, args := ib.Build()

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert error: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit error: %w", err)
	}

	log.WithFields(log.Fields{
		"key":   key,
		"bytes": len(value),
	}).Debug("Stored value")

	if s.notifier != nil {
		s.notifier.Notify(key)
	}
	return nil
}
