package adapters

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/piraces/feedloader/pkg/loader"
	"github.com/piraces/feedloader/pkg/metrics"
	"github.com/piraces/feedloader/pkg/new/domain/feed"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// SQLiteFeedStore keeps the single cached feed in the feed_cache and
// feed_items tables created by scripts.SchemaSQL.
type SQLiteFeedStore struct {
	db *sql.DB
}

func NewSQLiteFeedStore(db *sql.DB) *SQLiteFeedStore {
	return &SQLiteFeedStore{db: db}
}

func (s *SQLiteFeedStore) Retrieve(completion func(loader.Result[*feed.CachedFeed])) loader.Task {
	return loader.Go(s.RetrieveContext, completion)
}

func (s *SQLiteFeedStore) Insert(items []feed.Item, timestamp time.Time, completion func(error)) loader.Task {
	return goErr(func(ctx context.Context) error {
		return s.InsertContext(ctx, items, timestamp)
	}, completion)
}

func (s *SQLiteFeedStore) DeleteCachedFeed(completion func(error)) loader.Task {
	return goErr(s.DeleteCachedFeedContext, completion)
}

// RetrieveContext returns nil when no feed is cached. The timestamp and the
// items are read in one transaction so they always belong to the same feed.
func (s *SQLiteFeedStore) RetrieveContext(ctx context.Context) (*feed.CachedFeed, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, errors.Wrap(err, "error starting the transaction")
	}
	defer tx.Rollback() // read only

	var timestamp int64
	row := tx.QueryRowContext(ctx, `SELECT timestamp FROM feed_cache WHERE id = 1`)
	if err := row.Scan(&timestamp); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		metrics.AppErrors.With(prometheus.Labels{"type": "SQL_SCAN"}).Inc()
		return nil, errors.Wrap(err, "error getting the cache timestamp")
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, description, location, image_url
		FROM feed_items
		ORDER BY position`,
	)
	if err != nil {
		return nil, errors.Wrap(err, "error getting the cached items")
	}
	defer rows.Close() // not much we can do here

	items, err := s.scan(rows)
	if err != nil {
		return nil, err
	}

	return &feed.CachedFeed{Items: items, Timestamp: time.Unix(0, timestamp).UTC()}, nil
}

// InsertContext replaces whatever feed is cached.
func (s *SQLiteFeedStore) InsertContext(ctx context.Context, items []feed.Item, timestamp time.Time) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM feed_items`); err != nil {
			return errors.Wrap(err, "error removing the previous items")
		}

		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO feed_cache (id, timestamp) VALUES (1, ?)`, timestamp.UnixNano()); err != nil {
			return errors.Wrap(err, "error saving the cache timestamp")
		}

		for i, item := range items {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO feed_items (position, id, description, location, image_url) VALUES (?, ?, ?, ?, ?)`,
				i, item.ID().String(), item.Description(), item.Location(), item.Image().String(),
			); err != nil {
				return errors.Wrapf(err, "error saving item %s", item.ID())
			}
		}

		log.Printf("[DEBUG] cached %d feed items", len(items))
		return nil
	})
}

// DeleteCachedFeedContext succeeds when nothing is cached.
func (s *SQLiteFeedStore) DeleteCachedFeedContext(ctx context.Context) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM feed_items`); err != nil {
			return errors.Wrap(err, "error deleting the cached items")
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM feed_cache`); err != nil {
			return errors.Wrap(err, "error deleting the cache timestamp")
		}

		return nil
	})
}

func (s *SQLiteFeedStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "error starting the transaction")
	}

	if err := fn(tx); err != nil {
		log.Printf("[ERROR] failure: %v", err)
		metrics.AppErrors.With(prometheus.Labels{"type": "SQL_WRITE"}).Inc()
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			log.Printf("[ERROR] failure to roll back: %v", rollbackErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		metrics.AppErrors.With(prometheus.Labels{"type": "SQL_WRITE"}).Inc()
		return errors.Wrap(err, "error committing the transaction")
	}

	return nil
}

func (s *SQLiteFeedStore) scan(rows *sql.Rows) ([]feed.Item, error) {
	items := []feed.Item{}
	for rows.Next() {
		var (
			tmpid          string
			tmpdescription string
			tmplocation    string
			tmpimage       string
		)

		if err := rows.Scan(&tmpid, &tmpdescription, &tmplocation, &tmpimage); err != nil {
			metrics.AppErrors.With(prometheus.Labels{"type": "SQL_SCAN"}).Inc()
			return nil, errors.Wrap(err, "error scanning the retrieved rows")
		}

		id, err := uuid.Parse(tmpid)
		if err != nil {
			return nil, errors.Wrap(err, "error parsing item id")
		}

		image, err := feed.NewImageURL(tmpimage)
		if err != nil {
			return nil, errors.Wrap(err, "error creating image url")
		}

		item, err := feed.NewItem(id, tmpdescription, tmplocation, image)
		if err != nil {
			return nil, errors.Wrap(err, "error creating item")
		}

		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating the retrieved rows")
	}

	return items, nil
}

func goErr(fn func(ctx context.Context) error, completion func(error)) loader.Task {
	return loader.Go(func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	}, func(result loader.Result[struct{}]) {
		completion(result.Err)
	})
}
