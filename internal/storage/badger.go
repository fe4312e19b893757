package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"parasight/internal/domain"
	"parasight/internal/urlnorm"
)

const (
	// maxConflictRetries bounds how often a transaction is replayed after
	// Badger reports a write conflict.
	maxConflictRetries = 50
	// conflictBackoff is the upper bound of the jittered pause per attempt.
	conflictBackoff = time.Millisecond
)

// BadgerRepository implements the Repository interface using BadgerDB.
//
// Key layout:
//
//	link:{id}          JSON-encoded domain.Link
//	url:{url}          id of the link stored under that exact URL
//	norm:{normalized}  id of the link owning that normalized URL
type BadgerRepository struct {
	db  *badger.DB
	log logrus.FieldLogger
}

// NewBadgerRepository creates and initializes a new BadgerDB repository.
// It opens the database at the specified path.
func NewBadgerRepository(dbPath string, logger logrus.FieldLogger) (*BadgerRepository, error) {
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = &badgerLogger{logger.WithField("component", "badgerdb")}

	db, err := badger.Open(opts)
	if err != nil {
		logger.WithError(err).Error("Failed to open BadgerDB")
		return nil, fmt.Errorf("failed to open badger db at %s: %w", dbPath, err)
	}
	logger.Info("BadgerDB opened successfully at path: ", dbPath)

	return &BadgerRepository{
		db:  db,
		log: logger.WithField("component", "repository"),
	}, nil
}

// Close closes the BadgerDB database connection.
func (r *BadgerRepository) Close() error {
	r.log.Info("Closing BadgerDB...")
	if err := r.db.Close(); err != nil {
		r.log.WithError(err).Error("Error closing BadgerDB")
		return err
	}
	r.log.Info("BadgerDB closed.")
	return nil
}

func linkKey(id string) []byte         { return []byte("link:" + id) }
func urlKey(rawURL string) []byte      { return []byte("url:" + rawURL) }
func normKey(normalized string) []byte { return []byte("norm:" + normalized) }

var linkPrefix = []byte("link:")

// StoreIfAbsent looks the URL up by exact match, then by normalized form,
// and inserts a new record only when both miss. The lookups and the insert
// share one transaction, so concurrent callers cannot both insert.
func (r *BadgerRepository) StoreIfAbsent(ctx context.Context, nl NewLink) (string, error) {
	if strings.TrimSpace(nl.URL) == "" {
		return "", errors.New("cannot store link without url")
	}
	normalized := urlnorm.Normalize(nl.URL)
	log := r.log.WithFields(logrus.Fields{
		"url":            nl.URL,
		"normalized_url": normalized,
	})

	var (
		id      string
		created bool
	)
	err := r.update(ctx, func(txn *badger.Txn) error {
		created = false

		existing, err := lookupIndex(txn, urlKey(nl.URL))
		if err != nil {
			return err
		}
		if existing == "" {
			existing, err = lookupIndex(txn, normKey(normalized))
			if err != nil {
				return err
			}
		}
		if existing != "" {
			id = existing
			return nil
		}

		link := domain.Link{
			ID:          uuid.NewString(),
			URL:         nl.URL,
			Title:       nl.Title,
			Description: nl.Description,
			SourceNote:  nl.SourceNote,
			CreatedAt:   time.Now().UTC(),
		}
		if err := putLink(txn, link); err != nil {
			return err
		}
		if err := txn.Set(urlKey(link.URL), []byte(link.ID)); err != nil {
			return err
		}
		if err := txn.Set(normKey(normalized), []byte(link.ID)); err != nil {
			return err
		}
		id, created = link.ID, true
		return nil
	})
	if err != nil {
		log.WithError(err).Error("Failed to store link")
		return "", fmt.Errorf("failed to store link %s: %w", nl.URL, err)
	}

	if created {
		log.WithField("link_id", id).Info("Stored new link")
	} else {
		log.WithField("link_id", id).Info("Link already exists")
	}
	return id, nil
}

// GetLink returns a single link.
func (r *BadgerRepository) GetLink(ctx context.Context, id string) (domain.Link, error) {
	var link domain.Link
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		link, err = getLink(txn, id)
		return err
	})
	if err != nil {
		return domain.Link{}, fmt.Errorf("failed to get link %s: %w", id, err)
	}
	return link, nil
}

// ListLinks retrieves all links, newest first.
func (r *BadgerRepository) ListLinks(ctx context.Context) ([]domain.Link, error) {
	var links []domain.Link
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		links, err = scanLinks(ctx, txn)
		return err
	})
	if err != nil {
		r.log.WithError(err).Error("Failed to retrieve links from BadgerDB")
		return nil, fmt.Errorf("failed to list links: %w", err)
	}

	sort.Slice(links, func(i, j int) bool {
		return links[i].CreatedAt.After(links[j].CreatedAt)
	})

	r.log.WithField("link_count", len(links)).Debug("Links retrieved successfully")
	return links, nil
}

// SaveLink stores or overwrites a link. Index keys are only claimed when
// no other record owns them yet.
func (r *BadgerRepository) SaveLink(ctx context.Context, link domain.Link) error {
	if link.ID == "" {
		link.ID = uuid.NewString()
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}
	if err := link.Validate(); err != nil {
		return err
	}
	log := r.log.WithFields(logrus.Fields{
		"link_id": link.ID,
		"url":     link.URL,
	})

	err := r.update(ctx, func(txn *badger.Txn) error {
		if err := putLink(txn, link); err != nil {
			return err
		}
		for _, key := range [][]byte{urlKey(link.URL), normKey(link.NormalizedURL())} {
			owner, err := lookupIndex(txn, key)
			if err != nil {
				return err
			}
			if owner == "" {
				if err := txn.Set(key, []byte(link.ID)); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		log.WithError(err).Error("Failed to save link to BadgerDB")
		return fmt.Errorf("failed to save link: %w", err)
	}

	log.Debug("Link saved successfully")
	return nil
}

// DeleteLink removes a link together with the index keys pointing at it.
func (r *BadgerRepository) DeleteLink(ctx context.Context, id string) error {
	log := r.log.WithField("link_id", id)

	err := r.update(ctx, func(txn *badger.Txn) error {
		link, err := getLink(txn, id)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return deleteLink(txn, link)
	})
	if err != nil {
		log.WithError(err).Error("Failed to delete link from BadgerDB")
		return fmt.Errorf("failed to delete link %s: %w", id, err)
	}

	log.Info("Link deleted successfully")
	return nil
}

// ApplyClassification stores the classifier result on the link.
func (r *BadgerRepository) ApplyClassification(ctx context.Context, id string, c Classification) error {
	if !c.Para.Bucket.Valid() {
		return fmt.Errorf("invalid bucket %q", c.Para.Bucket)
	}
	return r.modify(ctx, []string{id}, func(link *domain.Link) {
		para := c.Para
		link.Para = &para
		link.Tags = append([]string{}, c.Tags...)
		link.Subcategory = c.Subcategory
	})
}

// UpdateCategory moves links to a bucket and/or group. When a bucket is set
// on an unclassified link, a Para with only the bucket is created.
func (r *BadgerRepository) UpdateCategory(ctx context.Context, ids []string, update CategoryUpdate) error {
	if update.Bucket != nil && !update.Bucket.Valid() {
		return fmt.Errorf("invalid bucket %q", *update.Bucket)
	}
	return r.modify(ctx, ids, func(link *domain.Link) {
		if update.Bucket != nil {
			if link.Para != nil {
				link.Para.Bucket = *update.Bucket
			} else {
				link.Para = &domain.Para{Bucket: *update.Bucket}
			}
		}
		if update.Subcategory != nil {
			link.Subcategory = *update.Subcategory
		}
	})
}

// UpdateTitle replaces the display title of a link.
func (r *BadgerRepository) UpdateTitle(ctx context.Context, id, title string) error {
	return r.modify(ctx, []string{id}, func(link *domain.Link) {
		link.Title = title
	})
}

// RenameSubcategory renames a group across all links of a bucket.
func (r *BadgerRepository) RenameSubcategory(ctx context.Context, bucket domain.Bucket, from, to string) (int, error) {
	to = strings.TrimSpace(to)
	log := r.log.WithFields(logrus.Fields{
		"bucket": bucket,
		"from":   from,
		"to":     to,
	})
	if to == "" {
		log.Warn("Refusing to rename subcategory to an empty name")
		return 0, nil
	}

	var renamed int
	err := r.update(ctx, func(txn *badger.Txn) error {
		renamed = 0
		links, err := scanLinks(ctx, txn)
		if err != nil {
			return err
		}
		for _, link := range links {
			if link.Para == nil || link.Para.Bucket != bucket || link.Subcategory != from {
				continue
			}
			link.Subcategory = to
			if err := putLink(txn, link); err != nil {
				return err
			}
			renamed++
		}
		return nil
	})
	if err != nil {
		log.WithError(err).Error("Failed to rename subcategory")
		return 0, fmt.Errorf("failed to rename subcategory %q: %w", from, err)
	}

	log.WithField("renamed", renamed).Info("Subcategory renamed")
	return renamed, nil
}

// Dedup groups all records by normalized URL and deletes every record but
// the earliest created one in each group. Index keys of the removed
// records are pointed at the survivor.
func (r *BadgerRepository) Dedup(ctx context.Context) (DedupReport, error) {
	var links []domain.Link
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		links, err = scanLinks(ctx, txn)
		return err
	})
	if err != nil {
		return DedupReport{}, fmt.Errorf("failed to scan links: %w", err)
	}

	groups := make(map[string][]domain.Link)
	var order []string
	for _, link := range links {
		key := link.NormalizedURL()
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], link)
	}

	wb := r.db.NewWriteBatch()
	defer wb.Cancel()

	removed := 0
	for _, key := range order {
		group := groups[key]
		if len(group) < 2 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return DedupReport{}, err
		}
		sort.Slice(group, func(i, j int) bool {
			if group[i].CreatedAt.Equal(group[j].CreatedAt) {
				return group[i].ID < group[j].ID
			}
			return group[i].CreatedAt.Before(group[j].CreatedAt)
		})

		keep := group[0]
		if err := wb.Set(normKey(key), []byte(keep.ID)); err != nil {
			return DedupReport{}, err
		}
		for _, dup := range group[1:] {
			if err := wb.Delete(linkKey(dup.ID)); err != nil {
				return DedupReport{}, err
			}
			if err := wb.Set(urlKey(dup.URL), []byte(keep.ID)); err != nil {
				return DedupReport{}, err
			}
			removed++
		}
		// A duplicate may share the survivor's exact URL; restore its key last.
		if err := wb.Set(urlKey(keep.URL), []byte(keep.ID)); err != nil {
			return DedupReport{}, err
		}
		r.log.WithFields(logrus.Fields{
			"normalized_url": key,
			"kept":           keep.ID,
			"removed":        len(group) - 1,
		}).Info("Removed duplicate links")
	}

	if err := wb.Flush(); err != nil {
		return DedupReport{}, fmt.Errorf("failed to apply dedup: %w", err)
	}

	report := DedupReport{Removed: removed, Remaining: len(links) - removed}
	r.log.WithFields(logrus.Fields{
		"removed":   report.Removed,
		"remaining": report.Remaining,
	}).Info("Dedup completed")
	return report, nil
}

// RunGC periodically reclaims value log space until ctx is cancelled.
func (r *BadgerRepository) RunGC(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			err := r.db.RunValueLogGC(0.7)
			switch {
			case err == nil:
				r.log.Info("BadgerDB GC completed successfully")
			case errors.Is(err, badger.ErrNoRewrite):
				r.log.Debug("BadgerDB GC: No rewrite needed")
			default:
				r.log.WithError(err).Error("BadgerDB GC failed")
			}
		case <-ctx.Done():
			r.log.Info("Stopping BadgerDB GC routine due to context cancellation")
			return
		}
	}
}

// update runs fn in a read-write transaction, replaying it when Badger
// reports a conflict with a concurrent transaction.
func (r *BadgerRepository) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := r.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) || attempt == maxConflictRetries {
			return err
		}
		r.log.WithField("attempt", attempt).Debug("Transaction conflict, retrying")

		// Jitter spreads out writers that collided on the same keys.
		pause := time.Duration(rand.Int64N(int64(conflictBackoff) * int64(min(attempt, 10))))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pause):
		}
	}
}

// modify loads each link, applies fn and writes it back, all in one
// transaction.
func (r *BadgerRepository) modify(ctx context.Context, ids []string, fn func(link *domain.Link)) error {
	err := r.update(ctx, func(txn *badger.Txn) error {
		for _, id := range ids {
			link, err := getLink(txn, id)
			if err != nil {
				return fmt.Errorf("link %s: %w", id, err)
			}
			fn(&link)
			if err := putLink(txn, link); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		r.log.WithError(err).WithField("link_ids", ids).Error("Failed to update links")
		return fmt.Errorf("failed to update links: %w", err)
	}
	return nil
}

func getLink(txn *badger.Txn, id string) (domain.Link, error) {
	item, err := txn.Get(linkKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.Link{}, ErrNotFound
	}
	if err != nil {
		return domain.Link{}, err
	}
	var link domain.Link
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &link)
	})
	if err != nil {
		return domain.Link{}, fmt.Errorf("failed to unmarshal link data for key %s: %w", item.Key(), err)
	}
	return link, nil
}

func putLink(txn *badger.Txn, link domain.Link) error {
	linkBytes, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("failed to marshal link: %w", err)
	}
	return txn.SetEntry(badger.NewEntry(linkKey(link.ID), linkBytes))
}

func deleteLink(txn *badger.Txn, link domain.Link) error {
	if err := txn.Delete(linkKey(link.ID)); err != nil {
		return err
	}
	for _, key := range [][]byte{urlKey(link.URL), normKey(link.NormalizedURL())} {
		owner, err := readIndex(txn, key)
		if err != nil {
			return err
		}
		if owner == link.ID {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
	}
	return nil
}

// lookupIndex resolves an index key to a link ID. Keys pointing at a
// record that no longer exists are treated as absent.
func lookupIndex(txn *badger.Txn, key []byte) (string, error) {
	id, err := readIndex(txn, key)
	if err != nil || id == "" {
		return "", err
	}
	if _, err := txn.Get(linkKey(id)); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return "", nil
		}
		return "", err
	}
	return id, nil
}

func readIndex(txn *badger.Txn, key []byte) (string, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return "", err
	}
	return string(val), nil
}

func scanLinks(ctx context.Context, txn *badger.Txn) ([]domain.Link, error) {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	var links []domain.Link
	for it.Seek(linkPrefix); it.ValidForPrefix(linkPrefix); it.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item := it.Item()
		err := item.Value(func(val []byte) error {
			var link domain.Link
			if err := json.Unmarshal(val, &link); err != nil {
				return fmt.Errorf("failed to unmarshal link data for key %s: %w", item.Key(), err)
			}
			links = append(links, link)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return links, nil
}

// badgerLogger adapts logrus.FieldLogger to Badger's logger interface.
type badgerLogger struct {
	logger logrus.FieldLogger
}

func (l *badgerLogger) Errorf(f string, v ...interface{}) {
	l.logger.Errorf(f, v...)
}
func (l *badgerLogger) Warningf(f string, v ...interface{}) {
	l.logger.Warningf(f, v...)
}
func (l *badgerLogger) Infof(f string, v ...interface{}) {
	l.logger.Infof(f, v...)
}
func (l *badgerLogger) Debugf(f string, v ...interface{}) {
	l.logger.Debugf(f, v...)
}
