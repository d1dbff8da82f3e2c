package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	itemsBucket  = []byte("items")
	sharesBucket = []byte("shares")
)

// ErrNotFound is returned when a key is absent from the archive.
var ErrNotFound = errors.New("not found")

// Store is the publishing archive: every entry ever posted plus the share
// index, kept so feed files can be rebuilt from scratch.
type Store struct {
	db *bolt.DB
}

func NewStore(dbPath string) (*Store, error) {
	return NewStoreWithTimeout(dbPath, 1*time.Second)
}

func NewStoreWithTimeout(dbPath string, timeout time.Duration) (*Store, error) {
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{itemsBucket, sharesBucket} {
			if _, createErr := tx.CreateBucketIfNotExists(bucket); createErr != nil {
				return createErr
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) SaveItem(item *Item) error {
	if item.ID == "" {
		return fmt.Errorf("item has no id")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return putJSON(tx.Bucket(itemsBucket), item.ID, item)
	})
}

func (s *Store) GetItem(id string) (*Item, error) {
	var item Item
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(itemsBucket).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("item %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(data, &item)
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// GetItems returns archived items newest first. A limit <= 0 returns all.
func (s *Store) GetItems(limit int) ([]Item, error) {
	var items []Item
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(itemsBucket).ForEach(func(_ []byte, v []byte) error {
			var item Item
			if err := json.Unmarshal(v, &item); err != nil {
				return nil
			}
			items = append(items, item)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Date != items[j].Date {
			return items[i].Date > items[j].Date
		}
		if items[i].GeneratedAt != items[j].GeneratedAt {
			return items[i].GeneratedAt > items[j].GeneratedAt
		}
		return items[i].ID > items[j].ID
	})

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) DeleteItem(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(itemsBucket)
		if b.Get([]byte(id)) == nil {
			return fmt.Errorf("item %s: %w", id, ErrNotFound)
		}
		return b.Delete([]byte(id))
	})
}

// ReplaceDate stores item and removes every other entry with the same date,
// keeping one post per day for the daily weather feed.
func (s *Store) ReplaceDate(item *Item) (removed int, err error) {
	if item.ID == "" {
		return 0, fmt.Errorf("item has no id")
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(itemsBucket)
		// Deleting through a cursor mid-iteration skips keys, so collect first.
		var stale [][]byte
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var existing Item
			if jsonErr := json.Unmarshal(v, &existing); jsonErr != nil {
				continue
			}
			if existing.Date == item.Date && existing.ID != item.ID {
				stale = append(stale, append([]byte(nil), k...))
			}
		}
		for _, k := range stale {
			if delErr := b.Delete(k); delErr != nil {
				return delErr
			}
		}
		removed = len(stale)
		return putJSON(b, item.ID, item)
	})
	return removed, err
}

func (s *Store) SaveShare(entry *ShareEntry) error {
	if entry.Image == "" {
		return fmt.Errorf("share entry has no image")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return putJSON(tx.Bucket(sharesBucket), entry.Key(), entry)
	})
}

// GetShares returns the share index ordered by key.
func (s *Store) GetShares() ([]ShareEntry, error) {
	var entries []ShareEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(sharesBucket).ForEach(func(_ []byte, v []byte) error {
			var e ShareEntry
			if err := json.Unmarshal(v, &e); err != nil {
				return nil
			}
			entries = append(entries, e)
			return nil
		})
	})
	return entries, err
}

func putJSON(b *bolt.Bucket, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put([]byte(key), data)
}
