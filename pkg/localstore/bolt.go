package localstore

import (
	"log/slog"

	bolt "go.etcd.io/bbolt"
)

var boltBucket = []byte("localstore")

// Bolt stores keys in a single bbolt bucket. Survives restarts like File but
// keeps everything in one file.
type Bolt struct {
	db  *bolt.DB
	log *slog.Logger
}

func OpenBolt(path string, l *slog.Logger) (*Bolt, error) {
	if l == nil {
		l = slog.Default()
	}
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Bolt{db: db, log: l}, nil
}

func (b *Bolt) Close() error { return b.db.Close() }

func (b *Bolt) Get(key string) ([]byte, bool) {
	var out []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(boltBucket).Get([]byte(key))
		if v != nil {
			out = make([]byte, len(v))
			copy(out, v)
		}
		return nil
	})
	if err != nil || out == nil {
		return nil, false
	}
	return out, true
}

func (b *Bolt) Set(key string, data []byte) {
	err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Put([]byte(key), data)
	})
	if err != nil {
		b.log.Warn("localstore_write_failed", "key", key, "error", err)
	}
}

func (b *Bolt) Delete(key string) {
	err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Delete([]byte(key))
	})
	if err != nil {
		b.log.Warn("localstore_delete_failed", "key", key, "error", err)
	}
}
