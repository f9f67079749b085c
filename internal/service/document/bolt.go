package document

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/zhouzirui/study-mentor/backend/internal/model/document"
)

var documentsBucket = []byte("documents")

// BoltBackend keeps documents in a bbolt file, keyed by owner.
type BoltBackend struct {
	db *bolt.DB
}

// OpenBoltBackend opens (or creates) the file at path. Documents left by a
// previous process are dropped: their sessions no longer exist.
func OpenBoltBackend(path string) (*BoltBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create document directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open document db %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if b := tx.Bucket(documentsBucket); b != nil {
			if err := tx.DeleteBucket(documentsBucket); err != nil {
				return err
			}
		}
		_, err := tx.CreateBucket(documentsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to prepare document bucket: %w", err)
	}
	return &BoltBackend{db: db}, nil
}

func (b *BoltBackend) Get(_ context.Context, owner string) (document.Document, error) {
	var doc document.Document
	err := b.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(documentsBucket).Get([]byte(owner))
		if raw == nil {
			return ErrNotFound
		}
		return json.Unmarshal(raw, &doc)
	})
	if err != nil {
		return document.Document{}, err
	}
	return doc, nil
}

func (b *BoltBackend) Put(_ context.Context, doc document.Document) error {
	enc, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(documentsBucket)
		if err := bucket.Delete([]byte(doc.Owner)); err != nil {
			return err
		}
		return bucket.Put([]byte(doc.Owner), enc)
	})
}

func (b *BoltBackend) SetText(_ context.Context, owner, id, text string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(documentsBucket)
		raw := bucket.Get([]byte(owner))
		if raw == nil {
			return ErrNotFound
		}

		var doc document.Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return err
		}
		if doc.ID != id {
			return ErrNotFound
		}
		doc.Text = text
		doc.Extracted = true

		enc, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(owner), enc)
	})
}

func (b *BoltBackend) Delete(_ context.Context, owner string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(documentsBucket).Delete([]byte(owner))
	})
}

// Len returns the number of owners holding a document.
func (b *BoltBackend) Len() (int, error) {
	var n int
	err := b.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(documentsBucket).Stats().KeyN
		return nil
	})
	return n, err
}

func (b *BoltBackend) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}
