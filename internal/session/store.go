// Package session persists the admin's access token between runs.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketSession = []byte("session")

const currentKey = "current"

// record is the persisted form of a login
type record struct {
	Token    string    `json:"token"`
	Email    string    `json:"email"`
	IssuedAt time.Time `json:"issued_at"`
}

// Store keeps the current session in BoltDB with an in-memory copy for the
// per-request token lookup.
type Store struct {
	db *bolt.DB
	mu sync.RWMutex

	current record
}

// Open opens (or creates) the session database at path. An empty path gives
// a memory-only store that forgets the token on exit.
func Open(path string) (*Store, error) {
	if path == "" {
		return &Store{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open session db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSession)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db}
	if err := s.load(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSession)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(currentKey)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil || data == nil {
		return err
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		// A corrupt record is treated as logged out.
		return nil
	}
	s.current = rec
	return nil
}

// Close releases the database file
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Token returns the current access token, or "" when logged out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Token
}

// Email returns the address the current token was issued for.
func (s *Store) Email() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Email
}

// IssuedAt returns when the current token was saved.
func (s *Store) IssuedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.IssuedAt
}

// Save replaces the current session
func (s *Store) Save(token, email string) error {
	rec := record{Token: token, Email: email, IssuedAt: time.Now().UTC()}

	if s.db != nil {
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		err = s.db.Update(func(tx *bolt.Tx) error {
			return tx.Bucket(bucketSession).Put([]byte(currentKey), data)
		})
		if err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
	}

	s.mu.Lock()
	s.current = rec
	s.mu.Unlock()
	return nil
}

// Clear forgets the current session
func (s *Store) Clear() error {
	s.mu.Lock()
	s.current = record{}
	s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSession).Delete([]byte(currentKey))
	})
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
