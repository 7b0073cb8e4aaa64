// Package store holds the persistence accessors for every ledger. A single
// Store is built at startup and shared by all handlers.
package store

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt" // Password hashing
	"gorm.io/gorm"               // GORM ORM library
)

// Store wraps the shared GORM handle
type Store struct {
	db        *gorm.DB
	hashCost  int
	dummyHash []byte // compared against when a username is unknown
}

// Option configures a Store
type Option func(*Store)

// WithHashCost overrides the bcrypt cost
func WithHashCost(cost int) Option {
	return func(s *Store) { s.hashCost = cost }
}

// New builds a Store around db
func New(db *gorm.DB, opts ...Option) *Store {
	s := &Store{db: db, hashCost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(s)
	}
	s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.hashCost)
	return s
}

// Ping checks that the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
